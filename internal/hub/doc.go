// Package hub is a local changeset hub backed by BadgerDB.
//
// The hub keeps the linear chain of pushed changesets, issues replica ids
// and arbitrates entity locks and code reservations for every repository
// that uses it as its coordinator. Replicas exchange changesets by pushing
// their folded local transactions and pulling what others pushed since
// their last applied changeset.
//
// Key layout:
//
//	cs/<seq>          changeset JSON, seq zero-padded so keys sort in push order
//	csid/<id>         seq of a changeset id
//	head              id of the newest changeset
//	replica/next      next replica id to issue (big-endian uint32)
//	lock/<entity>     owning replica of an entity lock
//	code/<code>       owning replica of a code reservation
package hub
