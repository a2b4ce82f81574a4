// Package changeset defines immutable repository deltas and the pipeline
// that applies an ordered sequence of them.
//
// A changeset names the changeset it was created against (Parent). A
// repository applies a linear chain: changeset C is applicable only when the
// repository's last-applied pointer equals C.Parent. Each changeset is
// applied atomically; a failure leaves no partial effect of that changeset
// but keeps every changeset applied before it.
//
// Changeset ids are content addressed: SHA-256 over a domain prefix, a NUL
// separator and the canonical JSON of the changeset body.
package changeset
