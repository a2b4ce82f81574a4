// Package merge translates identifiers from a source repository into a
// destination repository during import.
//
// A Context holds four remap tables (class, entity, resource, code spec).
// Each table is write-once per key: the first successful resolution is
// kept, and misses are looked up again on the next call because the
// destination may gain the missing rows later (for example after it
// imports more schemas).
//
// The entity table starts with the well-known ids every repository shares,
// so they resolve before any explicit remap.
package merge
