// Package repo is the repository handle: it opens a file through the
// compatibility gate, applies pending changesets, owns the id allocator and
// the concurrency coordinator, and exposes token-guarded writes.
//
// Open runs a fixed sequence:
//
//  1. classify the stored profile version against Options.Supported
//  2. reject TOO_NEW / TOO_OLD, and UPGRADE_REQUIRED unless AllowUpgrade
//  3. apply Options.PendingChangesets with the coordinator as observer
//  4. upgrade the layout when allowed and available
//  5. seed the allocator for the stored replica id
//
// A handle is single-writer and not safe for concurrent use.
package repo
