// Package graph is the narrow, read-only view of a finished compilation that
// the manifest builder traverses: modules, async dependency blocks,
// dependency edges and chunk groups with their origin records.
//
// Bundler integrations emit a JSON Snapshot that Decode links into the
// pointer graph; tests build Compilation values directly. The import
// Registry is collected separately and records which raw requests each
// source file passes to a lazy declaration.
package graph
