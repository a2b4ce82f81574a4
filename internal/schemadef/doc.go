// Package schemadef compiles CUE schema definitions into class descriptors.
//
// A definition file declares one or more schemas:
//
//	schema: Plant: {
//		alias:   "pl"
//		version: "1.2.0"
//		class: Pump: {kind: "entity", base: "Core:Element"}
//		class: PumpFeedsPump: {kind: "relationship", strategy: "link_table"}
//	}
//
// Relationship classes must name their storage strategy; it is fixed when
// the schema is imported and never re-derived from the class shape.
package schemadef
