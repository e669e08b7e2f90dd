// Package candh implements compare-and-handle change detection.
//
// A Registry maps declared property types to Handlers and holds a Schema
// (a property-descriptor table with typed accessors) per entity type. An
// Engine walks a src/dest pair of the same type, lets the handler of each
// property copy differences into dest, and accumulates what changed in a
// Context. Assemble turns a Context into a domain.HistoryMaster with one
// domain.HistoryAttribute per recorded change.
package candh
