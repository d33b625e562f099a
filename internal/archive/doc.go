// Package archive unpacks WasmEdge distribution archives and copies their
// contents into a version directory.
//
// Runtime and plugin archives come in two shapes: a single top-level
// directory named after the release (WasmEdge-0.14.1-Linux/...), or the
// install directories placed directly at the archive root. SourceRoot
// recognises both. CopyTree then merges the tree into its destination,
// folding lib64 into lib.
package archive
