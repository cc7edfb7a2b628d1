// Package formats provides parsers for 3D asset file formats.
package formats

// Note: PLY (Polygon File Format) is implemented in ply.go
