// PLY (Polygon File Format / Stanford Triangle Format) parser for point clouds and meshes.

package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	gomath "math"
	"os"
	"strconv"
	"strings"
)

// PLY format errors.
var (
	ErrInvalidPLYMagic      = errors.New("invalid PLY magic: expected 'ply'")
	ErrUnsupportedPLYFormat = errors.New("unsupported PLY format")
	ErrInvalidPLYHeader     = errors.New("invalid PLY header")
	ErrTruncatedPLYData     = errors.New("truncated PLY data")
	ErrInvalidPLYIndex      = errors.New("PLY face references missing vertex")
)

// PLYFormat is the body encoding declared in the header.
type PLYFormat int

const (
	PLYFormatASCII              PLYFormat = iota // format ascii 1.0
	PLYFormatBinaryLittleEndian                  // format binary_little_endian 1.0
	PLYFormatBinaryBigEndian                     // format binary_big_endian 1.0
)

// String returns the header keyword for the format.
func (f PLYFormat) String() string {
	switch f {
	case PLYFormatASCII:
		return "ascii"
	case PLYFormatBinaryLittleEndian:
		return "binary_little_endian"
	case PLYFormatBinaryBigEndian:
		return "binary_big_endian"
	default:
		return fmt.Sprintf("Unknown(%d)", int(f))
	}
}

// PLYScalarType is a property value type.
type PLYScalarType int

const (
	PLYInvalid PLYScalarType = iota
	PLYInt8
	PLYUint8
	PLYInt16
	PLYUint16
	PLYInt32
	PLYUint32
	PLYFloat32
	PLYFloat64
)

// Size returns the binary size of the type in bytes.
func (t PLYScalarType) Size() int {
	switch t {
	case PLYInt8, PLYUint8:
		return 1
	case PLYInt16, PLYUint16:
		return 2
	case PLYInt32, PLYUint32, PLYFloat32:
		return 4
	case PLYFloat64:
		return 8
	default:
		return 0
	}
}

// colorScale returns the divisor mapping an integer color channel to 0..1.
func (t PLYScalarType) colorScale() float64 {
	switch t {
	case PLYUint8, PLYInt8:
		return 255
	case PLYUint16, PLYInt16:
		return 65535
	default:
		return 1
	}
}

func parsePLYScalarType(name string) PLYScalarType {
	switch name {
	case "char", "int8":
		return PLYInt8
	case "uchar", "uint8":
		return PLYUint8
	case "short", "int16":
		return PLYInt16
	case "ushort", "uint16":
		return PLYUint16
	case "int", "int32":
		return PLYInt32
	case "uint", "uint32":
		return PLYUint32
	case "float", "float32":
		return PLYFloat32
	case "double", "float64":
		return PLYFloat64
	default:
		return PLYInvalid
	}
}

// PLYProperty describes one property of an element.
type PLYProperty struct {
	Name      string
	Type      PLYScalarType // Value type (item type for lists)
	IsList    bool
	CountType PLYScalarType // List length type
}

// PLYElement describes one element block (vertex, face, ...).
type PLYElement struct {
	Name       string
	Count      int
	Properties []PLYProperty
}

// PLYHeader is the parsed header.
type PLYHeader struct {
	Format   PLYFormat
	Version  string
	Comments []string
	Elements []PLYElement
}

// PLY represents a parsed PLY file reduced to what the viewer draws.
type PLY struct {
	Header    PLYHeader
	Vertices  [][3]float32 // Vertex positions
	Normals   [][3]float32 // Per-vertex normals (nil if absent)
	Colors    [][3]float32 // Per-vertex RGB in 0..1 (nil if absent)
	Triangles [][3]uint32  // Faces, fan-triangulated
}

// HasNormals returns true if the file carried nx/ny/nz.
func (p *PLY) HasNormals() bool {
	return len(p.Normals) > 0
}

// HasColors returns true if the file carried red/green/blue.
func (p *PLY) HasColors() bool {
	return len(p.Colors) > 0
}

// ParsePLY parses PLY data from a byte slice.
func ParsePLY(data []byte) (*PLY, error) {
	header, bodyStart, err := parsePLYHeader(data)
	if err != nil {
		return nil, err
	}

	var src plyValueSource
	switch header.Format {
	case PLYFormatASCII:
		src = newPLYASCIISource(data[bodyStart:])
	case PLYFormatBinaryLittleEndian:
		src = &plyBinarySource{data: data[bodyStart:], order: binary.LittleEndian}
	case PLYFormatBinaryBigEndian:
		src = &plyBinarySource{data: data[bodyStart:], order: binary.BigEndian}
	}

	ply := &PLY{Header: header}
	for _, elem := range header.Elements {
		switch elem.Name {
		case "vertex":
			if err := ply.readVertices(src, elem); err != nil {
				return nil, err
			}
		case "face":
			if err := ply.readFaces(src, elem); err != nil {
				return nil, err
			}
		default:
			if err := skipPLYElement(src, elem); err != nil {
				return nil, fmt.Errorf("skipping element %q: %w", elem.Name, err)
			}
		}
	}

	for _, tri := range ply.Triangles {
		for _, idx := range tri {
			if int(idx) >= len(ply.Vertices) {
				return nil, fmt.Errorf("%w: index %d, %d vertices", ErrInvalidPLYIndex, idx, len(ply.Vertices))
			}
		}
	}

	return ply, nil
}

// LoadPLY parses a PLY file from disk.
func LoadPLY(path string) (*PLY, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return ParsePLY(data)
}

func parsePLYHeader(data []byte) (PLYHeader, int, error) {
	var header PLYHeader

	if len(data) < 4 {
		return header, 0, ErrTruncatedPLYData
	}
	if !bytes.HasPrefix(data, []byte("ply")) || (data[3] != '\n' && data[3] != '\r') {
		return header, 0, ErrInvalidPLYMagic
	}

	pos := 0
	seenFormat := false
	for {
		end := bytes.IndexByte(data[pos:], '\n')
		if end < 0 {
			return header, 0, fmt.Errorf("%w: missing end_header", ErrTruncatedPLYData)
		}
		line := strings.TrimRight(string(data[pos:pos+end]), "\r")
		pos += end + 1

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "ply":
		case "comment", "obj_info":
			header.Comments = append(header.Comments, strings.TrimSpace(strings.TrimPrefix(line, fields[0])))
		case "format":
			if len(fields) != 3 {
				return header, 0, fmt.Errorf("%w: %q", ErrInvalidPLYHeader, line)
			}
			switch fields[1] {
			case "ascii":
				header.Format = PLYFormatASCII
			case "binary_little_endian":
				header.Format = PLYFormatBinaryLittleEndian
			case "binary_big_endian":
				header.Format = PLYFormatBinaryBigEndian
			default:
				return header, 0, fmt.Errorf("%w: %s", ErrUnsupportedPLYFormat, fields[1])
			}
			header.Version = fields[2]
			seenFormat = true
		case "element":
			if len(fields) != 3 {
				return header, 0, fmt.Errorf("%w: %q", ErrInvalidPLYHeader, line)
			}
			count, err := strconv.Atoi(fields[2])
			if err != nil || count < 0 {
				return header, 0, fmt.Errorf("%w: bad element count %q", ErrInvalidPLYHeader, fields[2])
			}
			header.Elements = append(header.Elements, PLYElement{Name: fields[1], Count: count})
		case "property":
			if len(header.Elements) == 0 {
				return header, 0, fmt.Errorf("%w: property before element", ErrInvalidPLYHeader)
			}
			prop, err := parsePLYProperty(fields)
			if err != nil {
				return header, 0, err
			}
			elem := &header.Elements[len(header.Elements)-1]
			elem.Properties = append(elem.Properties, prop)
		case "end_header":
			if !seenFormat {
				return header, 0, fmt.Errorf("%w: missing format line", ErrInvalidPLYHeader)
			}
			return header, pos, nil
		default:
			return header, 0, fmt.Errorf("%w: unknown keyword %q", ErrInvalidPLYHeader, fields[0])
		}
	}
}

func parsePLYProperty(fields []string) (PLYProperty, error) {
	if len(fields) == 5 && fields[1] == "list" {
		prop := PLYProperty{
			Name:      fields[4],
			IsList:    true,
			CountType: parsePLYScalarType(fields[2]),
			Type:      parsePLYScalarType(fields[3]),
		}
		if prop.CountType == PLYInvalid || prop.Type == PLYInvalid {
			return prop, fmt.Errorf("%w: bad list property %q", ErrInvalidPLYHeader, strings.Join(fields, " "))
		}
		return prop, nil
	}
	if len(fields) != 3 {
		return PLYProperty{}, fmt.Errorf("%w: %q", ErrInvalidPLYHeader, strings.Join(fields, " "))
	}
	prop := PLYProperty{Name: fields[2], Type: parsePLYScalarType(fields[1])}
	if prop.Type == PLYInvalid {
		return prop, fmt.Errorf("%w: unknown type %q", ErrInvalidPLYHeader, fields[1])
	}
	return prop, nil
}

func (p *PLY) readVertices(src plyValueSource, elem PLYElement) error {
	posIdx := [3]int{-1, -1, -1}
	normIdx := [3]int{-1, -1, -1}
	colorIdx := [3]int{-1, -1, -1}
	for i, prop := range elem.Properties {
		switch prop.Name {
		case "x":
			posIdx[0] = i
		case "y":
			posIdx[1] = i
		case "z":
			posIdx[2] = i
		case "nx":
			normIdx[0] = i
		case "ny":
			normIdx[1] = i
		case "nz":
			normIdx[2] = i
		case "red", "r", "diffuse_red":
			colorIdx[0] = i
		case "green", "g", "diffuse_green":
			colorIdx[1] = i
		case "blue", "b", "diffuse_blue":
			colorIdx[2] = i
		}
	}
	if posIdx[0] < 0 || posIdx[1] < 0 || posIdx[2] < 0 {
		return fmt.Errorf("%w: vertex element lacks x/y/z", ErrInvalidPLYHeader)
	}
	hasNormals := normIdx[0] >= 0 && normIdx[1] >= 0 && normIdx[2] >= 0
	hasColors := colorIdx[0] >= 0 && colorIdx[1] >= 0 && colorIdx[2] >= 0

	if err := checkPLYRows(src, elem); err != nil {
		return fmt.Errorf("vertex element: %w", err)
	}

	p.Vertices = make([][3]float32, elem.Count)
	if hasNormals {
		p.Normals = make([][3]float32, elem.Count)
	}
	if hasColors {
		p.Colors = make([][3]float32, elem.Count)
	}

	values := make([]float64, len(elem.Properties))
	for v := 0; v < elem.Count; v++ {
		for i, prop := range elem.Properties {
			if prop.IsList {
				if err := skipPLYList(src, prop); err != nil {
					return fmt.Errorf("vertex %d: %w", v, err)
				}
				continue
			}
			val, err := src.scalar(prop.Type)
			if err != nil {
				return fmt.Errorf("vertex %d: %w", v, err)
			}
			values[i] = val
		}

		for axis := 0; axis < 3; axis++ {
			p.Vertices[v][axis] = float32(values[posIdx[axis]])
			if hasNormals {
				p.Normals[v][axis] = float32(values[normIdx[axis]])
			}
			if hasColors {
				scale := elem.Properties[colorIdx[axis]].Type.colorScale()
				p.Colors[v][axis] = float32(values[colorIdx[axis]] / scale)
			}
		}
	}
	return nil
}

func (p *PLY) readFaces(src plyValueSource, elem PLYElement) error {
	indexProp := -1
	for i, prop := range elem.Properties {
		if prop.IsList && (prop.Name == "vertex_indices" || prop.Name == "vertex_index") {
			indexProp = i
			break
		}
	}

	if err := checkPLYRows(src, elem); err != nil {
		return fmt.Errorf("face element: %w", err)
	}

	for f := 0; f < elem.Count; f++ {
		for i, prop := range elem.Properties {
			if i != indexProp {
				var err error
				if prop.IsList {
					err = skipPLYList(src, prop)
				} else {
					_, err = src.scalar(prop.Type)
				}
				if err != nil {
					return fmt.Errorf("face %d: %w", f, err)
				}
				continue
			}

			n, err := readPLYListLen(src, prop)
			if err != nil {
				return fmt.Errorf("face %d: %w", f, err)
			}
			indices := make([]uint32, n)
			for k := range indices {
				idx, err := src.scalar(prop.Type)
				if err != nil {
					return fmt.Errorf("face %d: %w", f, err)
				}
				if idx < 0 {
					return fmt.Errorf("%w: negative index in face %d", ErrInvalidPLYIndex, f)
				}
				indices[k] = uint32(idx)
			}
			// Fan triangulation: (0, k, k+1)
			for k := 1; k+1 < len(indices); k++ {
				p.Triangles = append(p.Triangles, [3]uint32{indices[0], indices[k], indices[k+1]})
			}
		}
	}
	return nil
}

func skipPLYElement(src plyValueSource, elem PLYElement) error {
	if err := checkPLYRows(src, elem); err != nil {
		return err
	}
	for n := 0; n < elem.Count; n++ {
		for _, prop := range elem.Properties {
			var err error
			if prop.IsList {
				err = skipPLYList(src, prop)
			} else {
				_, err = src.scalar(prop.Type)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func skipPLYList(src plyValueSource, prop PLYProperty) error {
	n, err := readPLYListLen(src, prop)
	if err != nil {
		return err
	}
	for k := 0; k < n; k++ {
		if _, err := src.scalar(prop.Type); err != nil {
			return err
		}
	}
	return nil
}

// readPLYListLen reads a list count and checks it against what is left of
// the body, so a corrupt count cannot drive an allocation.
func readPLYListLen(src plyValueSource, prop PLYProperty) (int, error) {
	n, err := src.scalar(prop.CountType)
	if err != nil {
		return 0, err
	}
	if n < 0 || n != gomath.Trunc(n) {
		return 0, fmt.Errorf("%w: bad list length %v", ErrInvalidPLYHeader, n)
	}
	if n*float64(src.minSize(prop.Type)) > float64(src.remaining()) {
		return 0, fmt.Errorf("%w: list of %v values", ErrTruncatedPLYData, n)
	}
	return int(n), nil
}

// checkPLYRows rejects an element whose declared count cannot fit in the
// rest of the body. Elements without properties occupy nothing.
func checkPLYRows(src plyValueSource, elem PLYElement) error {
	row := 0
	for _, prop := range elem.Properties {
		if prop.IsList {
			row += src.minSize(prop.CountType)
		} else {
			row += src.minSize(prop.Type)
		}
	}
	if row == 0 {
		return nil
	}
	if elem.Count > src.remaining()/row {
		return fmt.Errorf("%w: %d %s rows declared, body too short", ErrTruncatedPLYData, elem.Count, elem.Name)
	}
	return nil
}

// plyValueSource yields successive scalar values from the body.
type plyValueSource interface {
	scalar(t PLYScalarType) (float64, error)
	// remaining is what is left of the body, in the unit minSize uses.
	remaining() int
	// minSize is the least body a value of type t consumes.
	minSize(t PLYScalarType) int
}

type plyASCIISource struct {
	tokens []string
	pos    int
}

func newPLYASCIISource(body []byte) *plyASCIISource {
	return &plyASCIISource{tokens: strings.Fields(string(body))}
}

func (s *plyASCIISource) remaining() int { return len(s.tokens) - s.pos }

// Every ASCII value is one token.
func (s *plyASCIISource) minSize(PLYScalarType) int { return 1 }

func (s *plyASCIISource) scalar(t PLYScalarType) (float64, error) {
	if s.pos >= len(s.tokens) {
		return 0, ErrTruncatedPLYData
	}
	tok := s.tokens[s.pos]
	s.pos++
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %q as %d-byte value: %w", tok, t.Size(), err)
	}
	return v, nil
}

type plyBinarySource struct {
	data  []byte
	pos   int
	order binary.ByteOrder
}

func (s *plyBinarySource) remaining() int { return len(s.data) - s.pos }

func (s *plyBinarySource) minSize(t PLYScalarType) int { return t.Size() }

func (s *plyBinarySource) scalar(t PLYScalarType) (float64, error) {
	size := t.Size()
	if size == 0 {
		return 0, fmt.Errorf("%w: invalid scalar type", ErrInvalidPLYHeader)
	}
	if s.pos+size > len(s.data) {
		return 0, ErrTruncatedPLYData
	}
	b := s.data[s.pos : s.pos+size]
	s.pos += size

	switch t {
	case PLYInt8:
		return float64(int8(b[0])), nil
	case PLYUint8:
		return float64(b[0]), nil
	case PLYInt16:
		return float64(int16(s.order.Uint16(b))), nil
	case PLYUint16:
		return float64(s.order.Uint16(b)), nil
	case PLYInt32:
		return float64(int32(s.order.Uint32(b))), nil
	case PLYUint32:
		return float64(s.order.Uint32(b)), nil
	case PLYFloat32:
		return float64(gomath.Float32frombits(s.order.Uint32(b))), nil
	default:
		return gomath.Float64frombits(s.order.Uint64(b)), nil
	}
}
