// Package viewer implements the lifecycle controller of a single-model point
// cloud viewer: load the geometry, frame it, then render it continuously, and
// expose Loading/Ready/Error to the presentation shell.
package viewer

import (
	"errors"
	"fmt"
)

// Viewer errors.
var (
	// ErrGeometryLoad wraps every failure reported by the geometry loader.
	ErrGeometryLoad = errors.New("geometry load failed")
	// ErrLoadTimeout is additionally wrapped when the load deadline expired.
	ErrLoadTimeout = errors.New("geometry load timed out")
	// ErrRendererUnavailable wraps a renderer construction failure.
	ErrRendererUnavailable = errors.New("renderer unavailable")

	ErrAlreadyInitialized = errors.New("viewer already initialized")
	ErrTornDown           = errors.New("viewer torn down")
	ErrNoSurface          = errors.New("no render surface")
)

// State is the presentation state exposed to the shell.
type State int

const (
	StateLoading State = iota // Preloader + preview image
	StateReady                // Render surface only
	StateError                // Static failure message
)

// String returns a lowercase state name.
func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further transition can leave this state.
func (s State) Terminal() bool {
	return s == StateReady || s == StateError
}

// ModelReference is the immutable input supplied once at mount.
type ModelReference struct {
	GeometryURL  string `yaml:"geometry_url"`
	PreviewImage string `yaml:"preview_image"`
}
