package viewer

import (
	"context"

	"github.com/Faultbox/pointview/pkg/math"
)

// Geometry is loaded point/mesh data. The controller only asks it to prepare
// itself for framing.
type Geometry interface {
	ComputeVertexNormals()
	Center()
	ComputeBoundingBox() math.Box3
}

// Progress reports bytes received so far. Total is -1 when unknown.
type Progress struct {
	Loaded int64
	Total  int64
}

// GeometryLoader produces a geometry asynchronously. Exactly one of onSuccess
// and onFailure is invoked per call, on the host thread. onProgress may be nil.
type GeometryLoader interface {
	LoadGeometry(ctx context.Context, url string,
		onSuccess func(Geometry), onProgress func(Progress), onFailure func(error))
}

// Object is an opaque renderable built by the engine.
type Object = any

// DrawingSurface is the opaque output target a renderer writes frames into.
type DrawingSurface = any

// Scene holds the renderables.
type Scene interface {
	SetBackground(rgb [3]float32)
	Add(obj Object)
}

// Camera is a perspective camera.
type Camera interface {
	SetPosition(p math.Vec3)
	LookAt(target math.Vec3)
}

// CameraConfig parameterizes CreateCamera. FOV is vertical, in degrees.
type CameraConfig struct {
	FOV    float32
	Aspect float32
	Near   float32
	Far    float32
}

// Renderer draws a scene through a camera into its drawing surface.
type Renderer interface {
	Surface() DrawingSurface
	Render(scene Scene, camera Camera)
	Dispose()
}

// PointMaterial describes how points are drawn.
type PointMaterial struct {
	Size         float32
	VertexColors bool
	DoubleSided  bool
}

// ControlsConfig configures orbit controls.
type ControlsConfig struct {
	EnableZoom bool
	AutoRotate bool
}

// Controls is the orbit-control capability. Update advances auto-rotation and
// is called once per rendered frame.
type Controls interface {
	Update()
	Dispose()
}

// Engine bundles the rendering capabilities the controller sequences.
type Engine interface {
	GeometryLoader
	CreateScene() Scene
	CreateCamera(cfg CameraConfig) Camera
	CreateRenderer(width, height int) (Renderer, error)
	NewPoints(geom Geometry, mat PointMaterial) Object
	AttachControls(camera Camera, surface DrawingSurface, cfg ControlsConfig) Controls
}

// ImageOrienter produces an orientation-corrected copy of an image. onResult
// is always eventually invoked on the host thread, with the original url if
// correction was not possible.
type ImageOrienter interface {
	Correct(url string, onResult func(correctedURL string))
}

// Surface is the mount point owned by the shell. The controller mounts the
// renderer's drawing surface into it once the model is ready and unmounts it
// on teardown.
type Surface interface {
	Mount(ds DrawingSurface)
	Unmount()
}
