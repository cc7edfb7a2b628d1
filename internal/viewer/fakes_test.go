package viewer

import (
	"context"

	"github.com/Faultbox/pointview/internal/host"
	"github.com/Faultbox/pointview/internal/renderloop"
	"github.com/Faultbox/pointview/pkg/math"
)

// calls records capability invocations in order.
type calls []string

func (c *calls) add(name string) { *c = append(*c, name) }

type fakeGeometry struct {
	log *calls
	box math.Box3
}

func (g *fakeGeometry) ComputeVertexNormals() { g.log.add("normals") }
func (g *fakeGeometry) Center() { g.log.add("center") }
func (g *fakeGeometry) ComputeBoundingBox() math.Box3 { g.log.add("bbox"); return g.box }

type fakeScene struct {
	log        *calls
	background [3]float32
	objects    []Object
}

func (s *fakeScene) SetBackground(rgb [3]float32) { s.background = rgb }
func (s *fakeScene) Add(obj Object) {
	s.log.add("scene.add")
	s.objects = append(s.objects, obj)
}

type fakeCamera struct {
	log      *calls
	cfg      CameraConfig
	position math.Vec3
	target   math.Vec3
}

func (c *fakeCamera) SetPosition(p math.Vec3) { c.log.add("camera.position"); c.position = p }
func (c *fakeCamera) LookAt(t math.Vec3) { c.log.add("camera.lookat"); c.target = t }

type fakeRenderer struct {
	log      *calls
	renders  int
	disposed int
	surface  string
}

func (r *fakeRenderer) Surface() DrawingSurface { return r.surface }
func (r *fakeRenderer) Render(Scene, Camera) { r.renders++ }
func (r *fakeRenderer) Dispose() { r.disposed++ }

type fakeControls struct {
	cfg      ControlsConfig
	updates  int
	disposed int
}

func (c *fakeControls) Update() { c.updates++ }
func (c *fakeControls) Dispose() { c.disposed++ }

type fakePoints struct {
	geom Geometry
	mat  PointMaterial
}

type loadRequest struct {
	ctx        context.Context
	url        string
	onSuccess  func(Geometry)
	onProgress func(Progress)
	onFailure  func(error)
}

type fakeEngine struct {
	log         calls
	loads       []*loadRequest
	scene       *fakeScene
	camera      *fakeCamera
	renderer    *fakeRenderer
	controls    *fakeControls
	points      []*fakePoints
	rendererErr error
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{}
}

func (e *fakeEngine) LoadGeometry(ctx context.Context, url string,
	onSuccess func(Geometry), onProgress func(Progress), onFailure func(error)) {
	e.log.add("load")
	e.loads = append(e.loads, &loadRequest{ctx, url, onSuccess, onProgress, onFailure})
}

func (e *fakeEngine) CreateScene() Scene {
	e.log.add("scene")
	e.scene = &fakeScene{log: &e.log}
	return e.scene
}

func (e *fakeEngine) CreateCamera(cfg CameraConfig) Camera {
	e.log.add("camera")
	e.camera = &fakeCamera{log: &e.log, cfg: cfg}
	return e.camera
}

func (e *fakeEngine) CreateRenderer(width, height int) (Renderer, error) {
	e.log.add("renderer")
	if e.rendererErr != nil {
		return nil, e.rendererErr
	}
	e.renderer = &fakeRenderer{log: &e.log, surface: "canvas"}
	return e.renderer, nil
}

func (e *fakeEngine) NewPoints(geom Geometry, mat PointMaterial) Object {
	e.log.add("points")
	p := &fakePoints{geom: geom, mat: mat}
	e.points = append(e.points, p)
	return p
}

func (e *fakeEngine) AttachControls(camera Camera, surface DrawingSurface, cfg ControlsConfig) Controls {
	e.log.add("controls")
	e.controls = &fakeControls{cfg: cfg}
	return e.controls
}

// last returns the most recent load request.
func (e *fakeEngine) last() *loadRequest {
	return e.loads[len(e.loads)-1]
}

type fakeOrienter struct {
	requests []string
	results  []func(string)
}

func (o *fakeOrienter) Correct(url string, onResult func(string)) {
	o.requests = append(o.requests, url)
	o.results = append(o.results, onResult)
}

type fakeSurface struct {
	mounted  DrawingSurface
	mounts   int
	unmounts int
}

func (s *fakeSurface) Mount(ds DrawingSurface) { s.mounts++; s.mounted = ds }
func (s *fakeSurface) Unmount() { s.unmounts++; s.mounted = nil }

// countingLoop wraps the real driver to count Start/Stop calls.
type countingLoop struct {
	driver *renderloop.Driver
	starts int
	stops  int
}

func (l *countingLoop) Start(renderOnce func()) *renderloop.Handle {
	l.starts++
	return l.driver.Start(renderOnce)
}

func (l *countingLoop) Stop(h *renderloop.Handle) {
	l.stops++
	l.driver.Stop(h)
}

type harness struct {
	clock    *host.Loop
	loop     *countingLoop
	engine   *fakeEngine
	orienter *fakeOrienter
	surface  *fakeSurface
	states   []State
	ctrl     *Controller
}

func newHarness(mutate ...func(*Options)) *harness {
	h := &harness{
		clock:    host.New(),
		engine:   newFakeEngine(),
		orienter: &fakeOrienter{},
		surface:  &fakeSurface{},
	}
	h.loop = &countingLoop{driver: renderloop.New(h.clock)}
	opts := DefaultOptions()
	opts.OnStateChange = func(s State) { h.states = append(h.states, s) }
	for _, m := range mutate {
		m(&opts)
	}
	h.ctrl = New(h.engine, h.orienter, h.loop, opts)
	return h
}

func (h *harness) mount(ref ModelReference) error {
	return h.ctrl.Initialize(ref, h.surface)
}

// ticks advances the fake frame clock n refreshes.
func (h *harness) ticks(n int) {
	for i := 0; i < n; i++ {
		h.clock.Tick()
	}
}

func box(maxX, maxY, maxZ float32) math.Box3 {
	return math.Box3{
		Min: math.Vec3{X: -maxX, Y: -maxY, Z: -maxZ},
		Max: math.Vec3{X: maxX, Y: maxY, Z: maxZ},
	}
}
