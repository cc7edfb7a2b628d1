package viewer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/pointview/pkg/math"
)

var ref = ModelReference{
	GeometryURL:  "file:///models/statue.ply",
	PreviewImage: "file:///models/statue.jpg",
}

func TestInitialState(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.mount(ref))

	assert.Equal(t, StateLoading, h.ctrl.State())
	assert.Equal(t, ref.PreviewImage, h.ctrl.PreviewImage())
	assert.False(t, h.ctrl.Running())
	assert.False(t, h.ctrl.Mounted())
	assert.Nil(t, h.surface.mounted)
	assert.Equal(t, 0, h.ctrl.Transitions())

	require.Len(t, h.engine.loads, 1)
	assert.Equal(t, ref.GeometryURL, h.engine.last().url)
	assert.Equal(t, []string{ref.PreviewImage}, h.orienter.requests)
}

func TestCameraConfig(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.mount(ref))

	cfg := h.engine.camera.cfg
	assert.Equal(t, float32(75), cfg.FOV)
	assert.Equal(t, float32(1), cfg.Aspect)
	assert.Equal(t, float32(0.1), cfg.Near)
	assert.Equal(t, float32(1000), cfg.Far)
	assert.Equal(t, [3]float32{0, 0, 0}, h.engine.scene.background)
}

func TestLoadSuccess(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.mount(ref))

	geom := &fakeGeometry{log: &h.engine.log, box: box(1, 1, 1)}
	h.engine.last().onSuccess(geom)

	assert.Equal(t, StateReady, h.ctrl.State())
	assert.Equal(t, []State{StateReady}, h.states)
	assert.Equal(t, 1, h.loop.starts)
	assert.True(t, h.ctrl.Running())
	assert.Equal(t, "canvas", h.surface.mounted)

	// Camera placed at (0,0,(1+1+1)*0.75) looking at the origin.
	cam := h.engine.camera
	assert.Equal(t, math.Vec3{Z: 2.25}, cam.position)
	assert.Equal(t, math.Vec3{}, cam.target)
	placement, ok := h.ctrl.Placement()
	assert.True(t, ok)
	assert.Equal(t, cam.position, placement.Position)

	require.Len(t, h.engine.points, 1)
	assert.Same(t, geom, h.engine.points[0].geom)
	assert.Equal(t, PointMaterial{Size: 0.003, VertexColors: true, DoubleSided: true}, h.engine.points[0].mat)
	require.Len(t, h.engine.scene.objects, 1)

	require.NotNil(t, h.engine.controls)
	assert.Equal(t, ControlsConfig{EnableZoom: false, AutoRotate: true}, h.engine.controls.cfg)
}

func TestFramingPrecedesRendering(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.mount(ref))

	h.engine.last().onSuccess(&fakeGeometry{log: &h.engine.log, box: box(2, 2, 2)})
	assert.Equal(t, 0, h.engine.renderer.renders, "no frame before the next tick")

	assert.Equal(t, []string{
		"scene", "camera", "renderer", "load",
		"normals", "center", "bbox",
		"camera.position", "camera.lookat",
		"points", "scene.add", "controls",
	}, []string(h.engine.log))

	h.ticks(1)
	assert.Equal(t, 1, h.engine.renderer.renders)
}

func TestRenderEveryTick(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.mount(ref))
	h.engine.last().onSuccess(&fakeGeometry{log: &h.engine.log, box: box(1, 1, 1)})

	h.ticks(10)
	assert.Equal(t, 10, h.engine.renderer.renders)
	assert.Equal(t, 10, h.engine.controls.updates)
	assert.Equal(t, uint64(10), h.ctrl.Frames())
}

func TestLoadFailure(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.mount(ref))

	cause := errors.New("404 not found")
	h.engine.last().onFailure(cause)

	assert.Equal(t, StateError, h.ctrl.State())
	assert.Equal(t, []State{StateError}, h.states)
	assert.ErrorIs(t, h.ctrl.Err(), ErrGeometryLoad)
	assert.ErrorIs(t, h.ctrl.Err(), cause)
	assert.NotErrorIs(t, h.ctrl.Err(), ErrLoadTimeout)

	assert.Equal(t, 0, h.loop.starts)
	assert.False(t, h.ctrl.Running())
	assert.Nil(t, h.surface.mounted)
	assert.Nil(t, h.engine.controls)
	assert.Empty(t, h.engine.points)

	h.ticks(5)
	assert.Equal(t, 0, h.engine.renderer.renders)
}

func TestTerminalStatesAreFinal(t *testing.T) {
	t.Run("success then failure", func(t *testing.T) {
		h := newHarness()
		require.NoError(t, h.mount(ref))
		req := h.engine.last()
		req.onSuccess(&fakeGeometry{log: &h.engine.log, box: box(1, 1, 1)})
		req.onFailure(errors.New("late"))
		req.onSuccess(&fakeGeometry{log: &h.engine.log, box: box(1, 1, 1)})

		assert.Equal(t, StateReady, h.ctrl.State())
		assert.Equal(t, 1, h.ctrl.Transitions())
		assert.Equal(t, 1, h.loop.starts)
		assert.Len(t, h.engine.points, 1)
	})

	t.Run("failure then success", func(t *testing.T) {
		h := newHarness()
		require.NoError(t, h.mount(ref))
		req := h.engine.last()
		req.onFailure(errors.New("boom"))
		req.onSuccess(&fakeGeometry{log: &h.engine.log, box: box(1, 1, 1)})

		assert.Equal(t, StateError, h.ctrl.State())
		assert.Equal(t, 1, h.ctrl.Transitions())
		assert.Equal(t, 0, h.loop.starts)
	})
}

func TestPreviewCorrection(t *testing.T) {
	tests := []struct {
		name   string
		settle func(h *harness)
		want   State
	}{
		{"before load", func(h *harness) {}, StateLoading},
		{"after success", func(h *harness) {
			h.engine.last().onSuccess(&fakeGeometry{log: &h.engine.log, box: box(1, 1, 1)})
		}, StateReady},
		{"after failure", func(h *harness) {
			h.engine.last().onFailure(errors.New("nope"))
		}, StateError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			require.NoError(t, h.mount(ref))
			tt.settle(h)

			require.Len(t, h.orienter.results, 1)
			h.orienter.results[0]("file:///cache/statue-oriented.png")

			assert.Equal(t, "file:///cache/statue-oriented.png", h.ctrl.PreviewImage())
			assert.Equal(t, tt.want, h.ctrl.State(), "orientation never changes state")
		})
	}
}

func TestNoPreviewSkipsOrientation(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.ctrl.Initialize(ModelReference{GeometryURL: "a.ply"}, h.surface))
	assert.Empty(t, h.orienter.requests)
}

func TestNilOrienter(t *testing.T) {
	h := newHarness()
	h.ctrl = New(h.engine, nil, h.loop, DefaultOptions())
	require.NoError(t, h.mount(ref))
	assert.Equal(t, ref.PreviewImage, h.ctrl.PreviewImage())
}

func TestInitializeOnce(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.mount(ref))
	assert.ErrorIs(t, h.mount(ref), ErrAlreadyInitialized)
	assert.Len(t, h.engine.loads, 1)
}

func TestInitializeWithoutSurface(t *testing.T) {
	h := newHarness()
	assert.ErrorIs(t, h.ctrl.Initialize(ref, nil), ErrNoSurface)
	assert.Empty(t, h.engine.loads)
}

func TestRendererFailure(t *testing.T) {
	h := newHarness()
	h.engine.rendererErr = errors.New("no GL context")

	err := h.mount(ref)
	assert.ErrorIs(t, err, ErrRendererUnavailable)
	assert.Equal(t, StateError, h.ctrl.State())
	assert.Empty(t, h.engine.loads)

	h.ctrl.Teardown()
	assert.Equal(t, 1, h.surface.unmounts)
}

func TestTeardownStopsRendering(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.mount(ref))
	h.engine.last().onSuccess(&fakeGeometry{log: &h.engine.log, box: box(1, 1, 1)})
	h.ticks(3)
	renderer := h.engine.renderer

	h.ctrl.Teardown()
	h.ticks(5)

	assert.Equal(t, 3, renderer.renders)
	assert.False(t, h.ctrl.Running())
	assert.Nil(t, h.surface.mounted)
	assert.Equal(t, 1, renderer.disposed)
	assert.Equal(t, 1, h.engine.controls.disposed)
	assert.Equal(t, 0, h.clock.Pending())
}

func TestTeardownIdempotent(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.mount(ref))
	h.engine.last().onSuccess(&fakeGeometry{log: &h.engine.log, box: box(1, 1, 1)})
	renderer := h.engine.renderer

	h.ctrl.Teardown()
	h.ctrl.Teardown()

	assert.Equal(t, 1, h.surface.unmounts)
	assert.Equal(t, 1, renderer.disposed)
	assert.Equal(t, 1, h.loop.stops)
}

func TestTeardownBeforeInitialize(t *testing.T) {
	h := newHarness()
	h.ctrl.Teardown()
	assert.ErrorIs(t, h.mount(ref), ErrTornDown)
	assert.Empty(t, h.engine.loads)
}

func TestLateCallbacksAfterTeardown(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.mount(ref))
	req := h.engine.last()

	h.ctrl.Teardown()
	assert.ErrorIs(t, req.ctx.Err(), context.Canceled, "in-flight load is cancelled")

	req.onSuccess(&fakeGeometry{log: &h.engine.log, box: box(1, 1, 1)})
	req.onFailure(errors.New("late"))
	h.orienter.results[0]("file:///cache/late.png")
	h.ticks(3)

	assert.Equal(t, StateLoading, h.ctrl.State())
	assert.Empty(t, h.states)
	assert.Equal(t, ref.PreviewImage, h.ctrl.PreviewImage())
	assert.Equal(t, 0, h.loop.starts)
	assert.Equal(t, 0, h.surface.mounts)
	assert.Empty(t, h.engine.points)
	assert.Nil(t, h.engine.controls)
}

func TestProgress(t *testing.T) {
	var seen []Progress
	h := newHarness(func(o *Options) {
		o.OnProgress = func(p Progress) { seen = append(seen, p) }
	})
	require.NoError(t, h.mount(ref))
	req := h.engine.last()

	req.onProgress(Progress{Loaded: 10, Total: 100})
	req.onProgress(Progress{Loaded: 100, Total: 100})
	req.onSuccess(&fakeGeometry{log: &h.engine.log, box: box(1, 1, 1)})
	req.onProgress(Progress{Loaded: 200, Total: 100})

	assert.Equal(t, []Progress{{10, 100}, {100, 100}}, seen)
	assert.Equal(t, Progress{Loaded: 100, Total: 100}, h.ctrl.Progress())
}

func TestLoadTimeout(t *testing.T) {
	h := newHarness(func(o *Options) { o.LoadTimeout = time.Millisecond })
	require.NoError(t, h.mount(ref))
	req := h.engine.last()

	_, hasDeadline := req.ctx.Deadline()
	require.True(t, hasDeadline)

	select {
	case <-req.ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("load context never expired")
	}
	req.onFailure(req.ctx.Err())

	assert.Equal(t, StateError, h.ctrl.State())
	assert.ErrorIs(t, h.ctrl.Err(), ErrGeometryLoad)
	assert.ErrorIs(t, h.ctrl.Err(), ErrLoadTimeout)
}

func TestNoTimeoutByDefault(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.mount(ref))
	_, hasDeadline := h.engine.last().ctx.Deadline()
	assert.False(t, hasDeadline)
}

func TestEndToEnd(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		h := newHarness()
		require.NoError(t, h.mount(ref))
		assert.Equal(t, StateLoading, h.ctrl.State())

		h.ticks(2)
		h.engine.last().onSuccess(&fakeGeometry{log: &h.engine.log, box: box(0.5, 0.5, 0.5)})
		h.ticks(4)

		assert.Equal(t, []State{StateReady}, h.states)
		assert.Equal(t, 4, h.engine.renderer.renders)
		assert.Equal(t, float32(1.125), h.engine.camera.position.Z)
	})

	t.Run("failure", func(t *testing.T) {
		h := newHarness()
		require.NoError(t, h.mount(ref))
		h.engine.last().onFailure(errors.New("corrupt"))
		h.ticks(4)

		assert.Equal(t, []State{StateError}, h.states)
		assert.Equal(t, 0, h.engine.renderer.renders)
		assert.Nil(t, h.surface.mounted)
	})
}
