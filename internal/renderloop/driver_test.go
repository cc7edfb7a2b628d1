package renderloop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/pointview/internal/host"
)

func TestStartRendersOncePerTick(t *testing.T) {
	clock := host.New()
	d := New(clock)

	renders := 0
	h := d.Start(func() { renders++ })

	// Nothing renders until the first refresh
	assert.Equal(t, 0, renders)
	assert.True(t, h.Running())

	for i := 1; i <= 5; i++ {
		clock.Tick()
		require.Equal(t, i, renders)
	}
	assert.Equal(t, uint64(5), h.Frames())
	assert.Equal(t, 1, clock.Pending(), "exactly one frame queued at a time")
}

func TestStopAfterNFramesPreventsNextFrame(t *testing.T) {
	for _, n := range []int{0, 1, 3, 10} {
		clock := host.New()
		d := New(clock)

		renders := 0
		h := d.Start(func() { renders++ })
		for i := 0; i < n; i++ {
			clock.Tick()
		}
		d.Stop(h)

		for i := 0; i < 5; i++ {
			clock.Tick()
		}
		assert.Equal(t, n, renders, "n=%d", n)
		assert.False(t, h.Running())
		assert.Equal(t, 0, clock.Pending())
	}
}

func TestStopIsIdempotent(t *testing.T) {
	clock := host.New()
	d := New(clock)

	h := d.Start(func() {})
	clock.Tick()

	d.Stop(h)
	d.Stop(h)
	d.Stop(nil)

	assert.False(t, h.Running())
	assert.Equal(t, 0, clock.Tick())
}

func TestStopFromInsideRender(t *testing.T) {
	clock := host.New()
	d := New(clock)

	renders := 0
	var h *Handle
	h = d.Start(func() {
		renders++
		if renders == 2 {
			d.Stop(h)
		}
	})

	for i := 0; i < 5; i++ {
		clock.Tick()
	}
	assert.Equal(t, 2, renders)
	assert.Equal(t, 0, clock.Pending())
}

func TestIndependentHandles(t *testing.T) {
	clock := host.New()
	d := New(clock)

	a, b := 0, 0
	ha := d.Start(func() { a++ })
	d.Start(func() { b++ })

	clock.Tick()
	d.Stop(ha)
	clock.Tick()

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
}

func TestNilHandleAccessors(t *testing.T) {
	var h *Handle
	assert.False(t, h.Running())
	assert.Equal(t, uint64(0), h.Frames())
}
