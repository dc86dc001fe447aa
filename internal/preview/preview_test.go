package preview

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/veandco/go-sdl2/sdl"
)

func TestRGBAKeepsCompactNRGBA(t *testing.T) {
	t.Parallel()

	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	assert.Same(t, img, rgba(img))
}

func TestRGBARebasesSubImage(t *testing.T) {
	t.Parallel()

	src := image.NewNRGBA(image.Rect(0, 0, 5, 5))
	src.SetNRGBA(2, 3, color.NRGBA{R: 9, A: 255})
	sub := src.SubImage(image.Rect(1, 1, 4, 5))

	out := rgba(sub)
	assert.Equal(t, image.Rect(0, 0, 3, 4), out.Bounds())
	assert.Equal(t, color.NRGBA{R: 9, A: 255}, out.NRGBAAt(1, 2))
	assert.Len(t, out.Pix, 3*4*4)
}

func TestShowWithoutWindows(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Show(nil))
}

func TestCloseRequested(t *testing.T) {
	t.Parallel()

	id, ok := closeRequested(&sdl.WindowEvent{Event: sdl.WINDOWEVENT_CLOSE, WindowID: 7})
	assert.True(t, ok)
	assert.Equal(t, uint32(7), id)

	_, ok = closeRequested(&sdl.QuitEvent{})
	assert.True(t, ok)

	_, ok = closeRequested(&sdl.WindowEvent{Event: sdl.WINDOWEVENT_MOVED, WindowID: 7})
	assert.False(t, ok)
	_, ok = closeRequested(&sdl.KeyboardEvent{})
	assert.False(t, ok)
}
