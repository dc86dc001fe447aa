// Package preview показывает изображения в окнах SDL до закрытия
// любого из них.
package preview

import (
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"runtime"

	"github.com/veandco/go-sdl2/sdl"
)

// Window: изображение и заголовок окна.
type Window struct {
	Title string
	Image image.Image
}

// SDL принимает события только в потоке, где инициализировано видео,
// а на macOS это должен быть главный поток. init выполняется в главной
// горутине, и она остаётся на главном потоке.
func init() {
	runtime.LockOSThread()
}

type view struct {
	win  *sdl.Window
	rend *sdl.Renderer
	tex  *sdl.Texture
}

func (v *view) destroy() {
	if v.tex != nil {
		v.tex.Destroy()
	}
	if v.rend != nil {
		v.rend.Destroy()
	}
	if v.win != nil {
		v.win.Destroy()
	}
}

// Show открывает по окну на каждое изображение со смещением каскадом и
// блокируется, пока пользователь не закроет одно из окон. События и
// отрисовка идут в одном цикле. Вызывается из главной горутины.
func Show(log *slog.Logger, windows ...Window) error {
	if len(windows) == 0 {
		return nil
	}
	if log == nil {
		log = slog.Default()
	}
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return fmt.Errorf("инициализация SDL: %w", err)
	}
	defer sdl.Quit()

	views := make([]*view, 0, len(windows))
	defer func() {
		for _, v := range views {
			v.destroy()
		}
	}()
	for i, w := range windows {
		v, err := createView(w, 100+200*i, 100+50*i)
		if err != nil {
			return fmt.Errorf("окно %q: %w", w.Title, err)
		}
		views = append(views, v)
	}

	for {
		for ev := sdl.PollEvent(); ev != nil; ev = sdl.PollEvent() {
			windowID, ok := closeRequested(ev)
			if !ok {
				continue
			}
			for i, v := range views {
				if id, _ := v.win.GetID(); id == windowID {
					log.Debug("окно закрыто", "окно", windows[i].Title)
				}
			}
			log.Debug("завершение цикла SDL")
			return nil
		}
		for _, v := range views {
			render(v)
		}
		sdl.Delay(16) // ~60 FPS
	}
}

func render(v *view) {
	v.rend.SetDrawColor(0, 0, 0, 255)
	v.rend.Clear()
	v.rend.Copy(v.tex, nil, nil)
	v.rend.Present()
}

// rgba приводит изображение к непрерывному буферу RGBA с началом в 0,0.
func rgba(img image.Image) *image.NRGBA {
	b := img.Bounds()
	if n, ok := img.(*image.NRGBA); ok && b.Min == (image.Point{}) && n.Stride == 4*b.Dx() {
		return n
	}
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

func createView(w Window, x, y int) (*view, error) {
	img := rgba(w.Image)
	width, height := img.Rect.Dx(), img.Rect.Dy()

	v := &view{}
	var err error
	v.win, err = sdl.CreateWindow(w.Title, int32(x), int32(y), int32(width), int32(height), sdl.WINDOW_SHOWN)
	if err != nil {
		return nil, err
	}
	v.rend, err = sdl.CreateRenderer(v.win, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		v.destroy()
		return nil, err
	}
	v.tex, err = v.rend.CreateTexture(sdl.PIXELFORMAT_ABGR8888, sdl.TEXTUREACCESS_STREAMING, int32(width), int32(height))
	if err != nil {
		v.destroy()
		return nil, err
	}

	pixels, pitch, err := v.tex.Lock(nil)
	if err != nil {
		v.destroy()
		return nil, err
	}
	for row := 0; row < height; row++ {
		src := img.Pix[row*img.Stride : row*img.Stride+width*4]
		copy(pixels[row*pitch:row*pitch+width*4], src)
	}
	v.tex.Unlock()
	return v, nil
}

// closeRequested сообщает, просит ли событие закрыть окна. Для
// sdl.QuitEvent идентификатор окна нулевой.
func closeRequested(ev sdl.Event) (uint32, bool) {
	switch e := ev.(type) {
	case *sdl.QuitEvent:
		return 0, true
	case *sdl.WindowEvent:
		if e.Event == sdl.WINDOWEVENT_CLOSE {
			return e.WindowID, true
		}
	}
	return 0, false
}
