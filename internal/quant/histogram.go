// Package quant строит гистограмму цветов изображения и перекрашивает
// пиксели в ближайшие точки подобранной кривой палитры.
package quant

import (
	"image"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/image/draw"

	"github.com/Raimguzhinov/curvequant/internal/colorspace"
)

// Entry: цвет и число пикселей этого цвета.
type Entry struct {
	Color colorspace.Color
	Count int
}

// Histogram хранит записи по убыванию Count, при равенстве по
// возрастанию упакованного RGB. Порядок стабилен между запусками.
type Histogram []Entry

func (h Histogram) Len() int { return len(h) }

func (h Histogram) At(i int) (colorspace.Color, int) {
	return h[i].Color, h[i].Count
}

// Total возвращает сумму счётчиков, то есть число пикселей.
func (h Histogram) Total() int {
	total := 0
	for _, e := range h {
		total += e.Count
	}
	return total
}

// Top оставляет k самых частых цветов. При k <= 0 возвращает копию целиком.
func (h Histogram) Top(k int) Histogram {
	if k <= 0 || k > len(h) {
		k = len(h)
	}
	out := make(Histogram, k)
	copy(out, h[:k])
	return out
}

// splitRange делит [0,n) на parts отрезков, последний забирает остаток.
func splitRange(n, parts int) [][2]int {
	parts = max(1, min(parts, n))
	step := n / parts
	out := make([][2]int, 0, parts)
	for i := 0; i < parts; i++ {
		start := i * step
		end := start + step
		if i == parts-1 {
			end = n
		}
		out = append(out, [2]int{start, end})
	}
	return out
}

// BuildHistogram точно подсчитывает цвета всех пикселей, альфа-канал
// отбрасывается. Строки делятся между горутинами, каждая ведёт
// собственную карту и сливает её в общую под мьютексом.
func BuildHistogram(img image.Image) Histogram {
	b := img.Bounds()
	freq := make(map[colorspace.Color]int)

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, rows := range splitRange(b.Dy(), runtime.NumCPU()) {
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			local := make(map[colorspace.Color]int)
			for y := b.Min.Y + s; y < b.Min.Y+e; y++ {
				for x := b.Min.X; x < b.Max.X; x++ {
					local[colorspace.FromColor(img.At(x, y))]++
				}
			}
			mu.Lock()
			for c, n := range local {
				freq[c] += n
			}
			mu.Unlock()
		}(rows[0], rows[1])
	}
	wg.Wait()

	h := make(Histogram, 0, len(freq))
	for c, n := range freq {
		h = append(h, Entry{Color: c, Count: n})
	}
	sort.Slice(h, func(i, j int) bool {
		if h[i].Count != h[j].Count {
			return h[i].Count > h[j].Count
		}
		return h[i].Color.Packed() < h[j].Color.Packed()
	})
	return h
}

// Downscale уменьшает изображение так, чтобы большая сторона не превышала
// side. Если изображение меньше или side <= 0, оно возвращается как есть.
func Downscale(img image.Image, side int) image.Image {
	b := img.Bounds()
	longest := max(b.Dx(), b.Dy())
	if side <= 0 || longest <= side {
		return img
	}
	w := max(1, b.Dx()*side/longest)
	h := max(1, b.Dy()*side/longest)
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
