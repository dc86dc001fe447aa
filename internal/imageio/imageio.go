// Package imageio читает и записывает изображения: PCX, PNG, JPEG, GIF,
// WebP, BMP и AVIF на входе и на выходе. GIF и PCX пишутся только для
// изображений не больше чем с 256 цветами.
package imageio

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chai2010/webp"
	"github.com/gen2brain/avif"
	"golang.org/x/image/bmp"
)

var (
	// ErrUnsupportedFormat: формат файла не поддерживается.
	ErrUnsupportedFormat = errors.New("неподдерживаемый формат изображения")
	// ErrTooManyColors: в изображении больше цветов, чем вмещает палитра формата.
	ErrTooManyColors = errors.New("слишком много цветов для палитры")
	// ErrImageSize: размеры изображения не помещаются в заголовок формата.
	ErrImageSize = errors.New("недопустимый размер изображения")
)

// Format: формат файла изображения.
type Format int

const (
	FormatUnknown Format = iota
	FormatPNG
	FormatJPEG
	FormatGIF
	FormatBMP
	FormatWebP
	FormatAVIF
	FormatPCX
)

var formatNames = map[Format]string{
	FormatPNG:  "png",
	FormatJPEG: "jpeg",
	FormatGIF:  "gif",
	FormatBMP:  "bmp",
	FormatWebP: "webp",
	FormatAVIF: "avif",
	FormatPCX:  "pcx",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return "unknown"
}

// FormatOf определяет формат по расширению имени файла.
func FormatOf(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// ParseFormat разбирает имя формата или расширение ("png", ".jpg").
// Все известные форматы можно и прочитать, и записать.
func ParseFormat(name string) (Format, error) {
	ext := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "."))
	switch ext {
	case "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "gif":
		return FormatGIF, nil
	case "bmp":
		return FormatBMP, nil
	case "webp":
		return FormatWebP, nil
	case "avif":
		return FormatAVIF, nil
	case "pcx":
		return FormatPCX, nil
	}
	return FormatUnknown, fmt.Errorf("расширение %q: %w", ext, ErrUnsupportedFormat)
}

// Supported сообщает, можно ли прочитать файл с таким расширением.
func Supported(path string) bool {
	_, err := FormatOf(path)
	return err == nil
}

// Load читает изображение, формат определяется по содержимому.
func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(bufio.NewReader(f))
	if errors.Is(err, image.ErrFormat) {
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// Save записывает изображение, формат выбирается по расширению path.
func Save(path string, img image.Image) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, img, format); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}

// Encode кодирует img в формат format.
func Encode(w io.Writer, img image.Image, format Format) error {
	switch format {
	case FormatPNG:
		return png.Encode(w, img)
	case FormatJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
	case FormatWebP:
		// без потерь: цвета палитры кривой сохраняются точно
		return webp.Encode(w, img, &webp.Options{Lossless: true})
	case FormatAVIF:
		return avif.Encode(w, img, avif.Options{
			Quality:           80,
			QualityAlpha:      100,
			Speed:             8,
			ChromaSubsampling: image.YCbCrSubsampleRatio420,
		})
	case FormatBMP:
		// до 256 цветов пишется 8-битный BMP с палитрой
		if p, err := ToPaletted(img); err == nil {
			return bmp.Encode(w, p)
		}
		return bmp.Encode(w, img)
	case FormatGIF:
		p, err := ToPaletted(img)
		if err != nil {
			return err
		}
		return gif.Encode(w, p, nil)
	case FormatPCX:
		p, err := ToPaletted(img)
		if err != nil {
			return err
		}
		return EncodePCX(w, p)
	}
	return fmt.Errorf("запись %v: %w", format, ErrUnsupportedFormat)
}

// ToPaletted переводит изображение не больше чем с 256 различными цветами
// в палитровое без потерь. Альфа отбрасывается.
func ToPaletted(img image.Image) (*image.Paletted, error) {
	if p, ok := img.(*image.Paletted); ok && len(p.Palette) <= 256 {
		return p, nil
	}

	b := img.Bounds()
	index := make(map[color.NRGBA]uint8)
	var colors []color.NRGBA
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := opaque(img.At(x, y))
			if _, ok := index[c]; ok {
				continue
			}
			if len(colors) == 256 {
				return nil, fmt.Errorf("больше 256 цветов: %w", ErrTooManyColors)
			}
			index[c] = 0
			colors = append(colors, c)
		}
	}

	sort.Slice(colors, func(i, j int) bool {
		a, c := colors[i], colors[j]
		return uint32(a.R)<<16|uint32(a.G)<<8|uint32(a.B) < uint32(c.R)<<16|uint32(c.G)<<8|uint32(c.B)
	})
	pal := make(color.Palette, len(colors))
	for i, c := range colors {
		pal[i] = c
		index[c] = uint8(i)
	}

	out := image.NewPaletted(b, pal)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.SetColorIndex(x, y, index[opaque(img.At(x, y))])
		}
	}
	return out, nil
}

func opaque(c color.Color) color.NRGBA {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = 0xff
	return n
}
