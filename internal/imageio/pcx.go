package imageio

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"io"
)

type pcxHeader struct {
	Manufacturer byte
	Version      byte
	Encoding     byte
	BitsPerPixel byte
	XMin, YMin   uint16
	XMax, YMax   uint16
	HDpi, VDpi   uint16
	Colormap     [48]byte
	Reserved     byte
	NumPlanes    byte
	BytesPerLine uint16
	PaletteInfo  uint16
	HScreenSize  uint16
	VScreenSize  uint16
	Filler       [54]byte
}

const (
	pcxManufacturer  = 0x0A
	pcxPaletteMarker = 0x0C
	pcxRLEThreshold  = 0xC0
	pcxRLEMaxRun     = 0x3F
	pcxPaletteSize   = 768
	pcxHeaderSize    = 128
	// BytesPerLine чётное и хранится в uint16
	pcxMaxSide       = 65534
)

func init() {
	image.RegisterFormat("pcx", "\x0a", DecodePCX, DecodePCXConfig)
}

func readPCXHeader(r io.Reader) (pcxHeader, error) {
	var hdr pcxHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return hdr, fmt.Errorf("заголовок PCX: %w", err)
	}
	if hdr.Manufacturer != pcxManufacturer || hdr.Encoding != 1 {
		return hdr, fmt.Errorf("заголовок PCX: %w", ErrUnsupportedFormat)
	}
	if hdr.XMax < hdr.XMin || hdr.YMax < hdr.YMin {
		return hdr, fmt.Errorf("PCX: окно %d,%d..%d,%d: %w", hdr.XMin, hdr.YMin, hdr.XMax, hdr.YMax, ErrUnsupportedFormat)
	}
	return hdr, nil
}

func (h pcxHeader) size() (int, int) {
	return int(h.XMax-h.XMin) + 1, int(h.YMax-h.YMin) + 1
}

func (h pcxHeader) paletted() bool {
	return h.BitsPerPixel == 8 && h.NumPlanes == 1
}

func (h pcxHeader) trueColor() bool {
	return h.BitsPerPixel == 8 && h.NumPlanes == 3
}

// DecodePCXConfig читает только заголовок PCX.
func DecodePCXConfig(r io.Reader) (image.Config, error) {
	hdr, err := readPCXHeader(r)
	if err != nil {
		return image.Config{}, err
	}
	w, h := hdr.size()
	model := color.Model(color.NRGBAModel)
	if hdr.paletted() {
		model = color.Palette{}
	}
	return image.Config{ColorModel: model, Width: w, Height: h}, nil
}

// DecodePCX декодирует 8-битный PCX с палитрой (VGA-палитра в конце файла
// или 16 цветов заголовка) и 24-битный PCX из трёх плоскостей.
func DecodePCX(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	hdr, err := readPCXHeader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if !hdr.paletted() && !hdr.trueColor() {
		return nil, fmt.Errorf("PCX %d бит × %d плоскостей: %w", hdr.BitsPerPixel, hdr.NumPlanes, ErrUnsupportedFormat)
	}

	w, h := hdr.size()
	bpl := int(hdr.BytesPerLine)
	if bpl < w {
		return nil, fmt.Errorf("PCX: bytes_per_line %d < ширины %d: %w", bpl, w, ErrUnsupportedFormat)
	}
	planes := int(hdr.NumPlanes)
	// пара байт RLE даёт не больше pcxRLEMaxRun байт строки
	if packed := len(data) - pcxHeaderSize; bpl*planes*h > packed*pcxRLEMaxRun {
		return nil, fmt.Errorf("PCX %d×%d: %d байт данных: %w", w, h, packed, ErrImageSize)
	}
	lines := unpackRLE(data[pcxHeaderSize:], bpl*planes, h)

	if hdr.trueColor() {
		img := image.NewNRGBA(image.Rect(0, 0, w, h))
		for y, line := range lines {
			for x := 0; x < w; x++ {
				img.SetNRGBA(x, y, color.NRGBA{R: line[x], G: line[bpl+x], B: line[2*bpl+x], A: 0xff})
			}
		}
		return img, nil
	}

	img := image.NewPaletted(image.Rect(0, 0, w, h), pcxPalette(hdr, data))
	for y, line := range lines {
		copy(img.Pix[y*img.Stride:y*img.Stride+w], line[:w])
	}
	return img, nil
}

// unpackRLE распаковывает h строк по width байт. Недостающие в конце
// данные остаются нулями.
func unpackRLE(data []byte, width, h int) [][]byte {
	buf := make([]byte, width*h)
	pos := 0
	for i := 0; i < len(data) && pos < len(buf); i++ {
		b := data[i]
		if b >= pcxRLEThreshold {
			count := int(b & pcxRLEMaxRun)
			i++
			if i >= len(data) {
				break
			}
			for j := 0; j < count && pos < len(buf); j++ {
				buf[pos] = data[i]
				pos++
			}
			continue
		}
		buf[pos] = b
		pos++
	}

	lines := make([][]byte, h)
	for y := range lines {
		lines[y] = buf[y*width : (y+1)*width]
	}
	return lines
}

func pcxPalette(hdr pcxHeader, data []byte) color.Palette {
	pal := make(color.Palette, 256)
	off := len(data) - pcxPaletteSize - 1
	if hdr.Version >= 5 && off >= pcxHeaderSize && data[off] == pcxPaletteMarker {
		raw := data[off+1:]
		for i := range pal {
			pal[i] = color.NRGBA{R: raw[i*3], G: raw[i*3+1], B: raw[i*3+2], A: 0xff}
		}
		return pal
	}
	for i := range pal {
		if i < 16 {
			pal[i] = color.NRGBA{R: hdr.Colormap[i*3], G: hdr.Colormap[i*3+1], B: hdr.Colormap[i*3+2], A: 0xff}
		} else {
			pal[i] = color.NRGBA{A: 0xff}
		}
	}
	return pal
}

// EncodePCX записывает изображение с палитрой не больше 256 цветов как
// 8-битный PCX версии 5 с RLE и VGA-палитрой в конце.
func EncodePCX(w io.Writer, img *image.Paletted) error {
	if len(img.Palette) > 256 {
		return fmt.Errorf("PCX: %d цветов: %w", len(img.Palette), ErrTooManyColors)
	}
	b := img.Bounds()
	if b.Empty() || b.Dx() > pcxMaxSide || b.Dy() > pcxMaxSide {
		return fmt.Errorf("PCX %d×%d: %w", b.Dx(), b.Dy(), ErrImageSize)
	}
	bpl := (b.Dx() + 1) &^ 1

	hdr := pcxHeader{
		Manufacturer: pcxManufacturer,
		Version:      5,
		Encoding:     1,
		BitsPerPixel: 8,
		XMax:         uint16(b.Dx() - 1),
		YMax:         uint16(b.Dy() - 1),
		HDpi:         72,
		VDpi:         72,
		NumPlanes:    1,
		BytesPerLine: uint16(bpl),
		PaletteInfo:  1,
	}
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, &hdr); err != nil {
		return err
	}

	line := make([]byte, bpl)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		n := copy(line, img.Pix[off:off+b.Dx()])
		clear(line[n:])
		packRLE(bw, line)
	}

	bw.WriteByte(pcxPaletteMarker)
	raw := make([]byte, pcxPaletteSize)
	for i, c := range img.Palette {
		n := color.NRGBAModel.Convert(c).(color.NRGBA)
		raw[i*3], raw[i*3+1], raw[i*3+2] = n.R, n.G, n.B
	}
	bw.Write(raw)
	return bw.Flush()
}

// packRLE кодирует одну строку. Ошибки записи проявятся в Flush.
func packRLE(bw *bufio.Writer, line []byte) {
	for i := 0; i < len(line); {
		v := line[i]
		run := 1
		for i+run < len(line) && line[i+run] == v && run < pcxRLEMaxRun {
			run++
		}
		if run > 1 || v >= pcxRLEThreshold {
			bw.WriteByte(pcxRLEThreshold | byte(run))
		}
		bw.WriteByte(v)
		i += run
	}
}
