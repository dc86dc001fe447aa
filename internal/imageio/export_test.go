package imageio

import (
	"encoding/binary"
	"io"
)

func binaryWrite(w io.Writer, hdr pcxHeader) error {
	return binary.Write(w, binary.LittleEndian, &hdr)
}
