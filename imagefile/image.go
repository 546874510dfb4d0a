package imagefile

import (
	"errors"

	"github.com/moffa90/go-epdble/protocol"
)

// DefaultHeaderName is the file name used when exporting a C header.
const DefaultHeaderName = "imagedata.h"

// ValuesPerLine is the number of byte values written per line of the imageData array.
const ValuesPerLine = 16

var (
	// ErrEmpty is returned when a file holds no image bytes.
	ErrEmpty = errors.New("image data is empty")

	// ErrNoImageData is returned when a header has no imageData array.
	ErrNoImageData = errors.New("imageData array not found")

	// ErrSizeMismatch is returned when a sixColor buffer does not hold one byte per pixel.
	ErrSizeMismatch = errors.New("buffer size does not match image dimensions")
)

// Image is a processed byte buffer together with the metadata needed to
// upload or export it.
type Image struct {
	// Data is the processed buffer, already laid out for the panel
	Data []byte

	// Width and Height are the image dimensions in pixels. Zero when unknown.
	Width  int
	Height int

	// Mode is the layout of Data
	Mode protocol.ColorMode
}

// Size returns the number of bytes in the buffer.
func (img *Image) Size() int {
	return len(img.Data)
}

// Validate checks the buffer against its declared dimensions.
func (img *Image) Validate() error {
	if len(img.Data) == 0 {
		return ErrEmpty
	}
	if img.Mode == protocol.ColorModeSixColor && len(img.Data) != img.Width*img.Height {
		return ErrSizeMismatch
	}
	return nil
}
