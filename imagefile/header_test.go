package imagefile

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/moffa90/go-epdble/protocol"
)

func TestFormatHeaderText(t *testing.T) {
	data := make([]byte, 18)
	for i := range data {
		data[i] = byte(i * 15)
	}
	img := &Image{Data: data, Width: 8, Height: 18, Mode: protocol.ColorModeBlackWhite}

	got, err := FormatHeaderText(img)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "const uint8_t imageData[] PROGMEM = {\n" +
		"0x00, 0x0f, 0x1e, 0x2d, 0x3c, 0x4b, 0x5a, 0x69, 0x78, 0x87, 0x96, 0xa5, 0xb4, 0xc3, 0xd2, 0xe1,\n" +
		"0xf0, 0xff\n" +
		"};\n" +
		"const uint16_t imageWidth = 8;\n" +
		"const uint16_t imageHeight = 18;\n" +
		"const uint8_t colorMode = 2;"
	if got != want {
		t.Errorf("FormatHeaderText() =\n%s\nwant\n%s", got, want)
	}
}

func TestFormatHeaderTextColorCodes(t *testing.T) {
	tests := []struct {
		mode protocol.ColorMode
		want string
	}{
		{protocol.ColorModeSixColor, "colorMode = 0;"},
		{protocol.ColorModeFourColor, "colorMode = 1;"},
		{protocol.ColorModeBlackWhite, "colorMode = 2;"},
		{protocol.ColorModeThreeColor, "colorMode = 3;"},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			img := &Image{Data: []byte{1}, Width: 1, Height: 1, Mode: tt.mode}
			got, err := FormatHeaderText(img)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.HasSuffix(got, tt.want) {
				t.Errorf("header ends %q, want suffix %q", got[len(got)-20:], tt.want)
			}
		})
	}
}

func TestFormatHeaderTextErrors(t *testing.T) {
	tests := []struct {
		name string
		img  *Image
		want error
	}{
		{"empty", &Image{Mode: protocol.ColorModeBlackWhite}, ErrEmpty},
		{"six color size mismatch", &Image{Data: make([]byte, 10), Width: 4, Height: 4, Mode: protocol.ColorModeSixColor}, ErrSizeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FormatHeaderText(tt.img); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestWriteHeaderReadHeader(t *testing.T) {
	data := make([]byte, 100)
	for i := range data {
		data[i] = byte(255 - i)
	}
	img := &Image{Data: data, Width: 10, Height: 10, Mode: protocol.ColorModeSixColor}

	var buf bytes.Buffer
	if err := WriteHeader(&buf, img); err != nil {
		t.Fatalf("WriteHeader() error: %v", err)
	}

	got, err := ReadHeader(&buf)
	if err != nil {
		t.Fatalf("ReadHeader() error: %v", err)
	}
	if !bytes.Equal(got.Data, data) {
		t.Error("data mismatch")
	}
	if got.Width != 10 || got.Height != 10 || got.Mode != protocol.ColorModeSixColor {
		t.Errorf("metadata = %dx%d %s, want 10x10 sixColor", got.Width, got.Height, got.Mode)
	}
}

func TestSaveHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultHeaderName)
	img := &Image{Data: []byte{0xAA, 0x55}, Width: 2, Height: 8, Mode: protocol.ColorModeFourColor}

	if err := SaveHeader(path, img); err != nil {
		t.Fatalf("SaveHeader() error: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !bytes.Equal(got.Data, img.Data) || got.Mode != img.Mode {
		t.Errorf("Load() = %+v, want %+v", got, img)
	}
}
