package imagefile

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// FormatHeaderText renders img as a C header for firmware builds. The layout
// is fixed: the PROGMEM array with ValuesPerLine values per line, then
// imageWidth, imageHeight and colorMode. There is no trailing newline.
func FormatHeaderText(img *Image) (string, error) {
	if err := img.Validate(); err != nil {
		return "", err
	}

	lines := make([]string, 0, (len(img.Data)+ValuesPerLine-1)/ValuesPerLine)
	values := make([]string, 0, ValuesPerLine)
	for i, b := range img.Data {
		values = append(values, fmt.Sprintf("0x%02x", b))
		if len(values) == ValuesPerLine || i == len(img.Data)-1 {
			lines = append(lines, strings.Join(values, ", "))
			values = values[:0]
		}
	}

	return strings.Join([]string{
		headerArrayOpen,
		strings.Join(lines, ",\n"),
		"};",
		fmt.Sprintf("const uint16_t imageWidth = %d;", img.Width),
		fmt.Sprintf("const uint16_t imageHeight = %d;", img.Height),
		fmt.Sprintf("const uint8_t colorMode = %d;", img.Mode.HeaderCode()),
	}, "\n"), nil
}

// WriteHeader writes the C header for img to w.
func WriteHeader(w io.Writer, img *Image) error {
	text, err := FormatHeaderText(img)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, text); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	return nil
}

// SaveHeader writes the C header for img to path, replacing any existing file.
func SaveHeader(path string, img *Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close file: %w", cerr)
		}
	}()

	return WriteHeader(f, img)
}
