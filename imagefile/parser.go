package imagefile

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/moffa90/go-epdble/protocol"
)

// Format identifies how a buffer is stored on disk.
type Format int

const (
	// FormatBinary is the raw processed buffer
	FormatBinary Format = iota

	// FormatHex is the buffer as hex digits, whitespace allowed
	FormatHex

	// FormatHeader is the exported C header
	FormatHeader
)

func (f Format) String() string {
	switch f {
	case FormatBinary:
		return "binary"
	case FormatHex:
		return "hex"
	case FormatHeader:
		return "header"
	default:
		return "unknown"
	}
}

// FormatFromPath picks a format by file extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".h":
		return FormatHeader
	case ".hex", ".txt":
		return FormatHex
	default:
		return FormatBinary
	}
}

const headerArrayOpen = "const uint8_t imageData[] PROGMEM = {"

// Load reads an image from the given file path, choosing the format from
// its extension. Binary and hex files carry no metadata, so callers set
// Mode, Width and Height on the result.
//
// Example:
//
//	img, err := imagefile.Load("imagedata.h")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%dx%d %s, %d bytes\n", img.Width, img.Height, img.Mode, img.Size())
func Load(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Read(f, FormatFromPath(path))
}

// Read reads an image in the given format from any io.Reader.
func Read(r io.Reader, format Format) (*Image, error) {
	switch format {
	case FormatHeader:
		return ReadHeader(r)
	case FormatHex:
		return ReadHex(r)
	default:
		return ReadBinary(r)
	}
}

// ReadBinary reads a raw processed buffer.
func ReadBinary(r io.Reader) (*Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	return &Image{Data: data}, nil
}

// ReadHex reads a buffer stored as hex text. Odd digit counts and
// non-hex characters are errors.
func ReadHex(r io.Reader) (*Image, error) {
	text, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	data, err := protocol.HexToBytes(string(text))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	return &Image{Data: data}, nil
}

// ReadHeader parses a C header in the form written by WriteHeader.
//
// The imageData array is required. imageWidth, imageHeight and colorMode
// are optional; unknown declarations are skipped.
func ReadHeader(r io.Reader) (*Image, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	img := &Image{}
	var data bytes.Buffer
	found, inArray := false, false

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}

		if inArray {
			values := line
			end := strings.HasPrefix(line, "};") || strings.HasSuffix(line, "};")
			if end {
				values = strings.TrimSuffix(strings.TrimSuffix(line, ";"), "}")
				inArray = false
			}
			if err := parseValues(values, &data); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			continue
		}

		if line == headerArrayOpen {
			if found {
				return nil, fmt.Errorf("line %d: duplicate imageData array", lineNum)
			}
			found, inArray = true, true
			continue
		}

		name, value, ok := parseDeclaration(line)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid %s value %q", lineNum, name, value)
		}
		switch name {
		case "imageWidth":
			img.Width = n
		case "imageHeight":
			img.Height = n
		case "colorMode":
			img.Mode = protocol.ColorModeFromHeaderCode(n)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if !found {
		return nil, ErrNoImageData
	}
	if inArray {
		return nil, fmt.Errorf("unterminated imageData array")
	}
	if data.Len() == 0 {
		return nil, ErrEmpty
	}

	img.Data = data.Bytes()
	return img, nil
}

// parseValues appends the comma separated byte literals in s to buf.
// Literals may be hex (0x..) or decimal.
func parseValues(s string, buf *bytes.Buffer) error {
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.ParseUint(field, 0, 8)
		if err != nil {
			return fmt.Errorf("invalid byte value %q", field)
		}
		buf.WriteByte(byte(v))
	}
	return nil
}

// parseDeclaration splits "const <type> <name> = <value>;".
func parseDeclaration(line string) (name, value string, ok bool) {
	if !strings.HasPrefix(line, "const ") || !strings.HasSuffix(line, ";") {
		return "", "", false
	}
	lhs, rhs, found := strings.Cut(strings.TrimSuffix(line, ";"), "=")
	if !found {
		return "", "", false
	}
	fields := strings.Fields(lhs)
	if len(fields) < 3 {
		return "", "", false
	}
	return fields[len(fields)-1], strings.TrimSpace(rhs), true
}
