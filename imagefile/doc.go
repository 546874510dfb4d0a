// Package imagefile loads processed e-paper buffers from disk and exports
// them as C headers for firmware builds.
//
// # Formats
//
// Three on-disk forms are understood, selected by extension:
//
//	.h          C header with imageData, imageWidth, imageHeight, colorMode
//	.hex, .txt  hex digits, whitespace ignored
//	anything    raw bytes
//
// Header layout:
//
//	const uint8_t imageData[] PROGMEM = {
//	0x00, 0x01, ... (16 values per line),
//	0x10, 0x11
//	};
//	const uint16_t imageWidth = 250;
//	const uint16_t imageHeight = 122;
//	const uint8_t colorMode = 2;
//
// colorMode codes: 0 sixColor, 1 fourColor, 2 blackWhiteColor, 3 anything else.
//
// # Usage
//
//	img, err := imagefile.Load("imagedata.h")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	job, err := link.NewJob(img.Mode, img.Data)
//
// Binary and hex files carry no metadata; set Mode before building a job.
package imagefile
