package link

import (
	"fmt"

	"github.com/moffa90/go-epdble/protocol"
)

// PlaneTag identifies the color channel of a plane. Its value is the plane
// bits of the WRITE_IMG tag byte.
type PlaneTag byte

const (
	PlaneBW    PlaneTag = protocol.TagPlaneBW
	PlaneColor PlaneTag = protocol.TagPlaneColor
)

func (t PlaneTag) String() string {
	switch t {
	case PlaneBW:
		return "BW"
	case PlaneColor:
		return "COLOR"
	default:
		return fmt.Sprintf("PlaneTag(0x%02X)", byte(t))
	}
}

// Plane is one color channel's worth of processed image bytes.
type Plane struct {
	Tag  PlaneTag
	Name string
	Data []byte
}

// Job is one image send: an ordered list of planes.
type Job struct {
	Mode   protocol.ColorMode
	Planes []Plane
}

// NewJob splits a processed image buffer into planes for mode:
//
//	fourColor       one COLOR plane
//	threeColor      BW plane then COLOR ("red") plane, each half the buffer
//	blackWhiteColor one BW plane
//
// Any other mode fails with ErrUnsupportedColorMode. The buffer is copied.
func NewJob(mode protocol.ColorMode, buf []byte) (*Job, error) {
	if len(buf) == 0 {
		return nil, ErrEmptyImage
	}

	data := make([]byte, len(buf))
	copy(data, buf)

	job := &Job{Mode: mode}
	switch mode {
	case protocol.ColorModeFourColor:
		job.Planes = []Plane{{Tag: PlaneColor, Name: "color", Data: data}}
	case protocol.ColorModeThreeColor:
		if len(data)%2 != 0 {
			return nil, fmt.Errorf("%w: %d bytes", ErrOddLength, len(data))
		}
		half := len(data) / 2
		job.Planes = []Plane{
			{Tag: PlaneBW, Name: "bw", Data: data[:half:half]},
			{Tag: PlaneColor, Name: "red", Data: data[half:]},
		}
	case protocol.ColorModeBlackWhite:
		job.Planes = []Plane{{Tag: PlaneBW, Name: "bw", Data: data}}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedColorMode, mode)
	}

	return job, nil
}

// Size returns the total number of image bytes in the job.
func (j *Job) Size() int {
	n := 0
	for _, p := range j.Planes {
		n += len(p.Data)
	}
	return n
}
