package pipeline

import (
	"github.com/onart/glsl-video-filter/codec"
	"github.com/onart/glsl-video-filter/ring"
)

// Converter performs the CPU half of the frame→texture conversion spec.md
// §4.3 describes: reformatting the decoder's native planes into a packed
// BGRA buffer sized for the resolved output resolution. The GPU upload
// itself happens inside FrameFilter rather than here, since OpenGL's
// context is thread-affine and this package keeps every GL call on the
// one goroutine FrameFilter owns — see DESIGN.md for the reasoning.
// Grounded on fmp.cpp's Converter::start and codec.PixelConverter, which
// this type is a thin per-stage wrapper over.
//
// Source and destination dimensions may differ (options.ResolveDimensions
// derives an output resolution independent of the source), in which case
// the wrapped sws context performs the rescale as part of the same pass
// that reformats pixels — there is no separate GPU-side resize step.
type Converter struct {
	conv                *codec.PixelConverter
	passthrough         bool
	srcWidth, srcHeight int
	dstWidth, dstHeight int
}

// NewConverter builds a converter from srcFormat at srcWidth×srcHeight
// to packed BGRA at dstWidth×dstHeight. Conversion short-circuits to a
// row copy, per spec.md §4.3, only when the format is already BGRA *and*
// no rescale is needed; any dimension change always routes through the
// sws context so scaling happens correctly.
func NewConverter(srcFormat codec.PixelFormat, srcWidth, srcHeight, dstWidth, dstHeight int) (*Converter, error) {
	if srcFormat == codec.PixelFormatBGRA && srcWidth == dstWidth && srcHeight == dstHeight {
		return &Converter{passthrough: true, srcWidth: srcWidth, srcHeight: srcHeight, dstWidth: dstWidth, dstHeight: dstHeight}, nil
	}
	conv, err := codec.NewPixelConverter(srcWidth, srcHeight, srcFormat, dstWidth, dstHeight, codec.PixelFormatBGRA)
	if err != nil {
		return nil, newPipelineError("new converter", err)
	}
	return &Converter{conv: conv, srcWidth: srcWidth, srcHeight: srcHeight, dstWidth: dstWidth, dstHeight: dstHeight}, nil
}

// OutputDimensions returns the resolved output width and height every
// BGRA buffer this converter writes is sized for.
func (c *Converter) OutputDimensions() (int, int) {
	return c.dstWidth, c.dstHeight
}

// Close releases the underlying conversion context, if any.
func (c *Converter) Close() {
	if c.conv != nil {
		c.conv.Close()
	}
}

// ConvertFrame writes rf's pixels into dst (stride dstWidth*4), used by
// the inline driver, which holds a RawFrame still owned by the decoder's
// live AVFrame.
func (c *Converter) ConvertFrame(rf *codec.RawFrame, dst []byte) {
	dstStride := c.dstWidth * 4
	if c.passthrough {
		rf.CopyInto(dst, dstStride)
		return
	}
	rf.ConvertInto(c.conv, dst, dstStride)
}

// Run drains input (decoded frame slots, source-sized) into output
// (packed BGRA blocks, output-sized) until input is exhausted,
// propagating done. Used by the threaded driver.
func (c *Converter) Run(input *ring.FrameRing, output *ring.RGBARing) error {
	defer output.Done()
	dstStride := c.dstWidth * 4
	for {
		slot, ok := input.GetToRead()
		if !ok {
			return nil
		}
		out := output.GetToWrite()
		if c.passthrough {
			copyRows(out.Pixels, dstStride, slot.Planes[0], slot.Strides[0], c.dstHeight)
		} else {
			c.conv.ConvertPlanes(slot.Planes, slot.Strides, out.Pixels, dstStride)
		}
		out.PTSMicros = slot.PTSMicros
		out.DurationUS = slot.DurationUS
		output.ReturnWrite()
		input.ReturnRead()
	}
}

func copyRows(dst []byte, dstStride int, src []byte, srcStride int, height int) {
	if srcStride == dstStride {
		copy(dst, src[:dstStride*height])
		return
	}
	for row := 0; row < height; row++ {
		copy(dst[row*dstStride:(row+1)*dstStride], src[row*srcStride:row*srcStride+dstStride])
	}
}
