package codec

/*
#cgo pkg-config: libavutil
#include <libavutil/imgutils.h>
#include <libavutil/pixdesc.h>
*/
import "C"

import (
	"github.com/onart/glsl-video-filter/ring"
)

// planeLayout returns, for each of the up to 4 planes a pixel format
// uses, the linesize (row stride, no padding beyond what libav requires
// for the format) and the plane's height in rows, accounting for
// chroma subsampling (e.g. 4:2:0 halves both dimensions on planes 1/2).
func planeLayout(format PixelFormat, width, height int) (strides [4]int, heights [4]int) {
	var cLinesizes [4]C.int
	C.av_image_fill_linesizes(&cLinesizes[0], int32(format), C.int(width))

	desc := C.av_pix_fmt_desc_get(int32(format))
	for i := 0; i < 4; i++ {
		strides[i] = int(cLinesizes[i])
		if strides[i] == 0 {
			continue
		}
		if desc != nil && i > 0 && i < 3 {
			heights[i] = -((-height) >> uint(desc.log2_chroma_h))
		} else {
			heights[i] = height
		}
	}
	return strides, heights
}

// NewDecodedFrameRing preallocates capacity frame slots sized correctly
// for width×height video in the decoder's native pixel format,
// including chroma-subsampled plane sizes — grounded on fmp.cpp's
// _rb4f::init, which calls av_frame_get_buffer(fr, 0) to let libavutil
// compute the same layout for a reusable AVFrame. This package copies
// decoded planes into plain Go byte slices instead of keeping a pool of
// AVFrames, so the ring stays free of any cgo dependency.
func NewDecodedFrameRing(capacity int, format PixelFormat, width, height int) *ring.FrameRing {
	strides, heights := planeLayout(format, width, height)
	return ring.New(capacity, func(s *ring.FrameSlot) {
		s.PixelFormat = int32(format)
		s.Width = width
		s.Height = height
		for i := 0; i < 4; i++ {
			if strides[i] == 0 {
				continue
			}
			s.Planes[i] = make([]byte, strides[i]*heights[i])
			s.Strides[i] = strides[i]
		}
	})
}
