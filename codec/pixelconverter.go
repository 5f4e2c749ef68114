package codec

/*
#cgo pkg-config: libswscale libavutil
#include <libswscale/swscale.h>
#include <libavutil/pixfmt.h>
*/
import "C"
import (
	"fmt"
	"unsafe"
)

// PixelFormat is the codec backend's native pixel format tag
// (AVPixelFormat), opaque to every package except codec.
type PixelFormat int32

const (
	PixelFormatBGRA PixelFormat = C.AV_PIX_FMT_BGRA
	PixelFormatRGBA PixelFormat = C.AV_PIX_FMT_RGBA
)

// PixelConverter wraps a single libswscale conversion context. It is the
// one pixel-format-conversion primitive spec.md §1 calls an external
// collaborator of the codec backend, used both by the frame→texture leg
// (pipeline.Converter, converting the decoder's native
// format to BGRA) and by the encoder's own RGBA→native preprocessing
// (spec.md §4.5) — grounded on fmp.cpp's Converter::start and
// encoder/encoder.go's openVideo, both of which call sws_getContext once
// and reuse the context for every frame.
//
// A PixelConverter whose source and destination formats and dimensions
// are all identical is never constructed: callers short-circuit to a
// row-wise copy instead, per spec.md §4.3. Identical formats with
// differing dimensions still get a PixelConverter, which rescales.
type PixelConverter struct {
	ctx                  *C.struct_SwsContext
	srcWidth, srcHeight  int
	dstWidth, dstHeight  int
	srcFormat, dstFormat PixelFormat
}

// NewPixelConverter builds a point-sampled (SWS_POINT) conversion
// context, matching fmp.cpp's Converter/Encoder constructors, which both
// pass SWS_POINT rather than a higher-quality filter — this pipeline
// trades slight resampling quality for per-frame conversion speed, the
// same tradeoff the original makes. Source and destination dimensions
// may differ: sws_scale rescales as part of the same conversion pass,
// which is how this pipeline resolves a requested output resolution
// that differs from the source (spec.md's width/height options).
func NewPixelConverter(srcWidth, srcHeight int, src PixelFormat, dstWidth, dstHeight int, dst PixelFormat) (*PixelConverter, error) {
	ctx := C.sws_getContext(
		C.int(srcWidth), C.int(srcHeight), int32(src),
		C.int(dstWidth), C.int(dstHeight), int32(dst),
		C.SWS_POINT, nil, nil, nil,
	)
	if ctx == nil {
		return nil, fmt.Errorf("sws_getContext failed for %dx%d -> %dx%d, format %d->%d", srcWidth, srcHeight, dstWidth, dstHeight, src, dst)
	}
	return &PixelConverter{
		ctx:       ctx,
		srcWidth:  srcWidth,
		srcHeight: srcHeight,
		dstWidth:  dstWidth,
		dstHeight: dstHeight,
		srcFormat: src,
		dstFormat: dst,
	}, nil
}

// Close releases the underlying SwsContext.
func (c *PixelConverter) Close() {
	if c != nil && c.ctx != nil {
		C.sws_freeContext(c.ctx)
		c.ctx = nil
	}
}

// ConvertPlanes runs the conversion from up to 4 source planes/strides
// into a single packed destination buffer with the given stride
// (dstStride is normally dstWidth*4 for BGRA/RGBA targets). srcPlanes
// must be sized for c.srcWidth/c.srcHeight and dst for c.dstWidth/
// c.dstHeight; no allocation happens here. sws_scale rescales between
// the two as part of the same pass when they differ.
func (c *PixelConverter) ConvertPlanes(srcPlanes [4][]byte, srcStrides [4]int, dst []byte, dstStride int) {
	var srcData [4]*C.uint8_t
	var srcLinesize [4]C.int
	for i := 0; i < 4; i++ {
		if len(srcPlanes[i]) > 0 {
			srcData[i] = (*C.uint8_t)(unsafe.Pointer(&srcPlanes[i][0]))
		}
		srcLinesize[i] = C.int(srcStrides[i])
	}
	dstData := [1]*C.uint8_t{(*C.uint8_t)(unsafe.Pointer(&dst[0]))}
	dstLinesize := [1]C.int{C.int(dstStride)}

	C.sws_scale(c.ctx,
		(**C.uint8_t)(unsafe.Pointer(&srcData[0])), (*C.int)(unsafe.Pointer(&srcLinesize[0])),
		0, C.int(c.srcHeight),
		(**C.uint8_t)(unsafe.Pointer(&dstData[0])), (*C.int)(unsafe.Pointer(&dstLinesize[0])),
	)
}

// ConvertPacked runs the conversion from a single packed source buffer
// (e.g. RGBA) into a single packed destination buffer, used by the
// encoder's RGBA→native-format preprocessing step. Source and
// destination are always the same dimensions here (the encoder only
// reformats pixels already at the output resolution), but the general
// sws_scale call below handles either case identically.
func (c *PixelConverter) ConvertPacked(src []byte, srcStride int, dst []byte, dstStrides [4]int) {
	srcData := [1]*C.uint8_t{(*C.uint8_t)(unsafe.Pointer(&src[0]))}
	srcLinesize := [1]C.int{C.int(srcStride)}

	var dstData [4]*C.uint8_t
	var dstLinesize [4]C.int
	offset := 0
	planeHeights := planeHeightsFor(c.dstFormat, c.dstWidth, c.dstHeight)
	for i := 0; i < 4; i++ {
		if dstStrides[i] == 0 {
			continue
		}
		dstData[i] = (*C.uint8_t)(unsafe.Pointer(&dst[offset]))
		dstLinesize[i] = C.int(dstStrides[i])
		offset += dstStrides[i] * planeHeights[i]
	}

	C.sws_scale(c.ctx,
		(**C.uint8_t)(unsafe.Pointer(&srcData[0])), (*C.int)(unsafe.Pointer(&srcLinesize[0])),
		0, C.int(c.srcHeight),
		(**C.uint8_t)(unsafe.Pointer(&dstData[0])), (*C.int)(unsafe.Pointer(&dstLinesize[0])),
	)
}

// planeHeightsFor is a small, deliberately conservative helper: it only
// needs to be exact for the planar formats this pipeline actually
// produces (4:2:0 and 4:4:4 YUV variants plus packed RGBA, which has a
// single plane). Chroma-subsampled planes are half height; planar
// heights come from planeLayout, which reads the format's subsampling.
func planeHeightsFor(format PixelFormat, width, height int) [4]int {
	switch format {
	case PixelFormatRGBA, PixelFormatBGRA:
		return [4]int{height, 0, 0, 0}
	default:
		_, heights := planeLayout(format, width, height)
		return heights
	}
}
