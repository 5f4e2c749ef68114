package pipeline

import (
	"log"
	"sync"

	"github.com/onart/glsl-video-filter/codec"
	"github.com/onart/glsl-video-filter/ring"
	"github.com/onart/glsl-video-filter/section"
)

// RunThreaded wires the decoder, converter, filter and encoder stages
// together through rings, constructing them and waiting for EOS to
// propagate through the last ring's done flag, matching spec.md §4.6's
// description of the threaded shape. Unlike RunInline, non-video packets
// are never forwarded here — original_source/fmp.cpp's per-stage worker
// loop only ever drains the video stream itself; pass-through is the
// inline driver's job.
//
// The filter stage is the one exception to "each stage gets its own
// goroutine": OpenGL's context is thread-affine, and filter is the only
// stage that touches gl.* (texture upload, render invoke, PBO readback).
// RunThreaded must therefore be called from whichever goroutine already
// made the GL context current — cmd/vidfilter's main goroutine, locked
// via runtime.LockOSThread in init — and filter.Run runs directly on
// that calling goroutine rather than being spawned, while decode,
// convert and the encode drain loop run on their own goroutines around
// it. This still matches the original's intent of each stage draining
// its ring concurrently with the others; only the thread it happens to
// execute on is pinned.
//
// dstWidth/dstHeight are the resolved output dimensions (options.
// ResolveDimensions), which may differ from the decoder's source
// dimensions; the frame ring stays source-sized while the BGRA rings on
// either side of the filter are sized for the output, matching the
// rescale the converter performs.
func RunThreaded(dec *codec.Decoder, enc *codec.Encoder, filter *FrameFilter, sections []section.Section, dstWidth, dstHeight, ringCapacity int) error {
	frameRing := codec.NewDecodedFrameRing(ringCapacity, dec.PixelFormat(), dec.Width(), dec.Height())
	bgraRing := ring.NewRGBARing(ringCapacity, dstWidth, dstHeight)
	outputRing := ring.NewRGBARing(ringCapacity, dstWidth, dstHeight)

	conv, err := NewConverter(dec.PixelFormat(), dec.Width(), dec.Height(), dstWidth, dstHeight)
	if err != nil {
		return err
	}
	defer conv.Close()

	var wg sync.WaitGroup
	var decodeErr, convertErr error

	wg.Add(3)
	go func() {
		defer wg.Done()
		decodeErr = dec.Start(frameRing, sections)
	}()
	go func() {
		defer wg.Done()
		convertErr = conv.Run(frameRing, bgraRing)
	}()
	go func() {
		defer wg.Done()
		for {
			slot, ok := outputRing.GetToRead()
			if !ok {
				return
			}
			if err := enc.Push(slot.Pixels, slot.PTSMicros, slot.DurationUS); err != nil {
				log.Printf("pipeline: encode push failed: %v", err)
			}
			outputRing.ReturnRead()
		}
	}()

	filterErr := filter.Run(bgraRing, outputRing)

	wg.Wait()

	for _, err := range []error{decodeErr, convertErr, filterErr} {
		if err != nil {
			return newPipelineError("run threaded", err)
		}
	}
	return enc.Flush()
}
