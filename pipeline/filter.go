package pipeline

import (
	"github.com/onart/glsl-video-filter/graphics"
	"github.com/onart/glsl-video-filter/ring"
)

// FrameFilter owns the GPU render pass: it compiles the user's fragment
// shader against the built-in full-screen-triangle vertex stage, uploads
// each BGRA frame into a small pool of stream textures, and reads back
// the rendered RGBA result. Grounded on spec.md §4.4 and
// original_source/fmp.cpp's FrameFilter::onLoop.
//
// RenderFrame/Flush's pool-of-textures-plus-double-buffered-PBO path
// means the pixels RenderFrame returns are always the *previous* call's
// render, never the one just issued (graphics.RenderPass's PBO ping-pong,
// mirrored from renderer/offscreen.go's readPixelsAsync). The first
// RenderFrame call therefore returns stale/empty data and must not be
// handed to the encoder — this is the same one-frame "invoked" latch
// original_source/YERM_PC/main.cpp implements explicitly; here it falls
// out naturally from the render pass's own pipelining, so both driver
// shapes only need to skip encoding the very first render and call Flush
// once after the last one.
type FrameFilter struct {
	pass     *graphics.RenderPass
	textures []uint32
	next     int
}

// NewFrameFilter translates and compiles shaderSource for the active
// backend (gles selects the headless GLES3 translation target), builds
// the render pass sized width×height, and preallocates poolSize stream
// textures to upload into.
func NewFrameFilter(shaderSource string, gles bool, width, height, poolSize int) (*FrameFilter, error) {
	translated, err := graphics.TranslateFragmentShader(shaderSource, gles)
	if err != nil {
		return nil, err
	}
	program, err := graphics.NewProgram(translated, gles)
	if err != nil {
		return nil, err
	}
	pass, err := graphics.NewRenderPass(width, height, program)
	if err != nil {
		return nil, err
	}

	if poolSize < 1 {
		poolSize = 1
	}
	textures := make([]uint32, poolSize)
	for i := range textures {
		t, err := graphics.NewStreamTexture(width, height)
		if err != nil {
			pass.Close()
			return nil, err
		}
		textures[i] = t.Handle()
	}

	return &FrameFilter{pass: pass, textures: textures}, nil
}

// RenderFrame uploads bgra into the next pooled texture and invokes the
// render pass, returning the previous call's rendered RGBA pixels (see
// the type doc comment on the one-frame latency this implies).
func (f *FrameFilter) RenderFrame(bgra []byte) ([]byte, error) {
	handle := f.textures[f.next]
	f.next = (f.next + 1) % len(f.textures)

	graphics.UpdateStreamTexture(handle, func(dst []byte, pitch int) {
		copy(dst, bgra)
	})

	f.pass.Bind()
	f.pass.Invoke(handle)
	f.pass.Execute()
	if err := f.pass.Wait(); err != nil {
		return nil, err
	}
	return f.pass.ReadBack()
}

// Flush retrieves the final frame rendered before EOF, which
// RenderFrame's pipelined PBO readback has not yet surfaced — mirrors
// renderer/offscreen.go's RunOffscreen calling readPixelsAsync once more
// after its render loop ends.
func (f *FrameFilter) Flush() ([]byte, error) {
	f.pass.Execute()
	if err := f.pass.Wait(); err != nil {
		return nil, err
	}
	return f.pass.ReadBack()
}

// Run drains input (packed BGRA blocks) into output (packed RGBA
// blocks), applying the same invoked-latch rule as the inline driver,
// and propagates done. Used by the threaded driver.
func (f *FrameFilter) Run(input, output *ring.RGBARing) error {
	defer output.Done()

	invoked := false
	var prevPTS, prevDuration int64

	for {
		slot, ok := input.GetToRead()
		if !ok {
			break
		}
		pixels, err := f.RenderFrame(slot.Pixels)
		pts, dur := slot.PTSMicros, slot.DurationUS
		input.ReturnRead()
		if err != nil {
			return err
		}
		if invoked {
			out := output.GetToWrite()
			copy(out.Pixels, pixels)
			out.PTSMicros = prevPTS
			out.DurationUS = prevDuration
			output.ReturnWrite()
		}
		prevPTS, prevDuration = pts, dur
		invoked = true
	}

	if invoked {
		pixels, err := f.Flush()
		if err != nil {
			return err
		}
		out := output.GetToWrite()
		copy(out.Pixels, pixels)
		out.PTSMicros = prevPTS
		out.DurationUS = prevDuration
		output.ReturnWrite()
	}
	return nil
}

// Close releases the render pass and every pooled stream texture.
func (f *FrameFilter) Close() {
	graphics.DestroyTextureRingContents(f.textures)
	f.pass.Close()
}
