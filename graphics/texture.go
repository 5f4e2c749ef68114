package graphics

import (
	"fmt"
	"sync"
	"unsafe"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"github.com/onart/glsl-video-filter/ring"
)

// registry maps a ring.TextureSlot's opaque Handle back to the
// StreamTexture that owns its PBO. spec.md §5's "shared resource
// policy" describes the graphics backend as a process-global singleton
// serialized through an internal mutex — this registry and its mutex
// are that singleton, grounded on fmp.cpp's YRGraphics being a static
// class with its own internal locking rather than a value the pipeline
// carries around.
var (
	registryMu sync.Mutex
	registry   = map[uint32]*StreamTexture{}
)

// StreamTexture is a GPU-resident 2D texture whose backing memory is
// re-uploaded from the CPU every frame through a pixel-unpack PBO —
// spec.md §3's StreamTexture, grounded on fmp.cpp's
// YRGraphics::pStreamTexture/updateBy and renderer/offscreen.go's
// PBO-based async transfer pattern (applied here to uploads instead of
// readback).
type StreamTexture struct {
	handle        uint32
	unpackPBO     uint32
	width, height int
}

// NewStreamTexture allocates a BGRA8 texture and its unpack PBO, sized
// for width×height — spec.md §4.3's "filter's input texture is BGRA
// interleaved."
func NewStreamTexture(width, height int) (*StreamTexture, error) {
	t := &StreamTexture{width: width, height: height}

	gl.GenTextures(1, &t.handle)
	gl.BindTexture(gl.TEXTURE_2D, t.handle)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(width), int32(height), 0, gl.BGRA, gl.UNSIGNED_BYTE, nil)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	if gl.GetError() != gl.NO_ERROR {
		return nil, newGraphicsError("create stream texture", fmt.Errorf("texture allocation failed for %dx%d", width, height))
	}

	gl.GenBuffers(1, &t.unpackPBO)
	gl.BindBuffer(gl.PIXEL_UNPACK_BUFFER, t.unpackPBO)
	gl.BufferData(gl.PIXEL_UNPACK_BUFFER, width*height*4, nil, gl.STREAM_DRAW)
	gl.BindBuffer(gl.PIXEL_UNPACK_BUFFER, 0)

	registryMu.Lock()
	registry[t.handle] = t
	registryMu.Unlock()

	return t, nil
}

// UpdateBy maps the unpack PBO, hands the caller a writable byte slice
// and the row pitch, then uploads the mapped buffer into the texture —
// the staging-buffer write spec.md §4.3 describes the frame→texture
// converter performing its color conversion directly into.
func (t *StreamTexture) UpdateBy(write func(dst []byte, pitch int)) {
	size := t.width * t.height * 4
	gl.BindBuffer(gl.PIXEL_UNPACK_BUFFER, t.unpackPBO)
	ptr := gl.MapBufferRange(gl.PIXEL_UNPACK_BUFFER, 0, size, gl.MAP_WRITE_BIT)
	if ptr != nil {
		dst := unsafe.Slice((*byte)(ptr), size)
		write(dst, t.width*4)
		gl.UnmapBuffer(gl.PIXEL_UNPACK_BUFFER)
	}

	gl.BindTexture(gl.TEXTURE_2D, t.handle)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(t.width), int32(t.height), gl.BGRA, gl.UNSIGNED_BYTE, nil)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	gl.BindBuffer(gl.PIXEL_UNPACK_BUFFER, 0)
}

// Handle returns the underlying GL texture name.
func (t *StreamTexture) Handle() uint32 { return t.handle }

// Bind activates this texture on the given texture unit.
func (t *StreamTexture) Bind(unit uint32) {
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	gl.BindTexture(gl.TEXTURE_2D, t.handle)
}

// Destroy releases the texture and its PBO.
func (t *StreamTexture) Destroy() {
	registryMu.Lock()
	delete(registry, t.handle)
	registryMu.Unlock()
	gl.DeleteTextures(1, &t.handle)
	gl.DeleteBuffers(1, &t.unpackPBO)
}

func lookup(handle uint32) *StreamTexture {
	registryMu.Lock()
	defer registryMu.Unlock()
	return registry[handle]
}

// UpdateStreamTexture looks up the texture behind a ring slot's handle
// and updates it. Used by the frame→texture converter, which only ever
// sees the opaque handle carried in ring.TextureSlot.
func UpdateStreamTexture(handle uint32, write func(dst []byte, pitch int)) {
	if t := lookup(handle); t != nil {
		t.UpdateBy(write)
	}
}

// BindStreamTextureUnit binds the texture behind handle to unit, used
// by the render pass when invoking the filter.
func BindStreamTextureUnit(handle uint32, unit uint32) {
	if t := lookup(handle); t != nil {
		t.Bind(unit)
	}
}

// NewTextureRing preallocates capacity stream textures sized for
// width×height — the graphics-backend-dependent counterpart of
// ring.NewFrameRing/NewRGBARing, kept in this package because texture
// creation needs a live GL context.
func NewTextureRing(capacity, width, height int) (*ring.TextureRing, error) {
	var createErr error
	r := ring.New(capacity, func(s *ring.TextureSlot) {
		if createErr != nil {
			return
		}
		tex, err := NewStreamTexture(width, height)
		if err != nil {
			createErr = err
			return
		}
		s.Handle = tex.handle
		s.Width = width
		s.Height = height
	})
	if createErr != nil {
		return nil, createErr
	}
	return r, nil
}

// DestroyTextureRingContents releases the GPU textures a texture ring
// preallocated. The ring primitive itself has no teardown hook (it is
// GL-oblivious by design), so the graphics package owns this instead.
func DestroyTextureRingContents(handles []uint32) {
	for _, h := range handles {
		if t := lookup(h); t != nil {
			t.Destroy()
		}
	}
}
