package graphics

import (
	"fmt"
	"unsafe"

	gl "github.com/go-gl/gl/v4.1-core/gl"
)

// RenderPass is an FBO with one RGBA8 color target, a linked Program,
// and a double-buffered pixel-pack PBO readback path — the Go analogue
// of renderer/offscreen.go's OffscreenRenderer, generalized from a
// visualization preview surface into the single-shot GPU filter stage
// a video frame passes through once per Invoke.
type RenderPass struct {
	fbo           uint32
	colorTex      uint32
	width, height int
	pbos          [2]uint32
	pboIndex      int
	program       *Program
	fence         uintptr
	hasFence      bool
}

// NewRenderPass allocates the framebuffer, color attachment and PBO
// pair, and takes ownership of program (closed by Close).
func NewRenderPass(width, height int, program *Program) (*RenderPass, error) {
	rp := &RenderPass{width: width, height: height, program: program}

	gl.GenFramebuffers(1, &rp.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, rp.fbo)

	gl.GenTextures(1, &rp.colorTex)
	gl.BindTexture(gl.TEXTURE_2D, rp.colorTex)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(width), int32(height), 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, rp.colorTex, 0)

	if gl.CheckFramebufferStatus(gl.FRAMEBUFFER) != gl.FRAMEBUFFER_COMPLETE {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		return nil, newGraphicsError("create render pass", fmt.Errorf("framebuffer incomplete for %dx%d", width, height))
	}

	bufferSize := width * height * 4
	gl.GenBuffers(2, &rp.pbos[0])
	gl.BindBuffer(gl.PIXEL_PACK_BUFFER, rp.pbos[0])
	gl.BufferData(gl.PIXEL_PACK_BUFFER, bufferSize, nil, gl.STREAM_READ)
	gl.BindBuffer(gl.PIXEL_PACK_BUFFER, rp.pbos[1])
	gl.BufferData(gl.PIXEL_PACK_BUFFER, bufferSize, nil, gl.STREAM_READ)
	gl.BindBuffer(gl.PIXEL_PACK_BUFFER, 0)

	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return rp, nil
}

// Bind binds this pass's framebuffer and viewport, and activates the
// filter program, ready for Invoke.
func (rp *RenderPass) Bind() {
	gl.BindFramebuffer(gl.FRAMEBUFFER, rp.fbo)
	gl.Viewport(0, 0, int32(rp.width), int32(rp.height))
	rp.program.Use()
}

// Invoke binds the given input texture to unit 0 and draws the
// full-screen triangle — the single draw call spec.md §4.4 calls for,
// with no vertex buffer (positions come from gl_VertexID in the vertex
// shader).
func (rp *RenderPass) Invoke(inputTextureHandle uint32) {
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, inputTextureHandle)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
}

// Execute inserts a GPU fence after the draw and kicks off the
// asynchronous pixel-pack transfer for the frame just rendered. Wait
// blocks on that fence; the two are split so a caller can overlap the
// fence wait with other CPU work if a future pipeline shape wants to.
func (rp *RenderPass) Execute() {
	rp.fence = gl.FenceSync(gl.SYNC_GPU_COMMANDS_COMPLETE, 0)
	rp.hasFence = true
	gl.BindBuffer(gl.PIXEL_PACK_BUFFER, rp.pbos[rp.pboIndex])
	gl.ReadPixels(0, 0, int32(rp.width), int32(rp.height), gl.RGBA, gl.UNSIGNED_BYTE, nil)
	gl.BindBuffer(gl.PIXEL_PACK_BUFFER, 0)
}

// Wait blocks until the fence set by Execute is signaled — the real
// GPU fence spec.md describes enforcing read-after-write between the
// render pass and the readback that follows it.
func (rp *RenderPass) Wait() error {
	if !rp.hasFence {
		return nil
	}
	status := gl.ClientWaitSync(rp.fence, gl.SYNC_FLUSH_COMMANDS_BIT, 1e9)
	gl.DeleteSync(rp.fence)
	rp.hasFence = false
	if status == gl.TIMEOUT_EXPIRED || status == gl.WAIT_FAILED {
		return newGraphicsError("wait render pass", fmt.Errorf("fence wait failed or timed out"))
	}
	return nil
}

// ReadBack returns the previous frame's pixels (the PBO swap trades one
// frame of latency for avoiding a CPU stall on the just-issued
// ReadPixels), row-major, top-left origin. Call after Wait.
func (rp *RenderPass) ReadBack() ([]byte, error) {
	nextIndex := (rp.pboIndex + 1) % 2
	size := rp.width * rp.height * 4

	gl.BindBuffer(gl.PIXEL_PACK_BUFFER, rp.pbos[nextIndex])
	ptr := gl.MapBufferRange(gl.PIXEL_PACK_BUFFER, 0, size, gl.MAP_READ_BIT)
	if ptr == nil {
		gl.BindBuffer(gl.PIXEL_PACK_BUFFER, 0)
		return nil, newGraphicsError("read back render pass", fmt.Errorf("failed to map pixel-pack PBO"))
	}
	out := make([]byte, size)
	copy(out, unsafe.Slice((*byte)(ptr), size))
	gl.UnmapBuffer(gl.PIXEL_PACK_BUFFER)
	gl.BindBuffer(gl.PIXEL_PACK_BUFFER, 0)

	rp.pboIndex = nextIndex
	return out, nil
}

// Close releases the framebuffer, color target, PBOs and program.
func (rp *RenderPass) Close() {
	gl.DeleteFramebuffers(1, &rp.fbo)
	gl.DeleteTextures(1, &rp.colorTex)
	gl.DeleteBuffers(2, &rp.pbos[0])
	rp.program.Close()
}
