package ring

// FrameSlot, TextureSlot and RGBASlot are the payloads carried by the
// three specialized rings spec.md §3/§4.1 calls for
// (RingBuffer4Frame/RingBuffer4Texture/RingBuffer4RGBA in the original).
// They are declared here rather than in codec/graphics so that ring
// stays free of a dependency on cgo or OpenGL — the same separation the
// C++ original keeps between fmp.h (ring declarations) and the codec/
// graphics headers it only forward-declares.

// FrameSlot holds a reusable decoded picture. Planes/Strides are
// populated once at ring-init time by the producer (the decoder) and
// never reallocated; each decoded frame is copied into them.
type FrameSlot struct {
	PixelFormat int32
	Width       int
	Height      int
	Planes      [4][]byte
	Strides     [4]int
	PTSMicros   int64
	DurationUS  int64
}

// TextureSlot holds a GPU-resident stream texture reference plus the
// timestamp metadata the texture was last written with. The original
// C++ ring never carried PTS alongside a texture handle (the inline
// driver kept it in a local variable instead); carrying it here lets the
// timestamp travel with the texture through a TextureRing. Neither
// pipeline driver passes textures through a ring: the converter hands
// the filter packed BGRA bytes through an RGBARing, and the filter
// uploads them into its own texture pool.
type TextureSlot struct {
	Handle     uint32 // GL texture name, owned by the graphics backend
	Width      int
	Height     int
	PTSMicros  int64
	DurationUS int64
}

// RGBASlot holds a reusable row-major RGBA byte block plus the
// timestamp it was rendered for.
type RGBASlot struct {
	Pixels     []byte
	Width      int
	Height     int
	PTSMicros  int64
	DurationUS int64
}

// FrameRing is the decoder's output / converter's input.
type FrameRing = Ring[FrameSlot]

// TextureRing carries stream-texture handles from one producer to one
// consumer; graphics.NewTextureRing builds one with preallocated
// textures.
type TextureRing = Ring[TextureSlot]

// RGBARing carries packed 4-byte-per-pixel blocks: BGRA from the
// converter to the filter stage, and rendered RGBA from the filter stage
// to the encoder.
type RGBARing = Ring[RGBASlot]

// NewFrameRing preallocates capacity frame slots for a single packed
// plane (e.g. RGBA-style buffers used in tests and fixtures). Decoded
// video is almost always planar YUV with chroma-subsampled planes of
// differing sizes, which this constructor cannot size correctly; the
// codec package's NewDecodedFrameRing handles that case using libavutil
// to compute real per-plane sizes.
func NewFrameRing(capacity, pixelFormat, width, height, planeBytesPerPixel int) *FrameRing {
	return New(capacity, func(s *FrameSlot) {
		s.PixelFormat = int32(pixelFormat)
		s.Width = width
		s.Height = height
		s.Planes[0] = make([]byte, width*height*planeBytesPerPixel)
	})
}

// NewRGBARing preallocates capacity RGBA byte blocks sized width*height*4.
func NewRGBARing(capacity, width, height int) *RGBARing {
	return New(capacity, func(s *RGBASlot) {
		s.Width = width
		s.Height = height
		s.Pixels = make([]byte, width*height*4)
	})
}
