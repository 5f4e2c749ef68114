package codec

/*
#cgo pkg-config: libavformat libavcodec libavutil
#include <libavformat/avformat.h>
#include <libavcodec/avcodec.h>
#include <libavutil/imgutils.h>
#include <stdlib.h>
#include <errno.h>

static inline const char* vf_err2str(int errnum) {
    static char str[AV_ERROR_MAX_STRING_SIZE];
    av_make_error_string(str, AV_ERROR_MAX_STRING_SIZE, errnum);
    return str;
}

static inline int vf_eagain() { return AVERROR(EAGAIN); }
*/
import "C"

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync/atomic"
	"unsafe"

	"github.com/onart/glsl-video-filter/ring"
	"github.com/onart/glsl-video-filter/section"
)

// ErrNeedMoreInput is returned by ReceiveFrame when the decoder has
// consumed the last packet sent to it but has no frame ready yet
// (AVERROR(EAGAIN)) — the caller should read and send another packet.
var ErrNeedMoreInput = errors.New("codec: decoder needs more input")

// Decoder owns one demuxer/decoder pair for a single input file's video
// stream. Grounded on fmp.cpp's VideoDecoder/DecoderBase: open resolves
// the stream and its codec parameters eagerly so callers can query
// Width/Height/Duration before decoding ever starts.
type Decoder struct {
	fmtCtx      *C.AVFormatContext
	codecCtx    *C.AVCodecContext
	avCodec     *C.AVCodec
	streamIndex int
	opened      bool

	width, height int
	timeBase      Rational
	durationUS    int64
	pixelFormat   PixelFormat

	packet *C.AVPacket
	frame  *C.AVFrame

	stopped atomic.Bool
}

// NewDecoder opens fileName and resolves its first video stream. The
// codec itself is opened lazily by the first SendPacket/Start call,
// matching VideoDecoder::start in fmp.cpp, which defers avcodec_open2
// to the worker so construction never blocks on it.
func NewDecoder(fileName string) (*Decoder, error) {
	d := &Decoder{streamIndex: -1}

	cName := C.CString(fileName)
	defer C.free(unsafe.Pointer(cName))

	if rc := C.avformat_open_input(&d.fmtCtx, cName, nil, nil); rc < 0 {
		return nil, newError(KindIO, "open", fmt.Errorf("avformat_open_input: %s", C.GoString(C.vf_err2str(rc))))
	}
	if rc := C.avformat_find_stream_info(d.fmtCtx, nil); rc < 0 {
		C.avformat_close_input(&d.fmtCtx)
		return nil, newError(KindDemux, "find stream info", fmt.Errorf("%s", C.GoString(C.vf_err2str(rc))))
	}

	streams := unsafe.Slice(d.fmtCtx.streams, int(d.fmtCtx.nb_streams))
	for i, st := range streams {
		if st.codecpar.codec_type == C.AVMEDIA_TYPE_VIDEO {
			d.streamIndex = i
			break
		}
	}
	if d.streamIndex == -1 {
		C.avformat_close_input(&d.fmtCtx)
		return nil, newError(KindDemux, "find stream info", fmt.Errorf("%s: no video stream", fileName))
	}

	stream := streams[d.streamIndex]
	d.avCodec = C.avcodec_find_decoder(stream.codecpar.codec_id)
	if d.avCodec == nil {
		C.avformat_close_input(&d.fmtCtx)
		return nil, newError(KindDemux, "find decoder", fmt.Errorf("no decoder for codec id %d", stream.codecpar.codec_id))
	}

	d.codecCtx = C.avcodec_alloc_context3(d.avCodec)
	if rc := C.avcodec_parameters_to_context(d.codecCtx, stream.codecpar); rc < 0 {
		C.avformat_close_input(&d.fmtCtx)
		return nil, newError(KindDemux, "codec context", fmt.Errorf("%s", C.GoString(C.vf_err2str(rc))))
	}

	tb := Rational{Num: int(d.codecCtx.time_base.num), Den: int(d.codecCtx.time_base.den)}
	if !tb.Valid() {
		tb = Rational{Num: int(stream.time_base.num), Den: int(stream.time_base.den)}
	}
	d.timeBase = tb
	d.width = int(stream.codecpar.width)
	d.height = int(stream.codecpar.height)
	d.durationUS = int64(d.fmtCtx.duration)
	d.pixelFormat = PixelFormat(d.codecCtx.pix_fmt)

	d.packet = C.av_packet_alloc()
	d.frame = C.av_frame_alloc()

	return d, nil
}

func (d *Decoder) Width() int               { return d.width }
func (d *Decoder) Height() int              { return d.height }
func (d *Decoder) DurationUS() int64        { return d.durationUS }
func (d *Decoder) TimeBase() Rational       { return d.timeBase }
func (d *Decoder) PixelFormat() PixelFormat { return d.pixelFormat }
func (d *Decoder) VideoStreamIndex() int    { return d.streamIndex }

// SourceParams summarizes what NewEncoder needs to configure the video
// encoder from this decoder's stream, matching
// VideoDecoder::makeEncoder's reads of its own DecoderBase fields.
func (d *Decoder) SourceParams() SourceParams {
	return SourceParams{
		Width:       d.width,
		Height:      d.height,
		PixelFormat: d.pixelFormat,
		CodecID:     int32(d.codecCtx.codec_id),
		BitRate:     int64(d.codecCtx.bit_rate),
		Framerate:   Rational{Num: int(d.codecCtx.framerate.num), Den: int(d.codecCtx.framerate.den)},
		TimeBase:    d.timeBase,
	}
}

// Streams returns every input stream's codec parameters and time base
// so NewEncoder can clone all of them, preserving indices for
// pass-through packets (spec.md §4.5).
func (d *Decoder) Streams() []InputStream {
	streams := unsafe.Slice(d.fmtCtx.streams, int(d.fmtCtx.nb_streams))
	out := make([]InputStream, len(streams))
	for i, st := range streams {
		out[i] = InputStream{
			Index:    i,
			CodecPar: unsafe.Pointer(st.codecpar),
			TimeBase: Rational{Num: int(st.time_base.num), Den: int(st.time_base.den)},
			IsVideo:  i == d.streamIndex,
		}
	}
	return out
}

// Terminate asks any in-progress decode loop to stop at the next
// packet boundary. Safe to call from any goroutine; mirrors
// VideoDecoder::terminate's forcedStop flag, implemented here with an
// atomic instead of a plain bool since Go's race detector (unlike the
// original's single forced-stop writer/reader pairing) would otherwise
// flag the cross-goroutine read in the threaded driver.
func (d *Decoder) Terminate() {
	d.stopped.Store(true)
}

func (d *Decoder) Terminated() bool {
	return d.stopped.Load()
}

// Close releases the format and codec contexts. Safe to call once any
// decode loop has returned, or instead of ever starting one.
func (d *Decoder) Close() {
	if d.packet != nil {
		C.av_packet_free(&d.packet)
	}
	if d.frame != nil {
		C.av_frame_free(&d.frame)
	}
	if d.codecCtx != nil {
		C.avcodec_free_context(&d.codecCtx)
	}
	if d.fmtCtx != nil {
		C.avformat_close_input(&d.fmtCtx)
	}
}

func (d *Decoder) ensureOpen() error {
	if d.opened {
		return nil
	}
	if rc := C.avcodec_open2(d.codecCtx, d.avCodec, nil); rc < 0 {
		return newError(KindDemux, "codec open", fmt.Errorf("%s", C.GoString(C.vf_err2str(rc))))
	}
	d.opened = true
	return nil
}

// Seek flushes decoder buffers and seeks the demuxer to the nearest
// keyframe at or before startUS, matching VideoDecoder::start's
// per-section avcodec_flush_buffers + av_seek_frame(..., AVSEEK_FLAG_BACKWARD).
func (d *Decoder) Seek(startUS int64) error {
	if err := d.ensureOpen(); err != nil {
		return err
	}
	C.avcodec_flush_buffers(d.codecCtx)
	ticks := MicrosToTime(startUS, d.timeBase)
	if rc := C.av_seek_frame(d.fmtCtx, -1, C.int64_t(ticks), C.AVSEEK_FLAG_BACKWARD); rc < 0 {
		return newError(KindDemux, "seek", fmt.Errorf("%s", C.GoString(C.vf_err2str(rc))))
	}
	return nil
}

// ReadPacket returns the next demuxed packet from any stream, or io.EOF
// once the container is exhausted. The caller must call Release on the
// returned packet before the next ReadPacket call. This is the single
// demux loop the inline driver shares between video decode and
// pass-through packets, matching main.cpp's `while (av_read_frame(...))`.
func (d *Decoder) ReadPacket() (*Packet, error) {
	if rc := C.av_read_frame(d.fmtCtx, d.packet); rc < 0 {
		return nil, io.EOF
	}
	return &Packet{raw: d.packet}, nil
}

// SendPacket submits a video packet to the decoder. io.EOF signals the
// decoder has been flushed and will accept no more packets until
// avcodec_flush_buffers runs again (via Seek).
func (d *Decoder) SendPacket(pkt *Packet) error {
	if err := d.ensureOpen(); err != nil {
		return err
	}
	rc := C.avcodec_send_packet(d.codecCtx, pkt.raw)
	if rc == C.AVERROR_EOF {
		return io.EOF
	}
	if rc < 0 && rc != C.vf_eagain() {
		return newError(KindDemux, "send packet", fmt.Errorf("%s", C.GoString(C.vf_err2str(rc))))
	}
	return nil
}

// RawFrame is a decoded picture still owned by the decoder's single
// reusable AVFrame; valid only until the next ReceiveFrame call. Used
// by the inline driver, which converts it to a texture immediately
// within the same call stack (mirroring main.cpp's direct
// sws_scale(preprocessor, procFrame->data, ...) against the live
// decode frame, with no intermediate Go-owned copy).
type RawFrame struct {
	PTSMicros  int64
	DurationUS int64
	decoder    *Decoder
}

// ConvertInto runs conv against this frame's native planes, writing a
// packed buffer (e.g. BGRA, stride width*4) into dst.
func (f *RawFrame) ConvertInto(conv *PixelConverter, dst []byte, dstStride int) {
	var planes [4][]byte
	var strides [4]int
	for i := 0; i < 4; i++ {
		if f.decoder.frame.linesize[i] == 0 || f.decoder.frame.data[i] == nil {
			continue
		}
		strides[i] = int(f.decoder.frame.linesize[i])
		h := f.decoder.height
		if i > 0 && i < 3 {
			h = (h + 1) / 2 // conservative chroma-subsampling estimate for the common 4:2:0/4:2:2 cases
		}
		planes[i] = unsafe.Slice((*byte)(unsafe.Pointer(f.decoder.frame.data[i])), strides[i]*h)
	}
	conv.ConvertPlanes(planes, strides, dst, dstStride)
}

// CopyInto row-copies this frame's single packed plane straight into
// dst, for the rare case where the decoder's native pixel format is
// already the texture upload format and no sws_scale conversion is
// needed at all.
func (f *RawFrame) CopyInto(dst []byte, dstStride int) {
	srcStride := int(f.decoder.frame.linesize[0])
	srcBase := unsafe.Pointer(f.decoder.frame.data[0])
	for row := 0; row < f.decoder.height; row++ {
		srcRow := unsafe.Slice((*byte)(unsafe.Add(srcBase, row*srcStride)), dstStride)
		copy(dst[row*dstStride:(row+1)*dstStride], srcRow)
	}
}

// ReceiveFrame drains the next decoded frame. ErrNeedMoreInput means
// SendPacket should be called again before retrying; io.EOF means the
// decoder has been fully flushed for this section.
func (d *Decoder) ReceiveFrame() (*RawFrame, error) {
	rc := C.avcodec_receive_frame(d.codecCtx, d.frame)
	if rc == C.vf_eagain() {
		return nil, ErrNeedMoreInput
	}
	if rc == C.AVERROR_EOF {
		C.avcodec_flush_buffers(d.codecCtx)
		return nil, io.EOF
	}
	if rc < 0 {
		return nil, newError(KindDemux, "receive frame", fmt.Errorf("%s", C.GoString(C.vf_err2str(rc))))
	}
	low := TimeToMicros(int64(d.frame.pts), d.timeBase)
	high := TimeToMicros(int64(d.frame.pts)+int64(d.frame.duration), d.timeBase)
	return &RawFrame{PTSMicros: low, DurationUS: high, decoder: d}, nil
}

// ReleaseFrame unreferences the decoder's reusable AVFrame so the next
// ReceiveFrame call can populate it again.
func (d *Decoder) ReleaseFrame() {
	C.av_frame_unref(d.frame)
}

// Start decodes every normalized section into output, converting each
// frame's pts/duration to microseconds before handing the slot to the
// consumer. It runs on the calling goroutine; callers that want the
// original's "extraWorker" threaded shape simply invoke
// `go decoder.Start(...)` themselves. output.Done() is always called
// before Start returns, even on error, so a blocked consumer is never
// left waiting forever.
//
// Grounded on fmp.cpp's VideoDecoder::start: per-section seek with
// AVSEEK_FLAG_BACKWARD, flush before each seek, skip packets from other
// streams, and the section.Classify drop/break policy applied to each
// decoded frame's [pts, pts+duration) span. A per-packet send or
// receive error is logged and that packet's frames are dropped; decoding
// continues. Used by the threaded
// driver; the inline driver uses ReadPacket/SendPacket/ReceiveFrame
// directly so it can interleave pass-through packets from the same
// demux loop.
func (d *Decoder) Start(output *ring.FrameRing, sections []section.Section) error {
	defer output.Done()

	for _, sec := range sections {
		if err := d.Seek(sec.Start); err != nil {
			return err
		}

	readLoop:
		for {
			if d.stopped.Load() {
				return nil
			}
			pkt, err := d.ReadPacket()
			if err == io.EOF {
				break readLoop
			}
			if pkt.StreamIndex() != d.streamIndex {
				pkt.Release()
				continue
			}

			sendErr := d.SendPacket(pkt)
			pkt.Release()
			if sendErr == io.EOF {
				break readLoop
			}
			if sendErr != nil {
				log.Printf("codec: decode send packet failed: %v", sendErr)
				continue
			}

			for {
				rf, rerr := d.ReceiveFrame()
				if rerr == ErrNeedMoreInput {
					break
				}
				if rerr == io.EOF {
					break readLoop
				}
				if rerr != nil {
					log.Printf("codec: decode receive frame failed: %v", rerr)
					break
				}

				admitted, past := sec.Classify(rf.PTSMicros, rf.DurationUS)
				if past {
					d.ReleaseFrame()
					break readLoop
				}
				if !admitted {
					d.ReleaseFrame()
					continue
				}

				slot := output.GetToWrite()
				copyFramePlanes(slot, d.frame)
				slot.PTSMicros = rf.PTSMicros
				slot.DurationUS = rf.DurationUS
				output.ReturnWrite()
				d.ReleaseFrame()
			}
		}
	}
	return nil
}

// copyFramePlanes copies each populated plane of a decoded AVFrame into
// the destination slot's preallocated Go buffers, respecting the
// slot's own (pre-sized) strides rather than the source frame's
// linesize, which may include extra row padding libav chose for SIMD
// alignment.
func copyFramePlanes(dst *ring.FrameSlot, src *C.AVFrame) {
	for i := 0; i < 4; i++ {
		if len(dst.Planes[i]) == 0 {
			continue
		}
		srcStride := int(src.linesize[i])
		dstStride := dst.Strides[i]
		rows := len(dst.Planes[i]) / dstStride
		srcBase := unsafe.Pointer(src.data[i])
		if srcStride == dstStride {
			copy(dst.Planes[i], unsafe.Slice((*byte)(srcBase), dstStride*rows))
			continue
		}
		for row := 0; row < rows; row++ {
			srcRow := unsafe.Slice((*byte)(unsafe.Add(srcBase, row*srcStride)), dstStride)
			copy(dst.Planes[i][row*dstStride:(row+1)*dstStride], srcRow)
		}
	}
}
