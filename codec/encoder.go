package codec

/*
#cgo pkg-config: libavformat libavcodec libavutil libswscale
#include <libavformat/avformat.h>
#include <libavcodec/avcodec.h>
#include <libavutil/opt.h>
#include <stdlib.h>

static inline const char* vf_err2str(int errnum) {
    static char str[AV_ERROR_MAX_STRING_SIZE];
    av_make_error_string(str, AV_ERROR_MAX_STRING_SIZE, errnum);
    return str;
}
static inline int vf_eagain() { return AVERROR(EAGAIN); }
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// SourceParams describes the decoder this encoder is paired with — just
// enough to derive output encoder settings, mirroring
// VideoDecoder::makeEncoder in fmp.cpp which reads its own DecoderBase
// fields directly. Kept as a plain struct here so codec/encoder.go
// never needs a dependency on Decoder's internals.
type SourceParams struct {
	Width, Height int
	PixelFormat   PixelFormat
	CodecID       int32
	BitRate       int64
	Framerate     Rational
	TimeBase      Rational
}

// Encoder wraps an output container with one video stream plus
// pass-through copies of every other input stream. Grounded on
// fmp.cpp's VideoEncoder/EncoderBase and VideoDecoder::makeEncoder
// (bitrate scaling, GOP/B-frame settings, optional RGBA preprocessor),
// and encoder/encoder.go's cgo container-setup conventions
// (avformat_alloc_output_context2 / addStream / avcodec_parameters_from_context).
type Encoder struct {
	fmtCtx      *C.AVFormatContext
	codecCtx    *C.AVCodecContext
	videoStream *C.AVStream
	videoIndex  int

	// streamRemap maps an input stream index to the corresponding output
	// stream, so pass-through packets keep their original index even
	// when the video stream isn't input stream 0.
	streamRemap map[int]*C.AVStream

	inputTimeBases  map[int]Rational
	outputTimeBases map[int]Rational

	width, height int
	preprocessor  *PixelConverter
	nativeFormat  PixelFormat

	rgbaBuf      []byte
	nativeBuf    []byte
	nativeStride [4]int

	rgbaFrame *C.AVFrame
	procFrame *C.AVFrame
	packet    *C.AVPacket
}

// InputStream describes one stream from the source container that
// should be cloned into the output, preserving its index.
type InputStream struct {
	Index    int
	CodecPar unsafe.Pointer // *C.AVCodecParameters, opaque to callers outside codec
	TimeBase Rational
	IsVideo  bool
}

// NewEncoder allocates the output container, clones every input stream
// (spec: "clone all input stream parameters into the output, preserving
// stream indices"), and configures the video stream's encoder from src.
func NewEncoder(outputPath string, src SourceParams, dstWidth, dstHeight int, videoInputIndex int, streams []InputStream) (*Encoder, error) {
	e := &Encoder{
		width: dstWidth, height: dstHeight,
		streamRemap:     make(map[int]*C.AVStream),
		inputTimeBases:  make(map[int]Rational),
		outputTimeBases: make(map[int]Rational),
		nativeFormat:    src.PixelFormat,
	}

	cPath := C.CString(outputPath)
	defer C.free(unsafe.Pointer(cPath))

	if rc := C.avformat_alloc_output_context2(&e.fmtCtx, nil, nil, cPath); rc < 0 || e.fmtCtx == nil {
		return nil, newError(KindEncode, "alloc output context", fmt.Errorf("could not deduce output format from %q", outputPath))
	}

	var videoCodec *C.AVCodec
	for _, is := range streams {
		st := C.avformat_new_stream(e.fmtCtx, nil)
		if st == nil {
			return nil, newError(KindEncode, "new stream", fmt.Errorf("stream %d", is.Index))
		}
		if rc := C.avcodec_parameters_copy(st.codecpar, (*C.AVCodecParameters)(is.CodecPar)); rc < 0 {
			return nil, newError(KindEncode, "clone stream params", fmt.Errorf("%s", C.GoString(C.vf_err2str(rc))))
		}
		st.time_base = is.TimeBase.toC()
		e.streamRemap[is.Index] = st
		e.inputTimeBases[is.Index] = is.TimeBase
		e.outputTimeBases[is.Index] = Rational{Num: int(st.time_base.num), Den: int(st.time_base.den)}

		if is.IsVideo {
			videoCodec = C.avcodec_find_encoder(C.enum_AVCodecID(src.CodecID))
			if videoCodec == nil {
				return nil, newError(KindEncode, "find encoder", fmt.Errorf("no encoder for codec id %d", src.CodecID))
			}
			e.videoStream = st
			e.videoIndex = is.Index
		}
	}
	if e.videoStream == nil {
		return nil, newError(KindEncode, "new stream", fmt.Errorf("no video stream among inputs"))
	}

	e.codecCtx = C.avcodec_alloc_context3(videoCodec)
	e.codecCtx.width = C.int(dstWidth)
	e.codecCtx.height = C.int(dstHeight)
	e.codecCtx.time_base = src.TimeBase.toC()
	e.codecCtx.framerate = src.Framerate.toC()
	e.codecCtx.gop_size = 4
	e.codecCtx.max_b_frames = 1
	e.codecCtx.pix_fmt = int32(src.PixelFormat)

	bitRate := src.BitRate * int64(dstWidth) * int64(dstHeight) / int64(src.Width) / int64(src.Height)
	if bitRate == 0 && src.Framerate.Den != 0 {
		bitRate = int64(dstWidth) * int64(dstHeight) * int64(src.Framerate.Num) / int64(src.Framerate.Den)
	}
	e.codecCtx.bit_rate = C.int64_t(bitRate)

	if (e.fmtCtx.oformat.flags & C.AVFMT_GLOBALHEADER) != 0 {
		e.codecCtx.flags |= C.AV_CODEC_FLAG_GLOBAL_HEADER
	}

	if rc := C.avcodec_open2(e.codecCtx, videoCodec, nil); rc < 0 {
		return nil, newError(KindEncode, "codec open", fmt.Errorf("%s", C.GoString(C.vf_err2str(rc))))
	}
	if rc := C.avcodec_parameters_from_context(e.videoStream.codecpar, e.codecCtx); rc < 0 {
		return nil, newError(KindEncode, "copy codec parameters", fmt.Errorf("%s", C.GoString(C.vf_err2str(rc))))
	}

	e.rgbaFrame = C.av_frame_alloc()
	e.rgbaFrame.format = C.int(PixelFormatRGBA)
	e.rgbaFrame.width = C.int(dstWidth)
	e.rgbaFrame.height = C.int(dstHeight)
	if rc := C.av_frame_get_buffer(e.rgbaFrame, 0); rc < 0 {
		return nil, newError(KindEncode, "alloc rgba frame", fmt.Errorf("%s", C.GoString(C.vf_err2str(rc))))
	}

	if src.PixelFormat != PixelFormatRGBA {
		conv, err := NewPixelConverter(dstWidth, dstHeight, PixelFormatRGBA, dstWidth, dstHeight, src.PixelFormat)
		if err != nil {
			return nil, newError(KindEncode, "preprocessor", err)
		}
		e.preprocessor = conv
		e.procFrame = C.av_frame_alloc()
		e.procFrame.format = C.int(src.PixelFormat)
		e.procFrame.width = C.int(dstWidth)
		e.procFrame.height = C.int(dstHeight)
		if rc := C.av_frame_get_buffer(e.procFrame, 0); rc < 0 {
			return nil, newError(KindEncode, "alloc preprocessed frame", fmt.Errorf("%s", C.GoString(C.vf_err2str(rc))))
		}
	}

	e.packet = C.av_packet_alloc()

	if (e.fmtCtx.oformat.flags & C.AVFMT_NOFILE) == 0 {
		if rc := C.avio_open(&e.fmtCtx.pb, cPath, C.AVIO_FLAG_WRITE); rc < 0 {
			return nil, newError(KindIO, "open output", fmt.Errorf("%s", C.GoString(C.vf_err2str(rc))))
		}
	}
	if rc := C.avformat_write_header(e.fmtCtx, nil); rc < 0 {
		return nil, newError(KindEncode, "write header", fmt.Errorf("%s", C.GoString(C.vf_err2str(rc))))
	}

	return e, nil
}

func (r Rational) toC() C.AVRational {
	return C.AVRational{num: C.int(r.Num), den: C.int(r.Den)}
}

// Push runs the per-frame loop of spec.md §4.5: copy RGBA pixels into
// the reusable frame, optionally preprocess to the native pixel
// format, submit to the encoder and write whatever packet comes back.
func (e *Encoder) Push(rgba []byte, ptsMicros, durationMicros int64) error {
	dst := unsafe.Slice((*byte)(unsafe.Pointer(e.rgbaFrame.data[0])), len(rgba))
	copy(dst, rgba)

	frame := e.rgbaFrame
	if e.preprocessor != nil {
		srcStride := int(e.rgbaFrame.linesize[0])
		var dstStrides [4]int
		for i := 0; i < 4; i++ {
			dstStrides[i] = int(e.procFrame.linesize[i])
		}
		dstBuf := unsafe.Slice((*byte)(unsafe.Pointer(e.procFrame.data[0])), frameBufferSize(e.procFrame))
		e.preprocessor.ConvertPacked(rgba, srcStride, dstBuf, dstStrides)
		frame = e.procFrame
	}

	pts := MicrosToTime(ptsMicros, e.inputTimeBases[e.videoIndex])
	dur := MicrosToTime(durationMicros, e.inputTimeBases[e.videoIndex])
	frame.pts = C.int64_t(pts)
	frame.duration = C.int64_t(dur)

	rc := C.avcodec_send_frame(e.codecCtx, frame)
	if rc < 0 {
		return newError(KindEncode, "send frame", fmt.Errorf("%s", C.GoString(C.vf_err2str(rc))))
	}
	return e.drainPackets()
}

func (e *Encoder) drainPackets() error {
	for {
		rc := C.avcodec_receive_packet(e.codecCtx, e.packet)
		if rc == C.vf_eagain() || rc == C.AVERROR_EOF {
			return nil
		}
		if rc < 0 {
			return newError(KindEncode, "receive packet", fmt.Errorf("%s", C.GoString(C.vf_err2str(rc))))
		}
		e.packet.stream_index = C.int(e.videoIndex)
		C.av_packet_rescale_ts(e.packet, e.inputTimeBases[e.videoIndex].toC(), e.outputTimeBases[e.videoIndex].toC())
		C.av_interleaved_write_frame(e.fmtCtx, e.packet)
		C.av_packet_unref(e.packet)
	}
}

// WritePassThrough rescales and writes a non-video packet read from the
// input container, preserving its original stream index — spec.md
// §4.5's Pass-through contract.
func (e *Encoder) WritePassThrough(pkt *Packet) error {
	idx := pkt.StreamIndex()
	st, ok := e.streamRemap[idx]
	if !ok {
		return nil
	}
	pkt.raw.stream_index = st.index
	C.av_packet_rescale_ts(pkt.raw, e.inputTimeBases[idx].toC(), e.outputTimeBases[idx].toC())
	C.av_interleaved_write_frame(e.fmtCtx, pkt.raw)
	return nil
}

// Flush drains any buffered frames (e.g. from B-frame reordering) by
// sending a nil frame, then writes the container trailer.
func (e *Encoder) Flush() error {
	if rc := C.avcodec_send_frame(e.codecCtx, nil); rc < 0 && rc != C.AVERROR_EOF {
		return newError(KindEncode, "flush", fmt.Errorf("%s", C.GoString(C.vf_err2str(rc))))
	}
	if err := e.drainPackets(); err != nil {
		return err
	}
	if rc := C.av_write_trailer(e.fmtCtx); rc < 0 {
		return newError(KindEncode, "write trailer", fmt.Errorf("%s", C.GoString(C.vf_err2str(rc))))
	}
	return nil
}

// Close releases every allocation. Call after Flush.
func (e *Encoder) Close() {
	if e.packet != nil {
		C.av_packet_free(&e.packet)
	}
	if e.rgbaFrame != nil {
		C.av_frame_free(&e.rgbaFrame)
	}
	if e.procFrame != nil {
		C.av_frame_free(&e.procFrame)
	}
	if e.preprocessor != nil {
		e.preprocessor.Close()
	}
	if e.codecCtx != nil {
		C.avcodec_free_context(&e.codecCtx)
	}
	if e.fmtCtx != nil {
		if (e.fmtCtx.oformat.flags & C.AVFMT_NOFILE) == 0 {
			C.avio_closep(&e.fmtCtx.pb)
		}
		C.avformat_free_context(e.fmtCtx)
	}
}

func frameBufferSize(f *C.AVFrame) int {
	total := 0
	for i := 0; i < 4; i++ {
		if f.linesize[i] == 0 {
			continue
		}
		h := int(f.height)
		if i > 0 && i < 3 {
			h = (h + 1) / 2
		}
		total += int(f.linesize[i]) * h
	}
	return total
}
