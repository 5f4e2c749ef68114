package codec

/*
#cgo pkg-config: libavformat libavcodec libavutil
#include <libavformat/avformat.h>
#include <libavcodec/avcodec.h>
*/
import "C"

// Packet is a single demuxed packet, owned by the caller until Release.
// Used by the inline driver to carry pass-through (non-video) packets
// straight from the input container to the output, the way main.cpp's
// single demux loop does for its `else` branch.
type Packet struct {
	raw *C.AVPacket
}

// StreamIndex is the packet's input-container stream index.
func (p *Packet) StreamIndex() int { return int(p.raw.stream_index) }

// Release frees the packet's reference-counted buffer, ready for reuse
// by the next ReadPacket call.
func (p *Packet) Release() {
	C.av_packet_unref(p.raw)
}
