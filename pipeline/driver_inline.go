package pipeline

import (
	"io"
	"log"

	"github.com/onart/glsl-video-filter/codec"
	"github.com/onart/glsl-video-filter/section"
)

// RunInline is the single-goroutine driver shape: one demux loop reads
// every packet — video and pass-through alike — in container order,
// matching original_source/YERM_PC/main.cpp's inline main loop. Video
// packets are decoded, converted and rendered; every other stream's
// packets are forwarded straight to the encoder untouched (spec.md
// §4.5's Pass-through contract). The one-frame "invoked" latch mirrors
// main.cpp: the first rendered frame is never encoded on its own, every
// later frame encodes the previous render before kicking off the next
// one, and a final Flush recovers the last pending render after EOF.
//
// main.cpp itself has no section filtering at all — sections are new
// surface this spec adds (see options.ParseSections) — so this driver
// applies the same per-section seek/Classify policy codec.Decoder.Start
// uses for the threaded shape, just without handing frames to a ring:
// each section gets its own Seek, and video frames outside every
// section's span are decoded and discarded exactly as Decoder.Start
// discards them.
func RunInline(dec *codec.Decoder, enc *codec.Encoder, conv *Converter, filter *FrameFilter, sections []section.Section) error {
	videoIndex := dec.VideoStreamIndex()
	dstWidth, dstHeight := conv.OutputDimensions()
	bgra := make([]byte, dstWidth*dstHeight*4)

	invoked := false
	var prevPTS, prevDuration int64

	for _, sec := range sections {
		if err := dec.Seek(sec.Start); err != nil {
			return err
		}

	readLoop:
		for {
			pkt, err := dec.ReadPacket()
			if err == io.EOF {
				break readLoop
			}

			if pkt.StreamIndex() != videoIndex {
				if werr := enc.WritePassThrough(pkt); werr != nil {
					log.Printf("pipeline: pass-through write failed: %v", werr)
				}
				pkt.Release()
				continue
			}

			sendErr := dec.SendPacket(pkt)
			pkt.Release()
			if sendErr == io.EOF {
				break readLoop
			}
			if sendErr != nil {
				log.Printf("pipeline: decode send packet failed: %v", sendErr)
				continue
			}

			for {
				rf, rerr := dec.ReceiveFrame()
				if rerr == codec.ErrNeedMoreInput {
					break
				}
				if rerr == io.EOF {
					break readLoop
				}
				if rerr != nil {
					log.Printf("pipeline: decode receive frame failed: %v", rerr)
					break
				}

				admitted, past := sec.Classify(rf.PTSMicros, rf.DurationUS)
				if past {
					dec.ReleaseFrame()
					break readLoop
				}
				if !admitted {
					dec.ReleaseFrame()
					continue
				}

				conv.ConvertFrame(rf, bgra)
				dec.ReleaseFrame()

				pixels, ferr := filter.RenderFrame(bgra)
				if ferr != nil {
					return ferr
				}
				if invoked {
					if eerr := enc.Push(pixels, prevPTS, prevDuration); eerr != nil {
						log.Printf("pipeline: encode push failed: %v", eerr)
					}
				}
				prevPTS, prevDuration = rf.PTSMicros, rf.DurationUS
				invoked = true
			}
		}
	}

	if invoked {
		pixels, ferr := filter.Flush()
		if ferr != nil {
			return ferr
		}
		if eerr := enc.Push(pixels, prevPTS, prevDuration); eerr != nil {
			log.Printf("pipeline: final encode push failed: %v", eerr)
		}
	}

	return enc.Flush()
}
