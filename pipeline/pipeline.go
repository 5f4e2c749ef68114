// Package pipeline wires the codec and graphics packages into the two
// driver shapes spec.md §4.6 describes: a single-goroutine inline driver
// that interleaves pass-through packets with GPU-filtered video, and a
// threaded driver where each stage owns a goroutine and communicates
// only through ring buffers. Grounded on original_source/fmp.cpp (the
// threaded shape) and original_source/YERM_PC/main.cpp (the inline
// shape).
package pipeline
