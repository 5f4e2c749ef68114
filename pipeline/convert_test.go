package pipeline

import (
	"testing"

	"github.com/onart/glsl-video-filter/codec"
)

func TestCopyRowsIdenticalStride(t *testing.T) {
	src := []byte{1, 2, 3, 4, 5, 6}
	dst := make([]byte, 6)
	copyRows(dst, 2, src, 2, 3)
	for i := range src {
		if dst[i] != src[i] {
			t.Fatalf("byte %d: got %d want %d", i, dst[i], src[i])
		}
	}
}

func TestCopyRowsPaddedSourceStride(t *testing.T) {
	// two rows of 2 real bytes, padded to a stride of 4
	src := []byte{1, 2, 0xAA, 0xAA, 3, 4, 0xAA, 0xAA}
	dst := make([]byte, 4)
	copyRows(dst, 2, src, 4, 2)
	want := []byte{1, 2, 3, 4}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("byte %d: got %d want %d", i, dst[i], want[i])
		}
	}
}

func TestNewConverterPassthroughForBGRA(t *testing.T) {
	c, err := NewConverter(codec.PixelFormatBGRA, 4, 4, 4, 4)
	if err != nil {
		t.Fatalf("NewConverter: %v", err)
	}
	if !c.passthrough {
		t.Fatal("expected passthrough conversion for a same-size BGRA source, no sws context should be built")
	}
	if c.conv != nil {
		t.Fatal("passthrough converter must not allocate a PixelConverter")
	}
}

func TestNewConverterRescaleDisablesPassthrough(t *testing.T) {
	// Even a BGRA source must route through the sws context once the
	// output resolution differs from the source — a row copy cannot
	// rescale.
	c, err := NewConverter(codec.PixelFormatBGRA, 8, 8, 4, 4)
	if err != nil {
		t.Fatalf("NewConverter: %v", err)
	}
	if c.passthrough {
		t.Fatal("expected rescale conversion when source and destination dimensions differ")
	}
	if c.conv == nil {
		t.Fatal("rescale converter must allocate a PixelConverter")
	}
}
