// Package options holds the parsed CLI state vidfilter's main loop needs
// once flag.Parse has run: input/output paths, the shader source path,
// the resolved output dimensions and the optional section list. Grounded
// on the teacher's options.ShaderOptions (cmd/main.go), generalized from
// Shadertoy rendering flags to this program's transcode flags.
package options

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/onart/glsl-video-filter/section"
)

// Options is the fully-resolved configuration for one run.
type Options struct {
	InputPath  string
	ShaderPath string
	OutputPath string
	Width      int
	Height     int
	Sections   []section.Section
}

// ResolveDimensions implements spec.md §6's dimension resolution: if
// neither requested dimension is given, the source dimensions are used
// unchanged; if exactly one is given, the other is derived preserving
// aspect ratio; the final width and height are each bumped up to the
// next even integer if odd, matching
// original_source/YERM_PC/main.cpp's `w += w & 1` / `h += h & 1` lines
// (applied here after rounding rather than before, since rounding can
// itself produce an even result that needs no bump — see the literal
// 1920x1080 -> height 721 scenario in DESIGN.md).
func ResolveDimensions(srcWidth, srcHeight, reqWidth, reqHeight int) (width, height int) {
	switch {
	case reqWidth == 0 && reqHeight == 0:
		width, height = srcWidth, srcHeight
	case reqWidth == 0:
		height = reqHeight
		width = roundDiv(srcWidth*reqHeight, srcHeight)
	case reqHeight == 0:
		width = reqWidth
		height = roundDiv(srcHeight*reqWidth, srcWidth)
	default:
		width, height = reqWidth, reqHeight
	}
	if width&1 != 0 {
		width++
	}
	if height&1 != 0 {
		height++
	}
	return width, height
}

// roundDiv divides num by den, rounding to the nearest integer (ties
// away from zero), matching how a C++ implementation would round a
// floating point aspect-ratio computation before truncating to int.
func roundDiv(num, den int) int {
	if den == 0 {
		return 0
	}
	if (num < 0) != (den < 0) {
		return -roundDiv(-num, den)
	}
	return (num + den/2) / den
}

// ParseSections parses a comma-separated list of "start-end" microsecond
// pairs, e.g. "0-1000000,5000000-6000000" — the CLI surface for spec.md
// §3's Section data type, new relative to the upstream Shadertoy CLI
// this program's -sections flag is grounded against.
// An empty string returns a nil slice, meaning "no restriction" (the
// whole-duration default section.Normalize substitutes).
func ParseSections(spec string) ([]section.Section, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}
	parts := strings.Split(spec, ",")
	out := make([]section.Section, 0, len(parts))
	for _, part := range parts {
		bounds := strings.SplitN(strings.TrimSpace(part), "-", 2)
		if len(bounds) != 2 {
			return nil, fmt.Errorf("options: invalid section %q, want start-end", part)
		}
		start, err := strconv.ParseInt(strings.TrimSpace(bounds[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("options: invalid section start %q: %w", bounds[0], err)
		}
		end, err := strconv.ParseInt(strings.TrimSpace(bounds[1]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("options: invalid section end %q: %w", bounds[1], err)
		}
		out = append(out, section.Section{Start: start, End: end})
	}
	return out, nil
}
