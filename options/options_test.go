package options

import (
	"reflect"
	"testing"

	"github.com/onart/glsl-video-filter/section"
)

func TestResolveDimensionsUnset(t *testing.T) {
	w, h := ResolveDimensions(1920, 1080, 0, 0)
	if w != 1920 || h != 1080 {
		t.Fatalf("got %dx%d, want 1920x1080", w, h)
	}
}

func TestResolveDimensionsWidthOnly(t *testing.T) {
	w, h := ResolveDimensions(1920, 1080, 1280, 0)
	if w != 1280 || h != 720 {
		t.Fatalf("got %dx%d, want 1280x720", w, h)
	}
}

// The literal scenario from spec.md §8: 1920x1080 source, height 721
// requested. 1920 * 721 / 1080 = 1281.77..., which rounds to 1282 (even
// already); 721 itself is odd and must be bumped to 722.
func TestResolveDimensionsLiteralScenario(t *testing.T) {
	w, h := ResolveDimensions(1920, 1080, 0, 721)
	if w != 1282 || h != 722 {
		t.Fatalf("got %dx%d, want 1282x722", w, h)
	}
}

func TestResolveDimensionsOddWidthBump(t *testing.T) {
	w, h := ResolveDimensions(1920, 1080, 641, 481)
	if w != 642 || h != 482 {
		t.Fatalf("got %dx%d, want 642x482", w, h)
	}
}

func TestParseSectionsEmpty(t *testing.T) {
	sections, err := ParseSections("")
	if err != nil {
		t.Fatalf("ParseSections: %v", err)
	}
	if sections != nil {
		t.Fatalf("expected nil sections for empty spec, got %v", sections)
	}
}

func TestParseSectionsMultiple(t *testing.T) {
	sections, err := ParseSections("0-1000000,5000000-6000000")
	if err != nil {
		t.Fatalf("ParseSections: %v", err)
	}
	want := []section.Section{{Start: 0, End: 1000000}, {Start: 5000000, End: 6000000}}
	if !reflect.DeepEqual(sections, want) {
		t.Fatalf("got %v, want %v", sections, want)
	}
}

func TestParseSectionsMalformed(t *testing.T) {
	if _, err := ParseSections("not-a-number-1000"); err == nil {
		t.Fatal("expected an error for a non-numeric section bound")
	}
	if _, err := ParseSections("1000000"); err == nil {
		t.Fatal("expected an error for a section missing its end bound")
	}
}
