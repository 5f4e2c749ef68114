package section

import "testing"

func TestNormalizeEmptyIsFullDuration(t *testing.T) {
	got, err := Normalize(nil, 10_000_000)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != (Section{Start: 0, End: 10_000_000}) {
		t.Fatalf("expected single full-duration section, got %v", got)
	}
}

func TestNormalizeClampsEndToDuration(t *testing.T) {
	got, err := Normalize([]Section{{Start: 0, End: 99_000_000}}, 10_000_000)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].End != 10_000_000 {
		t.Fatalf("expected clamp to duration, got %d", got[0].End)
	}
}

func TestNormalizeRejectsInvertedRange(t *testing.T) {
	if _, err := Normalize([]Section{{Start: 100, End: 50}}, 1_000_000); err == nil {
		t.Fatalf("expected error for inverted range")
	}
}

func TestClassifyDropsPreSeekOvershoot(t *testing.T) {
	s := Section{Start: 1_000_000, End: 2_000_000}
	admitted, past := s.Classify(900_000, 990_000)
	if admitted || past {
		t.Fatalf("frame entirely before section start should be dropped, not marked past")
	}
}

func TestClassifyBreaksOncePastSectionEnd(t *testing.T) {
	s := Section{Start: 0, End: 1_000_000}
	admitted, past := s.Classify(1_500_000, 1_600_000)
	if admitted || !past {
		t.Fatalf("frame starting after section end should signal past")
	}
}

func TestClassifyAdmitsOverlap(t *testing.T) {
	s := Section{Start: 1_000_000, End: 2_000_000}
	admitted, past := s.Classify(950_000, 1_050_000)
	if !admitted || past {
		t.Fatalf("frame overlapping the section boundary should be admitted")
	}
}

func TestIteratorWalksInOrderAndReportsLast(t *testing.T) {
	it := NewIterator([]Section{{Start: 0, End: 1}, {Start: 2, End: 3}})
	s, ok := it.Next()
	if !ok || s.Start != 0 || it.Last() {
		t.Fatalf("unexpected first section state: %v %v %v", s, ok, it.Last())
	}
	s, ok = it.Next()
	if !ok || s.Start != 2 || !it.Last() {
		t.Fatalf("unexpected second section state: %v %v %v", s, ok, it.Last())
	}
	if _, ok = it.Next(); ok {
		t.Fatalf("expected iterator exhaustion")
	}
}
