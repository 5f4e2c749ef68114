package codec

import "testing"

func TestTimeToMicrosRoundTrip(t *testing.T) {
	tb := Rational{Num: 1, Den: 30}
	micros := TimeToMicros(90, tb) // 90 ticks at 1/30 = 3 seconds
	if micros != 3_000_000 {
		t.Fatalf("expected 3s in micros, got %d", micros)
	}
	back := MicrosToTime(micros, tb)
	if back != 90 {
		t.Fatalf("expected round-trip to 90 ticks, got %d", back)
	}
}

func TestTimeToMicrosInvalidTimeBaseIsIdentity(t *testing.T) {
	tb := Rational{Num: 0, Den: 0}
	if got := TimeToMicros(1234, tb); got != 1234 {
		t.Fatalf("expected identity fallback, got %d", got)
	}
	if got := MicrosToTime(1234, tb); got != 1234 {
		t.Fatalf("expected identity fallback, got %d", got)
	}
}

func TestRationalValid(t *testing.T) {
	if (Rational{Num: 1, Den: 0}).Valid() {
		t.Fatalf("zero denominator should be invalid")
	}
	if (Rational{Num: 0, Den: 1}).Valid() {
		t.Fatalf("zero numerator should be invalid")
	}
	if !(Rational{Num: 1, Den: 30}).Valid() {
		t.Fatalf("1/30 should be valid")
	}
}

func TestErrorMessageIncludesKindAndStage(t *testing.T) {
	err := newError(KindEncode, "send frame", errExample)
	msg := err.Error()
	if msg != "encode (send frame): boom" {
		t.Fatalf("unexpected message: %q", msg)
	}
}

type stubErr struct{ s string }

func (e *stubErr) Error() string { return e.s }

var errExample = &stubErr{"boom"}
