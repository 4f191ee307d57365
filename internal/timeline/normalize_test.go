package timeline

import (
	"errors"
	"testing"
	"time"
)

func sec(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func TestNormalizeEmptyInput(t *testing.T) {
	_, err := Normalize(nil, SourceMeta{})
	if !errors.Is(err, ErrEmptyTimeline) {
		t.Fatalf("expected ErrEmptyTimeline, got %v", err)
	}
}

func TestNormalizeNegativeTimestamp(t *testing.T) {
	events := []InsertionEvent{
		{At: sec(1)},
		{At: -time.Millisecond},
	}

	_, err := Normalize(events, SourceMeta{})

	var negErr *NegativeTimestampError
	if !errors.As(err, &negErr) {
		t.Fatalf("expected NegativeTimestampError, got %v", err)
	}
	if negErr.Index != 1 {
		t.Errorf("expected offending index 1, got %d", negErr.Index)
	}
}

func TestNormalizeSortsByTimestamp(t *testing.T) {
	events := []InsertionEvent{
		{At: sec(8)},
		{At: sec(1)},
		{At: sec(5)},
	}

	tl, err := Normalize(events, SourceMeta{Duration: KnownDuration(sec(10))})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	want := []time.Duration{sec(1), sec(5), sec(8)}
	if len(tl) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(tl))
	}
	for i, ev := range tl {
		if ev.At != want[i] {
			t.Errorf("event %d: expected %v, got %v", i, want[i], ev.At)
		}
	}
}

func TestNormalizeStableOnEqualTimestamps(t *testing.T) {
	// Tag events via image payloads so relative order is observable.
	events := []InsertionEvent{
		{At: sec(3), Image: []byte("first")},
		{At: sec(3), Image: []byte("second")},
		{At: sec(1), Image: []byte("early")},
		{At: sec(3), Image: []byte("third")},
	}

	tl, err := Normalize(events, SourceMeta{Duration: KnownDuration(sec(10))})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	wantOrder := []string{"early", "first", "second", "third"}
	for i, ev := range tl {
		if string(ev.Image) != wantOrder[i] {
			t.Errorf("position %d: expected %q, got %q", i, wantOrder[i], ev.Image)
		}
	}
}

func TestNormalizeDropsUnreachableEvents(t *testing.T) {
	events := []InsertionEvent{
		{At: sec(2)},
		{At: sec(10)}, // exactly at end
		{At: sec(12)}, // past end
	}

	tl, err := Normalize(events, SourceMeta{Duration: KnownDuration(sec(10))})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(tl) != 1 {
		t.Fatalf("expected 1 surviving event, got %d", len(tl))
	}
	if tl[0].At != sec(2) {
		t.Errorf("expected surviving event at 2s, got %v", tl[0].At)
	}
}

func TestNormalizeKeepsAllWhenDurationUnknown(t *testing.T) {
	events := []InsertionEvent{
		{At: sec(2)},
		{At: sec(9999)},
	}

	tl, err := Normalize(events, SourceMeta{Duration: UnknownDuration()})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(tl) != 2 {
		t.Fatalf("expected both events kept, got %d", len(tl))
	}
}

func TestNormalizeAppliesDefaultHold(t *testing.T) {
	events := []InsertionEvent{
		{At: sec(1)},
		{At: sec(2), Hold: sec(5)},
	}

	tl, err := Normalize(events, SourceMeta{})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if tl[0].Hold != DefaultHold {
		t.Errorf("expected default hold %v, got %v", DefaultHold, tl[0].Hold)
	}
	if tl[1].Hold != sec(5) {
		t.Errorf("expected explicit hold 5s, got %v", tl[1].Hold)
	}
}

func TestNormalizeRoundsToMillis(t *testing.T) {
	events := []InsertionEvent{
		{At: 1500*time.Millisecond + 400*time.Microsecond},
	}

	tl, err := Normalize(events, SourceMeta{})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if tl[0].At != 1500*time.Millisecond {
		t.Errorf("expected 1.5s after rounding, got %v", tl[0].At)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	events := []InsertionEvent{
		{At: sec(7), Hold: sec(1), Image: []byte("a")},
		{At: sec(2), Image: []byte("b")},
		{At: sec(7), Hold: sec(3), Image: []byte("c")},
	}
	src := SourceMeta{Duration: KnownDuration(sec(10))}

	once, err := Normalize(events, src)
	if err != nil {
		t.Fatalf("first Normalize failed: %v", err)
	}
	twice, err := Normalize(once, src)
	if err != nil {
		t.Fatalf("second Normalize failed: %v", err)
	}

	if len(once) != len(twice) {
		t.Fatalf("length changed: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i].At != twice[i].At || once[i].Hold != twice[i].Hold ||
			string(once[i].Image) != string(twice[i].Image) {
			t.Errorf("event %d changed on re-normalization", i)
		}
	}
}
