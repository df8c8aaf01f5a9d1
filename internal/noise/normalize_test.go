package noise

import (
	"encoding/json"
	"testing"
	"time"
)

var testStation = Station{ID: "loc-01", Name: "Test Station"}

func TestNormalizeConvertsLocalToUTC(t *testing.T) {
	n := NewNormalizer(sgt)
	fetchedAt := time.Date(2024, 4, 16, 0, 0, 0, 0, time.UTC)

	raw := RawSample{Time: "2024-04-15 23:59:00", Reading: json.RawMessage(`61.2`)}
	r, ok := n.Normalize(raw, testStation, fetchedAt)
	if !ok {
		t.Fatalf("expected sample to normalize")
	}

	want := time.Date(2024, 4, 15, 15, 59, 0, 0, time.UTC)
	if !r.Timestamp.Equal(want) {
		t.Fatalf("expected %s, got %s", want, r.Timestamp)
	}
	if r.LocationID != "loc-01" || r.LocationName != "Test Station" {
		t.Fatalf("station fields not carried: %+v", r)
	}
	if r.Value == nil || *r.Value != 61.2 {
		t.Fatalf("expected value 61.2, got %v", r.Value)
	}
}

func TestNormalizeTruncatesToMinute(t *testing.T) {
	n := NewNormalizer(sgt)
	fetchedAt := time.Date(2024, 4, 16, 0, 0, 0, 0, time.UTC)

	raw := RawSample{Time: "2024-04-15 10:30:45", Reading: json.RawMessage(`50`)}
	r, ok := n.Normalize(raw, testStation, fetchedAt)
	if !ok {
		t.Fatalf("expected sample to normalize")
	}
	if r.Timestamp.Second() != 0 {
		t.Fatalf("expected minute granularity, got %s", r.Timestamp)
	}
}

func TestNormalizeDropsFutureSample(t *testing.T) {
	n := NewNormalizer(sgt)
	fetchedAt := time.Date(2024, 4, 15, 12, 0, 0, 0, time.UTC)

	// 23:59 SGT is 15:59 UTC, after the fetch instant.
	raw := RawSample{Time: "2024-04-15 23:59:00", Reading: json.RawMessage(`61.2`)}
	if _, ok := n.Normalize(raw, testStation, fetchedAt); ok {
		t.Fatalf("expected future sample to be dropped")
	}
}

func TestNormalizeDropsUnparseableTimestamp(t *testing.T) {
	n := NewNormalizer(sgt)
	fetchedAt := time.Date(2024, 4, 16, 0, 0, 0, 0, time.UTC)

	raw := RawSample{Time: "not-a-time", Reading: json.RawMessage(`61.2`)}
	if _, ok := n.Normalize(raw, testStation, fetchedAt); ok {
		t.Fatalf("expected unparseable timestamp to be dropped")
	}
}

func TestNormalizeKeepsSlotForBadValue(t *testing.T) {
	n := NewNormalizer(sgt)
	fetchedAt := time.Date(2024, 4, 16, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		reading json.RawMessage
	}{
		{"null", json.RawMessage(`null`)},
		{"missing", nil},
		{"non-numeric string", json.RawMessage(`"n/a"`)},
		{"object", json.RawMessage(`{"db":1}`)},
	}

	for _, tc := range cases {
		raw := RawSample{Time: "2024-04-15 10:00:00", Reading: tc.reading}
		r, ok := n.Normalize(raw, testStation, fetchedAt)
		if !ok {
			t.Fatalf("%s: expected row to be kept", tc.name)
		}
		if r.Value != nil {
			t.Fatalf("%s: expected nil value, got %v", tc.name, *r.Value)
		}
		if r.Timestamp.IsZero() {
			t.Fatalf("%s: expected valid timestamp", tc.name)
		}
	}
}

func TestNormalizeAcceptsQuotedNumber(t *testing.T) {
	n := NewNormalizer(sgt)
	fetchedAt := time.Date(2024, 4, 16, 0, 0, 0, 0, time.UTC)

	raw := RawSample{Time: "2024-04-15 10:00", Reading: json.RawMessage(`"42.5"`)}
	r, ok := n.Normalize(raw, testStation, fetchedAt)
	if !ok {
		t.Fatalf("expected sample to normalize")
	}
	if r.Value == nil || *r.Value != 42.5 {
		t.Fatalf("expected 42.5, got %v", r.Value)
	}
}
