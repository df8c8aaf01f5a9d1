package noise

import (
	"errors"
	"testing"
	"time"
)

var sgt = time.FixedZone("SGT", 8*3600)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, sgt)
}

func TestDailyWindowYieldsYesterday(t *testing.T) {
	now := time.Date(2024, 4, 16, 8, 0, 0, 0, sgt)

	days := DailyWindow(now, sgt)
	if len(days) != 1 {
		t.Fatalf("expected 1 day, got %d", len(days))
	}
	if !days[0].Equal(date(2024, 4, 15)) {
		t.Fatalf("expected 2024-04-15, got %s", days[0])
	}
}

func TestDailyWindowCrossesMidnightInLocalTime(t *testing.T) {
	// 2024-04-16 01:30 SGT is still 2024-04-15 in UTC; the local calendar
	// day decides, so yesterday is the 15th.
	now := time.Date(2024, 4, 16, 1, 30, 0, 0, sgt)

	days := DailyWindow(now, sgt)
	if !days[0].Equal(date(2024, 4, 15)) {
		t.Fatalf("expected 2024-04-15, got %s", days[0])
	}
}

func TestBackfillWindowInclusiveAscending(t *testing.T) {
	now := time.Date(2024, 4, 16, 8, 0, 0, 0, sgt)

	days, err := BackfillWindow(date(2024, 3, 1), date(2024, 3, 3), now, sgt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []time.Time{date(2024, 3, 1), date(2024, 3, 2), date(2024, 3, 3)}
	if len(days) != len(want) {
		t.Fatalf("expected %d days, got %d", len(want), len(days))
	}
	for i := range want {
		if !days[i].Equal(want[i]) {
			t.Fatalf("day %d: expected %s, got %s", i, want[i], days[i])
		}
	}
}

func TestBackfillWindowInvertedRange(t *testing.T) {
	now := time.Date(2024, 4, 16, 8, 0, 0, 0, sgt)

	_, err := BackfillWindow(date(2024, 3, 3), date(2024, 3, 1), now, sgt)
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestBackfillWindowTruncatedAtYesterday(t *testing.T) {
	now := time.Date(2024, 4, 16, 8, 0, 0, 0, sgt)

	// End date is in the future; the window must stop at yesterday.
	days, err := BackfillWindow(date(2024, 4, 13), date(2024, 4, 20), now, sgt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(days) != 3 {
		t.Fatalf("expected 3 days, got %d", len(days))
	}
	if !days[len(days)-1].Equal(date(2024, 4, 15)) {
		t.Fatalf("expected window to end at 2024-04-15, got %s", days[len(days)-1])
	}
}

func TestBackfillWindowEntirelyInFuture(t *testing.T) {
	now := time.Date(2024, 4, 16, 8, 0, 0, 0, sgt)

	days, err := BackfillWindow(date(2024, 5, 1), date(2024, 5, 3), now, sgt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(days) != 0 {
		t.Fatalf("expected empty window, got %d days", len(days))
	}
}
