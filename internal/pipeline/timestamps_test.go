package pipeline

import (
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in       string
		wantOK   bool
		wantDate string
		wantHour int
	}{
		{"2024-01-01 08:00", true, "2024-01-01", 8},
		{"2024-01-01 08:30:15", true, "2024-01-01", 8},
		{" 2024-03-05 23:59 ", true, "2024-03-05", 23},
		{"2024/01/02 00:10", true, "2024-01-02", 0},
		{"2024-01-01T17:45:00", true, "2024-01-01", 17},
		{"2024-01-01T08:00:00+09:00", true, "2024-01-01", 8},
		{"2024-06-10", true, "2024-06-10", 0},
		{"2024.1.5 08:00", true, "2024-01-05", 8},
		{"2024.01.05 08:00:30", true, "2024-01-05", 8},
		{"2024-1-5 08:00", true, "2024-01-05", 8},
		{"2024/1/5 21:10", true, "2024-01-05", 21},
		{"2024.1.5", true, "2024-01-05", 0},
		{"", false, "", 0},
		{"not a date", false, "", 0},
		{"2024-13-45 99:99", false, "", 0},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := ParseTimestamp(tc.in)
			if ok != tc.wantOK {
				t.Fatalf("ParseTimestamp(%q) ok = %v, want %v", tc.in, ok, tc.wantOK)
			}
			if !ok {
				return
			}
			if d := got.Format("2006-01-02"); d != tc.wantDate {
				t.Errorf("date = %s, want %s", d, tc.wantDate)
			}
			if got.Hour() != tc.wantHour {
				t.Errorf("hour = %d, want %d", got.Hour(), tc.wantHour)
			}
		})
	}
}

// TestDatePartsWritten verifies that a fallback parse is only accepted when the date it
// produced is the one written in the input.
func TestDatePartsWritten(t *testing.T) {
	tests := []struct {
		in   string
		got  time.Time
		want bool
	}{
		{"2024.1.5 08:00", time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC), true},
		{"2024.1.5 08:00", time.Date(2024, 1, 1, 0, 0, 5, 0, time.UTC), false},
		{"Jan 5, 2024", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), true},
		{"5/1/24", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), true},
		{"2024-01-05", time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC), false},
	}
	for _, tc := range tests {
		if got := datePartsWritten(tc.in, tc.got); got != tc.want {
			t.Errorf("datePartsWritten(%q, %s) = %v, want %v", tc.in, tc.got.Format(time.RFC3339), got, tc.want)
		}
	}
}

func TestParseDate_TruncatesToMidnightUTC(t *testing.T) {
	got, ok := ParseDate("2024-01-01 08:30")
	if !ok {
		t.Fatal("ParseDate() ok = false")
	}
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) || got.Location() != time.UTC {
		t.Errorf("ParseDate() = %v, want %v", got, want)
	}
}

// TestCalendarDate_KeepsWallClock verifies that an offset timestamp keeps its local date
// instead of being converted to UTC first.
func TestCalendarDate_KeepsWallClock(t *testing.T) {
	ts, ok := ParseTimestamp("2024-01-02T01:00:00+09:00")
	if !ok {
		t.Fatal("ParseTimestamp() ok = false")
	}
	if got := CalendarDate(ts).Format("2006-01-02"); got != "2024-01-02" {
		t.Errorf("CalendarDate() = %s, want 2024-01-02", got)
	}
}
