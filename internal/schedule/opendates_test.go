package schedule

import (
	"testing"
	"time"
)

func dates(values ...string) []Date {
	out := make([]Date, 0, len(values))
	for _, value := range values {
		d, err := ParseDate(value)
		if err != nil {
			panic(err)
		}
		out = append(out, d)
	}
	return out
}

func mustDate(t *testing.T, value string) Date {
	t.Helper()
	d, err := ParseDate(value)
	if err != nil {
		t.Fatalf("failed to parse date %q: %v", value, err)
	}
	return d
}

func TestOpenDates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		weekday    time.Weekday
		start, end string
		attendance []Date
		blackouts  []Date
		want       []Date
	}{
		{
			name:       "excludes blackout and recorded dates",
			weekday:    time.Monday,
			start:      "2024-01-01",
			end:        "2024-01-29",
			attendance: dates("2024-01-08"),
			blackouts:  dates("2024-01-15"),
			want:       dates("2024-01-01", "2024-01-22", "2024-01-29"),
		},
		{
			name:    "start weekday earlier in week than target",
			weekday: time.Wednesday,
			start:   "2024-01-01", // Monday
			end:     "2024-01-17",
			want:    dates("2024-01-03", "2024-01-10", "2024-01-17"),
		},
		{
			name:    "start weekday later in week wraps forward",
			weekday: time.Monday,
			start:   "2024-01-03", // Wednesday
			end:     "2024-01-20",
			want:    dates("2024-01-08", "2024-01-15"),
		},
		{
			name:    "window without occurrences is empty",
			weekday: time.Friday,
			start:   "2024-01-06", // Saturday
			end:     "2024-01-11", // Thursday
			want:    dates(),
		},
		{
			name:       "fully excluded window is empty",
			weekday:    time.Monday,
			start:      "2024-01-01",
			end:        "2024-01-08",
			attendance: dates("2024-01-01"),
			blackouts:  dates("2024-01-08"),
			want:       dates(),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := OpenDates(tt.weekday, mustDate(t, tt.start), mustDate(t, tt.end), tt.attendance, tt.blackouts)

			if len(got) != len(tt.want) {
				t.Fatalf("OpenDates returned %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("OpenDates returned %v, want %v", got, tt.want)
				}
			}
			for _, d := range got {
				if d.Weekday() != tt.weekday {
					t.Errorf("open date %s falls on %s, want %s", d, d.Weekday(), tt.weekday)
				}
				if d.Before(mustDate(t, tt.start)) || d.After(mustDate(t, tt.end)) {
					t.Errorf("open date %s is outside the session window", d)
				}
			}
		})
	}
}

func TestOpenDates_Idempotent(t *testing.T) {
	t.Parallel()

	start := mustDate(t, "2024-02-01")
	end := mustDate(t, "2024-03-31")
	attendance := dates("2024-02-13", "2024-03-05")
	blackouts := dates("2024-02-20")

	first := OpenDates(time.Tuesday, start, end, attendance, blackouts)
	second := OpenDates(time.Tuesday, start, end, attendance, blackouts)

	if len(first) != len(second) {
		t.Fatalf("repeated call returned %d dates, want %d", len(second), len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("repeated call diverged at index %d: %s != %s", i, second[i], first[i])
		}
	}
	for i := 1; i < len(first); i++ {
		if !first[i-1].Before(first[i]) {
			t.Fatalf("open dates are not ascending: %s before %s", first[i-1], first[i])
		}
	}
}
