package video

import (
	"reflect"
	"testing"
)

func TestParseTimestamps(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		duration float64
		want     []Range
	}{
		{"seconds range", "10.5-20.0", 100, []Range{{10.5, 20}}},
		{"minute range", "1:30-2:45", 300, []Range{{90, 165}}},
		{"tilde separator", "5 ~ 15", 100, []Range{{5, 15}}},
		{"sorted by start", "40-50\n1-2", 100, []Range{{1, 2}, {40, 50}}},
		{"merged when close", "0-10, 12-20", 100, []Range{{0, 20}}},
		{"kept apart at the gap", "0-10, 15-20", 100, []Range{{0, 10}, {15, 20}}},
		{"overlap merged", "0-30, 10-20", 100, []Range{{0, 30}}},
		{"duplicates removed", "10-20 10-20", 100, []Range{{10, 20}}},
		{"clamped to duration", "50-150", 100, []Range{{50, 100}}},
		{"end before start", "30-10", 100, []Range{{30, 30}}},
		{"singles paired", "starts at 10 and ends at 20", 100, []Range{{10, 20}}},
		{"odd single dropped", "10 20 30", 100, []Range{{10, 20}}},
		{"range and singles", "1:00-1:10 then 200 and 230", 300, []Range{{60, 70}, {200, 230}}},
		{"no upper bound without duration", "10-2000", 0, []Range{{10, 2000}}},
		{"nothing found", "no scenes matched", 100, nil},
		{"empty", "", 100, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTimestamps(tt.text, tt.duration)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseTimestamps(%q, %v) = %v, want %v", tt.text, tt.duration, got, tt.want)
			}
		})
	}
}

func TestToSeconds(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"90", 90, true},
		{"12.25", 12.25, true},
		{"2:30", 150, true},
		{"1:02.5", 62.5, true},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := toSeconds(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("toSeconds(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
