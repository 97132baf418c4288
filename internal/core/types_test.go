package core

import (
	"errors"
	"testing"
)

func TestBar_BodyRange(t *testing.T) {
	bull := Bar{Open: 10, High: 14, Low: 9, Close: 13}
	bear := Bar{Open: 13, High: 14, Low: 9, Close: 10}

	if !bull.Bullish() || bull.Bearish() {
		t.Error("expected bullish bar")
	}
	if !bear.Bearish() || bear.Bullish() {
		t.Error("expected bearish bar")
	}
	if bull.Body() != 3 || bear.Body() != 3 {
		t.Errorf("expected body 3, got %v and %v", bull.Body(), bear.Body())
	}
	if bull.Range() != 5 {
		t.Errorf("expected range 5, got %v", bull.Range())
	}
}

func TestMinuteOfDay(t *testing.T) {
	tests := []struct {
		name string
		time int64
		want int
	}{
		{"midnight", 86400, 0},
		{"one past midnight", 86460, 1},
		{"0801 utc", 86400 + 8*3600 + 60, 481},
		{"last minute", 86400 + 23*3600 + 59*60, 1439},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MinuteOfDay(tt.time); got != tt.want {
				t.Errorf("MinuteOfDay(%d) = %d, want %d", tt.time, got, tt.want)
			}
		})
	}
}

func TestDayIndex(t *testing.T) {
	if DayIndex(86399) != 0 {
		t.Error("last second of day 0 should map to day 0")
	}
	if DayIndex(86400) != 1 {
		t.Error("first second of day 1 should map to day 1")
	}
}

func TestValidateBars(t *testing.T) {
	tests := []struct {
		name    string
		bars    []Bar
		wantErr bool
	}{
		{"empty", nil, false},
		{"single", []Bar{{Time: 60}}, false},
		{"ascending", []Bar{{Time: 60}, {Time: 120}, {Time: 300}}, false},
		{"duplicate", []Bar{{Time: 60}, {Time: 60}}, true},
		{"descending", []Bar{{Time: 120}, {Time: 60}}, true},
		{"zero time", []Bar{{Time: 0}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBars(tt.bars)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateBars() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidBars) {
				t.Errorf("expected ErrInvalidBars, got %v", err)
			}
		})
	}
}
