package feed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/quantlark/strata/internal/core"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bars.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestCSVSource_RoundTrip(t *testing.T) {
	bars := []core.Bar{
		{Time: 1700000060, Open: 100, High: 101.5, Low: 99.5, Close: 101, Volume: 12},
		{Time: 1700000120, Open: 101, High: 102, Low: 100.75, Close: 100.75, Volume: 7.5},
		{Time: 1700000180, Open: 100.75, High: 100.75, Low: 99, Close: 99.25, Volume: 0},
	}

	path := filepath.Join(t.TempDir(), "bars.csv")
	if err := WriteCSV(path, bars); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	src := &CSVSource{Path: path}
	if src.Name() != "csv" {
		t.Errorf("Name() = %q, want csv", src.Name())
	}
	got, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(got, bars) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, bars)
	}
}

func TestCSVSource_HeaderAnyOrder(t *testing.T) {
	content := "close,volume,time,open,low,high\n" +
		"101,5,2024-01-02T00:01:00Z,100,99.5,101.5\n" +
		"102.5,6,2024-01-02T00:02:00Z,101,100.5,103\n"

	src := &CSVSource{Path: writeFile(t, content)}
	bars, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("len(bars) = %d, want 2", len(bars))
	}

	wantTime := time.Date(2024, 1, 2, 0, 1, 0, 0, time.UTC).Unix()
	if bars[0].Time != wantTime {
		t.Errorf("bars[0].Time = %d, want %d", bars[0].Time, wantTime)
	}
	want := core.Bar{Time: wantTime, Open: 100, High: 101.5, Low: 99.5, Close: 101, Volume: 5}
	if bars[0] != want {
		t.Errorf("bars[0] = %+v, want %+v", bars[0], want)
	}
}

func TestCSVSource_HeaderlessEpoch(t *testing.T) {
	content := "1700000060,100,101,99,100.5,3\n" +
		"1700000120,100.5,102,100,101,4\n"

	src := &CSVSource{Path: writeFile(t, content)}
	bars, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("len(bars) = %d, want 2", len(bars))
	}
	want := core.Bar{Time: 1700000120, Open: 100.5, High: 102, Low: 100, Close: 101, Volume: 4}
	if bars[1] != want {
		t.Errorf("bars[1] = %+v, want %+v", bars[1], want)
	}
}

func TestCSVSource_HeaderlessWithoutVolume(t *testing.T) {
	content := "1700000060,100,101,99,100.5\n"

	src := &CSVSource{Path: writeFile(t, content)}
	bars, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(bars) != 1 || bars[0].Volume != 0 {
		t.Errorf("bars = %+v, want single bar with zero volume", bars)
	}
}

func TestCSVSource_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty file", ""},
		{"header only", "time,open,high,low,close\n"},
		{"missing close column", "time,open,high,low\n60,1,2,0.5\n"},
		{"missing time column", "open,high,low,close\n1,2,0.5,1.5\n"},
		{"bad price", "time,open,high,low,close\n60,one,2,0.5,1.5\n"},
		{"bad time", "time,open,high,low,close\nyesterday,1,2,0.5,1.5\n"},
		{"headerless too few columns", "60,1,2\n"},
		{"ragged rows", "time,open,high,low,close\n60,1,2,0.5,1.5\n120,1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &CSVSource{Path: writeFile(t, tt.content)}
			_, err := src.Load(context.Background())
			if !errors.Is(err, core.ErrFeedFailed) {
				t.Errorf("Load() error = %v, want ErrFeedFailed", err)
			}
		})
	}
}

func TestCSVSource_UnorderedRows(t *testing.T) {
	content := "1700000120,100,101,99,100.5,1\n" +
		"1700000060,100.5,102,100,101,1\n"

	src := &CSVSource{Path: writeFile(t, content)}
	_, err := src.Load(context.Background())
	if !errors.Is(err, core.ErrInvalidBars) {
		t.Errorf("Load() error = %v, want ErrInvalidBars", err)
	}
}

func TestCSVSource_MissingFile(t *testing.T) {
	src := &CSVSource{Path: filepath.Join(t.TempDir(), "absent.csv")}
	_, err := src.Load(context.Background())
	if !errors.Is(err, core.ErrFeedFailed) {
		t.Errorf("Load() error = %v, want ErrFeedFailed", err)
	}
}
