package feed

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/quantlark/strata/internal/core"
)

// CSVSource reads bars from a local CSV file.
//
// Files may carry a header row naming time, open, high, low, close and
// optionally volume (any column order), or be headerless in exactly
// that order. The time column accepts UTC epoch seconds or RFC3339.
type CSVSource struct {
	Path string
}

func (s *CSVSource) Name() string {
	return "csv"
}

// Load parses the file and validates the resulting series.
func (s *CSVSource) Load(ctx context.Context) ([]core.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.Path)
	if err != nil {
		return nil, core.WrapError(core.ErrFeedFailed, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, core.WrapError(core.ErrFeedFailed, err)
	}

	cols, first, err := resolveColumns(records)
	if err != nil {
		return nil, err
	}
	if first >= len(records) {
		return nil, core.WrapError(core.ErrFeedFailed,
			fmt.Errorf("%s has no data rows", s.Path))
	}

	bars := make([]core.Bar, 0, len(records)-first)
	for i := first; i < len(records); i++ {
		bar, err := parseRow(records[i], cols)
		if err != nil {
			return nil, core.WrapError(core.ErrFeedFailed,
				fmt.Errorf("row %d: %w", i+1, err))
		}
		bars = append(bars, bar)
	}

	if err := core.ValidateBars(bars); err != nil {
		return nil, err
	}
	return bars, nil
}

// columns maps bar fields to record indexes. Volume is -1 when absent.
type columns struct {
	time, open, high, low, close, volume int
}

// resolveColumns decides header vs headerless from the first record and
// returns the column layout plus the index of the first data row.
func resolveColumns(records [][]string) (columns, int, error) {
	none := columns{}
	if len(records) == 0 {
		return none, 0, core.WrapError(core.ErrFeedFailed,
			fmt.Errorf("file is empty"))
	}

	head := records[0]
	if _, err := parseBarTime(head[0]); err == nil {
		// First cell is already a timestamp: headerless canonical layout.
		if len(head) < 5 {
			return none, 0, core.WrapError(core.ErrFeedFailed,
				fmt.Errorf("headerless rows need at least 5 columns, got %d", len(head)))
		}
		cols := columns{time: 0, open: 1, high: 2, low: 3, close: 4, volume: -1}
		if len(head) >= 6 {
			cols.volume = 5
		}
		return cols, 0, nil
	}

	idx := make(map[string]int, len(head))
	for i, name := range head {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}

	cols := columns{volume: -1}
	timeIdx, ok := idx["time"]
	if !ok {
		timeIdx, ok = idx["timestamp"]
	}
	if !ok {
		return none, 0, core.WrapError(core.ErrFeedFailed,
			fmt.Errorf("header missing time column"))
	}
	cols.time = timeIdx

	for _, want := range []string{"open", "high", "low", "close"} {
		i, ok := idx[want]
		if !ok {
			return none, 0, core.WrapError(core.ErrFeedFailed,
				fmt.Errorf("header missing %s column", want))
		}
		switch want {
		case "open":
			cols.open = i
		case "high":
			cols.high = i
		case "low":
			cols.low = i
		case "close":
			cols.close = i
		}
	}
	if i, ok := idx["volume"]; ok {
		cols.volume = i
	}
	return cols, 1, nil
}

func parseRow(rec []string, cols columns) (core.Bar, error) {
	need := cols.close
	for _, i := range []int{cols.time, cols.open, cols.high, cols.low, cols.volume} {
		if i > need {
			need = i
		}
	}
	if len(rec) <= need {
		return core.Bar{}, fmt.Errorf("expected at least %d columns, got %d", need+1, len(rec))
	}

	t, err := parseBarTime(rec[cols.time])
	if err != nil {
		return core.Bar{}, fmt.Errorf("time: %w", err)
	}

	var bar core.Bar
	bar.Time = t
	for _, field := range []struct {
		name string
		idx  int
		dst  *float64
	}{
		{"open", cols.open, &bar.Open},
		{"high", cols.high, &bar.High},
		{"low", cols.low, &bar.Low},
		{"close", cols.close, &bar.Close},
	} {
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[field.idx]), 64)
		if err != nil {
			return core.Bar{}, fmt.Errorf("%s: %w", field.name, err)
		}
		*field.dst = v
	}
	if cols.volume >= 0 {
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[cols.volume]), 64)
		if err != nil {
			return core.Bar{}, fmt.Errorf("volume: %w", err)
		}
		bar.Volume = v
	}
	return bar, nil
}

// parseBarTime accepts UTC epoch seconds or RFC3339.
func parseBarTime(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return sec, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("%q is neither epoch seconds nor RFC3339", s)
	}
	return t.Unix(), nil
}

// WriteCSV saves a series with a canonical header. Times are written as
// epoch seconds so a round trip through CSVSource is exact.
func WriteCSV(path string, bars []core.Bar) error {
	f, err := os.Create(path)
	if err != nil {
		return core.WrapError(core.ErrFeedFailed, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"time", "open", "high", "low", "close", "volume"}); err != nil {
		return core.WrapError(core.ErrFeedFailed, err)
	}
	for _, b := range bars {
		rec := []string{
			strconv.FormatInt(b.Time, 10),
			ftoa(b.Open), ftoa(b.High), ftoa(b.Low), ftoa(b.Close), ftoa(b.Volume),
		}
		if err := w.Write(rec); err != nil {
			return core.WrapError(core.ErrFeedFailed, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return core.WrapError(core.ErrFeedFailed, err)
	}
	return nil
}

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
