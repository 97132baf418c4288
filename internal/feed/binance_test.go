package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/quantlark/strata/internal/core"
)

const klineMS = int64(60_000)

// klineServer serves synthetic one-minute klines for BTCUSDT, honoring
// startTime/endTime/limit the way the real endpoint does.
func klineServer(t *testing.T, firstOpen time.Time, total int, requests *atomic.Int64) *httptest.Server {
	t.Helper()
	baseMS := firstOpen.UnixMilli()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		q := r.URL.Query()
		if q.Get("symbol") != "BTCUSDT" || q.Get("interval") != "1m" {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
		start, _ := strconv.ParseInt(q.Get("startTime"), 10, 64)
		end, _ := strconv.ParseInt(q.Get("endTime"), 10, 64)

		var rows [][]any
		for i := 0; i < total && len(rows) < binancePageLimit; i++ {
			openMS := baseMS + int64(i)*klineMS
			if openMS < start || openMS > end {
				continue
			}
			price := 100 + float64(i)
			rows = append(rows, []any{
				openMS,
				ftoa(price),
				ftoa(price + 1),
				ftoa(price - 1),
				ftoa(price + 0.5),
				ftoa(float64(i)),
				openMS + klineMS - 1,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(rows); err != nil {
			t.Errorf("encoding klines: %v", err)
		}
	}))
}

func TestBinanceSource_LoadPaginates(t *testing.T) {
	firstOpen := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	const total = 1005

	var requests atomic.Int64
	srv := klineServer(t, firstOpen, total, &requests)
	defer srv.Close()

	src := NewBinanceSourceWithBaseURL(srv.URL, "BTCUSDT", 1,
		firstOpen, firstOpen.Add(total*time.Minute))
	if src.Name() != "binance" {
		t.Errorf("Name() = %q, want binance", src.Name())
	}

	bars, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(bars) != total {
		t.Fatalf("len(bars) = %d, want %d", len(bars), total)
	}
	if got := requests.Load(); got != 2 {
		t.Errorf("requests = %d, want 2", got)
	}

	// Close-time labeling: the first kline opens at firstOpen and its
	// bar closes one minute later.
	if want := firstOpen.Add(time.Minute).Unix(); bars[0].Time != want {
		t.Errorf("bars[0].Time = %d, want %d", bars[0].Time, want)
	}
	if want := firstOpen.Add(total * time.Minute).Unix(); bars[total-1].Time != want {
		t.Errorf("last bar time = %d, want %d", bars[total-1].Time, want)
	}

	// Row 1000 is the first bar of the second page.
	want := core.Bar{
		Time:   firstOpen.Add(1001 * time.Minute).Unix(),
		Open:   1100,
		High:   1101,
		Low:    1099,
		Close:  1100.5,
		Volume: 1000,
	}
	if bars[1000] != want {
		t.Errorf("bars[1000] = %+v, want %+v", bars[1000], want)
	}
}

func TestBinanceSource_SinglePage(t *testing.T) {
	firstOpen := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	var requests atomic.Int64
	srv := klineServer(t, firstOpen, 10, &requests)
	defer srv.Close()

	src := NewBinanceSourceWithBaseURL(srv.URL, "BTCUSDT", 1,
		firstOpen, firstOpen.Add(10*time.Minute))
	bars, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(bars) != 10 {
		t.Errorf("len(bars) = %d, want 10", len(bars))
	}
	if got := requests.Load(); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
}

func TestBinanceSource_UnsupportedTimeframe(t *testing.T) {
	src := NewBinanceSource("BTCUSDT", 7, time.Unix(0, 0), time.Unix(3600, 0))
	_, err := src.Load(context.Background())
	if !errors.Is(err, core.ErrFeedFailed) {
		t.Errorf("Load() error = %v, want ErrFeedFailed", err)
	}
}

func TestBinanceSource_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "teapot", http.StatusInternalServerError)
	}))
	defer srv.Close()

	src := NewBinanceSourceWithBaseURL(srv.URL, "BTCUSDT", 1,
		time.Unix(1700000000, 0), time.Unix(1700003600, 0))
	_, err := src.Load(context.Background())
	if !errors.Is(err, core.ErrFeedFailed) {
		t.Errorf("Load() error = %v, want ErrFeedFailed", err)
	}
}

func TestBinanceSource_NoKlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	src := NewBinanceSourceWithBaseURL(srv.URL, "BTCUSDT", 1,
		time.Unix(1700000000, 0), time.Unix(1700003600, 0))
	_, err := src.Load(context.Background())
	if !errors.Is(err, core.ErrFeedFailed) {
		t.Errorf("Load() error = %v, want ErrFeedFailed", err)
	}
}

func TestBinanceSource_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := NewBinanceSourceWithBaseURL(srv.URL, "BTCUSDT", 1,
		time.Unix(1700000000, 0), time.Unix(1700003600, 0))
	_, err := src.Load(ctx)
	if !errors.Is(err, core.ErrFeedFailed) {
		t.Errorf("Load() error = %v, want ErrFeedFailed", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled in chain", err)
	}
}

func TestBinanceInterval(t *testing.T) {
	tests := []struct {
		timeframe int
		want      string
		wantErr   bool
	}{
		{1, "1m", false},
		{5, "5m", false},
		{30, "30m", false},
		{60, "1h", false},
		{240, "4h", false},
		{720, "12h", false},
		{1440, "1d", false},
		{7, "", true},
		{45, "", true},
		{0, "", true},
	}
	for _, tt := range tests {
		got, err := binanceInterval(tt.timeframe)
		if tt.wantErr {
			if !errors.Is(err, core.ErrFeedFailed) {
				t.Errorf("binanceInterval(%d) error = %v, want ErrFeedFailed", tt.timeframe, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("binanceInterval(%d) = %q, %v, want %q", tt.timeframe, got, err, tt.want)
		}
	}
}
