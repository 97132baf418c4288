package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/quantlark/strata/internal/core"
)

const (
	binanceBaseURL = "https://api.binance.com"

	// Binance caps a single klines response at 1000 rows.
	binancePageLimit = 1000
)

// BinanceSource pages historical klines from the Binance REST API and
// relabels them by close time.
type BinanceSource struct {
	Symbol    string
	Timeframe int
	Start     time.Time
	End       time.Time

	client  *http.Client
	baseURL string
}

// NewBinanceSource creates a source for one symbol and timeframe over
// [start, end]. Timeframe is in minutes and must map to a Binance
// kline interval.
func NewBinanceSource(symbol string, timeframe int, start, end time.Time) *BinanceSource {
	return &BinanceSource{
		Symbol:    symbol,
		Timeframe: timeframe,
		Start:     start,
		End:       end,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: binanceBaseURL,
	}
}

// NewBinanceSourceWithBaseURL creates a source against a custom API
// endpoint (for testing).
func NewBinanceSourceWithBaseURL(url, symbol string, timeframe int, start, end time.Time) *BinanceSource {
	s := NewBinanceSource(symbol, timeframe, start, end)
	s.baseURL = url
	return s
}

func (s *BinanceSource) Name() string {
	return "binance"
}

// Load fetches the full series page by page. Bars are labeled with the
// epoch second at which the kline closed, matching every other series
// in the engine.
func (s *BinanceSource) Load(ctx context.Context) ([]core.Bar, error) {
	interval, err := binanceInterval(s.Timeframe)
	if err != nil {
		return nil, err
	}

	startMS := s.Start.UnixMilli()
	endMS := s.End.UnixMilli()
	var bars []core.Bar

	for startMS < endMS {
		klines, err := s.fetchPage(ctx, interval, startMS, endMS)
		if err != nil {
			return nil, err
		}
		if len(klines) == 0 {
			break
		}

		next := startMS
		for _, k := range klines {
			if len(k) < 7 {
				continue
			}
			closeMS, _ := k[6].(float64)
			openStr, _ := k[1].(string)
			highStr, _ := k[2].(string)
			lowStr, _ := k[3].(string)
			closeStr, _ := k[4].(string)
			volumeStr, _ := k[5].(string)

			open, _ := strconv.ParseFloat(openStr, 64)
			high, _ := strconv.ParseFloat(highStr, 64)
			low, _ := strconv.ParseFloat(lowStr, 64)
			cls, _ := strconv.ParseFloat(closeStr, 64)
			volume, _ := strconv.ParseFloat(volumeStr, 64)

			// Kline close times end at :59.999; the bar closes on the
			// next full second.
			bars = append(bars, core.Bar{
				Time:   (int64(closeMS) + 1) / 1000,
				Open:   open,
				High:   high,
				Low:    low,
				Close:  cls,
				Volume: volume,
			})
			if ms := int64(closeMS) + 1; ms > next {
				next = ms
			}
		}

		if next == startMS {
			break
		}
		startMS = next
		if len(klines) < binancePageLimit {
			break
		}
	}

	if len(bars) == 0 {
		return nil, core.WrapError(core.ErrFeedFailed,
			fmt.Errorf("binance returned no klines for %s", s.Symbol))
	}
	if err := core.ValidateBars(bars); err != nil {
		return nil, err
	}
	return bars, nil
}

func (s *BinanceSource) fetchPage(ctx context.Context, interval string, startMS, endMS int64) ([][]any, error) {
	url := fmt.Sprintf("%s/api/v3/klines?symbol=%s&interval=%s&startTime=%d&endTime=%d&limit=%d",
		s.baseURL, s.Symbol, interval, startMS, endMS, binancePageLimit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, core.WrapError(core.ErrFeedFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, core.WrapError(core.ErrFeedFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, core.WrapError(core.ErrFeedFailed,
			fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}

	var klines [][]any
	if err := json.NewDecoder(resp.Body).Decode(&klines); err != nil {
		return nil, core.WrapError(core.ErrFeedFailed, err)
	}
	return klines, nil
}

// binanceInterval maps a timeframe in minutes to the kline interval
// Binance accepts.
func binanceInterval(timeframe int) (string, error) {
	switch timeframe {
	case 1:
		return "1m", nil
	case 3:
		return "3m", nil
	case 5:
		return "5m", nil
	case 15:
		return "15m", nil
	case 30:
		return "30m", nil
	case 60:
		return "1h", nil
	case 120:
		return "2h", nil
	case 240:
		return "4h", nil
	case 360:
		return "6h", nil
	case 480:
		return "8h", nil
	case 720:
		return "12h", nil
	case 1440:
		return "1d", nil
	default:
		return "", core.WrapError(core.ErrFeedFailed,
			fmt.Errorf("timeframe %d has no binance interval", timeframe))
	}
}
