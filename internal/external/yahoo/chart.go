package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/wonny/swingscreener/internal/contracts"
	"github.com/wonny/swingscreener/pkg/httputil"
)

var validRanges = map[string]bool{
	"1d": true, "5d": true, "1mo": true, "3mo": true, "6mo": true,
	"1y": true, "2y": true, "5y": true, "10y": true, "ytd": true, "max": true,
}

var validIntervals = map[string]bool{
	"1d": true, "5d": true, "1wk": true, "1mo": true, "3mo": true,
}

// chartResponse is the v8 chart payload. Every numeric array is nullable
// element-wise and the quote block can be missing entirely.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol   string `json:"symbol"`
				Currency string `json:"currency"`
				Timezone string `json:"exchangeTimezoneName"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"chart"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// FetchChart retrieves daily bars for one symbol
func (c *Client) FetchChart(ctx context.Context, symbol, period, interval string) ([]contracts.Bar, error) {
	if !validRanges[period] {
		return nil, fmt.Errorf("unsupported history period %q", period)
	}
	if !validIntervals[interval] {
		return nil, fmt.Errorf("unsupported bar interval %q", interval)
	}

	u := fmt.Sprintf("%s/%s?interval=%s&range=%s&includePrePost=false&events=div%%2Csplit",
		strings.TrimRight(c.chartURL, "/"), url.PathEscape(symbol), url.QueryEscape(interval), url.QueryEscape(period))

	var resp chartResponse
	if err := c.httpClient.GetJSON(ctx, u, &resp); err != nil {
		var statusErr *httputil.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", contracts.ErrNoData, symbol)
		}
		return nil, fmt.Errorf("chart %s: %w", symbol, err)
	}

	bars, err := normalizeChart(&resp)
	if err != nil {
		return nil, fmt.Errorf("chart %s: %w", symbol, err)
	}
	return bars, nil
}

// ParseChart decodes a raw v8 chart body into chronological bars
func ParseChart(body []byte) ([]contracts.Bar, error) {
	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode chart: %w", err)
	}
	return normalizeChart(&resp)
}

func normalizeChart(resp *chartResponse) ([]contracts.Bar, error) {
	if e := resp.Chart.Error; e != nil {
		return nil, fmt.Errorf("%w: %s: %s", contracts.ErrNoData, e.Code, e.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: empty result", contracts.ErrNoData)
	}

	result := resp.Chart.Result[0]
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w: no quotes", contracts.ErrNoData)
	}

	loc := time.UTC
	if result.Meta.Timezone != "" {
		if l, err := time.LoadLocation(result.Meta.Timezone); err == nil {
			loc = l
		}
	}

	quote := result.Indicators.Quote[0]
	bars := make([]contracts.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		closePx, ok := at(quote.Close, i)
		if !ok || closePx <= 0 {
			continue // holiday or suspended session
		}
		open, _ := at(quote.Open, i)
		high, _ := at(quote.High, i)
		low, _ := at(quote.Low, i)
		volume, _ := at(quote.Volume, i)

		t := time.Unix(ts, 0).In(loc)
		bars = append(bars, contracts.Bar{
			Date:   time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
			Open:   orDefault(open, closePx),
			High:   orDefault(high, closePx),
			Low:    orDefault(low, closePx),
			Close:  closePx,
			Volume: volume,
		})
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: all bars null", contracts.ErrNoData)
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return dedupeByDate(bars), nil
}

// at reads a nullable array element, tolerating short arrays
func at(values []*float64, i int) (float64, bool) {
	if i >= len(values) || values[i] == nil {
		return 0, false
	}
	return *values[i], true
}

func orDefault(v, fallback float64) float64 {
	if v <= 0 {
		return fallback
	}
	return v
}

// dedupeByDate keeps the last bar of each day. Yahoo appends a live bar
// for the current session that can share a date with the final daily bar.
func dedupeByDate(bars []contracts.Bar) []contracts.Bar {
	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && out[n-1].Date.Equal(b.Date) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}
