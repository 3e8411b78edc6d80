package s1_universe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/swingscreener/pkg/httputil"
	"github.com/wonny/swingscreener/pkg/logger"
	"github.com/wonny/swingscreener/pkg/redis"
)

// DefaultWikipediaURL lists the companies listed on the Indonesia Stock Exchange
const DefaultWikipediaURL = "https://id.wikipedia.org/wiki/Daftar_perusahaan_yang_tercatat_di_Bursa_Efek_Indonesia"

// Wikipedia scrapes the IDX company list and returns sorted, suffixed codes
type Wikipedia struct {
	url        string
	suffix     string
	httpClient *httputil.Client
	cache      *redis.Cache
	logger     *logger.Logger
}

// NewWikipedia creates a scraper. cache may be nil.
func NewWikipedia(httpClient *httputil.Client, url string, cache *redis.Cache, log *logger.Logger) *Wikipedia {
	if url == "" {
		url = DefaultWikipediaURL
	}
	return &Wikipedia{
		url:        url,
		suffix:     ".JK",
		httpClient: httpClient,
		cache:      cache,
		logger:     log.WithField("module", "wikipedia"),
	}
}

// Name implements contracts.UniverseProvider
func (w *Wikipedia) Name() string {
	return "wikipedia"
}

// Symbols downloads and parses the listing page, cached for a day
func (w *Wikipedia) Symbols(ctx context.Context) ([]string, error) {
	key := redis.UniverseKey(w.Name())
	if w.cache != nil {
		var cached []string
		if hit, err := w.cache.Get(ctx, key, &cached); err != nil {
			w.logger.WithError(err).Warn("Universe cache read failed")
		} else if hit && len(cached) > 0 {
			return cached, nil
		}
	}

	resp, err := w.httpClient.Get(ctx, w.url)
	if err != nil {
		return nil, fmt.Errorf("fetch listing page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &httputil.StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	symbols, err := ParseListing(resp.Body, w.suffix)
	if err != nil {
		return nil, err
	}

	w.logger.WithField("count", len(symbols)).Info("Scraped listing")

	if w.cache != nil {
		if err := w.cache.Set(ctx, key, symbols, redis.TTLDaily); err != nil {
			w.logger.WithError(err).Warn("Universe cache write failed")
		}
	}
	return symbols, nil
}

// ParseListing reads every table with a "Kode" header column.
// Codes shorter than four characters are ignored; the result is de-duplicated and sorted.
func ParseListing(r io.Reader, suffix string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse listing html: %w", err)
	}

	seen := make(map[string]struct{})
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		col := -1
		table.Find("tr").First().Find("th, td").Each(func(i int, cell *goquery.Selection) {
			if col < 0 && strings.EqualFold(strings.TrimSpace(cell.Text()), "Kode") {
				col = i
			}
		})
		if col < 0 {
			return
		}

		table.Find("tr").Each(func(i int, row *goquery.Selection) {
			if i == 0 {
				return
			}
			cells := row.Find("th, td")
			if col >= cells.Length() {
				return
			}
			code := strings.ToUpper(strings.TrimSpace(cells.Eq(col).Text()))
			if len(code) < 4 {
				return
			}
			seen[code+suffix] = struct{}{}
		})
	})

	symbols := make([]string, 0, len(seen))
	for s := range seen {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols, nil
}
