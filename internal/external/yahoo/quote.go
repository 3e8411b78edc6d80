package yahoo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/wonny/swingscreener/pkg/httputil"
)

// ErrNoMarketCap is returned when the quote carries no market cap
var ErrNoMarketCap = errors.New("market cap not available")

type quoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol    string   `json:"symbol"`
			MarketCap *float64 `json:"marketCap"`
			Currency  string   `json:"currency"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"quoteResponse"`
}

// MarketCap implements contracts.FundamentalLookup
func (c *Client) MarketCap(ctx context.Context, symbol string) (float64, error) {
	v, err := c.fetchMarketCap(ctx, symbol)
	var statusErr *httputil.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized {
		// crumb expired, refresh once
		c.resetCrumb()
		v, err = c.fetchMarketCap(ctx, symbol)
	}
	return v, err
}

func (c *Client) fetchMarketCap(ctx context.Context, symbol string) (float64, error) {
	crumb, err := c.ensureCrumb(ctx)
	if err != nil {
		return 0, err
	}

	params := url.Values{}
	params.Set("symbols", symbol)
	params.Set("fields", "marketCap,currency")
	if crumb != "" {
		params.Set("crumb", crumb)
	}

	var resp quoteResponse
	if err := c.httpClient.GetJSON(ctx, c.quoteURL+"?"+params.Encode(), &resp); err != nil {
		return 0, fmt.Errorf("quote %s: %w", symbol, err)
	}
	if e := resp.QuoteResponse.Error; e != nil {
		return 0, fmt.Errorf("quote %s: %s", symbol, e.Description)
	}

	for _, r := range resp.QuoteResponse.Result {
		if strings.EqualFold(r.Symbol, symbol) && r.MarketCap != nil {
			return *r.MarketCap, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrNoMarketCap, symbol)
}

// ensureCrumb performs the cookie + crumb handshake once per session
func (c *Client) ensureCrumb(ctx context.Context) (string, error) {
	c.crumbMu.Lock()
	defer c.crumbMu.Unlock()

	if c.crumb != "" || c.crumbURL == "" {
		return c.crumb, nil
	}

	if c.cookieURL != "" {
		// The cookie endpoint answers 404 but still sets the session cookie.
		if resp, err := c.httpClient.Get(ctx, c.cookieURL); err == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
	}

	resp, err := c.httpClient.Get(ctx, c.crumbURL)
	if err != nil {
		return "", fmt.Errorf("crumb request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return "", fmt.Errorf("crumb read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("crumb request: status %d", resp.StatusCode)
	}

	c.crumb = strings.TrimSpace(string(body))
	c.logger.Debug("Yahoo crumb acquired")
	return c.crumb, nil
}

func (c *Client) resetCrumb() {
	c.crumbMu.Lock()
	c.crumb = ""
	c.crumbMu.Unlock()
}
