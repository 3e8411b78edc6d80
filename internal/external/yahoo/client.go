package yahoo

import (
	"sync"

	"github.com/wonny/swingscreener/pkg/config"
	"github.com/wonny/swingscreener/pkg/httputil"
	"github.com/wonny/swingscreener/pkg/logger"
)

// Client handles communication with Yahoo Finance
// ⭐ SSOT: every Yahoo response shape is decoded in this package only
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger

	chartURL  string
	quoteURL  string
	crumbURL  string
	cookieURL string

	crumbMu sync.Mutex
	crumb   string
}

// NewClient creates a new Yahoo Finance client. httpClient should carry a
// cookie jar, the quote endpoint rejects requests without a session cookie.
func NewClient(httpClient *httputil.Client, cfg config.YahooConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.WithComponent("yahoo"),
		chartURL:   cfg.ChartURL,
		quoteURL:   cfg.QuoteURL,
		crumbURL:   cfg.CrumbURL,
		cookieURL:  cfg.CookieURL,
	}
}
