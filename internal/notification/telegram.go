package notification

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/wonny/swingscreener/internal/contracts"
	"github.com/wonny/swingscreener/pkg/httputil"
	"github.com/wonny/swingscreener/pkg/logger"
)

// DefaultTelegramURL is the Bot API base
const DefaultTelegramURL = "https://api.telegram.org"

// maxMessageLen is the Bot API limit per message
const maxMessageLen = 4096

// Telegram sends scan summaries through the Telegram Bot API
type Telegram struct {
	baseURL    string
	botToken   string
	chatID     string
	topN       int
	httpClient *httputil.Client
	logger     *logger.Logger
}

// NewTelegram creates a Telegram sink
func NewTelegram(httpClient *httputil.Client, botToken, chatID string, log *logger.Logger) *Telegram {
	return &Telegram{
		baseURL:    DefaultTelegramURL,
		botToken:   botToken,
		chatID:     chatID,
		topN:       DefaultTopN,
		httpClient: httpClient,
		logger:     log.WithComponent("telegram"),
	}
}

// WithBaseURL points the sink at another Bot API host
func (t *Telegram) WithBaseURL(url string) *Telegram {
	t.baseURL = strings.TrimRight(url, "/")
	return t
}

// Notify implements contracts.NotificationSink
func (t *Telegram) Notify(ctx context.Context, result *contracts.ScanResult) error {
	text := escapeMarkdown(FormatSummary(result, t.topN))
	for _, part := range split(text, maxMessageLen) {
		if err := t.send(ctx, part); err != nil {
			return err
		}
	}

	t.logger.WithRun(result.RunID).WithField("candidates", len(result.Candidates)).Info("Sent scan summary")
	return nil
}

func (t *Telegram) send(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)
	resp, err := t.httpClient.PostJSON(ctx, url, map[string]interface{}{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "MarkdownV2",
	})
	if err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram: %w", &httputil.StatusError{StatusCode: resp.StatusCode, Body: string(body)})
	}
	return nil
}

// escapeMarkdown escapes special characters for Telegram MarkdownV2
func escapeMarkdown(s string) string {
	const specials = "_*[]()~`>#+-=|{}.!\\"
	var buf bytes.Buffer
	for _, r := range s {
		if strings.ContainsRune(specials, r) {
			buf.WriteByte('\\')
		}
		buf.WriteRune(r)
	}
	return buf.String()
}

// split cuts text into chunks of at most limit bytes, preferring line breaks
// and never splitting an escape sequence
func split(text string, limit int) []string {
	var parts []string
	for len(text) > limit {
		cut := strings.LastIndex(text[:limit], "\n")
		if cut <= 0 {
			cut = limit
			for cut > 0 && text[cut-1] == '\\' {
				cut--
			}
			if cut == 0 {
				cut = limit
			}
		}
		parts = append(parts, text[:cut])
		text = strings.TrimLeft(text[cut:], "\n")
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}
