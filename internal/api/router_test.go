package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/swingscreener/internal/api/handlers"
	"github.com/wonny/swingscreener/internal/brain"
	"github.com/wonny/swingscreener/internal/contracts"
	"github.com/wonny/swingscreener/internal/metrics"
	"github.com/wonny/swingscreener/internal/s1_universe"
	"github.com/wonny/swingscreener/internal/strategyconfig"
	"github.com/wonny/swingscreener/pkg/logger"
)

// gatedScanner emits one progress event per symbol once released
type gatedScanner struct {
	mu      sync.Mutex
	release chan struct{}
	symbols []string
	cfg     contracts.ScanConfig
}

func newGatedScanner() *gatedScanner {
	return &gatedScanner{release: make(chan struct{})}
}

func (g *gatedScanner) Run(ctx context.Context, symbols []string, cfg contracts.ScanConfig, opts brain.RunOptions) (*contracts.ScanResult, error) {
	g.mu.Lock()
	g.symbols, g.cfg = symbols, cfg
	g.mu.Unlock()

	opts.OnState(contracts.StateFetching)
	select {
	case <-g.release:
	case <-ctx.Done():
		return &contracts.ScanResult{RunID: opts.RunID, Total: len(symbols), Cancelled: true}, nil
	}

	for i := range symbols {
		opts.OnProgress(contracts.Progress{RunID: opts.RunID, Batch: i + 1, Batches: len(symbols), Processed: i + 1, Total: len(symbols)})
	}
	return &contracts.ScanResult{
		RunID:     opts.RunID,
		Preset:    opts.Preset,
		Total:     len(symbols),
		Processed: len(symbols),
		Admitted:  1,
		Candidates: []contracts.Candidate{
			{Rank: 1, Symbol: symbols[0], Price: 1500, Lots: 3, Quantity: 300},
		},
	}, nil
}

func newTestServer(t *testing.T, scanner handlers.Scanner) (*httptest.Server, *handlers.Registry) {
	t.Helper()
	log := logger.Nop()
	registry := handlers.NewRegistry(10, log)
	presets := strategyconfig.Builtin()

	h := Handlers{
		Scans: handlers.NewScanHandler(registry, scanner,
			s1_universe.NewStatic("static", []string{"BBCA", "TLKM"}),
			s1_universe.NewBuilder(s1_universe.DefaultConfig(), log),
			presets, handlers.ScanDefaults{TotalBudget: 10_000_000, RiskPct: 2}, log),
		Presets: handlers.NewPresetHandler(presets),
		Stream:  handlers.NewStreamHandler(registry, log),
		Metrics: metrics.New().Handler(),
	}
	srv := httptest.NewServer(NewRouter(h, log))
	t.Cleanup(func() {
		srv.Close()
		registry.Shutdown(context.Background())
	})
	return srv, registry
}

func startScan(t *testing.T, srv *httptest.Server, body string) handlers.ScanStarted {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/scans", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var started handlers.ScanStarted
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&started))
	return started
}

func waitFinished(t *testing.T, registry *handlers.Registry, id string) {
	t.Helper()
	done, err := registry.Done(id)
	require.NoError(t, err)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scan did not finish")
	}
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t, newGatedScanner())

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/history")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "history needs a database")
}

func TestStartScanAndExport(t *testing.T) {
	scanner := newGatedScanner()
	srv, registry := newTestServer(t, scanner)

	started := startScan(t, srv, `{"preset":"super_agresif","total_budget":5000000}`)
	assert.Equal(t, "super_agresif", started.Preset)
	assert.Equal(t, 2, started.Symbols)

	resp, err := http.Get(srv.URL + "/api/scans/" + started.RunID + "/export.csv")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "no result while running")

	close(scanner.release)
	waitFinished(t, registry, started.RunID)

	scanner.mu.Lock()
	assert.Equal(t, []string{"BBCA.JK", "TLKM.JK"}, scanner.symbols)
	assert.Equal(t, 5_000_000.0, scanner.cfg.TotalBudget)
	assert.Equal(t, 3.0, scanner.cfg.VolumeRatioMin)
	scanner.mu.Unlock()

	resp, err = http.Get(srv.URL + "/api/scans/" + started.RunID)
	require.NoError(t, err)
	var view handlers.RunView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	resp.Body.Close()
	assert.Equal(t, contracts.StateDone, view.State)
	require.NotNil(t, view.Result)
	assert.Equal(t, 1, view.Result.Admitted)

	resp, err = http.Get(srv.URL + "/api/scans/" + started.RunID + "/export.csv")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "rank,symbol,price"))
	assert.True(t, strings.HasPrefix(lines[1], "1,BBCA.JK,1500.00"))
}

func TestStartScanRequestSymbols(t *testing.T) {
	scanner := newGatedScanner()
	close(scanner.release)
	srv, registry := newTestServer(t, scanner)

	started := startScan(t, srv, `{"symbols":["asii","x"]}`)
	assert.Equal(t, "default", started.Preset)
	assert.Equal(t, 1, started.Symbols)
	waitFinished(t, registry, started.RunID)

	scanner.mu.Lock()
	defer scanner.mu.Unlock()
	assert.Equal(t, []string{"ASII.JK"}, scanner.symbols)
}

func TestStartScanBadRequests(t *testing.T) {
	srv, _ := newTestServer(t, newGatedScanner())

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"unknown preset", `{"preset":"yolo"}`},
		{"invalid risk", `{"risk_pct":150}`},
		{"empty universe", `{"symbols":["x","y"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/api/scans", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestCancelScan(t *testing.T) {
	srv, registry := newTestServer(t, newGatedScanner())
	started := startScan(t, srv, `{}`)

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/scans/"+started.RunID, nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	waitFinished(t, registry, started.RunID)
	view, err := registry.Get(started.RunID)
	require.NoError(t, err)
	assert.Equal(t, contracts.StateCancelled, view.State)

	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	req, _ = http.NewRequest(http.MethodDelete, srv.URL+"/api/scans/missing", nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListPresets(t *testing.T) {
	srv, _ := newTestServer(t, newGatedScanner())

	resp, err := http.Get(srv.URL + "/api/presets")
	require.NoError(t, err)
	defer resp.Body.Close()

	var presets []struct {
		Name string `json:"name"`
		Hash string `json:"hash"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&presets))
	require.NotEmpty(t, presets)
	assert.Equal(t, "default", presets[0].Name)
	assert.Len(t, presets[0].Hash, 64)
}

func TestProgressStream(t *testing.T) {
	scanner := newGatedScanner()
	srv, _ := newTestServer(t, scanner)
	started := startScan(t, srv, `{}`)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/scans/" + started.RunID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	close(scanner.release)

	var msgs []handlers.StreamMessage
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var msg handlers.StreamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		msgs = append(msgs, msg)
	}

	require.Len(t, msgs, 3)
	assert.Equal(t, "progress", msgs[0].Type)
	assert.Equal(t, 1, msgs[0].Progress.Processed)
	assert.Equal(t, 2, msgs[1].Progress.Processed)
	assert.Equal(t, "finished", msgs[2].Type)
	require.NotNil(t, msgs[2].Run)
	assert.Equal(t, contracts.StateDone, msgs[2].Run.State)
}

func TestProgressStreamUnknownRun(t *testing.T) {
	srv, _ := newTestServer(t, newGatedScanner())

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/scans/missing"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
