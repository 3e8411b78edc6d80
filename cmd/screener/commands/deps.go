package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wonny/swingscreener/internal/brain"
	"github.com/wonny/swingscreener/internal/contracts"
	"github.com/wonny/swingscreener/internal/export"
	"github.com/wonny/swingscreener/internal/external/yahoo"
	"github.com/wonny/swingscreener/internal/metrics"
	"github.com/wonny/swingscreener/internal/notification"
	"github.com/wonny/swingscreener/internal/s0_data"
	"github.com/wonny/swingscreener/internal/s0_data/collector"
	"github.com/wonny/swingscreener/internal/s1_universe"
	"github.com/wonny/swingscreener/internal/selection"
	"github.com/wonny/swingscreener/internal/strategyconfig"
	"github.com/wonny/swingscreener/pkg/config"
	"github.com/wonny/swingscreener/pkg/database"
	"github.com/wonny/swingscreener/pkg/httputil"
	"github.com/wonny/swingscreener/pkg/logger"
	"github.com/wonny/swingscreener/pkg/redis"
)

// deps holds everything a command needs; built once per invocation
type deps struct {
	cfg     *config.Config
	log     *logger.Logger
	redis   *redis.Client
	cache   *redis.Cache
	db      *database.DB
	repo    *selection.Repository
	metrics *metrics.Metrics
	http    *httputil.Client
	yahoo   *yahoo.Client
}

// depsOptions selects the optional pieces a command wants
type depsOptions struct {
	database bool
	metrics  bool
}

func loadDeps(ctx context.Context, opts depsOptions) (*deps, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	d := &deps{cfg: cfg, log: log}

	// 3. Redis (optional): shared cache and rate limit
	d.redis = redis.Disabled()
	if cfg.Redis.Enabled {
		rc, err := redis.New(cfg)
		if err != nil {
			log.WithError(err).Warn("Redis unavailable, continuing without cache")
		} else {
			d.redis = rc
		}
	}
	d.cache = redis.NewCache(d.redis, "screener")

	// 4. HTTP client, rate limited per provider
	var limiter httputil.Limiter
	if d.redis.Enabled() && cfg.Yahoo.RateLimit > 0 {
		limiter = redis.NewRateLimiter(d.redis, "ratelimit").Bind(redis.RateLimitConfig{
			Key:    "yahoo",
			Limit:  int(cfg.Yahoo.RateLimit + 0.5),
			Window: time.Second,
		})
	} else {
		limiter = httputil.NewLocalLimiter(cfg.Yahoo.RateLimit)
	}
	d.http = httputil.New(cfg, log).WithLimiter(limiter).WithCookieJar()
	d.yahoo = yahoo.NewClient(d.http, cfg.Yahoo, log)

	// 5. Database (optional): scan run history
	if opts.database {
		db, err := database.New(ctx, cfg)
		switch {
		case errors.Is(err, database.ErrNotConfigured):
			log.Debug("DATABASE_URL not set, run history disabled")
		case err != nil:
			log.WithError(err).Warn("Database unavailable, run history disabled")
		default:
			d.db = db
			d.repo = selection.NewRepository(db.Pool)
			if err := d.repo.EnsureSchema(ctx); err != nil {
				d.Close()
				return nil, fmt.Errorf("ensure schema: %w", err)
			}
		}
	}

	if opts.metrics && cfg.MetricsEnabled {
		d.metrics = metrics.New()
	}

	return d, nil
}

// Close releases connections
func (d *deps) Close() {
	if d.db != nil {
		d.db.Close()
	}
	if d.redis != nil {
		d.redis.Close()
	}
}

// orchestrator wires fetcher, cached lookup and delivery into one scan runner
func (d *deps) orchestrator(extra ...brain.Option) *brain.Orchestrator {
	cfg := d.cfg

	col := collector.NewCollector(d.yahoo, collector.Config{
		Workers: cfg.Fetch.Workers,
	}, d.log)
	lookup := s0_data.NewFundamentalCache(d.yahoo, d.cache, d.log)

	opts := []brain.Option{
		brain.WithSinks(notification.NewLogSink(d.log)),
		brain.WithMetrics(d.metrics),
	}
	if cfg.Telegram.Enabled() {
		tg := notification.NewTelegram(httputil.New(cfg, d.log), cfg.Telegram.BotToken, cfg.Telegram.ChatID, d.log)
		opts = append(opts, brain.WithSinks(tg))
	}
	if d.repo != nil {
		opts = append(opts, brain.WithExporters(d.repo))
	}
	opts = append(opts, extra...)

	return brain.NewOrchestrator(col, lookup, brain.Options{
		BatchSize:   cfg.Fetch.BatchSize,
		EvalWorkers: cfg.Fetch.EvalWorkers,
		Period:      cfg.Fetch.Period,
		Interval:    cfg.Fetch.Interval,
	}, d.log, opts...)
}

// presets loads the preset library named by flag, env, or the builtin one
func (d *deps) presets() (*strategyconfig.File, string, error) {
	path := strategyFile
	if path == "" {
		path = d.cfg.Scan.StrategyFile
	}
	if path == "" {
		return strategyconfig.Builtin(), "builtin", nil
	}
	f, _, err := strategyconfig.Load(path)
	if err != nil {
		return nil, "", err
	}
	return f, path, nil
}

func (d *deps) presetName() string {
	if presetName != "" {
		return presetName
	}
	return d.cfg.Scan.Preset
}

// universe picks the identifier source: explicit symbols, a file, or Wikipedia
func (d *deps) universe(symbols, file string) contracts.UniverseProvider {
	if symbols != "" {
		return s1_universe.NewStatic("flag", strings.Split(symbols, ","))
	}
	if file == "" {
		file = d.cfg.Scan.UniverseFile
	}
	if file != "" {
		return s1_universe.NewCSVFile(file)
	}
	return s1_universe.NewWikipedia(d.http, s1_universe.DefaultWikipediaURL, d.cache, d.log)
}

// exporter builds a file exporter for --export
func (d *deps) exporter(dir, format string) (contracts.Exporter, error) {
	f := export.Format(format)
	if f != export.FormatCSV && f != export.FormatJSON {
		return nil, fmt.Errorf("unknown export format %q (csv|json)", format)
	}
	return export.NewDir(dir, f, d.log), nil
}
