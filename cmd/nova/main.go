package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mmcdole/gofeed"

	"github.com/novahq/nova/internal/api"
	"github.com/novahq/nova/internal/app"
	"github.com/novahq/nova/internal/config"
	"github.com/novahq/nova/internal/convcache"
	"github.com/novahq/nova/internal/gemini"
	"github.com/novahq/nova/internal/intent"
	"github.com/novahq/nova/internal/logger"
	"github.com/novahq/nova/internal/news"
	"github.com/novahq/nova/internal/ratelimit"
	"github.com/novahq/nova/internal/retry"
	"github.com/novahq/nova/internal/rss"
	"github.com/novahq/nova/internal/scraper"
	"github.com/novahq/nova/internal/sheet"
	"github.com/novahq/nova/internal/storage"
)

func main() {
	_ = godotenv.Load()

	log := logger.New("nova")
	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	store, err := openStore(cfg, log)
	if err != nil {
		log.Error("open store", slog.Any("err", err))
		os.Exit(1)
	}
	defer store.Close()

	// The generative model is optional: without a key the assistant
	// runs on heuristics and extractive summaries.
	var classifierGen intent.TextGenerator
	var summaryGen gemini.TextGenerator
	if cfg.GeminiAPIKey != "" {
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Error("init gemini", slog.Any("err", err))
			os.Exit(1)
		}
		defer client.Close()
		classifierGen = client
		summaryGen = client
		log.Info("gemini enabled", slog.String("model", cfg.GeminiModel))
	} else {
		log.Warn("GEMINI_API_KEY not set, running without generative model")
	}

	feeds, err := config.LoadFeeds(cfg.FeedsConfigPath)
	if err != nil {
		log.Error("load feeds config", slog.Any("err", err), slog.String("path", cfg.FeedsConfigPath))
		os.Exit(1)
	}
	defaultFeeds := append(feeds.Feeds, cfg.ExtraFeeds...)

	gate := ratelimit.NewFeedGate(cfg.FeedRateWindow, cfg.FeedGateCapacity)
	searcher := rss.NewSearcher(gofeed.NewParser(), gate, defaultFeeds, feeds.Categories, log)
	extractor := scraper.New(cfg.HTTPTimeout, log)

	sheetClient := sheet.New(cfg.SheetID, cfg.SheetGID, cfg.HTTPTimeout, retry.Config{
		MaxAttempts: cfg.RetryAttempts,
		Delay:       cfg.RetryDelay,
		Backoff:     true,
	}, log)

	aggregator := &news.Aggregator{
		Sheet:      sheetClient,
		Feeds:      searcher,
		Extractor:  extractor,
		MaxResults: cfg.MaxResults,
		FreshDays:  cfg.DaysLimit,
		MaxChars:   cfg.ArticleMaxChars,
		Log:        log,
	}

	cache := convcache.New(cfg.CacheTTL)
	cache.StartCleanup(ctx, 10*time.Minute)

	assistant := &app.Assistant{
		Classifier: intent.NewClassifier(classifierGen, log),
		News:       aggregator,
		Summarizer: gemini.NewSummarizer(summaryGen, log),
		Cache:      cache,
		History:    store,
		Extractor:  extractor,
		Workers:    cfg.SummaryWorkers,
		MaxChars:   cfg.ArticleMaxChars,
		Log:        log,
	}

	router := api.NewRouter(api.NewHandler(assistant, store, log), log)

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	go func() {
		log.Info("server starting", slog.String("addr", cfg.BindAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
}

func openStore(cfg *config.Config, log *slog.Logger) (*storage.HistoryStore, error) {
	if cfg.DatabaseURL != "" {
		log.Info("using postgres history store")
		return storage.NewPostgresStore(cfg.DatabaseURL)
	}
	log.Info("using sqlite history store", slog.String("path", cfg.SQLiteDB))
	return storage.NewSQLiteStore(cfg.SQLiteDB)
}
