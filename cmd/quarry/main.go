package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/quarrylabs/quarry/internal/backend"
	"github.com/quarrylabs/quarry/internal/config"
	logpkg "github.com/quarrylabs/quarry/internal/logger"
	"github.com/quarrylabs/quarry/internal/metrics"
	"github.com/quarrylabs/quarry/internal/transport/mcptool"
	"github.com/quarrylabs/quarry/internal/usecase/flowgate"
	"github.com/quarrylabs/quarry/internal/usecase/format"
	"github.com/quarrylabs/quarry/internal/usecase/guided"
	"github.com/quarrylabs/quarry/internal/usecase/inventory"
	"github.com/quarrylabs/quarry/internal/usecase/search"
	"github.com/quarrylabs/quarry/internal/usecase/urlgen"
	"github.com/quarrylabs/quarry/internal/version"
)

func main() {
	// Optional .env for local development; real environments set vars directly.
	_ = godotenv.Load()

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting quarry MCP server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("metrics_port", cfg.Metrics.Port),
	)

	metrics.Register()

	// Backend index handles. Dense is required; sparse, lexical, and the
	// reranker are optional and degrade the matching features when absent.
	dense := backend.NewHTTPIndex(cfg.Backend.DenseHost, cfg.Backend.APIKey)
	var sparse, lexical *backend.HTTPIndex
	if cfg.Backend.SparseHost != "" {
		sparse = backend.NewHTTPIndex(cfg.Backend.SparseHost, cfg.Backend.APIKey)
	}
	if cfg.Backend.LexicalHost != "" {
		lexical = backend.NewHTTPIndex(cfg.Backend.LexicalHost, cfg.Backend.APIKey)
	}
	var reranker search.Reranker
	if cfg.Backend.RerankHost != "" {
		reranker = backend.NewHTTPReranker(
			cfg.Backend.RerankHost, cfg.Backend.APIKey, cfg.Backend.RerankModel,
		)
	}

	ttl := time.Duration(cfg.Cache.TTLMinutes) * time.Minute
	cache := inventory.NewCache(ttl)
	inv := inventory.New(dense, cache).WithSampleSize(cfg.Search.SampleSize)
	gate := flowgate.New(ttl)

	svc := search.New(dense, asSearcher(sparse), asSearcher(lexical), reranker).
		WithLimits(cfg.Search.MaxTopK, cfg.Search.CountTopK)

	urls := urlgen.NewRegistry()
	for namespace, gen := range cfg.URLs {
		switch gen.Kind {
		case "list_archive":
			urls.Register(namespace, urlgen.NewListArchive(gen.BaseURL))
		case "chat_permalink":
			urls.Register(namespace, urlgen.NewChatPermalink(gen.BaseURL))
		}
	}

	formatter := format.New(urls).WithMaxContentLength(cfg.Search.MaxContentLength)
	orchestrator := guided.New(inv, gate, svc, formatter)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "quarry",
		Version: version.Version,
	}, nil)

	mcptool.NewServer(mcptool.Options{
		Inventory:    inv,
		Gate:         gate,
		Search:       svc,
		Formatter:    formatter,
		URLs:         urls,
		Orchestrator: orchestrator,
		Logger:       logger,
		Debug:        cfg.Logging.Debug,

		MaxDocumentTopK:      cfg.Search.MaxDocumentTopK,
		MaxChunksPerDocument: cfg.Search.MaxChunksPerDocument,
	}).Register(server)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metricsSrv *http.Server
	if cfg.Metrics.Port > 0 {
		metricsSrv = metricsServer(cfg.Metrics.Port)
		go func() {
			logger.Info("Metrics listener started", zap.Int("port", cfg.Metrics.Port))
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("Metrics listener failed", zap.Error(err))
			}
		}()
	}

	// Stdio transport: the MCP client owns stdin/stdout, logs go to stderr.
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		logger.Fatal("MCP server stopped", zap.Error(err))
	}

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	logger.Info("Shutdown complete")
}

// asSearcher converts a possibly-nil index handle into the interface without
// producing a non-nil interface around a nil pointer.
func asSearcher(idx *backend.HTTPIndex) search.Searcher {
	if idx == nil {
		return nil
	}
	return idx
}

func metricsServer(port int) *http.Server {
	r := chi.NewRouter()
	r.Use(chiMiddleware.Recoverer)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
