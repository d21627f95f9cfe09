// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"research-crew/internal/common/camunda"
	"research-crew/internal/common/config"
	"research-crew/internal/common/database"
	"research-crew/internal/common/genai"
	"research-crew/internal/common/logger"
	"research-crew/internal/common/observability"
	"research-crew/internal/common/scrape"
	"research-crew/internal/common/search"
	"research-crew/pkg/registry"

	dr "research-crew/internal/workers/research/deliver-report"
	ed "research-crew/internal/workers/research/extract-data"
	fw "research-crew/internal/workers/research/find-website"
	ma "research-crew/internal/workers/research/market-analysis"
	na "research-crew/internal/workers/research/news-analysis"
	sw "research-crew/internal/workers/research/scrape-website"
	sr "research-crew/internal/workers/research/store-report"
	sy "research-crew/internal/workers/research/synthesize-report"
	wr "research-crew/internal/workers/research/web-research"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...")

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebeClient zbc.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebeClient, err = zbc.NewClient(&zbc.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init External Service Clients ---
	searchClient := search.NewClient(cfg.APIs.Serper.APIKey,
		search.WithBaseURL(cfg.APIs.Serper.BaseURL),
		search.WithMaxResults(cfg.APIs.Serper.MaxResults),
	)

	var scrapeOpts []scrape.Option
	if cfg.APIs.Firecrawl.APIKey != "" {
		scrapeOpts = append(scrapeOpts, scrape.WithFirecrawl(cfg.APIs.Firecrawl.BaseURL, cfg.APIs.Firecrawl.APIKey))
	} else {
		scrapeOpts = append(scrapeOpts, scrape.WithJina(cfg.APIs.Jina.BaseURL, cfg.APIs.Jina.APIKey))
	}
	scrapeClient := scrape.NewClient(scrapeOpts...)

	genaiClient := genai.NewClient(genai.Config{
		XAIAPIKey:    cfg.APIs.GenAI.XAIAPIKey,
		OpenAIAPIKey: cfg.APIs.GenAI.OpenAIAPIKey,
		OllamaURL:    cfg.APIs.GenAI.OllamaURL,
		OllamaModel:  cfg.APIs.GenAI.OllamaModel,
		MaxTokens:    cfg.APIs.GenAI.MaxTokens,
		Temperature:  cfg.APIs.GenAI.Temperature,
	})
	zapLog.Info("Language model provider resolved", zap.String("provider", string(genaiClient.Provider())))

	if err := genaiClient.ProbeOllama(ctx); err != nil {
		// The synthesis worker degrades per job, so a missing local model
		// is a warning at startup, not a fatal.
		zapLog.Warn("ollama probe failed", zap.Error(err))
	}

	agents, err := registry.LoadRegistry(cfg.Agents.RegistryPath)
	if err != nil {
		zapLog.Fatal("agent registry load failed", zap.Error(err))
	}
	zapLog.Info("Agent registry loaded", zap.Int("agents", len(agents.Agents)))

	zapLog.Info("All external service clients initialized")

	// --- Register Research Pipeline Workers ---

	if cfg.Workers[fw.TaskType].Enabled {
		handler := fw.NewHandler(
			&fw.Config{
				Timeout:    time.Duration(cfg.Workers[fw.TaskType].Timeout) * time.Millisecond,
				MaxResults: cfg.APIs.Serper.MaxResults,
			},
			searchClient, log,
		)
		startWorker(zeebeClient, fw.TaskType, cfg.Workers[fw.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[wr.TaskType].Enabled {
		handler := wr.NewHandler(
			&wr.Config{
				Timeout:      time.Duration(cfg.Workers[wr.TaskType].Timeout) * time.Millisecond,
				MaxResults:   8,
				MinRelevance: 0.5,
			},
			searchClient, log,
		)
		startWorker(zeebeClient, wr.TaskType, cfg.Workers[wr.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[sw.TaskType].Enabled {
		handler := sw.NewHandler(
			&sw.Config{
				Timeout: time.Duration(cfg.Workers[sw.TaskType].Timeout) * time.Millisecond,
			},
			scrapeClient, log,
		)
		startWorker(zeebeClient, sw.TaskType, cfg.Workers[sw.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[ed.TaskType].Enabled {
		handler := ed.NewHandler(
			&ed.Config{
				Timeout: time.Duration(cfg.Workers[ed.TaskType].Timeout) * time.Millisecond,
			},
			log,
		)
		startWorker(zeebeClient, ed.TaskType, cfg.Workers[ed.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[ma.TaskType].Enabled {
		handler := ma.NewHandler(
			&ma.Config{
				Timeout:    time.Duration(cfg.Workers[ma.TaskType].Timeout) * time.Millisecond,
				MaxResults: 8,
				MaxTrends:  5,
			},
			searchClient, log,
		)
		startWorker(zeebeClient, ma.TaskType, cfg.Workers[ma.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[na.TaskType].Enabled {
		handler := na.NewHandler(
			&na.Config{
				Timeout:         time.Duration(cfg.Workers[na.TaskType].Timeout) * time.Millisecond,
				MaxResults:      8,
				MaxDevelopments: 5,
				TimeFilter:      "qdr:m6",
			},
			searchClient, log,
		)
		startWorker(zeebeClient, na.TaskType, cfg.Workers[na.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[sy.TaskType].Enabled {
		handler, err := sy.NewHandler(
			&sy.Config{
				Timeout:    time.Duration(cfg.Workers[sy.TaskType].Timeout) * time.Millisecond,
				MaxRetries: cfg.Workers[sy.TaskType].MaxRetries,
				AgentID:    "report-editor",
			},
			genaiClient, agents, log,
		)
		if err != nil {
			zapLog.Fatal("failed to create synthesize-report handler", zap.Error(err))
		}
		startWorker(zeebeClient, sy.TaskType, cfg.Workers[sy.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[sr.TaskType].Enabled {
		handler := sr.NewHandler(
			&sr.Config{
				Timeout:  time.Duration(cfg.Workers[sr.TaskType].Timeout) * time.Millisecond,
				CacheTTL: time.Hour,
				ESIndex:  cfg.Database.Elasticsearch.Index,
			},
			pg.DB, redis, esClient, log,
		)
		startWorker(zeebeClient, sr.TaskType, cfg.Workers[sr.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[dr.TaskType].Enabled {
		handler, err := dr.NewHandler(
			&dr.Config{
				EmailEnabled: cfg.Notify.EmailEnabled,
				SMSEnabled:   cfg.Notify.SMSEnabled,
				FromEmail:    cfg.Notify.FromEmail,
				AWSRegion:    cfg.Notify.AWSRegion,
				Timeout:      time.Duration(cfg.Workers[dr.TaskType].Timeout) * time.Millisecond,
			},
			log,
		)
		if err != nil {
			zapLog.Fatal("failed to create deliver-report handler", zap.Error(err))
		}
		startWorker(zeebeClient, dr.TaskType, cfg.Workers[dr.TaskType], handler.Handle, zapLog)
	}

	zapLog.Info("All 9 workers registered successfully")

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :9090")
		if err := http.ListenAndServe(":9090", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range runningWorkers {
		w.Stop(shutdownCtx)
	}

	if err := zeebeClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

var runningWorkers []*camunda.JobWorker

func startWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handlerFunc func(worker.JobClient, entities.Job), log *zap.Logger) {
	if !wcfg.Enabled {
		log.Info("worker disabled", zap.String("taskType", taskType))
		return
	}

	maxJobs := wcfg.MaxJobsActive
	if maxJobs == 0 {
		maxJobs = 10
	}

	w := camunda.StartWorker(client, taskType, maxJobs, time.Duration(wcfg.Timeout)*time.Millisecond, handlerFunc, log)
	runningWorkers = append(runningWorkers, w)
}
