package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"echopost/api"
	"echopost/common"
	"echopost/config"
	"echopost/dedup"
	"echopost/grouping"
	"echopost/mediastore"
	"echopost/oracle"
	"echopost/pipeline"
	"echopost/source"
)

func main() {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	log.Println("🤖 echopost starting...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := mediastore.New(config.GetEnvOrDefault("MEDIA_STORE_DIR", "message_history"))
	if err != nil {
		log.Fatalf("❌ Failed to initialize media store: %v", err)
	}
	log.Printf("Media store root: %s", store.Root())

	provider := oracle.NewDefaultProvider(os.Getenv("AI_MODEL"))
	checker := buildChecker(provider)
	coordinator := buildCoordinator(store, checker, provider)
	coordinator.StartWatchdog(ctx, config.GetEnvDuration("WATCHDOG_INTERVAL", config.WatchdogInterval))

	kafkaSource := startKafka(ctx, coordinator)
	startRSS(ctx, coordinator)

	server := startAPI(checker, store, coordinator)

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Warning: API server shutdown: %v", err)
	}
	if kafkaSource != nil {
		if err := kafkaSource.Close(); err != nil {
			log.Printf("Warning: Kafka close: %v", err)
		}
	}
	coordinator.Wait()
	log.Println("✅ Shutdown complete")
}

// buildChecker wires the layered duplicate checker: optional Redis bloom fast
// path and optional semantic oracle, both degrading to the structural checks
// alone when unconfigured.
func buildChecker(provider oracle.ChatProvider) *dedup.Checker {
	cfg := dedup.CheckerConfig{
		HistoryLimit: config.GetEnvInt("HISTORY_LIMIT", config.DefaultHistoryLimit),
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		bloom, err := dedup.NewRedisBloom(dedup.BloomConfig{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       config.GetEnvInt("REDIS_DB", 0),
			TTL:      config.GetEnvDuration("BLOOM_TTL", 24*time.Hour),
		})
		if err != nil {
			log.Printf("Warning: bloom fast path disabled: %v", err)
		} else {
			log.Println("✅ Redis bloom fast path enabled")
			cfg.Bloom = bloom
		}
	}

	if provider != nil {
		log.Printf("✅ Semantic duplicate oracle enabled (model: %s)", provider.ModelName())
		cfg.Oracle = oracle.New(provider)
	} else {
		log.Println("⚠️  No AI provider configured; semantic duplicate checks disabled")
	}

	return dedup.NewChecker(cfg)
}

func buildCoordinator(store *mediastore.Store, checker *dedup.Checker, provider oracle.ChatProvider) *grouping.Coordinator {
	agg := &pipeline.Aggregator{}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		agg.Images = pipeline.NewOpenAIImageAnalyzer(key, os.Getenv("VISION_MODEL"))
	}

	var poster pipeline.Poster = pipeline.LogPoster{}
	if interval := config.GetEnvDuration("POST_INTERVAL", 0); interval > 0 {
		queue := pipeline.NewPostQueue(poster, interval)
		queue.Start(context.Background())
		log.Printf("Posting queue enabled (interval: %s)", interval)
		poster = queue
	}

	pipe := pipeline.New(pipeline.Config{
		Checker:    checker,
		Provider:   provider,
		Aggregator: agg,
		Poster:     poster,
		HistoryDir: store.Root(),
		Archive:    buildArchiver(),
	})

	return grouping.NewCoordinator(grouping.CoordinatorConfig{
		Media:         store,
		Downloader:    source.NewHTTPDownloader(),
		Handler:       pipe.Run,
		Timeout:       config.GetEnvDuration("GROUP_TIMEOUT", config.GroupProcessingTimeout),
		MaxConcurrent: int64(config.GetEnvInt("MAX_CONCURRENT_GROUPS", config.MaxConcurrentGroups)),
	})
}

// buildArchiver returns an S3 group archiver if configured via env.
// Required: S3_BUCKET. Optional: S3_REGION, S3_PROFILE, S3_PREFIX, S3_USE_PATH_STYLE=true
func buildArchiver() pipeline.Archiver {
	bucket := strings.TrimSpace(os.Getenv("S3_BUCKET"))
	if bucket == "" {
		log.Println("S3 not configured; group archiving disabled")
		return nil
	}

	client, err := common.NewS3(context.Background(), common.S3Config{
		Region:       strings.TrimSpace(os.Getenv("S3_REGION")),
		Profile:      strings.TrimSpace(os.Getenv("S3_PROFILE")),
		UsePathStyle: config.GetEnvBool("S3_USE_PATH_STYLE", false),
	})
	if err != nil {
		log.Printf("Warning: failed to init S3 client: %v (archiving disabled)", err)
		return nil
	}

	log.Printf("✅ Group archiving to s3://%s enabled", bucket)
	return common.NewGroupArchiver(client, bucket, strings.Trim(os.Getenv("S3_PREFIX"), "/"))
}

func startKafka(ctx context.Context, coordinator *grouping.Coordinator) *source.KafkaSource {
	brokers := strings.TrimSpace(os.Getenv("KAFKA_BROKERS"))
	if brokers == "" {
		log.Println("Kafka not configured; message event source disabled")
		return nil
	}

	src, err := source.NewKafkaSource(source.KafkaConfig{
		Brokers: strings.Split(brokers, ","),
		Topic:   config.GetEnvOrDefault("KAFKA_TOPIC", "channel.messages"),
		GroupID: config.GetEnvOrDefault("KAFKA_GROUP_ID", "echopost"),
	}, coordinator.OnMessage)
	if err != nil {
		log.Fatalf("❌ Failed to create Kafka source: %v", err)
	}
	if err := src.Start(ctx); err != nil {
		log.Fatalf("❌ Failed to start Kafka source: %v", err)
	}
	return src
}

func startRSS(ctx context.Context, coordinator *grouping.Coordinator) {
	feed := strings.TrimSpace(os.Getenv("RSS_FEED"))
	if feed == "" {
		return
	}

	src := source.NewRSSSource(source.RSSConfig{
		FeedURL:      ResolveFeedURL(feed),
		PollInterval: config.GetEnvDuration("RSS_POLL_INTERVAL", 10*time.Minute),
		MaxPerPoll:   config.GetEnvInt("RSS_MAX_PER_POLL", 10),
	}, coordinator.OnMessage)
	src.Start(ctx)
}

func startAPI(checker *dedup.Checker, store *mediastore.Store, coordinator *grouping.Coordinator) *http.Server {
	addr := ":" + config.GetEnvOrDefault("PORT", "8080")
	router := api.NewRouter(api.Deps{
		Checker:    checker,
		HistoryDir: store.Root(),
		Groups:     coordinator,
	})

	server := &http.Server{Addr: addr, Handler: router}
	go func() {
		log.Printf("Starting API server on %s", addr)
		log.Println("API endpoints available:")
		log.Println("  GET  /api/health")
		log.Println("  POST /api/duplicate/check")
		log.Println("  GET  /api/groups")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()
	return server
}
