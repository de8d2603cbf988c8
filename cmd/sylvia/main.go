// Command sylvia runs the Sylvia backend: the tool-augmented chat loop, the
// ambient vision endpoint, and the Context Highway over Redis.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sylviahq/sylvia/agent"
	"github.com/sylviahq/sylvia/config"
	"github.com/sylviahq/sylvia/firecrawl"
	"github.com/sylviahq/sylvia/highway"
	"github.com/sylviahq/sylvia/llm/google"
	"github.com/sylviahq/sylvia/server"
	"github.com/sylviahq/sylvia/tools"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

const defaultInstructions = "You are Sylvia, a helpful assistant with ambient awareness of the user's screen. " +
	"Use the cross-agent context when it is relevant, and use your tools to research the web when asked."

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OTLPEndpoint != "" {
		tp, err := initTracing(ctx)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tp.Shutdown(shutdownCtx)
		}()
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer func() { _ = rdb.Close() }()

	hw := highway.New(rdb, logger.Named("highway"))
	defer func() { _ = hw.Close() }()

	fc := firecrawl.NewClient(cfg.FirecrawlAPIKey, firecrawl.ClientOptions{})
	dispatcher := tools.NewDispatcher(fc, logger.Named("tools"))

	chatModel := google.NewGoogleModel(cfg.ChatModel, google.GoogleModelOptions{APIKey: cfg.GeminiAPIKey})
	visionModel := google.NewGoogleModel(cfg.VisionModel, google.GoogleModelOptions{APIKey: cfg.GeminiAPIKey})
	auxModel := google.NewGoogleModel(cfg.AuxiliaryModel, google.GoogleModelOptions{APIKey: cfg.GeminiAPIKey})

	srv := server.New(server.Options{
		Loop:          agent.NewLoop(chatModel, dispatcher, hw, logger.Named("agent")),
		AuxiliaryLoop: agent.NewLoop(auxModel, nil, nil, logger.Named("auxiliary")),
		VisionModel:   visionModel,
		Highway:       hw,
		Firecrawl:     fc,
		Logger:        logger.Named("server"),
		Instructions:  defaultInstructions,
	})

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errC := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		errC <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errC:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// initTracing configures an OTLP/HTTP exporter; endpoint and headers come
// from the OTEL_* environment variables.
func initTracing(ctx context.Context) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			"",
			attribute.String("service.name", "sylvia"),
		)),
	)

	otel.SetTracerProvider(tp)
	return tp, nil
}
