// atotd captures microphone audio, segments it into utterances, and
// streams transcripts over HTTP and WebSocket.
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/kennychae/atot/internal/audio"
	"github.com/kennychae/atot/internal/config"
	"github.com/kennychae/atot/internal/metrics"
	"github.com/kennychae/atot/internal/segment"
	"github.com/kennychae/atot/internal/server"
	"github.com/kennychae/atot/internal/session"
	"github.com/kennychae/atot/internal/transcription"
	"github.com/kennychae/atot/internal/vad"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.Logging.Level),
	}))
	slog.SetDefault(logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	m := metrics.New(registry)

	classifier, err := vad.New(vad.Config{
		Backend:   cfg.VAD.Backend,
		ModelPath: cfg.VAD.ModelPath,
		Threshold: cfg.VAD.Threshold,
		Window:    cfg.VAD.WindowSize,
	})
	if err != nil {
		slog.Error("failed to create voice activity classifier", "error", err)
		os.Exit(1)
	}
	if closer, ok := classifier.(io.Closer); ok {
		defer closer.Close()
	}

	transcriber := transcription.NewClient(transcription.Config{
		Endpoint:      cfg.Transcription.Endpoint,
		APIKey:        cfg.Transcription.APIKey,
		Model:         cfg.Transcription.Model,
		Language:      cfg.Transcription.Language,
		Timeout:       cfg.Transcription.Timeout(),
		MaxRetries:    cfg.Transcription.MaxRetries,
		MaxConcurrent: cfg.Transcription.MaxConcurrent,
	})

	queue := audio.NewQueue(cfg.Audio.QueueCapacity)
	queue.OnPush(m.ChunksCaptured.Inc)
	queue.OnDrop(m.ChunksDropped.Inc)

	capturer, err := audio.NewCapturer(queue, cfg.Audio.SampleRate, cfg.Audio.ChunkSize, cfg.Audio.Device)
	if err != nil {
		slog.Error("failed to initialize audio capture", "error", err)
		os.Exit(1)
	}
	defer capturer.Terminate()

	aggregator := audio.NewAggregator(queue, cfg.Audio.BatchSize, cfg.Audio.CollectTimeout())
	segmenter := segment.New(cfg.Segmenter.SilenceThreshold, cfg.Segmenter.ExitThreshold)

	sess := session.New(session.Config{
		SampleRate: cfg.Audio.SampleRate,
		Language:   cfg.Transcription.Language,
	}, aggregator, classifier, transcriber, segmenter, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := capturer.Start(ctx); err != nil {
		slog.Error("failed to start audio capture", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := sess.Run(ctx); err != nil {
			slog.Error("session error", "error", err)
		}
	}()

	srv := server.New(sess, transcriber, registry)
	httpServer := &http.Server{
		Addr:         cfg.Server.HTTPAddr,
		Handler:      srv.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("atotd starting", "http", cfg.Server.HTTPAddr, "vad", cfg.VAD.Backend, "language", cfg.Transcription.Language)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down...")
	cancel()
	capturer.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
	slog.Info("shutdown complete")
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
