// Command voiceclip runs the speaker clipping service: an HTTP API that
// accepts a video and a reference voice sample, finds the segments spoken
// by the reference speaker, and produces a concatenated clip.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skillsenselab/voiceclip/api"
	"github.com/skillsenselab/voiceclip/config"
	"github.com/skillsenselab/voiceclip/inference"
	"github.com/skillsenselab/voiceclip/logger"
	"github.com/skillsenselab/voiceclip/media"
	"github.com/skillsenselab/voiceclip/observability"
	"github.com/skillsenselab/voiceclip/pipeline"
	"github.com/skillsenselab/voiceclip/progress"
	"github.com/skillsenselab/voiceclip/server"
	"github.com/skillsenselab/voiceclip/sse"
	"github.com/skillsenselab/voiceclip/storage"

	_ "github.com/skillsenselab/voiceclip/storage/local"
	_ "github.com/skillsenselab/voiceclip/storage/s3"
)

func main() {
	var cfg config.Config
	if err := config.Load(&cfg); err != nil {
		logger.Fatal("failed to load configuration", logger.ErrorFields("config.load", err))
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", logger.ErrorFields("config.validate", err))
	}

	logger.Init(cfg.Logging)
	log := logger.GetGlobalLogger()
	log.Info("starting voiceclip", logger.Fields(
		"version", cfg.Version,
		"environment", cfg.Environment,
	))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Tracing.Enabled {
		tp, err := observability.InitTracer(ctx, cfg.Tracing, cfg.Name, cfg.Version, cfg.Environment)
		if err != nil {
			log.Fatal("failed to initialize tracing", logger.ErrorFields("tracing.init", err))
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				log.Warn("tracer shutdown failed", logger.ErrorFields("tracing.shutdown", err))
			}
		}()
	}

	store, err := storage.New(cfg.Storage, log)
	if err != nil {
		log.Fatal("failed to initialize storage", logger.ErrorFields("storage.init", err))
	}

	if err := os.MkdirAll(cfg.Pipeline.ScratchDir, 0o755); err != nil {
		log.Fatal("failed to create scratch directory", logger.ErrorFields("scratch.mkdir", err))
	}

	sidecar := inference.NewPyannote(cfg.Inference)
	ffmpeg := media.NewFFmpeg(cfg.Media, nil)
	ytdlp := media.NewYtDlp(cfg.Media, nil)

	hub := sse.NewHub()
	go hub.Run()

	prog := progress.NewStore()
	prog.SetNotifier(func(taskID string, rec progress.Record) {
		data, err := json.Marshal(api.StatusResponse{TaskID: taskID, Record: rec})
		if err != nil {
			log.Warn("failed to encode progress event", logger.ErrorFields("sse.encode", err))
			return
		}
		hub.Publish(taskID, data)
	})

	runner := pipeline.NewRunner(cfg.Pipeline, ytdlp, ffmpeg, sidecar, store, cfg.Storage.KeyPrefix, prog)
	dispatcher := pipeline.NewDispatcher(runner, prog)
	dispatcher.Start(ctx)

	srv := server.New(cfg.Server, log)
	srv.ApplyMiddleware()
	api.RegisterRoutes(srv.GinEngine(), api.Deps{
		ServiceName:         cfg.Name,
		Version:             cfg.Version,
		ScratchDir:          cfg.Pipeline.ScratchDir,
		Submitter:           dispatcher,
		Progress:            prog,
		Hub:                 hub,
		QueueStats:          dispatcher,
		InferenceUp:         sidecar.IsAvailable,
		SubmitRatePerMinute: cfg.Server.SubmitRatePerMinute,
	})

	if err := srv.Start(ctx); err != nil {
		log.Fatal("failed to start server", logger.ErrorFields("server.start", err))
	}
	log.Info("server listening", logger.Fields("addr", srv.Addr()))

	<-ctx.Done()
	log.Info("shutdown signal received")

	// Stop accepting requests first, then drain queued tasks.
	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(stopCtx); err != nil {
		log.Warn("server shutdown failed", logger.ErrorFields("server.stop", err))
	}

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), cfg.Pipeline.ShutdownTimeout)
	defer cancelDrain()
	if err := dispatcher.Shutdown(drainCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn("shutdown timed out with tasks in flight")
		} else {
			log.Warn("dispatcher shutdown failed", logger.ErrorFields("dispatcher.shutdown", err))
		}
	}

	hub.Stop()
	log.Info("voiceclip stopped")
}
