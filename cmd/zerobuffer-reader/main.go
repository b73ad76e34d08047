// Command zerobuffer-reader creates a zerobuffer and drains frames from it
// until interrupted, logging each frame's sequence and length. It exists to
// exercise the reader side of the core against a real OS process boundary
// (the writer-crash and second-writer-rejection scenarios in spec.md §8 are
// only observable across real processes), the same role the teacher's
// main.go plays for the exchange feeder.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alephtx/zerobuffer"
	"github.com/alephtx/zerobuffer/config"
	"github.com/alephtx/zerobuffer/internal/logs"
)

func main() {
	log := logs.Default()
	log.Info("zerobuffer-reader starting")

	cfgPath := "config.toml"
	if p := os.Getenv("ZEROBUFFER_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal("config load failed", "path", cfgPath, "err", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	r, err := zerobuffer.NewReader(cfg.Buffer.Name, zerobuffer.BufferConfig{
		MetadataSize: cfg.Buffer.MetadataSize,
		PayloadSize:  cfg.Buffer.PayloadSize,
	})
	if err != nil {
		log.Fatal("reader create failed", "buffer", cfg.Buffer.Name, "err", err)
	}
	defer r.Dispose()
	log.Info("buffer created", "name", cfg.Buffer.Name,
		"metadata_size", cfg.Buffer.MetadataSize, "payload_size", cfg.Buffer.PayloadSize)

	if !r.IsWriterConnected(0) {
		log.Info("waiting for writer to attach")
	}

	var frames, bytes uint64
	for ctx.Err() == nil {
		frame, err := r.ReadFrame(cfg.Buffer.ReadTimeout)
		if err != nil {
			log.Error("writer gone", "err", err)
			return
		}
		if !frame.IsValid() {
			continue // timed out, writer still alive; keep polling
		}
		frames++
		bytes += uint64(len(frame.Bytes()))
		log.Debug("frame received", "sequence", frame.Sequence(), "len", len(frame.Bytes()))
		if err := frame.Release(); err != nil {
			log.Error("release failed", "err", err)
			return
		}
	}

	log.Info("shutting down", "frames", frames, "bytes", bytes)
}
