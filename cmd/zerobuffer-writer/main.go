// Command zerobuffer-writer connects to a zerobuffer created by
// zerobuffer-reader and streams synthetic frames into it until interrupted.
// Connecting races the reader's creation (spec.md §4.3: the reader creates,
// the writer connects), so it retries ErrBufferNotFound with exponential
// backoff instead of the teacher's fixed 3s reconnect sleep in
// exchanges/base.go's RunConnectionLoop.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/alephtx/zerobuffer"
	"github.com/alephtx/zerobuffer/config"
	"github.com/alephtx/zerobuffer/internal/logs"
)

func connect(ctx context.Context, log *logs.Logger, name string) (*zerobuffer.Writer, error) {
	eb := backoff.NewExponentialBackOff()
	eb.MaxInterval = 5 * time.Second
	b := backoff.WithContext(eb, ctx)

	var w *zerobuffer.Writer
	op := func() error {
		var err error
		w, err = zerobuffer.NewWriter(name)
		if err == nil {
			return nil
		}
		if errors.Is(err, zerobuffer.ErrBufferNotFound) {
			log.Debug("reader not ready yet, retrying", "buffer", name)
			return err // retryable
		}
		return backoff.Permanent(err)
	}
	if err := backoff.Retry(op, b); err != nil {
		return nil, err
	}
	return w, nil
}

func main() {
	log := logs.Default()
	log.Info("zerobuffer-writer starting")

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

	w, err := connect(ctx, log, cfg.Buffer.Name)
	if err != nil {
		log.Fatal("writer connect failed", "buffer", cfg.Buffer.Name, "err", err)
	}
	defer w.Dispose()
	w.SetWriteTimeout(cfg.Buffer.WriteTimeout)
	log.Info("writer connected", "name", cfg.Buffer.Name)

	payload := make([]byte, 256)
	for i := range payload {
		payload[i] = byte(i)
	}

	var seq uint64
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down", "frames_written", seq)
			return
		case <-ticker.C:
			n, err := w.WriteFrame(payload)
			switch {
			case err == nil:
				seq = n
			case errors.Is(err, zerobuffer.ErrReaderDead):
				log.Error("reader gone", "err", err)
				return
			case errors.Is(err, zerobuffer.ErrBufferFull):
				log.Debug("buffer full, backing off one tick")
			default:
				log.Error("write failed", "err", err)
				return
			}
		}
	}
}
