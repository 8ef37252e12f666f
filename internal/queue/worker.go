// Package queue generates WebP variants of stored outputs in the background.
// Jobs flow through a redis stream consumer group so a crashed worker's
// pending jobs are reclaimed on restart instead of lost.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"

	"github.com/c0d3rb4b4/image-optimizer/internal/codec"
	"github.com/c0d3rb4b4/image-optimizer/internal/config"
)

// VariantRecorder persists the variant key next to the original's metadata
// row once the variant exists on disk.
type VariantRecorder interface {
	SetWebPKey(ctx context.Context, key, webpKey string) error
}

// Mirror pushes the finished variant to remote storage.
type Mirror interface {
	Enqueue(ctx context.Context, key, contentType string, payload []byte) error
}

type Worker struct {
	rc        redis.UniversalClient
	cfg       config.WebPWorkerConfig
	outputDir string

	recorder VariantRecorder // optional
	mirror   Mirror          // optional
}

// Init wires a producer plus a running worker pool over the same stream.
func Init(ctx context.Context, rc redis.UniversalClient, cfg config.WebPWorkerConfig, outputDir string, recorder VariantRecorder, mirror Mirror) *Producer {
	producer := NewProducer(rc, cfg.Stream, cfg.MaxLen)
	worker := &Worker{rc: rc, cfg: cfg, outputDir: outputDir, recorder: recorder, mirror: mirror}

	go func() {
		if err := worker.Start(ctx); err != nil {
			log.Printf("[webp-worker] stopped: %v", err)
		}
	}()

	return producer
}

func (w *Worker) ensureGroup(ctx context.Context) error {
	// MkStream lets the group exist before the first message does.
	err := w.rc.XGroupCreateMkStream(ctx, w.cfg.Stream, w.cfg.Group, "0").Err()
	// BUSYGROUP just means the group already exists.
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

func (w *Worker) Start(ctx context.Context) error {
	if err := w.ensureGroup(ctx); err != nil {
		return fmt.Errorf("ensure consumer group: %w", err)
	}

	log.Printf("[webp-worker] starting group=%s stream=%s workers=%d",
		w.cfg.Group, w.cfg.Stream, w.cfg.Workers)

	w.autoClaim(ctx)

	workers := w.cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	errCh := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() { errCh <- w.loop(ctx) }()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("worker loop: %w", err)
		}
		return nil
	}
}

// autoClaim adopts messages that were delivered to a consumer that died
// before acknowledging them, so interrupted variant jobs are retried after a
// restart.
func (w *Worker) autoClaim(ctx context.Context) {
	minIdle := 30 * time.Second
	if t := w.cfg.BlockTimeout * 6; t > minIdle {
		minIdle = t
	}

	next := "0-0"
	for {
		msgs, start, err := w.rc.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   w.cfg.Stream,
			Group:    w.cfg.Group,
			Consumer: w.cfg.Consumer,
			MinIdle:  minIdle,
			Start:    next,
			Count:    100,
		}).Result()
		if err != nil || len(msgs) == 0 {
			return
		}
		next = start
	}
}

func (w *Worker) loop(ctx context.Context) error {
	for {
		streams, err := w.rc.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    w.cfg.Group,
			Consumer: w.cfg.Consumer,
			Streams:  []string{w.cfg.Stream, ">"},
			Count:    1,
			Block:    w.cfg.BlockTimeout,
		}).Result()
		if err != nil && err != redis.Nil {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}
		for _, s := range streams {
			for _, m := range s.Messages {
				if err := w.handle(ctx, m); err != nil {
					sentry.CaptureException(err)
				}
			}
		}
	}
}

func (w *Worker) handle(ctx context.Context, m redis.XMessage) error {
	defer w.rc.XAck(ctx, w.cfg.Stream, w.cfg.Group, m.ID)

	raw, ok := m.Values["payload"].(string)
	if !ok {
		return fmt.Errorf("message %s has no payload", m.ID)
	}
	var job VariantJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return fmt.Errorf("decode job %s: %w", m.ID, err)
	}
	attempt := toInt(m.Values["attempt"])

	err := w.process(ctx, job)
	if err == nil {
		return nil
	}
	if attempt+1 >= w.cfg.MaxAttempts {
		return fmt.Errorf("giving up on %s after %d attempts: %w", job.Key, attempt+1, err)
	}

	// exponential backoff requeue
	backoff := w.cfg.BackoffBase << attempt
	time.AfterFunc(backoff, func() {
		_ = w.rc.XAdd(context.Background(), &redis.XAddArgs{
			Stream: w.cfg.Stream,
			MaxLen: w.cfg.MaxLen,
			Values: map[string]any{
				"payload": raw,
				"attempt": attempt + 1,
			},
		}).Err()
	})
	return err
}

func (w *Worker) process(ctx context.Context, job VariantJob) error {
	// The key never leaves the output dir; anything with a path separator
	// in it did not come from our producer.
	if job.Key == "" || job.Key != filepath.Base(job.Key) {
		return fmt.Errorf("refusing suspicious key %q", job.Key)
	}

	src := filepath.Join(w.outputDir, job.Key)
	orig, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}

	img, _, err := codec.Decode(orig)
	if err != nil {
		return fmt.Errorf("decode %s: %w", job.Key, err)
	}

	data, err := codec.Encode(img, codec.WebP, w.cfg.Quality)
	if err != nil {
		return fmt.Errorf("encode webp for %s: %w", job.Key, err)
	}

	webpKey := job.Key + ".webp"
	if err := writeAtomic(filepath.Join(w.outputDir, webpKey), data); err != nil {
		return fmt.Errorf("store %s: %w", webpKey, err)
	}

	log.Printf("[webp-worker] %s -> %s (%d bytes)", job.Key, webpKey, len(data))

	if w.recorder != nil {
		if err := w.recorder.SetWebPKey(ctx, job.Key, webpKey); err != nil {
			log.Printf("[webp-worker] record variant key %s: %v", webpKey, err)
		}
	}
	if w.mirror != nil {
		if err := w.mirror.Enqueue(ctx, webpKey, "image/webp", data); err != nil {
			log.Printf("[webp-worker] mirror %s: %v", webpKey, err)
		}
	}
	return nil
}

// writeAtomic replaces path in one rename. A rerun of the same job may
// overwrite its own previous variant, which is fine; originals are never
// written through this path.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".webp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

func toInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case string:
		var x int
		fmt.Sscanf(t, "%d", &x)
		return x
	default:
		return 0
	}
}
