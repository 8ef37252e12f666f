// Package mirror copies stored outputs to an S3-compatible bucket
// (Cloudflare R2) off the request path, through a bounded upload queue with
// retries. A full queue sheds load instead of blocking the pipeline.
package mirror

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/getsentry/sentry-go"

	conf "github.com/c0d3rb4b4/image-optimizer/internal/config"
)

var ErrQueueFull = errors.New("mirror queue is full")

type uploadReq struct {
	ctx         context.Context
	key         string
	contentType string
	payload     []byte
}

type Storage struct {
	bucket string

	workers        int
	queueSize      int
	maxRetries     int
	retryBaseDelay time.Duration

	queue chan uploadReq
	wg    sync.WaitGroup

	uploader *manager.Uploader
}

// New builds the R2 client and starts the upload worker pool.
func New(cfg *conf.MirrorConfig) (*Storage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretKey, "",
		)),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID))
		o.UsePathStyle = true
	})

	m := &Storage{
		bucket:         cfg.BucketName,
		workers:        4,
		queueSize:      256,
		maxRetries:     3,
		retryBaseDelay: 300 * time.Millisecond,
		uploader:       manager.NewUploader(client),
	}

	m.queue = make(chan uploadReq, m.queueSize)
	for i := 0; i < m.workers; i++ {
		m.wg.Add(1)
		go m.worker()
	}

	log.Printf("[mirror] uploading to bucket %s with %d workers", m.bucket, m.workers)
	return m, nil
}

// Close drains the queue and waits for in-flight uploads.
func (m *Storage) Close() {
	close(m.queue)
	m.wg.Wait()
}

// Enqueue schedules an upload without blocking; a full queue returns
// ErrQueueFull and the object simply stays local-only.
func (m *Storage) Enqueue(ctx context.Context, key, contentType string, payload []byte) error {
	req := uploadReq{ctx: ctx, key: key, contentType: contentType, payload: payload}
	select {
	case m.queue <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

func (m *Storage) worker() {
	defer m.wg.Done()
	for req := range m.queue {
		if err := m.uploadWithRetry(req); err != nil {
			log.Printf("[mirror] upload %s failed: %v", req.key, err)
			sentry.CaptureException(err)
		}
	}
}

func (m *Storage) uploadWithRetry(req uploadReq) error {
	var err error
	for attempt := 1; ; attempt++ {
		_, err = m.uploader.Upload(req.ctx, &s3.PutObjectInput{
			Bucket:      aws.String(m.bucket),
			Key:         aws.String(req.key),
			Body:        bytes.NewReader(req.payload),
			ContentType: aws.String(req.contentType),
		})
		if err == nil {
			return nil
		}
		if attempt > m.maxRetries || req.ctx.Err() != nil {
			return fmt.Errorf("upload %s after %d attempts: %w", req.key, attempt, err)
		}

		timer := time.NewTimer(m.backoffDelay(attempt))
		select {
		case <-timer.C:
		case <-req.ctx.Done():
			timer.Stop()
		}
	}
}

func (m *Storage) backoffDelay(attempt int) time.Duration {
	delay := m.retryBaseDelay << (attempt - 1)
	jitter := time.Duration(int64(delay) / 10)
	return delay - (jitter / 2) + time.Duration(time.Now().UnixNano()%int64(jitter+1))
}
