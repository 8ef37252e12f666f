package config

import (
	"fmt"
	"time"
)

type Config struct {
	Server   ServerConfig     `json:"server"`
	Upload   UploadConfig     `json:"upload"`
	Target   TargetConfig     `json:"target"`
	Storage  StorageConfig    `json:"storage"`
	Batch    BatchConfig      `json:"batch"`
	Database Database         `json:"database"`
	Redis    RedisConfig      `json:"redis"`
	Mirror   MirrorConfig     `json:"mirror"`
	WebP     WebPWorkerConfig `json:"webp_worker"`
	Sentry   SentryConfig     `json:"sentry"`
}

type ServerConfig struct {
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

type UploadConfig struct {
	MaxRequestBodyMB     int64 `json:"max_request_body"`
	MaxMultipartMemoryMB int64 `json:"max_multipart_memory"`
	MaxImageSizeMB       int64 `json:"max_image_size"`
}

// TargetConfig is the process-wide default canvas; requests may override
// individual fields.
type TargetConfig struct {
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Quality int    `json:"quality"`
	Format  string `json:"format"` // empty: keep the source format
}

type StorageConfig struct {
	OutputDir string `json:"output_dir"`
}

type BatchConfig struct {
	Workers        int           `json:"workers"`         // 0: one per CPU
	RequestTimeout time.Duration `json:"request_timeout"` // seconds; 0: no ceiling
}

type Database struct {
	DSN string `json:"dsn"`
}

type RedisConfig struct {
	Password            string        `json:"password"`
	DatabaseID          int           `json:"database_id"`
	HealthCheckInterval time.Duration `json:"health_check_interval"`
	DialTimeout         time.Duration `json:"dial_timeout"`
	ReadTimeout         time.Duration `json:"read_timeout"`
	WriteTimeout        time.Duration `json:"write_timeout"`
	CacheTTL            time.Duration `json:"cache_ttl"` // seconds; result dedupe cache
	FlushCacheOnStart   bool          `json:"flush_cache_on_start"`
	Nodes               []RedisNode   `json:"nodes"`
}

type RedisNode struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func (n RedisNode) Addr() string { return fmt.Sprintf("%s:%d", n.Host, n.Port) }

// MirrorConfig points at an S3-compatible bucket (Cloudflare R2) that
// stored outputs are copied to in the background. Disabled when empty.
type MirrorConfig struct {
	Enabled     bool   `json:"enabled"`
	AccountID   string `json:"account_id"`
	BucketName  string `json:"bucket_name"`
	AccessKeyID string `json:"access_key_id"`
	SecretKey   string `json:"secret_key"`
}

type WebPWorkerConfig struct {
	Stream       string        `json:"stream"`        // redis stream name
	Group        string        `json:"group"`         // consumer group name
	Consumer     string        `json:"consumer"`      // consumer name within the group
	Workers      int           `json:"workers"`       // concurrent consumers
	MaxAttempts  int           `json:"max_attempts"`  // retries before a job is dropped
	MaxLen       int64         `json:"max_len"`       // stream trim length
	BackoffBase  time.Duration `json:"backoff_base"`  // base retry delay
	BlockTimeout time.Duration `json:"block_timeout"` // XREADGROUP block timeout
	Quality      int           `json:"quality"`       // webp variant quality
}

type SentryConfig struct {
	SentryDSN   string `json:"sentry_dsn"`
	Environment string `json:"environment"`
}
