package config

import (
	"encoding/json"
	"fmt"
	"os"
)

const (
	defaultTargetWidth  = 2560
	defaultTargetHeight = 1440
	defaultQuality      = 95
	defaultMaxImageMB   = 50
)

// Create new config instance
func NewConfig() *Config {
	return &Config{}
}

// Load configuration file in json format
func (c *Config) Read(file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", file, err)
	}
	c.applyDefaults()
	return c.Validate()
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Target.Width == 0 {
		c.Target.Width = defaultTargetWidth
	}
	if c.Target.Height == 0 {
		c.Target.Height = defaultTargetHeight
	}
	if c.Target.Quality == 0 {
		c.Target.Quality = defaultQuality
	}
	if c.Upload.MaxImageSizeMB == 0 {
		c.Upload.MaxImageSizeMB = defaultMaxImageMB
	}
	if c.Upload.MaxRequestBodyMB == 0 {
		// batch uploads: leave room for several images per request
		c.Upload.MaxRequestBodyMB = 4 * c.Upload.MaxImageSizeMB
	}
	if c.Upload.MaxMultipartMemoryMB == 0 {
		c.Upload.MaxMultipartMemoryMB = 32
	}
	if c.WebP.Quality == 0 {
		c.WebP.Quality = 80
	}
}

// Validate catches the configuration errors that must abort startup rather
// than surface per request.
func (c *Config) Validate() error {
	if c.Target.Width <= 0 || c.Target.Height <= 0 {
		return fmt.Errorf("invalid target dimensions %dx%d", c.Target.Width, c.Target.Height)
	}
	if c.Target.Quality < 1 || c.Target.Quality > 100 {
		return fmt.Errorf("quality %d out of range 1-100", c.Target.Quality)
	}
	if c.Storage.OutputDir == "" {
		return fmt.Errorf("storage.output_dir is required")
	}
	if c.Mirror.Enabled && (c.Mirror.AccountID == "" || c.Mirror.BucketName == "") {
		return fmt.Errorf("mirror enabled but account_id/bucket_name missing")
	}
	return nil
}

// MaxImageBytes returns the per-image payload limit in bytes.
func (c *Config) MaxImageBytes() int64 { return c.Upload.MaxImageSizeMB << 20 }
