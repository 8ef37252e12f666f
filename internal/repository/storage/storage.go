// Package storage persists one metadata row per stored output in Postgres.
package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/c0d3rb4b4/image-optimizer/internal/entities"
)

type dbStorage struct {
	dbpool *pgxpool.Pool
}

func New(ctx context.Context, databaseDSN string) (*dbStorage, error) {
	pool, err := pgxpool.New(ctx, databaseDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	return &dbStorage{dbpool: pool}, nil
}

func (s *dbStorage) Ping(ctx context.Context) error {
	return s.dbpool.Ping(ctx)
}

func (s *dbStorage) Close() {
	s.dbpool.Close()
}

// InsertImage records a stored output and returns the full row.
func (s *dbStorage) InsertImage(ctx context.Context, d entities.OutputDescriptor, mimeType string) (entities.Image, error) {
	const q = `
		INSERT INTO images (original_name, key, width, height, size, mime_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_timestamp`

	img := entities.Image{
		OriginalName: d.OriginalName,
		Key:          d.Key,
		Width:        d.Width,
		Height:       d.Height,
		Size:         d.Size,
		MimeType:     mimeType,
	}
	err := s.dbpool.QueryRow(ctx, q,
		d.OriginalName, d.Key, d.Width, d.Height, d.Size, mimeType,
	).Scan(&img.ID, &img.CreatedTimestamp)
	if err != nil {
		return entities.Image{}, fmt.Errorf("insert image %s: %w", d.Key, err)
	}
	return img, nil
}

// SetWebPKey marks the row for key with the location of its WebP variant.
func (s *dbStorage) SetWebPKey(ctx context.Context, key, webpKey string) error {
	const q = `UPDATE images SET webp_key = $2 WHERE key = $1`
	if _, err := s.dbpool.Exec(ctx, q, key, webpKey); err != nil {
		return fmt.Errorf("set webp key for %s: %w", key, err)
	}
	return nil
}
