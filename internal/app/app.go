package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/c0d3rb4b4/image-optimizer/cmd/migrate"
	"github.com/c0d3rb4b4/image-optimizer/internal/cache"
	"github.com/c0d3rb4b4/image-optimizer/internal/config"
	"github.com/c0d3rb4b4/image-optimizer/internal/entities"
	"github.com/c0d3rb4b4/image-optimizer/internal/mirror"
	"github.com/c0d3rb4b4/image-optimizer/internal/pipeline"
	"github.com/c0d3rb4b4/image-optimizer/internal/queue"
	"github.com/c0d3rb4b4/image-optimizer/internal/redisholder"
	"github.com/c0d3rb4b4/image-optimizer/internal/repository/storage"
	"github.com/c0d3rb4b4/image-optimizer/internal/transport/handler"
	"github.com/c0d3rb4b4/image-optimizer/internal/transport/router"
	"github.com/c0d3rb4b4/image-optimizer/internal/writer"
)

type App struct {
	HttpServer *http.Server
}

// Repository is what the stored hook and the variant worker need from the
// metadata store.
type Repository interface {
	InsertImage(ctx context.Context, d entities.OutputDescriptor, mimeType string) (entities.Image, error)
	SetWebPKey(ctx context.Context, key, webpKey string) error
}

func New(cfg *config.Config) (*App, error) {
	ctx := context.Background()

	w, err := writer.New(cfg.Storage.OutputDir)
	if err != nil {
		return nil, err
	}

	p := pipeline.New(w, cfg.MaxImageBytes())

	var repo Repository
	if cfg.Database.DSN != "" {
		if err := migrate.Migrate(cfg.Database.DSN, migrate.Migrations); err != nil {
			return nil, err
		}
		dbRepo, err := storage.New(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		repo = dbRepo
	} else {
		log.Printf("no database configured; metadata rows disabled")
	}

	var mirrorStorage *mirror.Storage
	if cfg.Mirror.Enabled {
		mirrorStorage, err = mirror.New(&cfg.Mirror)
		if err != nil {
			return nil, err
		}
	}

	var producer *queue.Producer
	if len(cfg.Redis.Nodes) > 0 {
		holder, err := redisholder.Build(ctx, cfg)
		if err != nil {
			return nil, err
		}
		rc := holder.Get()

		results := cache.New("optimizer:results", cfg.Redis.CacheTTL*time.Second, rc)
		if cfg.Redis.FlushCacheOnStart {
			// Cached descriptors point at files under the output dir; purge
			// them when the operator signals the dir was rebuilt.
			if err := results.Flush(ctx); err != nil {
				log.Printf("flush result cache: %v", err)
			}
		}
		p.SetCache(results)

		var recorder queue.VariantRecorder
		if repo != nil {
			recorder = repo
		}
		var variantMirror queue.Mirror
		if mirrorStorage != nil {
			variantMirror = mirrorStorage
		}
		producer = queue.Init(ctx, rc, cfg.WebP, w.Root(), recorder, variantMirror)
	} else {
		log.Printf("no redis configured; result cache and webp variants disabled")
	}

	p.SetStoredHook(storedHook(repo, producer, mirrorStorage))

	o := pipeline.NewOrchestrator(p, cfg.Batch.Workers, cfg.Batch.RequestTimeout*time.Second)
	h := handler.New(o, cfg)
	r := router.NewRouter(h)

	log.Printf("target canvas %dx%d quality=%d, max image size %dMB, output dir %s",
		cfg.Target.Width, cfg.Target.Height, cfg.Target.Quality,
		cfg.Upload.MaxImageSizeMB, cfg.Storage.OutputDir)

	s := &http.Server{
		Handler:      r,
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		ReadTimeout:  cfg.Server.ReadTimeout * time.Second,
		WriteTimeout: cfg.Server.WriteTimeout * time.Second,
	}

	return &App{HttpServer: s}, nil
}

// storedHook fans a freshly stored output out to the optional collaborators.
// Side effects run on a context detached from the request so an early client
// disconnect cannot cancel them.
func storedHook(repo Repository, producer *queue.Producer, mirrorStorage *mirror.Storage) pipeline.StoredHook {
	return func(ctx context.Context, d entities.OutputDescriptor, mime string) {
		ctx = context.WithoutCancel(ctx)

		if repo != nil {
			if _, err := repo.InsertImage(ctx, d, mime); err != nil {
				log.Printf("record image %s: %v", d.Key, err)
				sentry.CaptureException(err)
			}
		}
		if producer != nil {
			if err := producer.Enqueue(ctx, queue.VariantJob{Key: d.Key, ContentType: mime}); err != nil {
				log.Printf("enqueue webp variant for %s: %v", d.Key, err)
			}
		}
		if mirrorStorage != nil {
			data, err := os.ReadFile(d.Path)
			if err != nil {
				log.Printf("read %s for mirror: %v", d.Path, err)
				return
			}
			if err := mirrorStorage.Enqueue(ctx, d.Key, mime, data); err != nil {
				log.Printf("mirror %s: %v", d.Key, err)
			}
		}
	}
}

func (a *App) Run() error {
	log.Printf("starting server on %s", a.HttpServer.Addr)
	return a.HttpServer.ListenAndServe()
}
