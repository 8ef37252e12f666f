// Package pipeline composes validation, decode, transform, and encode/store
// into a per-image run, and fans the run out over batches.
package pipeline

import (
	"context"
	"crypto/sha1"
	"errors"
	"fmt"
	"log"

	"github.com/c0d3rb4b4/image-optimizer/internal/codec"
	"github.com/c0d3rb4b4/image-optimizer/internal/entities"
	"github.com/c0d3rb4b4/image-optimizer/internal/transform"
	"github.com/c0d3rb4b4/image-optimizer/internal/validator"
	"github.com/c0d3rb4b4/image-optimizer/internal/writer"
)

// ResultCache short-circuits reprocessing of payloads seen before. A miss is
// never an error; a broken cache only costs the shortcut.
type ResultCache interface {
	Lookup(ctx context.Context, digest string) (entities.OutputDescriptor, bool)
	Store(ctx context.Context, digest string, d entities.OutputDescriptor)
}

// StoredHook runs after an output landed on disk. Used to record metadata,
// enqueue variant jobs, and mirror uploads without the pipeline knowing any
// of those collaborators.
type StoredHook func(ctx context.Context, d entities.OutputDescriptor, mime string)

type Pipeline struct {
	writer   *writer.Writer
	maxBytes int64

	cache    ResultCache
	onStored StoredHook
}

func New(w *writer.Writer, maxBytes int64) *Pipeline {
	return &Pipeline{writer: w, maxBytes: maxBytes}
}

func (p *Pipeline) SetCache(c ResultCache)     { p.cache = c }
func (p *Pipeline) SetStoredHook(h StoredHook) { p.onStored = h }

// Process runs one image through the full pipeline and always returns
// exactly one Result; failures are reported, never raised.
func (p *Pipeline) Process(ctx context.Context, in entities.RawInput, spec entities.TargetSpec) entities.Result {
	if err := ctx.Err(); err != nil {
		return entities.Failed(in.Filename, entities.KindTimeout, "request deadline exceeded")
	}

	out := validator.Validate(in, p.maxBytes)
	if !out.OK {
		return entities.Failed(in.Filename, out.Reason, out.Message)
	}

	format := out.Format
	if f, ok := codec.ParseFormat(spec.Format); ok {
		format = f
	}

	digest := requestDigest(in, spec, format)
	if p.cache != nil {
		if d, ok := p.cache.Lookup(ctx, digest); ok {
			return entities.Succeeded(d)
		}
	}

	img, _, err := codec.Decode(in.Data)
	if err != nil {
		return entities.Failed(in.Filename, entities.KindDecodeError, err.Error())
	}

	if err := ctx.Err(); err != nil {
		return entities.Failed(in.Filename, entities.KindTimeout, "request deadline exceeded")
	}

	img, err = transform.Apply(img, spec)
	if err != nil {
		return entities.Failed(in.Filename, entities.KindTransformError, err.Error())
	}
	if !format.SupportsAlpha() && transform.HasAlpha(img) {
		img = transform.Flatten(img)
	}

	if err := ctx.Err(); err != nil {
		return entities.Failed(in.Filename, entities.KindTimeout, "request deadline exceeded")
	}

	desc, err := p.writer.EncodeAndStore(img, format, spec.Quality, in.OutputName, in.Filename)
	if err != nil {
		kind := entities.KindStorageError
		var werr *writer.Error
		if errors.As(err, &werr) {
			kind = werr.Kind
		}
		return entities.Failed(in.Filename, kind, err.Error())
	}

	log.Printf("[pipeline] stored %s (%dx%d, %d bytes)", desc.Key, desc.Width, desc.Height, desc.Size)

	if p.cache != nil {
		p.cache.Store(ctx, digest, desc)
	}
	if p.onStored != nil {
		p.onStored(ctx, desc, format.MIME())
	}

	return entities.Succeeded(desc)
}

// requestDigest fingerprints the payload together with everything that
// shapes the output, including both naming inputs: the same bytes uploaded
// under a different filename produce a differently named file and must not
// share a cache entry.
func requestDigest(in entities.RawInput, spec entities.TargetSpec, format codec.Format) string {
	sum := sha1.Sum(in.Data)
	return fmt.Sprintf("%x:%dx%d:q%d:%s:%s:%s", sum, spec.Width, spec.Height, spec.Quality, format, in.OutputName, in.Filename)
}
