package handler

import "github.com/c0d3rb4b4/image-optimizer/internal/entities"

// OptimizeParams are the optional per-request overrides of the process-wide
// target canvas, parsed from multipart form fields.
type OptimizeParams struct {
	Width    int    `validate:"omitempty,gte=16,lte=8192"`
	Height   int    `validate:"omitempty,gte=16,lte=8192"`
	Quality  int    `validate:"omitempty,gte=1,lte=100"`
	Format   string `validate:"omitempty,oneof=jpeg jpg png gif webp bmp tiff tif"`
	Filename string `validate:"omitempty,max=255"`
}

// SingleResponse is the body for a successful single-image request.
type SingleResponse struct {
	Path   string `json:"path"`
	Key    string `json:"key"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Size   int64  `json:"size"`
}

// BatchResponse reports the per-item breakdown plus aggregate counts.
type BatchResponse struct {
	Processed int               `json:"processed"`
	Failed    int               `json:"failed"`
	Results   []entities.Result `json:"results"`
}

// HealthResponse is the body for the health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
