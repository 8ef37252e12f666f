package queue

// VariantJob asks the worker to produce a WebP variant of a stored output.
// Only the key travels through redis; the worker reads the bytes from the
// output directory itself.
type VariantJob struct {
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
}
