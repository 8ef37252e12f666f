package entities

// RawInput is one image payload as received from the caller, before any
// decoding. The declared filename and content type are informational only;
// format detection works on the bytes.
type RawInput struct {
	Data        []byte
	Filename    string
	ContentType string

	// OutputName optionally overrides the stored filename; it is sanitized
	// before use.
	OutputName string
}

// TargetSpec describes the canvas every image is normalized to. Immutable
// once constructed; per-request overrides produce a new value.
type TargetSpec struct {
	Width   int
	Height  int
	Quality int    // 0-100, lossy formats only
	Format  string // output format name; empty means keep the source format
}

// OutputDescriptor identifies one stored output.
type OutputDescriptor struct {
	Path         string `json:"path"`
	Key          string `json:"key"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Size         int64  `json:"size"`
	OriginalName string `json:"original_name,omitempty"`
}

// ErrorKind classifies a per-item failure.
type ErrorKind string

const (
	KindSizeExceeded      ErrorKind = "size_exceeded"
	KindEmptyPayload      ErrorKind = "empty_payload"
	KindUnsupportedFormat ErrorKind = "unsupported_format"
	KindDecodeError       ErrorKind = "decode_error"
	KindTransformError    ErrorKind = "transform_error"
	KindEncodeError       ErrorKind = "encode_error"
	KindStorageError      ErrorKind = "storage_error"
	KindTimeout           ErrorKind = "timeout"
)

// Result is the outcome for exactly one input image.
type Result struct {
	Success    bool              `json:"success"`
	Filename   string            `json:"filename,omitempty"`
	Descriptor *OutputDescriptor `json:"descriptor,omitempty"`
	Kind       ErrorKind         `json:"error_kind,omitempty"`
	Message    string            `json:"error,omitempty"`
}

// Succeeded builds a success Result for the given descriptor.
func Succeeded(d OutputDescriptor) Result {
	return Result{Success: true, Filename: d.OriginalName, Descriptor: &d}
}

// Failed builds a failure Result for the named input.
func Failed(filename string, kind ErrorKind, message string) Result {
	return Result{Filename: filename, Kind: kind, Message: message}
}

// BatchSummary aggregates the ordered per-item results of one batch run.
// Results[i] always corresponds to the i-th submitted input.
type BatchSummary struct {
	Processed int      `json:"processed"`
	Failed    int      `json:"failed"`
	Results   []Result `json:"results"`
}

// Summarize counts successes and failures over ordered results.
func Summarize(results []Result) BatchSummary {
	s := BatchSummary{Results: results}
	for _, r := range results {
		if r.Success {
			s.Processed++
		} else {
			s.Failed++
		}
	}
	return s
}
