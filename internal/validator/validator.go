// Package validator checks raw payloads before any decode is attempted.
package validator

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"

	"github.com/c0d3rb4b4/image-optimizer/internal/codec"
	"github.com/c0d3rb4b4/image-optimizer/internal/entities"
)

// Outcome is the result of inspecting one payload.
type Outcome struct {
	OK      bool
	Format  codec.Format
	MIME    string
	Reason  entities.ErrorKind
	Message string
}

func rejected(kind entities.ErrorKind, msg string) Outcome {
	return Outcome{Reason: kind, Message: msg}
}

// Validate inspects the payload without decoding it. The declared filename
// and content type of the input are deliberately ignored: the detected
// content decides, so a text file named photo.jpg is still rejected.
func Validate(in entities.RawInput, maxBytes int64) Outcome {
	if len(in.Data) == 0 {
		return rejected(entities.KindEmptyPayload, "empty payload")
	}
	if maxBytes > 0 && int64(len(in.Data)) > maxBytes {
		return rejected(entities.KindSizeExceeded,
			fmt.Sprintf("payload is %d bytes, maximum is %d", len(in.Data), maxBytes))
	}

	mime := mimetype.Detect(in.Data)
	format, ok := codec.ParseMIME(mime.String())
	if !ok {
		return rejected(entities.KindUnsupportedFormat,
			fmt.Sprintf("unsupported content type %s", mime.String()))
	}

	return Outcome{OK: true, Format: format, MIME: mime.String()}
}
