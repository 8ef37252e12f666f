package entities

import "time"

// Image is the metadata row persisted for every stored output.
type Image struct {
	ID               int64     `json:"id"`
	OriginalName     string    `json:"original_name"`
	Key              string    `json:"key"`
	Width            int       `json:"width"`
	Height           int       `json:"height"`
	Size             int64     `json:"size"`
	MimeType         string    `json:"mime_type"`
	WebPKey          *string   `json:"webp_key,omitempty"`
	CreatedTimestamp time.Time `json:"created_timestamp"`
}
