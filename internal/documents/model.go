package documents

import "time"

// Document represents an uploaded legal document with its extracted text.
type Document struct {
	ID          string    `json:"id"`
	FileName    string    `json:"fileName"`
	MimeType    string    `json:"mimeType"`
	SizeBytes   int64     `json:"sizeBytes"`
	StorageKey  string    `json:"-"`
	TextContent string    `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
}
