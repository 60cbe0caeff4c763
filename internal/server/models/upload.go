// Package models defines server-side data models persisted in the database.
package models

import "time"

// Upload is the bookkeeping row for a file kept by the local storage
// backend. The bytes themselves live in a blob store under StorageKey.
type Upload struct {
	// ID is the server-generated UUID, also the public record ID.
	ID string
	// ExternalID is the caller-supplied correlation key.
	ExternalID string
	// FileName is the stored object name; OriginalName is what the client sent.
	FileName     string
	OriginalName string
	MimeType     string
	Size         int64
	// StorageKey is the blob-store key (disk path suffix or S3 object key).
	StorageKey  string
	Tag1        string
	Tag2        string
	Tag3        string
	Description string
	// Checksum is the hex BLAKE2b-256 of the content.
	Checksum   string
	UploadedAt time.Time
}

// UploadQuery narrows a listing. Empty fields impose no constraint.
type UploadQuery struct {
	Pattern    string
	Tag1       string
	Tag2       string
	Tag3       string
	ExternalID string
}
