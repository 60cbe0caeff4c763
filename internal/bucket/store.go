package bucket

import (
	"context"
	"time"
)

// Mode selects the storage backend.
type Mode string

const (
	ModeRemote Mode = "remote"
	ModeLocal  Mode = "local"
)

// UploadInput is a file to store. Data is held in memory so the transport
// chain can replay it on every primitive.
type UploadInput struct {
	FileName    string
	ContentType string
	Data        []byte
	ExternalID  string
	Tag1        string
	Tag2        string
	Tag3        string
	Description string
}

// Listing is what a Store returns for a list or search request.
type Listing struct {
	Records []StoredFileRecord
	// ProbeFiltered is set when the unauthenticated probe was refused, even
	// if a later primitive got through.
	ProbeFiltered bool
	Source        string
}

// Store is a storage backend behind the Gateway.
type Store interface {
	Upload(ctx context.Context, in UploadInput) (*StoredFileRecord, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f Filter) (*Listing, error)
}

// Diagnoser is implemented by stores that can check their own
// connectivity.
type Diagnoser interface {
	Diagnose(ctx context.Context) Diagnostics
}

// Diagnostics is a point-in-time connectivity report. It never carries an
// error; failures are described in the string fields.
type Diagnostics struct {
	Mode       Mode      `json:"mode"`
	Configured bool      `json:"configured"`
	BaseURL    string    `json:"baseUrl,omitempty"`
	CheckedAt  time.Time `json:"checkedAt"`

	Reachable   bool   `json:"reachable"`
	ReachStatus int    `json:"reachStatus,omitempty"`
	ReachError  string `json:"reachError,omitempty"`

	ProbeStatus        int    `json:"probeStatus,omitempty"`
	ProbeError         string `json:"probeError,omitempty"`
	SuspectedFiltering bool   `json:"suspectedFiltering"`

	TokenPresent   bool       `json:"tokenPresent"`
	TokenExpiresAt *time.Time `json:"tokenExpiresAt,omitempty"`
	TokenExpired   bool       `json:"tokenExpired"`
	TokenError     string     `json:"tokenError,omitempty"`

	Message string `json:"message,omitempty"`
}
