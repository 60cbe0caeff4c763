// Package bucket is the storage gateway: it uploads, lists, searches and
// deletes stored files on a remote HTTP bucket or on the local backend.
//
// The remote bucket intermittently refuses requests with 403 and returns
// inconsistently shaped JSON. The transport subpackage escalates across
// HTTP mechanisms, the parser subpackage decodes whatever comes back, and
// Gateway applies the query semantics on top so results are consistent no
// matter which backend answered.
package bucket

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/aikea/internal/common"
	"github.com/dmitrijs2005/aikea/internal/logging"
)

// Config is the immutable gateway configuration.
type Config struct {
	Mode    Mode
	BaseURL string
	Token   string
}

// Configured reports whether data operations may run. The remote backend
// needs both a base URL and a token.
func (c Config) Configured() bool {
	if c.Mode == ModeLocal {
		return true
	}
	return c.BaseURL != "" && c.Token != ""
}

// Stats summarises the last successful full listing. It is computed
// without network access.
type Stats struct {
	TotalFiles     int        `json:"totalFiles"`
	TotalSizeBytes int64      `json:"totalSizeBytes"`
	Configured     bool       `json:"configured"`
	Mode           Mode       `json:"mode"`
	BaseURL        string     `json:"baseUrl,omitempty"`
	HasToken       bool       `json:"hasToken"`
	LastListedAt   *time.Time `json:"lastListedAt,omitempty"`
}

type snapshot struct {
	files    int
	size     int64
	listedAt time.Time
}

// OperationObserver receives the duration and result of every gateway
// operation.
type OperationObserver interface {
	RecordOperation(op string, err error, d time.Duration)
}

type nopOperationObserver struct{}

func (nopOperationObserver) RecordOperation(string, error, time.Duration) {}

// Gateway is safe for concurrent use. Its only mutable state is the stats
// snapshot, which is swapped atomically.
type Gateway struct {
	cfg      Config
	store    Store
	logger   logging.Logger
	observer OperationObserver
	last     atomic.Pointer[snapshot]
	now      func() time.Time
}

type Option func(*Gateway)

func WithOperationObserver(o OperationObserver) Option {
	return func(g *Gateway) {
		if o != nil {
			g.observer = o
		}
	}
}

func NewGateway(cfg Config, store Store, logger logging.Logger, opts ...Option) *Gateway {
	if cfg.Mode == "" {
		cfg.Mode = ModeRemote
	}
	g := &Gateway{
		cfg:      cfg,
		store:    store,
		logger:   logger.With("module", "gateway"),
		observer: nopOperationObserver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) IsConfigured() bool {
	return g.cfg.Configured() && g.store != nil
}

func (g *Gateway) ready() error {
	if !g.IsConfigured() {
		return common.ErrUnconfigured
	}
	return nil
}

func (g *Gateway) observe(op string, start time.Time, err error) {
	g.observer.RecordOperation(op, err, g.now().Sub(start))
}

// Upload stores in. A missing external id becomes auto_<unix millis> and a
// missing file name is generated from the external id and first tag.
func (g *Gateway) Upload(ctx context.Context, in UploadInput) (rec *StoredFileRecord, err error) {
	start := g.now()
	defer func() { g.observe("upload", start, err) }()

	if err := g.ready(); err != nil {
		return nil, err
	}
	if len(in.Data) == 0 {
		return nil, fmt.Errorf("%w: file is empty", common.ErrValidation)
	}

	millis := strconv.FormatInt(start.UnixMilli(), 10)
	if strings.TrimSpace(in.ExternalID) == "" {
		in.ExternalID = "auto_" + millis
	}
	if strings.TrimSpace(in.FileName) == "" {
		in.FileName = generatedFileName(in.ExternalID, in.Tag1, millis)
	}

	rec, err = g.store.Upload(ctx, in)
	if err != nil {
		g.logger.Error(ctx, "upload failed", "file", in.FileName, "external_id", in.ExternalID, "error", err)
		return nil, err
	}
	return rec, nil
}

func generatedFileName(externalID, tag1, millis string) string {
	parts := []string{"generated"}
	if externalID != "" {
		parts = append(parts, externalID)
	}
	if tag1 != "" {
		parts = append(parts, tag1)
	}
	parts = append(parts, millis)
	return strings.Join(parts, "_") + ".pdf"
}

// Delete removes id. A missing object yields an error matching
// common.ErrorNotFound.
func (g *Gateway) Delete(ctx context.Context, id string) (err error) {
	start := g.now()
	defer func() { g.observe("delete", start, err) }()

	if err := g.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: id is required", common.ErrValidation)
	}
	if id == FilteredRecordID {
		return common.ErrorNotFound
	}
	return g.store.Delete(ctx, id)
}

// ListAll returns every stored record. When the bucket appears to filter
// this host and nothing could be listed, the result is a single diagnostic
// record instead of an error.
func (g *Gateway) ListAll(ctx context.Context) (records []StoredFileRecord, err error) {
	start := g.now()
	defer func() { g.observe("list", start, err) }()

	if err := g.ready(); err != nil {
		return nil, err
	}

	listing, err := g.store.List(ctx, Filter{})
	switch {
	case errors.Is(err, common.ErrSuspectedFiltering):
		g.logger.Warn(ctx, "bucket listing refused, returning filtering notice", "error", err)
		return []StoredFileRecord{FilteredRecord()}, nil
	case err != nil:
		return nil, err
	case listing.ProbeFiltered && len(listing.Records) == 0:
		g.logger.Warn(ctx, "probe refused and fallback listing is empty, returning filtering notice")
		return []StoredFileRecord{FilteredRecord()}, nil
	}

	records = Filter{}.Apply(listing.Records)
	g.remember(records)
	return records, nil
}

// SearchByPattern matches pattern case-insensitively against ID, name and
// external id. An empty pattern is ListAll.
func (g *Gateway) SearchByPattern(ctx context.Context, pattern string) ([]StoredFileRecord, error) {
	if strings.TrimSpace(pattern) == "" {
		return g.ListAll(ctx)
	}
	return g.search(ctx, "search_pattern", Filter{Pattern: pattern})
}

// SearchByTags returns records whose tags equal every non-empty argument.
func (g *Gateway) SearchByTags(ctx context.Context, tag1, tag2, tag3 string) ([]StoredFileRecord, error) {
	return g.search(ctx, "search_tags", Filter{Tag1: tag1, Tag2: tag2, Tag3: tag3})
}

// SearchByExternalID returns records whose external id contains id.
func (g *Gateway) SearchByExternalID(ctx context.Context, id string) ([]StoredFileRecord, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: external id is required", common.ErrValidation)
	}
	return g.search(ctx, "search_external_id", Filter{ExternalID: id})
}

// FindByID returns the record whose ID equals id.
func (g *Gateway) FindByID(ctx context.Context, id string) (rec *StoredFileRecord, err error) {
	start := g.now()
	defer func() { g.observe("find", start, err) }()

	if err := g.ready(); err != nil {
		return nil, err
	}

	listing, err := g.store.List(ctx, Filter{})
	if err != nil {
		return nil, err
	}
	records := Filter{}.Apply(listing.Records)
	g.remember(records)

	for _, r := range records {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (g *Gateway) search(ctx context.Context, op string, f Filter) (records []StoredFileRecord, err error) {
	start := g.now()
	defer func() { g.observe(op, start, err) }()

	if err := g.ready(); err != nil {
		return nil, err
	}

	listing, err := g.store.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return f.Apply(listing.Records), nil
}

func (g *Gateway) remember(records []StoredFileRecord) {
	s := &snapshot{files: len(records), listedAt: g.now().UTC()}
	for _, r := range records {
		s.size += r.SizeBytes
	}
	g.last.Store(s)
}

// Stats reports configuration and the totals of the last full listing.
func (g *Gateway) Stats() Stats {
	st := Stats{
		Configured: g.IsConfigured(),
		Mode:       g.cfg.Mode,
		BaseURL:    g.cfg.BaseURL,
		HasToken:   g.cfg.Token != "",
	}
	if s := g.last.Load(); s != nil {
		st.TotalFiles = s.files
		st.TotalSizeBytes = s.size
		at := s.listedAt
		st.LastListedAt = &at
	}
	return st
}

// Diagnose reports connectivity. It never fails; an unconfigured gateway
// returns a report saying so.
func (g *Gateway) Diagnose(ctx context.Context) Diagnostics {
	if !g.IsConfigured() {
		return Diagnostics{
			Mode:         g.cfg.Mode,
			BaseURL:      g.cfg.BaseURL,
			TokenPresent: g.cfg.Token != "",
			CheckedAt:    g.now().UTC(),
			Message:      common.ErrUnconfigured.Error(),
		}
	}
	if d, ok := g.store.(Diagnoser); ok {
		return d.Diagnose(ctx)
	}
	return Diagnostics{
		Mode:       g.cfg.Mode,
		Configured: true,
		Reachable:  true,
		CheckedAt:  g.now().UTC(),
		Message:    "local storage backend",
	}
}
