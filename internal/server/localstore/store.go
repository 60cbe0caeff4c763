// Package localstore is the local backend of the storage gateway: blob
// bytes go to a BlobStore (disk or S3) and bookkeeping rows to the uploads
// table.
package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/aikea/internal/bucket"
	"github.com/dmitrijs2005/aikea/internal/common"
	"github.com/dmitrijs2005/aikea/internal/cryptox"
	"github.com/dmitrijs2005/aikea/internal/dbx"
	"github.com/dmitrijs2005/aikea/internal/logging"
	"github.com/dmitrijs2005/aikea/internal/server/models"
	"github.com/dmitrijs2005/aikea/internal/server/repositories/repomanager"
)

// Store implements bucket.Store on a database and a BlobStore.
type Store struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	blobs  BlobStore
	logger logging.Logger
	now    func() time.Time
}

func New(db *sql.DB, repos repomanager.RepositoryManager, blobs BlobStore, logger logging.Logger) *Store {
	return &Store{
		db:     db,
		repos:  repos,
		blobs:  blobs,
		logger: logger.With("module", "localstore", "blobs", blobs.Name()),
		now:    time.Now,
	}
}

// DetectContentType returns the declared type unless it is missing or
// generic, in which case the content is sniffed.
func DetectContentType(declared string, data []byte) string {
	if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "application/octet-stream" {
		return mt
	}
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return mt
}

// Accepted reports whether contentType may be stored locally: PDFs and
// images only.
func Accepted(contentType string) bool {
	return contentType == "application/pdf" || strings.HasPrefix(contentType, "image/")
}

func (s *Store) Upload(ctx context.Context, in bucket.UploadInput) (*bucket.StoredFileRecord, error) {
	ct := DetectContentType(in.ContentType, in.Data)
	if !Accepted(ct) {
		return nil, fmt.Errorf("%w: only PDF and image files are accepted, got %s", common.ErrValidation, ct)
	}

	now := s.now().UTC()
	key, id := NewStorageKey(now, in.FileName)
	u := &models.Upload{
		ID:           id,
		ExternalID:   in.ExternalID,
		FileName:     path.Base(key),
		OriginalName: in.FileName,
		MimeType:     ct,
		Size:         int64(len(in.Data)),
		StorageKey:   key,
		Tag1:         in.Tag1,
		Tag2:         in.Tag2,
		Tag3:         in.Tag3,
		Description:  in.Description,
		Checksum:     cryptox.Checksum(in.Data),
		UploadedAt:   now,
	}

	if err := s.blobs.Put(ctx, key, ct, in.Data); err != nil {
		return nil, &common.OperationError{Op: "upload", Err: fmt.Errorf("%w: %w", common.ErrUploadFailed, err)}
	}

	link, err := s.blobs.URL(ctx, key)
	if err == nil {
		err = s.repos.Uploads(s.db).Create(ctx, u)
	}
	if err != nil {
		if derr := s.blobs.Delete(ctx, key); derr != nil {
			s.logger.Error(ctx, "orphan blob after failed upload", "key", key, "error", derr)
		}
		return nil, &common.OperationError{Op: "upload", Err: fmt.Errorf("%w: %w", common.ErrUploadFailed, err)}
	}

	s.logger.Info(ctx, "file stored", "id", u.ID, "key", key, "bytes", u.Size)
	return record(u, link), nil
}

// Delete removes the row and the blob in one transaction: if the blob
// cannot be removed the row stays.
func (s *Store) Delete(ctx context.Context, id string) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Uploads(tx)
		u, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := repo.Delete(ctx, id); err != nil {
			return err
		}
		return s.blobs.Delete(ctx, u.StorageKey)
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return &common.OperationError{Op: "delete", Status: http.StatusNotFound, Err: fmt.Errorf("%w: %w", common.ErrDeleteFailed, common.ErrorNotFound)}
		}
		return &common.OperationError{Op: "delete", Err: fmt.Errorf("%w: %w", common.ErrDeleteFailed, err)}
	}
	s.logger.Info(ctx, "file deleted", "id", id)
	return nil
}

// List pushes f down to SQL; the gateway filters the result again.
func (s *Store) List(ctx context.Context, f bucket.Filter) (*bucket.Listing, error) {
	rows, err := s.repos.Uploads(s.db).List(ctx, models.UploadQuery{
		Pattern:    f.Pattern,
		Tag1:       f.Tag1,
		Tag2:       f.Tag2,
		Tag3:       f.Tag3,
		ExternalID: f.ExternalID,
	})
	if err != nil {
		return nil, &common.OperationError{Op: "list", Err: fmt.Errorf("%w: %w", common.ErrListFailed, err)}
	}

	records := make([]bucket.StoredFileRecord, 0, len(rows))
	for _, u := range rows {
		link, err := s.blobs.URL(ctx, u.StorageKey)
		if err != nil {
			s.logger.Warn(ctx, "cannot build blob url", "key", u.StorageKey, "error", err)
		}
		records = append(records, *record(u, link))
	}
	return &bucket.Listing{Records: records, Source: s.blobs.Name()}, nil
}

// Diagnose pings the database and checks the blob store in parallel.
func (s *Store) Diagnose(ctx context.Context) bucket.Diagnostics {
	d := bucket.Diagnostics{
		Mode:       bucket.ModeLocal,
		Configured: true,
		CheckedAt:  s.now().UTC(),
	}

	var dbErr, blobErr error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dbErr = s.db.PingContext(gctx)
		return nil
	})
	g.Go(func() error {
		blobErr = s.blobs.Check(gctx)
		return nil
	})
	_ = g.Wait()

	d.Reachable = dbErr == nil && blobErr == nil
	var problems []string
	if dbErr != nil {
		problems = append(problems, "database: "+dbErr.Error())
	}
	if blobErr != nil {
		problems = append(problems, s.blobs.Name()+": "+blobErr.Error())
	}
	if len(problems) > 0 {
		d.ReachError = strings.Join(problems, "; ")
		d.Message = "local storage backend is degraded"
	} else {
		d.Message = "local storage backend (" + s.blobs.Name() + ") is healthy"
	}
	return d
}

func record(u *models.Upload, link string) *bucket.StoredFileRecord {
	return &bucket.StoredFileRecord{
		ID:           u.ID,
		ExternalID:   u.ExternalID,
		Name:         u.OriginalName,
		URL:          link,
		Tag1:         u.Tag1,
		Tag2:         u.Tag2,
		Tag3:         u.Tag3,
		MimeCategory: category(u.MimeType),
		SizeBytes:    u.Size,
		Description:  u.Description,
		UploadedAt:   u.UploadedAt,
	}
}

func category(mimeType string) string {
	if strings.HasPrefix(mimeType, "image/") {
		return "image"
	}
	return common.DefaultMimeCategory
}
