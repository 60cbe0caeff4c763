package uploads

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/aikea/internal/common"
	"github.com/dmitrijs2005/aikea/internal/dbx"
	"github.com/dmitrijs2005/aikea/internal/server/models"
)

// PostgresRepository implements upload bookkeeping over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectColumns = `id, external_id, file_name, original_name, mime_type, size, storage_key,
		tag1, tag2, tag3, description, checksum, uploaded_at`

// Create inserts u. UploadedAt is assigned by the database and written back.
func (r *PostgresRepository) Create(ctx context.Context, u *models.Upload) error {
	query := `
		INSERT INTO uploads (id, external_id, file_name, original_name, mime_type, size, storage_key,
			tag1, tag2, tag3, description, checksum)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING uploaded_at
	`
	err := r.db.QueryRowContext(ctx, query,
		u.ID, u.ExternalID, u.FileName, u.OriginalName, u.MimeType, u.Size, u.StorageKey,
		u.Tag1, u.Tag2, u.Tag3, u.Description, u.Checksum,
	).Scan(&u.UploadedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetByID returns common.ErrorNotFound when no row has id.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Upload, error) {
	query := `SELECT ` + selectColumns + ` FROM uploads WHERE id=$1`

	u, err := scanUpload(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select upload: %w", err)
	}
	return u, nil
}

// List returns uploads matching q, newest first. Tags match exactly,
// ExternalID and Pattern as substrings (Pattern case-insensitively).
func (r *PostgresRepository) List(ctx context.Context, q models.UploadQuery) ([]*models.Upload, error) {
	query := `SELECT ` + selectColumns + ` FROM uploads
		WHERE ($1 = '' OR tag1 = $1)
		  AND ($2 = '' OR tag2 = $2)
		  AND ($3 = '' OR tag3 = $3)
		  AND ($4 = '' OR strpos(external_id, $4) > 0)
		  AND ($5 = '' OR strpos(lower(id || ' ' || original_name || ' ' || external_id), lower($5)) > 0)
		ORDER BY uploaded_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, q.Tag1, q.Tag2, q.Tag3, q.ExternalID, q.Pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to select uploads: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Upload, 0)
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes the row for id. Exactly one row must be affected.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM uploads WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete upload: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUpload(s scanner) (*models.Upload, error) {
	var u models.Upload
	err := s.Scan(&u.ID, &u.ExternalID, &u.FileName, &u.OriginalName, &u.MimeType, &u.Size, &u.StorageKey,
		&u.Tag1, &u.Tag2, &u.Tag3, &u.Description, &u.Checksum, &u.UploadedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
