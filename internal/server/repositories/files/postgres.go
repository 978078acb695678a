package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/drivekeeper/internal/common"
	"github.com/dmitrijs2005/drivekeeper/internal/dbx"
	"github.com/dmitrijs2005/drivekeeper/internal/server/models"
)

const fileColumns = `id, name, org_id, user_id, blob_id, type, should_delete, created_at`

// PostgresRepository implements file record storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts an active (not trashed) file record and fills in the
// server-assigned id and creation time.
func (r *PostgresRepository) Create(ctx context.Context, file *models.File) (*models.File, error) {
	query := `
		INSERT INTO files (name, org_id, user_id, blob_id, type, should_delete)
		VALUES ($1, $2, $3, $4, $5, FALSE)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		file.Name, file.OrgID, file.UserID, file.BlobID, string(file.Type)).Scan(&file.ID, &file.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	file.ShouldDelete = false
	return file, nil
}

// GetByID returns the file record or common.ErrorNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1`

	file, err := scanFile(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return file, nil
}

// ListByOrg returns every file of the org, trashed or not, newest first.
func (r *PostgresRepository) ListByOrg(ctx context.Context, orgID string) ([]*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE org_id = $1 ORDER BY created_at DESC`
	return r.selectMany(ctx, query, orgID)
}

// ListTrashed returns all files across all orgs with should_delete set.
func (r *PostgresRepository) ListTrashed(ctx context.Context) ([]*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE should_delete = TRUE`
	return r.selectMany(ctx, query)
}

// SetShouldDelete patches the trash flag. Setting the current value again is
// a no-op for callers; a missing record yields common.ErrorNotFound.
func (r *PostgresRepository) SetShouldDelete(ctx context.Context, id string, shouldDelete bool) error {
	query := `UPDATE files SET should_delete = $2 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, shouldDelete)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	ra, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}

	switch ra {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", ra)
	}
}

// DeleteTrashed removes the record only while it is still trashed. It
// reports false when the file was restored or is already gone.
func (r *PostgresRepository) DeleteTrashed(ctx context.Context, id string) (bool, error) {
	query := `DELETE FROM files WHERE id = $1 AND should_delete = TRUE`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	ra, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}

	return ra == 1, nil
}

func (r *PostgresRepository) selectMany(ctx context.Context, query string, args ...any) ([]*models.File, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	result := make([]*models.File, 0)
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, file)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(s scanner) (*models.File, error) {
	var f models.File
	var fileType string
	if err := s.Scan(&f.ID, &f.Name, &f.OrgID, &f.UserID, &f.BlobID, &fileType, &f.ShouldDelete, &f.CreatedAt); err != nil {
		return nil, err
	}
	f.Type = models.FileType(fileType)
	return &f, nil
}
