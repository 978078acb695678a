package favorites

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/drivekeeper/internal/dbx"
	"github.com/dmitrijs2005/drivekeeper/internal/server/models"
)

// PostgresRepository implements favorites storage over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Toggle removes an existing favorite or inserts a new one in a single
// statement. Two concurrent toggles on an absent favorite collapse into one
// row through the unique index; the loser observes the winner's insert and
// reports the file as favorited.
func (r *PostgresRepository) Toggle(ctx context.Context, userID, orgID, fileID string) (bool, error) {
	query := `
		WITH removed AS (
			DELETE FROM favorites
			WHERE user_id = $1 AND org_id = $2 AND file_id = $3
			RETURNING id
		), inserted AS (
			INSERT INTO favorites (user_id, org_id, file_id)
			SELECT $1, $2, $3
			WHERE NOT EXISTS (SELECT 1 FROM removed)
			ON CONFLICT (user_id, org_id, file_id) DO NOTHING
			RETURNING id
		)
		SELECT EXISTS (SELECT 1 FROM inserted) OR NOT EXISTS (SELECT 1 FROM removed)
	`

	var favorited bool
	if err := r.db.QueryRowContext(ctx, query, userID, orgID, fileID).Scan(&favorited); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return favorited, nil
}

func (r *PostgresRepository) ListByUserOrg(ctx context.Context, userID, orgID string) ([]*models.Favorite, error) {
	query := `
		SELECT id, user_id, org_id, file_id, created_at
		FROM favorites
		WHERE user_id = $1 AND org_id = $2
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to select favorites: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Favorite, 0)
	for rows.Next() {
		var f models.Favorite
		if err := rows.Scan(&f.ID, &f.UserID, &f.OrgID, &f.FileID, &f.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// DeleteByFile drops every favorite referencing fileID across all users and
// returns how many were removed.
func (r *PostgresRepository) DeleteByFile(ctx context.Context, fileID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM favorites WHERE file_id = $1`, fileID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	ra, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return ra, nil
}
