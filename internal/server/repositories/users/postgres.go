package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/drivekeeper/internal/common"
	"github.com/dmitrijs2005/drivekeeper/internal/dbx"
	"github.com/dmitrijs2005/drivekeeper/internal/server/models"
	"github.com/jackc/pgx/v5/pgtype"
)

// PostgresRepository reads user mirrors over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByTokenIdentifier looks a user up through the unique token_identifier
// index. Returns common.ErrorNotFound when no user mirrors the principal.
func (r *PostgresRepository) GetByTokenIdentifier(ctx context.Context, tokenIdentifier string) (*models.User, error) {
	query :=
		`SELECT id, token_identifier, org_ids, name, image, created_at FROM users
		 WHERE token_identifier = $1
		 `

	return r.scanOne(r.db.QueryRowContext(ctx, query, tokenIdentifier))
}

// GetByID returns the user with the given id or common.ErrorNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query :=
		`SELECT id, token_identifier, org_ids, name, image, created_at FROM users
		 WHERE id = $1
		 `

	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// Upsert inserts or refreshes the mirror of a principal keyed by its token
// identifier. Used by the identity sync, never by request handling.
func (r *PostgresRepository) Upsert(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (token_identifier, org_ids, name, image)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (token_identifier)
		 DO UPDATE SET org_ids = EXCLUDED.org_ids, name = EXCLUDED.name, image = EXCLUDED.image
		 RETURNING id, created_at
		 `

	orgIDs := user.OrgIDs
	if orgIDs == nil {
		orgIDs = []string{}
	}

	err := r.db.QueryRowContext(ctx, query,
		user.TokenIdentifier, orgIDs, nullString(user.Name), nullString(user.Image)).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.User, error) {
	tm := pgtype.NewMap()

	user := &models.User{}
	var name, image sql.NullString

	err := row.Scan(&user.ID, &user.TokenIdentifier, tm.SQLScanner(&user.OrgIDs), &name, &image, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.Name = name.String
	user.Image = image.String

	return user, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
