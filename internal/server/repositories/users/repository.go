package users

import (
	"context"

	"github.com/dmitrijs2005/drivekeeper/internal/server/models"
)

type Repository interface {
	GetByTokenIdentifier(ctx context.Context, tokenIdentifier string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	Upsert(ctx context.Context, user *models.User) (*models.User, error)
}
