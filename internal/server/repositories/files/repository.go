package files

import (
	"context"

	"github.com/dmitrijs2005/drivekeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, file *models.File) (*models.File, error)
	GetByID(ctx context.Context, id string) (*models.File, error)
	ListByOrg(ctx context.Context, orgID string) ([]*models.File, error)
	ListTrashed(ctx context.Context) ([]*models.File, error)
	SetShouldDelete(ctx context.Context, id string, shouldDelete bool) error
	DeleteTrashed(ctx context.Context, id string) (bool, error)
}
