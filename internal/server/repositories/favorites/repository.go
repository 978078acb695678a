package favorites

import (
	"context"

	"github.com/dmitrijs2005/drivekeeper/internal/server/models"
)

type Repository interface {
	// Toggle flips the favorite for (userID, orgID, fileID) and reports
	// whether the file is favorited afterwards.
	Toggle(ctx context.Context, userID, orgID, fileID string) (bool, error)
	ListByUserOrg(ctx context.Context, userID, orgID string) ([]*models.Favorite, error)
	DeleteByFile(ctx context.Context, fileID string) (int64, error)
}
