package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/drivekeeper/internal/logging"
	"github.com/dmitrijs2005/drivekeeper/internal/server/models"
	"github.com/dmitrijs2005/drivekeeper/internal/server/repositories/repomanager"
)

type FavoriteService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	guard       Authorizer
	log         logging.Logger
}

func NewFavoriteService(db *sql.DB, m repomanager.RepositoryManager, guard Authorizer, log logging.Logger) *FavoriteService {
	return &FavoriteService{db: db, repomanager: m, guard: guard, log: log.With("module", "favorites")}
}

// ToggleFavorite inverts the caller's favorite on fileID within the file's
// org and returns the new state.
func (s *FavoriteService) ToggleFavorite(ctx context.Context, p *models.Principal, fileID string) (bool, error) {
	fa, err := s.guard.AuthorizeFile(ctx, p, fileID)
	if err != nil {
		return false, err
	}

	on, err := s.repomanager.Favorites(s.db).Toggle(ctx, fa.User.ID, fa.File.OrgID, fa.File.ID)
	if err != nil {
		return false, fmt.Errorf("error toggling favorite: %w", err)
	}

	s.log.Debug(ctx, "favorite toggled", "file_id", fileID, "favorited", on)
	return on, nil
}

// ListFavorites returns the caller's favorites in orgID, or an empty list
// when the caller may not see the org.
func (s *FavoriteService) ListFavorites(ctx context.Context, p *models.Principal, orgID string) ([]*models.Favorite, error) {
	a, err := s.guard.AuthorizeOrg(ctx, p, orgID)
	if err != nil {
		if isDenied(err) {
			return []*models.Favorite{}, nil
		}
		return nil, err
	}

	favs, err := s.repomanager.Favorites(s.db).ListByUserOrg(ctx, a.User.ID, orgID)
	if err != nil {
		return nil, fmt.Errorf("error listing favorites: %w", err)
	}
	return favs, nil
}
