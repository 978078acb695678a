package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/drivekeeper/internal/common"
	"github.com/dmitrijs2005/drivekeeper/internal/server/models"
	"github.com/dmitrijs2005/drivekeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// UserService reads user mirrors for display and lets the identity sync
// write them.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	guard       Authorizer
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, guard Authorizer) *UserService {
	return &UserService{db: db, repomanager: m, guard: guard}
}

// GetUserProfile returns the display name and avatar of userID to any caller
// known to the system.
func (s *UserService) GetUserProfile(ctx context.Context, p *models.Principal, userID string) (*models.UserProfile, error) {
	if _, err := s.guard.ResolveUser(ctx, p); err != nil {
		return nil, err
	}
	if uuid.Validate(userID) != nil {
		return nil, common.ErrorNotFound
	}

	u, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	return &models.UserProfile{Name: u.Name, Image: u.Image}, nil
}

// SyncUser creates or refreshes the mirror of an identity provider user.
func (s *UserService) SyncUser(ctx context.Context, tokenIdentifier string, orgIDs []string, name, image string) (*models.User, error) {
	tokenIdentifier = strings.TrimSpace(tokenIdentifier)
	if tokenIdentifier == "" {
		return nil, fmt.Errorf("%w: token identifier is required", common.ErrorInvalidArgument)
	}

	u, err := s.repomanager.Users(s.db).Upsert(ctx, &models.User{
		TokenIdentifier: tokenIdentifier,
		OrgIDs:          orgIDs,
		Name:            name,
		Image:           image,
	})
	if err != nil {
		return nil, fmt.Errorf("error saving user: %w", err)
	}
	return u, nil
}
