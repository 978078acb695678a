// Package access decides whether a principal may act inside an organization
// scope. Every file and favorite operation goes through a Guard first.
package access

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/dmitrijs2005/drivekeeper/internal/common"
	"github.com/dmitrijs2005/drivekeeper/internal/logging"
	"github.com/dmitrijs2005/drivekeeper/internal/server/models"
	"github.com/dmitrijs2005/drivekeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// Access is the outcome of a successful org check.
type Access struct {
	User  *models.User
	Scope models.Scope
}

// FileAccess is the outcome of a successful file check.
type FileAccess struct {
	Access
	File *models.File
}

type Guard struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
}

func NewGuard(db *sql.DB, m repomanager.RepositoryManager, log logging.Logger) *Guard {
	return &Guard{db: db, repomanager: m, log: log.With("module", "access")}
}

// AuthorizeOrg resolves the principal's user and the scope that grants it
// orgID. A nil principal fails with common.ErrorUnauthenticated, any other
// refusal with common.ErrorDenied.
func (g *Guard) AuthorizeOrg(ctx context.Context, p *models.Principal, orgID string) (*Access, error) {
	user, err := g.resolveUser(ctx, p)
	if err != nil {
		return nil, err
	}

	scope, ok := ResolveScope(user, orgID)
	if !ok {
		g.log.Debug(ctx, "org access denied", "user_id", user.ID, "org_id", orgID)
		return nil, common.ErrorDenied
	}

	return &Access{User: user, Scope: scope}, nil
}

// AuthorizeFile loads the file and checks the caller against the file's
// org. An unknown file is reported as denied, same as a foreign one.
func (g *Guard) AuthorizeFile(ctx context.Context, p *models.Principal, fileID string) (*FileAccess, error) {
	if p == nil {
		return nil, common.ErrorUnauthenticated
	}
	if uuid.Validate(fileID) != nil {
		return nil, common.ErrorDenied
	}

	file, err := g.repomanager.Files(g.db).GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			g.log.Debug(ctx, "file not found", "file_id", fileID)
			return nil, common.ErrorDenied
		}
		return nil, fmt.Errorf("error loading file: %w", err)
	}

	a, err := g.AuthorizeOrg(ctx, p, file.OrgID)
	if err != nil {
		return nil, err
	}

	return &FileAccess{Access: *a, File: file}, nil
}

// ResolveUser returns the user mirroring an authenticated principal.
func (g *Guard) ResolveUser(ctx context.Context, p *models.Principal) (*models.User, error) {
	return g.resolveUser(ctx, p)
}

func (g *Guard) resolveUser(ctx context.Context, p *models.Principal) (*models.User, error) {
	if p == nil || p.TokenIdentifier == "" {
		return nil, common.ErrorUnauthenticated
	}

	user, err := g.repomanager.Users(g.db).GetByTokenIdentifier(ctx, p.TokenIdentifier)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			g.log.Debug(ctx, "no user for principal")
			return nil, common.ErrorDenied
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	return user, nil
}

// ResolveScope picks the rule under which user may act in orgID: membership
// of a real organization first, then the personal scope keyed by the user's
// own identity.
func ResolveScope(user *models.User, orgID string) (models.Scope, bool) {
	switch {
	case orgID == "":
		return models.Scope{}, false
	case slices.Contains(user.OrgIDs, orgID):
		return models.Scope{Kind: models.ScopeOrganization, OrgID: orgID}, true
	case orgID == user.TokenIdentifier:
		return models.Scope{Kind: models.ScopePersonal, OrgID: orgID, UserID: user.ID}, true
	default:
		return models.Scope{}, false
	}
}
