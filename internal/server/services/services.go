// Package services contains the server-side business logic: file lifecycle,
// favorites, user profiles and the purge job. Every caller-facing operation
// takes the caller's Principal explicitly and authorizes it before touching
// the record store.
package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/drivekeeper/internal/common"
	"github.com/dmitrijs2005/drivekeeper/internal/dbx"
	"github.com/dmitrijs2005/drivekeeper/internal/server/access"
	"github.com/dmitrijs2005/drivekeeper/internal/server/models"
)

// Authorizer is the access check every operation goes through.
type Authorizer interface {
	AuthorizeOrg(ctx context.Context, p *models.Principal, orgID string) (*access.Access, error)
	AuthorizeFile(ctx context.Context, p *models.Principal, fileID string) (*access.FileAccess, error)
	ResolveUser(ctx context.Context, p *models.Principal) (*models.User, error)
}

// withTx is a seam for tests that run without a database.
var withTx = dbx.WithTx

// isDenied reports whether err is an authorization refusal, including the
// unauthenticated case.
func isDenied(err error) bool {
	return errors.Is(err, common.ErrorDenied)
}
