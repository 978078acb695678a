package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/drivekeeper/internal/common"
	"github.com/dmitrijs2005/drivekeeper/internal/logging"
	"github.com/dmitrijs2005/drivekeeper/internal/server/blobstore"
	"github.com/dmitrijs2005/drivekeeper/internal/server/models"
	"github.com/dmitrijs2005/drivekeeper/internal/server/repositories/repomanager"
)

// FileService registers uploaded blobs as files and moves them between the
// active and trashed partitions.
type FileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	guard       Authorizer
	blobs       blobstore.Store
	log         logging.Logger
}

func NewFileService(db *sql.DB, m repomanager.RepositoryManager, guard Authorizer, blobs blobstore.Store, log logging.Logger) *FileService {
	return &FileService{
		db:          db,
		repomanager: m,
		guard:       guard,
		blobs:       blobs,
		log:         log.With("module", "files"),
	}
}

// RequestUpload hands any authenticated caller a one-time upload target.
// No file record is written until CreateFile.
func (s *FileService) RequestUpload(ctx context.Context, p *models.Principal) (*models.UploadTarget, error) {
	if p == nil || p.TokenIdentifier == "" {
		return nil, common.ErrorUnauthenticated
	}

	target, err := s.blobs.GenerateUploadTarget(ctx)
	if err != nil {
		return nil, fmt.Errorf("error generating upload target: %w", err)
	}
	return target, nil
}

// CreateFile registers an uploaded blob as an active file in orgID, owned by
// the caller.
func (s *FileService) CreateFile(ctx context.Context, p *models.Principal, name, blobID, orgID, fileType string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", common.ErrorInvalidArgument)
	}
	if blobID == "" {
		return "", fmt.Errorf("%w: blob id is required", common.ErrorInvalidArgument)
	}
	ft, err := models.ParseFileType(fileType)
	if err != nil {
		return "", err
	}

	a, err := s.guard.AuthorizeOrg(ctx, p, orgID)
	if err != nil {
		return "", err
	}

	file, err := s.repomanager.Files(s.db).Create(ctx, &models.File{
		Name:   name,
		OrgID:  orgID,
		UserID: a.User.ID,
		BlobID: blobID,
		Type:   ft,
	})
	if err != nil {
		return "", fmt.Errorf("error creating file: %w", err)
	}

	s.log.Info(ctx, "file created", "file_id", file.ID, "org_id", orgID, "scope", a.Scope.Kind.String())
	return file.ID, nil
}

// ListFiles returns the org's files narrowed by filter. A caller who may not
// see the org gets an empty list rather than an error.
func (s *FileService) ListFiles(ctx context.Context, p *models.Principal, orgID string, filter models.ListFilter) ([]*models.File, error) {
	a, err := s.guard.AuthorizeOrg(ctx, p, orgID)
	if err != nil {
		if isDenied(err) {
			return []*models.File{}, nil
		}
		return nil, err
	}

	all, err := s.repomanager.Files(s.db).ListByOrg(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("error listing files: %w", err)
	}

	var favorited map[string]struct{}
	if filter.FavoritesOnly {
		favs, err := s.repomanager.Favorites(s.db).ListByUserOrg(ctx, a.User.ID, orgID)
		if err != nil {
			return nil, fmt.Errorf("error listing favorites: %w", err)
		}
		favorited = make(map[string]struct{}, len(favs))
		for _, f := range favs {
			favorited[f.FileID] = struct{}{}
		}
	}

	query := strings.ToLower(filter.Query)

	result := make([]*models.File, 0, len(all))
	for _, f := range all {
		if query != "" && !strings.Contains(strings.ToLower(f.Name), query) {
			continue
		}
		if favorited != nil {
			if _, ok := favorited[f.ID]; !ok {
				continue
			}
		}
		// exactly one partition is returned
		if f.ShouldDelete != filter.DeletedOnly {
			continue
		}
		result = append(result, f)
	}

	return result, nil
}

// MarkTrashed moves a file into the trash. Trashing a trashed file is a no-op.
func (s *FileService) MarkTrashed(ctx context.Context, p *models.Principal, fileID string) error {
	return s.setShouldDelete(ctx, p, fileID, true)
}

// Restore moves a file out of the trash. Restoring an active file is a no-op.
func (s *FileService) Restore(ctx context.Context, p *models.Principal, fileID string) error {
	return s.setShouldDelete(ctx, p, fileID, false)
}

func (s *FileService) setShouldDelete(ctx context.Context, p *models.Principal, fileID string, shouldDelete bool) error {
	fa, err := s.guard.AuthorizeFile(ctx, p, fileID)
	if err != nil {
		return err
	}

	if fa.File.ShouldDelete == shouldDelete {
		return nil
	}

	if err := s.repomanager.Files(s.db).SetShouldDelete(ctx, fileID, shouldDelete); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// purged after the access check
			return common.ErrorDenied
		}
		return fmt.Errorf("error updating file: %w", err)
	}

	s.log.Info(ctx, "file trash flag changed", "file_id", fileID, "should_delete", shouldDelete)
	return nil
}

// GetFileURL returns a short-lived download URL for the file's blob.
func (s *FileService) GetFileURL(ctx context.Context, p *models.Principal, fileID string) (string, error) {
	fa, err := s.guard.AuthorizeFile(ctx, p, fileID)
	if err != nil {
		return "", err
	}

	u, err := s.blobs.PresignGet(ctx, fa.File.BlobID)
	if err != nil {
		return "", fmt.Errorf("error generating download url: %w", err)
	}
	return u, nil
}
