package services

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/drivekeeper/internal/common"
	"github.com/dmitrijs2005/drivekeeper/internal/dbx"
	"github.com/dmitrijs2005/drivekeeper/internal/logging"
	"github.com/dmitrijs2005/drivekeeper/internal/server/access"
	"github.com/dmitrijs2005/drivekeeper/internal/server/models"
	"github.com/dmitrijs2005/drivekeeper/internal/server/repositories/favorites"
	"github.com/dmitrijs2005/drivekeeper/internal/server/repositories/files"
	"github.com/dmitrijs2005/drivekeeper/internal/server/repositories/users"
	"github.com/google/uuid"
)

// memStore is an in-memory record store shared by the fake repositories.
type memStore struct {
	mu        sync.Mutex
	users     map[string]*models.User
	files     map[string]*models.File
	favorites map[[3]string]*models.Favorite

	// injected failures
	listTrashedErr    error
	staleTrash        []*models.File
	deleteTrashedErrs map[string][]error
}

func newMemStore() *memStore {
	return &memStore{
		users:             map[string]*models.User{},
		files:             map[string]*models.File{},
		favorites:         map[[3]string]*models.Favorite{},
		deleteTrashedErrs: map[string][]error{},
	}
}

func (s *memStore) addUser(tid string, orgs ...string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &models.User{ID: uuid.NewString(), TokenIdentifier: tid, OrgIDs: orgs, Name: tid}
	s.users[u.ID] = u
	return u
}

func (s *memStore) fileExists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[id]
	return ok
}

func (s *memStore) favoriteCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.favorites)
}

type memUsers struct {
	users.Repository
	s *memStore
}

func (r *memUsers) GetByTokenIdentifier(_ context.Context, tid string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.TokenIdentifier == tid {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUsers) Upsert(_ context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.TokenIdentifier == u.TokenIdentifier {
			existing.OrgIDs, existing.Name, existing.Image = u.OrgIDs, u.Name, u.Image
			cp := *existing
			return &cp, nil
		}
	}
	cp := *u
	cp.ID = uuid.NewString()
	cp.CreatedAt = time.Now()
	r.s.users[cp.ID] = &cp
	out := cp
	return &out, nil
}

type memFiles struct {
	files.Repository
	s *memStore
}

func (r *memFiles) Create(_ context.Context, f *models.File) (*models.File, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.files {
		if existing.BlobID == f.BlobID {
			return nil, fmt.Errorf("db error: duplicate blob_id")
		}
	}
	f.ID = uuid.NewString()
	f.CreatedAt = time.Now()
	cp := *f
	r.s.files[f.ID] = &cp
	return f, nil
}

func (r *memFiles) GetByID(_ context.Context, id string) (*models.File, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := r.s.files[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *f
	return &cp, nil
}

func (r *memFiles) ListByOrg(_ context.Context, orgID string) ([]*models.File, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.File, 0)
	for _, f := range r.s.files {
		if f.OrgID == orgID {
			cp := *f
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *models.File) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (r *memFiles) ListTrashed(_ context.Context) ([]*models.File, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.listTrashedErr != nil {
		return nil, r.s.listTrashedErr
	}
	if r.s.staleTrash != nil {
		return r.s.staleTrash, nil
	}
	out := make([]*models.File, 0)
	for _, f := range r.s.files {
		if f.ShouldDelete {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memFiles) SetShouldDelete(_ context.Context, id string, v bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := r.s.files[id]
	if !ok {
		return common.ErrorNotFound
	}
	f.ShouldDelete = v
	return nil
}

func (r *memFiles) DeleteTrashed(_ context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if errs := r.s.deleteTrashedErrs[id]; len(errs) > 0 {
		r.s.deleteTrashedErrs[id] = errs[1:]
		return false, errs[0]
	}
	f, ok := r.s.files[id]
	if !ok || !f.ShouldDelete {
		return false, nil
	}
	delete(r.s.files, id)
	for k := range r.s.favorites {
		if k[2] == id {
			delete(r.s.favorites, k)
		}
	}
	return true, nil
}

type memFavorites struct {
	s *memStore
}

func (r *memFavorites) Toggle(_ context.Context, userID, orgID, fileID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.files[fileID]; !ok {
		return false, fmt.Errorf("db error: foreign key violation")
	}
	k := [3]string{userID, orgID, fileID}
	if _, ok := r.s.favorites[k]; ok {
		delete(r.s.favorites, k)
		return false, nil
	}
	r.s.favorites[k] = &models.Favorite{ID: uuid.NewString(), UserID: userID, OrgID: orgID, FileID: fileID, CreatedAt: time.Now()}
	return true, nil
}

func (r *memFavorites) ListByUserOrg(_ context.Context, userID, orgID string) ([]*models.Favorite, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Favorite, 0)
	for k, f := range r.s.favorites {
		if k[0] == userID && k[1] == orgID {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memFavorites) DeleteByFile(_ context.Context, fileID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for k := range r.s.favorites {
		if k[2] == fileID {
			delete(r.s.favorites, k)
			n++
		}
	}
	return n, nil
}

type memRM struct {
	s *memStore
}

func (m *memRM) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *memRM) Users(dbx.DBTX) users.Repository               { return &memUsers{s: m.s} }
func (m *memRM) Files(dbx.DBTX) files.Repository               { return &memFiles{s: m.s} }
func (m *memRM) Favorites(dbx.DBTX) favorites.Repository       { return &memFavorites{s: m.s} }

// memBlobs is an in-memory blob store. Upload targets are treated as
// immediately uploaded.
type memBlobs struct {
	mu          sync.Mutex
	blobs       map[string]bool
	failDeletes map[string]int
	deletes     int
}

func newMemBlobs() *memBlobs {
	return &memBlobs{blobs: map[string]bool{}, failDeletes: map[string]int{}}
}

func (b *memBlobs) GenerateUploadTarget(context.Context) (*models.UploadTarget, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := "uploads/" + uuid.NewString()
	b.blobs[id] = true
	return &models.UploadTarget{BlobID: id, URL: "http://blobs/" + id, ExpiresAt: time.Now().Add(time.Minute)}, nil
}

func (b *memBlobs) PresignGet(_ context.Context, blobID string) (string, error) {
	return "http://blobs/" + blobID + "?get", nil
}

func (b *memBlobs) Delete(_ context.Context, blobID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deletes++
	if n := b.failDeletes[blobID]; n > 0 {
		b.failDeletes[blobID] = n - 1
		return fmt.Errorf("%w: 503 slow down", common.ErrTransient)
	}
	if !b.blobs[blobID] {
		return fmt.Errorf("%w: %s", common.ErrorBlobNotFound, blobID)
	}
	delete(b.blobs, blobID)
	return nil
}

func (b *memBlobs) has(blobID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.blobs[blobID]
}

// stubTx runs transactional closures directly against the fakes.
func stubTx(t *testing.T) {
	t.Helper()
	orig := withTx
	withTx = func(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx dbx.DBTX) error) error {
		return fn(ctx, nil)
	}
	t.Cleanup(func() { withTx = orig })
}

type env struct {
	store     *memStore
	blobs     *memBlobs
	files     *FileService
	favorites *FavoriteService
	users     *UserService
	purger    *Purger
}

func newEnv(t *testing.T) *env {
	t.Helper()
	stubTx(t)

	store := newMemStore()
	blobs := newMemBlobs()
	rm := &memRM{s: store}
	log := logging.Nop()
	guard := access.NewGuard(nil, rm, log)

	return &env{
		store:     store,
		blobs:     blobs,
		files:     NewFileService(nil, rm, guard, blobs, log),
		favorites: NewFavoriteService(nil, rm, guard, log),
		users:     NewUserService(nil, rm, guard),
		purger:    NewPurger(nil, rm, blobs, PurgeOptions{Concurrency: 4, MaxRetries: 2, RetryBase: time.Millisecond}, log),
	}
}

// upload runs the request-upload then create-file flow.
func (e *env) upload(t *testing.T, p *models.Principal, name, orgID, fileType string) *models.File {
	t.Helper()
	ctx := context.Background()

	target, err := e.files.RequestUpload(ctx, p)
	if err != nil {
		t.Fatalf("RequestUpload: %v", err)
	}
	id, err := e.files.CreateFile(ctx, p, name, target.BlobID, orgID, fileType)
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	f, err := (&memFiles{s: e.store}).GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	return f
}

var origWithTx = withTx
