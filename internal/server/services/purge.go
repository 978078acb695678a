package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/drivekeeper/internal/common"
	"github.com/dmitrijs2005/drivekeeper/internal/dbx"
	"github.com/dmitrijs2005/drivekeeper/internal/logging"
	"github.com/dmitrijs2005/drivekeeper/internal/server/blobstore"
	"github.com/dmitrijs2005/drivekeeper/internal/server/models"
	"github.com/dmitrijs2005/drivekeeper/internal/server/repositories/repomanager"
	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// PurgeOptions tune a purge run.
type PurgeOptions struct {
	// Concurrency bounds how many files are purged at once.
	Concurrency int
	// MaxRetries bounds record-phase retries on transient store errors.
	MaxRetries uint64
	RetryBase  time.Duration
}

// Purger permanently removes trashed files. It runs with system privilege
// across all orgs and is never reachable by a caller.
type Purger struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       blobstore.Store
	opts        PurgeOptions
	log         logging.Logger
}

func NewPurger(db *sql.DB, m repomanager.RepositoryManager, blobs blobstore.Store, opts PurgeOptions, log logging.Logger) *Purger {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = 100 * time.Millisecond
	}
	return &Purger{db: db, repomanager: m, blobs: blobs, opts: opts, log: log.With("module", "purge")}
}

type purgeOutcome int

const (
	outcomePurged purgeOutcome = iota
	outcomeSkipped
)

// errRecordKept aborts the record transaction when the file left the trash
// after the blob phase.
var errRecordKept = errors.New("record no longer trashed")

// Run purges every file currently in the trash. Each file is handled on its
// own; a failure leaves that file trashed for the next run and does not stop
// the others. The returned error combines all per-file failures.
func (p *Purger) Run(ctx context.Context) (*models.PurgeStats, error) {
	stats := &models.PurgeStats{StartTime: time.Now()}

	trashed, err := p.repomanager.Files(p.db).ListTrashed(ctx)
	if err != nil {
		stats.EndTime = time.Now()
		return stats, fmt.Errorf("error listing trashed files: %w", err)
	}
	stats.Scanned = len(trashed)

	var (
		mu   sync.Mutex
		errs error
		g    errgroup.Group
	)
	g.SetLimit(p.opts.Concurrency)

	for _, f := range trashed {
		f := f // per-iteration copy (module targets go 1.21 loop semantics)
		g.Go(func() error {
			outcome, err := p.purgeFile(ctx, f)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				stats.Failed++
				errs = multierr.Append(errs, fmt.Errorf("file %s: %w", f.ID, err))
				p.log.Warn(ctx, "purge failed", "file_id", f.ID, "blob_id", f.BlobID, "error", err)
			case outcome == outcomeSkipped:
				stats.Skipped++
			default:
				stats.Purged++
			}
			return nil
		})
	}
	_ = g.Wait()

	stats.EndTime = time.Now()
	p.log.Info(ctx, "purge finished", "stats", stats.Summary())

	return stats, errs
}

// purgeFile runs the two idempotent phases for one file: delete the blob if
// present, then delete the record if it is still trashed. Crashing between
// the phases leaves a trashed record without a blob, which the next run
// finishes.
func (p *Purger) purgeFile(ctx context.Context, f *models.File) (purgeOutcome, error) {
	current, err := p.repomanager.Files(p.db).GetByID(ctx, f.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return outcomeSkipped, nil
		}
		return 0, err
	}
	if !current.ShouldDelete {
		p.log.Debug(ctx, "file restored before purge", "file_id", f.ID)
		return outcomeSkipped, nil
	}

	if err := p.blobs.Delete(ctx, current.BlobID); err != nil && !errors.Is(err, common.ErrorBlobNotFound) {
		return 0, fmt.Errorf("blob delete: %w", err)
	}

	backoff := retry.WithMaxRetries(p.opts.MaxRetries, retry.NewExponential(p.opts.RetryBase))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := withTx(ctx, p.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			if _, err := p.repomanager.Favorites(tx).DeleteByFile(ctx, f.ID); err != nil {
				return err
			}
			deleted, err := p.repomanager.Files(tx).DeleteTrashed(ctx, f.ID)
			if err != nil {
				return err
			}
			if !deleted {
				return errRecordKept
			}
			return nil
		})
		if dbx.IsTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})

	switch {
	case errors.Is(err, errRecordKept):
		p.log.Warn(ctx, "file restored after its blob was deleted", "file_id", f.ID, "blob_id", current.BlobID)
		return outcomeSkipped, nil
	case err != nil:
		return 0, fmt.Errorf("record delete: %w", err)
	}

	p.log.Debug(ctx, "file purged", "file_id", f.ID)
	return outcomePurged, nil
}
