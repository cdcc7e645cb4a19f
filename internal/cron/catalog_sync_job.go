package cron

import (
	"context"
	"fmt"

	"github.com/mercaline/tienda-backend/internal/catalog"
	"github.com/mercaline/tienda-backend/pkg/logger"
)

type catalogSyncer interface {
	SyncAll(ctx context.Context) (catalog.SyncSummary, error)
}

// CatalogSyncJobParams configures the scheduled catalog refresh.
type CatalogSyncJobParams struct {
	Logger *logger.Logger
	Syncer catalogSyncer
}

type catalogSyncJob struct {
	logg   *logger.Logger
	syncer catalogSyncer
}

// NewCatalogSyncJob constructs the supplier catalog refresh job.
func NewCatalogSyncJob(params CatalogSyncJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Syncer == nil {
		return nil, fmt.Errorf("catalog syncer required")
	}
	return &catalogSyncJob{logg: params.Logger, syncer: params.Syncer}, nil
}

func (j *catalogSyncJob) Name() string {
	return "catalog_sync"
}

// Run triggers a full batch sync. Per-product failures are already
// folded into the summary; only a batch-level failure (listing products,
// canceled context) errors the job.
func (j *catalogSyncJob) Run(ctx context.Context) error {
	summary, err := j.syncer.SyncAll(ctx)
	if err != nil {
		return fmt.Errorf("catalog sync: %w", err)
	}
	if summary.Failed > 0 {
		j.logg.Warn(ctx, fmt.Sprintf("catalog sync finished with %d failed products", summary.Failed))
	}
	return nil
}
