package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/mercaline/tienda-backend/pkg/db/models"
	"github.com/mercaline/tienda-backend/pkg/dropi"
	"github.com/mercaline/tienda-backend/pkg/logger"
	"github.com/mercaline/tienda-backend/pkg/metrics"
)

type supplierCatalog interface {
	GetProduct(ctx context.Context, externalID string) (*dropi.Product, error)
}

type mediaStore interface {
	Upload(ctx context.Context, objectName, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, objectName string) error
}

// SyncConfig carries the catalog sync tunables.
type SyncConfig struct {
	// MarkdownPercent is subtracted from the supplier's suggested price
	// to produce the storefront price.
	MarkdownPercent int
	// ItemDelay paces consecutive remote fetches during a batch run.
	ItemDelay time.Duration
}

// SyncSummary aggregates a batch run.
type SyncSummary struct {
	Eligible int `json:"eligible"`
	Synced   int `json:"synced"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// Syncer pulls per-product stock, price and image data from the supplier
// catalog and folds it into local product records.
type Syncer struct {
	repo     Repository
	supplier supplierCatalog
	media    mediaStore
	http     *http.Client
	limiter  *rate.Limiter
	metrics  *metrics.CatalogSyncMetrics
	logg     *logger.Logger
	cfg      SyncConfig
}

// NewSyncer builds the catalog sync engine. media may be nil, in which
// case image replacement is disabled and only fields are synced.
func NewSyncer(
	repo Repository,
	supplier supplierCatalog,
	media mediaStore,
	syncMetrics *metrics.CatalogSyncMetrics,
	logg *logger.Logger,
	cfg SyncConfig,
) (*Syncer, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if supplier == nil {
		return nil, fmt.Errorf("supplier catalog client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.MarkdownPercent < 0 || cfg.MarkdownPercent >= 100 {
		return nil, fmt.Errorf("markdown percent out of range: %d", cfg.MarkdownPercent)
	}
	if cfg.ItemDelay <= 0 {
		cfg.ItemDelay = 500 * time.Millisecond
	}
	return &Syncer{
		repo:     repo,
		supplier: supplier,
		media:    media,
		http:     &http.Client{Timeout: 30 * time.Second},
		limiter:  rate.NewLimiter(rate.Every(cfg.ItemDelay), 1),
		metrics:  syncMetrics,
		logg:     logg,
		cfg:      cfg,
	}, nil
}

// SyncProduct refreshes one product from the supplier catalog. It returns
// (nil, nil) when the product is ineligible or the remote fetch fails:
// a single bad product never fails a batch.
func (s *Syncer) SyncProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if product == nil || product.DropiID == nil || strings.TrimSpace(*product.DropiID) == "" {
		return nil, nil
	}
	ctx = s.logg.WithField(ctx, "product_id", product.ID)

	remote, err := s.supplier.GetProduct(ctx, *product.DropiID)
	if err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("catalog sync skipping product: %v", err))
		return nil, nil
	}

	updates := s.deriveFields(product, remote)
	if len(updates) > 0 {
		if err := s.repo.Update(ctx, product.ID, updates); err != nil {
			return nil, fmt.Errorf("updating product %d: %w", product.ID, err)
		}
	}

	// Image replacement is independent of the field sync: a failure here
	// is logged and the already-updated fields stand.
	if remote.MainImageURL != "" && s.media != nil {
		if err := s.replaceImage(ctx, product, remote.MainImageURL); err != nil {
			s.logg.Error(ctx, "catalog sync image replacement failed", err)
		}
	}

	updated, err := s.repo.FindByID(ctx, product.ID)
	if err != nil {
		return nil, fmt.Errorf("reloading product %d: %w", product.ID, err)
	}
	return updated, nil
}

// deriveFields maps the remote entry onto local columns. Stock prefers
// the remote stock field, then the available-quantity field, and leaves
// the local value alone when both are absent.
func (s *Syncer) deriveFields(product *models.Product, remote *dropi.Product) map[string]any {
	updates := map[string]any{}

	switch {
	case remote.Stock != nil:
		updates["stock"] = *remote.Stock
	case remote.QuantityAvailable != nil:
		updates["stock"] = *remote.QuantityAvailable
	}

	if remote.SalePrice.IsPositive() {
		updates["cost_price"] = remote.SalePrice
	}

	base := remote.SuggestedPrice
	if !base.IsPositive() {
		base = remote.SalePrice
	}
	if base.IsPositive() {
		factor := decimal.NewFromInt(100 - int64(s.cfg.MarkdownPercent)).Div(decimal.NewFromInt(100))
		updates["original_price"] = base
		updates["price"] = base.Mul(factor).Round(0)
	}

	return updates
}

// replaceImage deletes every attached image, then downloads the remote
// one and re-attaches it. Replacement instead of appending keeps repeated
// syncs from accumulating duplicates.
func (s *Syncer) replaceImage(ctx context.Context, product *models.Product, sourceURL string) error {
	existing, err := s.repo.ListImages(ctx, product.ID)
	if err != nil {
		return fmt.Errorf("listing images: %w", err)
	}
	for _, image := range existing {
		if image.ObjectName == "" {
			continue
		}
		if err := s.media.Delete(ctx, image.ObjectName); err != nil {
			s.logg.Warn(ctx, fmt.Sprintf("deleting media object %s: %v", image.ObjectName, err))
		}
	}
	if err := s.repo.DeleteImages(ctx, product.ID); err != nil {
		return fmt.Errorf("deleting image rows: %w", err)
	}

	body, contentType, err := s.download(ctx, sourceURL)
	if err != nil {
		return fmt.Errorf("downloading image: %w", err)
	}
	defer body.Close()

	objectName := fmt.Sprintf("products/%d/%s%s", product.ID, uuid.NewString(), extensionFor(sourceURL, contentType))
	publicURL, err := s.media.Upload(ctx, objectName, contentType, body)
	if err != nil {
		return fmt.Errorf("uploading image: %w", err)
	}

	image := &models.ProductImage{
		ProductID:  product.ID,
		ObjectName: objectName,
		URL:        publicURL,
		SourceURL:  &sourceURL,
	}
	if err := s.repo.CreateImage(ctx, image); err != nil {
		return fmt.Errorf("attaching image: %w", err)
	}
	return nil
}

func (s *Syncer) download(ctx context.Context, url string) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return resp.Body, contentType, nil
}

func extensionFor(sourceURL, contentType string) string {
	if ext := path.Ext(strings.SplitN(path.Base(sourceURL), "?", 2)[0]); ext != "" && len(ext) <= 5 {
		return ext
	}
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	}
	return ""
}

// SyncAll runs the paced batch sync over every eligible product. The
// limiter keeps one remote fetch per ItemDelay; individual failures are
// counted, never propagated.
func (s *Syncer) SyncAll(ctx context.Context) (SyncSummary, error) {
	products, err := s.repo.ListSyncEligible(ctx)
	if err != nil {
		return SyncSummary{}, fmt.Errorf("listing eligible products: %w", err)
	}

	summary := SyncSummary{Eligible: len(products)}
	for i := range products {
		if err := s.limiter.Wait(ctx); err != nil {
			return summary, err
		}

		updated, err := s.SyncProduct(ctx, &products[i])
		switch {
		case err != nil:
			summary.Failed++
			if s.metrics != nil {
				s.metrics.IncFailed()
			}
			s.logg.Error(s.logg.WithField(ctx, "product_id", products[i].ID), "catalog sync product failed", err)
		case updated == nil:
			summary.Skipped++
			if s.metrics != nil {
				s.metrics.IncSkipped()
			}
		default:
			summary.Synced++
			if s.metrics != nil {
				s.metrics.IncSynced()
			}
		}
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"eligible": summary.Eligible,
		"synced":   summary.Synced,
		"skipped":  summary.Skipped,
		"failed":   summary.Failed,
	}), "catalog sync batch finished")
	return summary, nil
}
