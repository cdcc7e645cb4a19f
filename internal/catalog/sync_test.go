package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mercaline/tienda-backend/pkg/db/models"
	"github.com/mercaline/tienda-backend/pkg/dropi"
	"github.com/mercaline/tienda-backend/pkg/logger"
)

type stubSupplier struct {
	products map[string]*dropi.Product
	err      error
	calls    int
}

func (s *stubSupplier) GetProduct(_ context.Context, externalID string) (*dropi.Product, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	product, ok := s.products[externalID]
	if !ok {
		return nil, dropi.ErrNotFound
	}
	return product, nil
}

type stubMedia struct {
	uploads   []string
	deletes   []string
	uploadErr error
}

func (s *stubMedia) Upload(_ context.Context, objectName, _ string, body io.Reader) (string, error) {
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	io.Copy(io.Discard, body)
	s.uploads = append(s.uploads, objectName)
	return "https://storage.example.com/" + objectName, nil
}

func (s *stubMedia) Delete(_ context.Context, objectName string) error {
	s.deletes = append(s.deletes, objectName)
	return nil
}

func newSyncTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:catalog_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Product{}, &models.ProductImage{}))
	return db
}

func seedSyncProduct(t *testing.T, db *gorm.DB, dropiID string, stock int) *models.Product {
	t.Helper()
	product := models.Product{
		DocumentID: uuid.NewString(),
		Name:       "licuadora",
		Slug:       "licuadora-" + uuid.NewString()[:8],
		Price:      decimal.NewFromInt(99000),
		Stock:      stock,
		IsActive:   true,
	}
	if dropiID != "" {
		product.DropiID = &dropiID
	}
	require.NoError(t, db.Create(&product).Error)
	return &product
}

func newTestSyncer(t *testing.T, db *gorm.DB, supplier supplierCatalog, media mediaStore) *Syncer {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "catalog-test", Output: io.Discard})
	syncer, err := NewSyncer(NewRepository(db), supplier, media, nil, logg, SyncConfig{
		MarkdownPercent: 10,
		ItemDelay:       time.Millisecond,
	})
	require.NoError(t, err)
	return syncer
}

func intPtr(v int) *int { return &v }

func TestSyncProductDerivesFields(t *testing.T) {
	db := newSyncTestDB(t)
	product := seedSyncProduct(t, db, "88", 3)
	supplier := &stubSupplier{products: map[string]*dropi.Product{
		"88": {
			ID:             "88",
			Stock:          intPtr(17),
			SalePrice:      decimal.NewFromInt(60000),
			SuggestedPrice: decimal.NewFromInt(100000),
		},
	}}
	syncer := newTestSyncer(t, db, supplier, &stubMedia{})

	updated, err := syncer.SyncProduct(context.Background(), product)
	require.NoError(t, err)
	require.NotNil(t, updated)

	assert.Equal(t, 17, updated.Stock)
	assert.True(t, updated.CostPrice.Equal(decimal.NewFromInt(60000)))
	assert.True(t, updated.OriginalPrice.Equal(decimal.NewFromInt(100000)))
	assert.True(t, updated.Price.Equal(decimal.NewFromInt(90000)), "price %s", updated.Price)
}

func TestSyncProductStockFallbackChain(t *testing.T) {
	db := newSyncTestDB(t)
	syncer := newTestSyncer(t, db, &stubSupplier{products: map[string]*dropi.Product{
		"no-stock": {ID: "no-stock", QuantityAvailable: intPtr(4)},
		"nothing":  {ID: "nothing"},
	}}, &stubMedia{})

	viaQuantity := seedSyncProduct(t, db, "no-stock", 9)
	updated, err := syncer.SyncProduct(context.Background(), viaQuantity)
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Stock)

	unchanged := seedSyncProduct(t, db, "nothing", 9)
	updated, err = syncer.SyncProduct(context.Background(), unchanged)
	require.NoError(t, err)
	assert.Equal(t, 9, updated.Stock)
}

func TestSyncProductSkipsIneligibleAndFetchFailures(t *testing.T) {
	db := newSyncTestDB(t)
	syncer := newTestSyncer(t, db, &stubSupplier{err: fmt.Errorf("supplier down")}, &stubMedia{})

	noRef := seedSyncProduct(t, db, "", 3)
	updated, err := syncer.SyncProduct(context.Background(), noRef)
	require.NoError(t, err)
	assert.Nil(t, updated)

	withRef := seedSyncProduct(t, db, "88", 3)
	updated, err = syncer.SyncProduct(context.Background(), withRef)
	require.NoError(t, err)
	assert.Nil(t, updated)

	var reloaded models.Product
	require.NoError(t, db.First(&reloaded, withRef.ID).Error)
	assert.Equal(t, 3, reloaded.Stock)
}

func TestSyncProductReplacesImages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpegbytes"))
	}))
	defer srv.Close()

	db := newSyncTestDB(t)
	product := seedSyncProduct(t, db, "88", 3)
	require.NoError(t, db.Create(&models.ProductImage{
		ProductID:  product.ID,
		ObjectName: "products/old-object.jpg",
		URL:        "https://storage.example.com/products/old-object.jpg",
	}).Error)

	media := &stubMedia{}
	supplier := &stubSupplier{products: map[string]*dropi.Product{
		"88": {ID: "88", Stock: intPtr(5), MainImageURL: srv.URL + "/img.jpg"},
	}}
	syncer := newTestSyncer(t, db, supplier, media)

	updated, err := syncer.SyncProduct(context.Background(), product)
	require.NoError(t, err)
	require.NotNil(t, updated)

	assert.Equal(t, []string{"products/old-object.jpg"}, media.deletes)
	require.Len(t, media.uploads, 1)
	require.Len(t, updated.Images, 1)
	assert.Equal(t, srv.URL+"/img.jpg", updated.Images[0].SourceURL)
	assert.Equal(t, media.uploads[0], updated.Images[0].ObjectName)
}

func TestSyncProductImageFailureKeepsFieldSync(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("jpegbytes"))
	}))
	defer srv.Close()

	db := newSyncTestDB(t)
	product := seedSyncProduct(t, db, "88", 3)
	media := &stubMedia{uploadErr: fmt.Errorf("bucket unavailable")}
	supplier := &stubSupplier{products: map[string]*dropi.Product{
		"88": {ID: "88", Stock: intPtr(11), MainImageURL: srv.URL + "/img.jpg"},
	}}
	syncer := newTestSyncer(t, db, supplier, media)

	updated, err := syncer.SyncProduct(context.Background(), product)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, 11, updated.Stock)
	assert.Empty(t, updated.Images)
}

func TestSyncAllCountsAndNeverAborts(t *testing.T) {
	db := newSyncTestDB(t)
	seedSyncProduct(t, db, "ok", 1)
	seedSyncProduct(t, db, "missing", 1)
	seedSyncProduct(t, db, "", 1) // ineligible, never listed

	supplier := &stubSupplier{products: map[string]*dropi.Product{
		"ok": {ID: "ok", Stock: intPtr(2)},
	}}
	syncer := newTestSyncer(t, db, supplier, &stubMedia{})

	summary, err := syncer.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Eligible)
	assert.Equal(t, 1, summary.Synced)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 2, supplier.calls)
}
