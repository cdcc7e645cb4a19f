package orders

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mercaline/tienda-backend/internal/orders/reservation"
	"github.com/mercaline/tienda-backend/pkg/db/models"
	"github.com/mercaline/tienda-backend/pkg/enums"
	pkgerrors "github.com/mercaline/tienda-backend/pkg/errors"
	"github.com/mercaline/tienda-backend/pkg/logger"
	"github.com/mercaline/tienda-backend/pkg/numeric"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productFinder interface {
	FindByID(ctx context.Context, id int64) (*models.Product, error)
	FindByDocumentID(ctx context.Context, documentID string) (*models.Product, error)
}

type confirmationMailer interface {
	SendOrderConfirmation(ctx context.Context, order *models.Order) error
}

// Service defines the order lifecycle operations.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	Get(ctx context.Context, ref string) (*models.Order, error)
	List(ctx context.Context, filters ListFilters) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id int64, input UpdateStatusInput) (*models.Order, error)
	ApplyCourierEvent(ctx context.Context, event CourierEvent) (*models.Order, error)
	MarkPaidByTransaction(ctx context.Context, transactionID string) (*models.Order, error)
}

// Config carries the deployment-specific order policies.
type Config struct {
	// DefaultStatus replaces omitted or blank business statuses, on
	// creation and on update alike.
	DefaultStatus enums.OrderStatus
	// FreeShippingThreshold zeroes the delivery cost for subtotals at or
	// above it. Zero disables the rule.
	FreeShippingThreshold decimal.Decimal
}

type service struct {
	repo     Repository
	products productFinder
	tx       txRunner
	mailer   confirmationMailer
	logg     *logger.Logger
	cfg      Config
}

// NewService builds the orders service.
func NewService(
	repo Repository,
	products productFinder,
	tx txRunner,
	mailer confirmationMailer,
	logg *logger.Logger,
	cfg Config,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product finder required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if mailer == nil {
		return nil, fmt.Errorf("confirmation mailer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if !cfg.DefaultStatus.IsValid() {
		cfg.DefaultStatus = enums.OrderStatusPending
	}
	return &service{
		repo:     repo,
		products: products,
		tx:       tx,
		mailer:   mailer,
		logg:     logg,
		cfg:      cfg,
	}, nil
}

// resolvedItem pairs a normalized line item with its catalog product,
// when the item carried a resolvable reference.
type resolvedItem struct {
	NormalizedItem
	product *models.Product
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one item")
	}
	if input.ShippingAddress == nil || input.ShippingAddress.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address required")
	}

	resolved, err := s.resolveItems(ctx, input.Items)
	if err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	for _, item := range resolved {
		subtotal = subtotal.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	deliveryCost := input.DeliveryMethod.Cost
	if s.cfg.FreeShippingThreshold.IsPositive() && subtotal.GreaterThanOrEqual(s.cfg.FreeShippingThreshold) {
		deliveryCost = decimal.Zero
	}
	total := subtotal.Add(deliveryCost)

	// Totals are recomputed server side. A client-submitted total is only
	// a consistency check: more than one peso of divergence rejects the
	// request, smaller rounding drift is tolerated.
	if claimed := numeric.CoerceDecimal(input.Total); !claimed.IsZero() {
		if claimed.Sub(total).Abs().GreaterThan(decimal.NewFromInt(1)) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "submitted total does not match computed total").
				WithDetails(map[string]any{
					"submitted": claimed.String(),
					"computed":  total.String(),
				})
		}
	}

	order := &models.Order{
		DocumentID:      uuid.NewString(),
		UserID:          input.UserID,
		Subtotal:        subtotal,
		DeliveryCost:    deliveryCost,
		Total:           total,
		Status:          NormalizeStatus(input.Status, s.cfg.DefaultStatus),
		ShippingStatus:  enums.ShippingStatusPending,
		PaymentMethod:   enums.PaymentMethod(strings.TrimSpace(input.PaymentMethod)),
		DeliveryMethod:  input.DeliveryMethod,
		ShippingAddress: input.ShippingAddress,
		TransactionID:   input.TransactionID,
		CustomerNotes:   input.CustomerNotes,
	}
	if order.PaymentMethod == "" {
		order.PaymentMethod = enums.PaymentMethodCash
	}

	var requests []reservation.StockRequest
	for _, item := range resolved {
		line := models.OrderItem{
			Name:     item.Name,
			Quantity: item.Quantity,
			Price:    item.Price,
		}
		if item.product != nil {
			line.ProductID = &item.product.ID
			line.ProductDocumentID = &item.product.DocumentID
			requests = append(requests, reservation.StockRequest{
				ProductID: item.product.ID,
				Ref:       item.Ref.Label(),
				Qty:       item.Quantity,
			})
		}
		order.Items = append(order.Items, line)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := reservation.ReserveStock(ctx, tx, requests); err != nil {
			return err
		}
		if _, err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			if pkgerrors.As(err) != nil {
				return err
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyConfirmation(ctx, order)

	return order, nil
}

// resolveItems normalizes every line item and loads the catalog product
// behind resolvable references. A referenced product that does not exist
// fails the whole request; items without any reference pass through as
// custom line items.
func (s *service) resolveItems(ctx context.Context, items []ItemInput) ([]resolvedItem, error) {
	resolved := make([]resolvedItem, 0, len(items))
	for _, raw := range items {
		item := resolvedItem{NormalizedItem: raw.Normalize()}
		if !item.Ref.IsEmpty() {
			product, err := s.lookupProduct(ctx, item.Ref)
			if err != nil {
				return nil, err
			}
			item.product = product
			if item.Name == "" {
				item.Name = product.Name
			}
			if item.Price.IsZero() {
				item.Price = product.Price
			}
		}
		if item.Name == "" {
			item.Name = "Producto"
		}
		resolved = append(resolved, item)
	}
	return resolved, nil
}

func (s *service) lookupProduct(ctx context.Context, ref ProductRef) (*models.Product, error) {
	if ref.ID != 0 {
		product, err := s.products.FindByID(ctx, ref.ID)
		if err == nil {
			return product, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
	}
	if ref.DocumentID != "" {
		product, err := s.products.FindByDocumentID(ctx, ref.DocumentID)
		if err == nil {
			return product, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", ref.Label()))
}

// notifyConfirmation fires the confirmation email after the transaction
// committed. Failures are logged and swallowed; they never affect the
// creation response.
func (s *service) notifyConfirmation(ctx context.Context, order *models.Order) {
	ctx = s.logg.WithOrderID(context.WithoutCancel(ctx), order.ID)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logg.Error(ctx, "order confirmation panicked", fmt.Errorf("%v", r))
			}
		}()
		if err := s.mailer.SendOrderConfirmation(ctx, order); err != nil {
			s.logg.Error(ctx, "order confirmation failed", err)
		}
	}()
}

// Get loads an order by numeric id or document id.
func (s *service) Get(ctx context.Context, ref string) (*models.Order, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order reference required")
	}

	var (
		order *models.Order
		err   error
	)
	if id, parseErr := strconv.ParseInt(ref, 10, 64); parseErr == nil {
		order, err = s.repo.FindByID(ctx, id)
	} else {
		order, err = s.repo.FindByDocumentID(ctx, ref)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, filters ListFilters) ([]models.Order, error) {
	if filters.Limit <= 0 || filters.Limit > 100 {
		filters.Limit = 50
	}
	orders, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return orders, nil
}

func (s *service) UpdateStatus(ctx context.Context, id int64, input UpdateStatusInput) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	status := NormalizeStatus(input.Status, s.cfg.DefaultStatus)
	updates := map[string]any{}
	if status != order.Status {
		updates["status"] = status
	}
	if input.TrackingNumber != nil {
		updates["tracking_number"] = *input.TrackingNumber
	}
	if input.TrackingURL != nil {
		updates["tracking_url"] = *input.TrackingURL
	}
	if len(updates) == 0 {
		return order, nil
	}

	if err := s.repo.Update(ctx, order.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}

	order.Status = status
	if input.TrackingNumber != nil {
		order.TrackingNumber = input.TrackingNumber
	}
	if input.TrackingURL != nil {
		order.TrackingURL = input.TrackingURL
	}
	return order, nil
}

func (s *service) ApplyCourierEvent(ctx context.Context, event CourierEvent) (*models.Order, error) {
	if strings.TrimSpace(event.DropiOrderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order reference required")
	}

	order, err := s.repo.FindByDropiOrderID(ctx, event.DropiOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	updates := map[string]any{}
	if mapped, ok := MapCourierStatus(event.Status); ok {
		if next, changed := TransitionShipping(order.ShippingStatus, mapped); changed {
			updates["shipping_status"] = next
			order.ShippingStatus = next
		}
		if business := BusinessAfterShipping(order.Status, order.ShippingStatus); business != order.Status {
			updates["status"] = business
			order.Status = business
		}
	} else {
		s.logg.Warn(s.logg.WithOrderID(ctx, order.ID), fmt.Sprintf("unrecognized courier status %q", event.Status))
	}
	if event.TrackingNumber != nil && *event.TrackingNumber != "" {
		updates["tracking_number"] = *event.TrackingNumber
		order.TrackingNumber = event.TrackingNumber
	}
	if event.TrackingURL != nil && *event.TrackingURL != "" {
		updates["tracking_url"] = *event.TrackingURL
		order.TrackingURL = event.TrackingURL
	}

	if len(updates) == 0 {
		return order, nil
	}
	if err := s.repo.Update(ctx, order.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply courier update")
	}
	return order, nil
}

func (s *service) MarkPaidByTransaction(ctx context.Context, transactionID string) (*models.Order, error) {
	if strings.TrimSpace(transactionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}

	order, err := s.repo.FindByTransactionID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	next := BusinessAfterPayment(order.Status)
	if next == order.Status {
		return order, nil
	}
	if err := s.repo.Update(ctx, order.ID, map[string]any{"status": next}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
	}
	order.Status = next
	return order, nil
}
