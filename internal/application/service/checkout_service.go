package service

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/caja-api/internal/domain/entity"
	"github.com/sangkips/caja-api/internal/domain/enum"
	"github.com/sangkips/caja-api/internal/domain/repository"
	"github.com/sangkips/caja-api/pkg/apperror"
	"github.com/sangkips/caja-api/pkg/utils"
	"go.uber.org/zap"
)

const receiptPrefix = "VTA"

// SalePublisher announces committed sales to downstream consumers
type SalePublisher interface {
	PublishSaleRecorded(ctx context.Context, sale *entity.Sale) error
}

// CheckoutService turns a session's cart into a recorded sale, all or nothing
type CheckoutService struct {
	carts          *CartStore
	ledger         *InventoryLedger
	saleRepo       repository.SaleRepository
	publisher      SalePublisher
	paymentMethods map[enum.PaymentMethod]struct{}
	storageTimeout time.Duration
	now            func() time.Time
	log            *zap.Logger
}

// CheckoutConfig holds what a checkout accepts and how long storage may take
type CheckoutConfig struct {
	PaymentMethods []enum.PaymentMethod
	StorageTimeout time.Duration
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(
	carts *CartStore,
	ledger *InventoryLedger,
	saleRepo repository.SaleRepository,
	publisher SalePublisher,
	cfg CheckoutConfig,
	log *zap.Logger,
) *CheckoutService {
	methods := make(map[enum.PaymentMethod]struct{}, len(cfg.PaymentMethods))
	for _, m := range cfg.PaymentMethods {
		methods[m] = struct{}{}
	}

	return &CheckoutService{
		carts:          carts,
		ledger:         ledger,
		saleRepo:       saleRepo,
		publisher:      publisher,
		paymentMethods: methods,
		storageTimeout: cfg.StorageTimeout,
		now:            time.Now,
		log:            log,
	}
}

// CheckoutInput represents the checkout request of one session
type CheckoutInput struct {
	SessionID     string
	UserID        uuid.UUID
	PaymentMethod string
	CustomerRef   string
}

// Checkout records the session's cart as a sale and decrements stock for
// every catalog line in one transaction. On any failure the cart and its
// reservations stay exactly as they were.
func (s *CheckoutService) Checkout(ctx context.Context, input CheckoutInput) (*entity.Sale, error) {
	// Once started, a checkout runs to a definite outcome even if the
	// client goes away.
	ctx = context.WithoutCancel(ctx)

	sale, err := s.commit(ctx, input)
	if err != nil {
		if apperror.GetAppError(err).Code >= 500 {
			s.log.Error("checkout failed",
				zap.String("session_id", input.SessionID),
				zap.Error(err),
			)
		}
		return nil, err
	}

	s.log.Info("sale recorded",
		zap.String("sale_id", sale.ID.String()),
		zap.String("receipt_no", sale.ReceiptNo),
		zap.String("session_id", sale.SessionID),
		zap.Int64("total_cents", sale.Total),
		zap.Int("lines", len(sale.Lines)),
	)

	s.publish(ctx, sale)
	return sale, nil
}

func (s *CheckoutService) commit(ctx context.Context, input CheckoutInput) (*entity.Sale, error) {
	e := s.carts.lookup(input.SessionID)
	if e == nil {
		return nil, apperror.ErrEmptyCart
	}
	defer e.mu.Unlock()

	if e.cart.IsEmpty() {
		return nil, apperror.ErrEmptyCart
	}

	customerRef := strings.TrimSpace(input.CustomerRef)
	if customerRef == "" {
		return nil, apperror.ErrMissingCustomerRef
	}

	method := enum.NormalizePaymentMethod(input.PaymentMethod)
	if _, ok := s.paymentMethods[method]; !ok {
		return nil, apperror.NewValidationError("Unsupported payment method",
			apperror.FieldError{Field: "metodo_pago", Message: fmt.Sprintf("%q is not accepted", input.PaymentMethod)})
	}

	quantities := e.cart.Reservations()
	hold := s.ledger.Acquire(slices.Collect(maps.Keys(quantities)))
	defer hold.Release()

	storageCtx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	stale, err := hold.Verify(storageCtx, input.SessionID, quantities)
	if err != nil {
		return nil, err
	}
	if len(stale) > 0 {
		return nil, apperror.NewStaleCartError(
			fmt.Sprintf("Stock changed for: %s", strings.Join(lineNames(e.cart, stale), ", ")))
	}

	cart := e.cart.Clone()
	sale := &entity.Sale{
		ID:            uuid.New(),
		ReceiptNo:     utils.GenerateReferenceNo(receiptPrefix),
		SessionID:     input.SessionID,
		UserID:        input.UserID,
		CustomerRef:   customerRef,
		PaymentMethod: method,
		Total:         cart.Total(),
		TotalItems:    cart.TotalItems(),
		SoldAt:        s.now(),
		Lines:         entity.NewSaleLines(cart.Lines),
	}

	err = hold.Commit(storageCtx, input.SessionID, quantities, func(txCtx context.Context) error {
		if err := s.saleRepo.Append(txCtx, sale); err != nil {
			return fmt.Errorf("failed to append sale: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.carts.destroy(e, input.SessionID)
	return sale, nil
}

// publish is best effort: the sale is already committed
func (s *CheckoutService) publish(ctx context.Context, sale *entity.Sale) {
	if s.publisher == nil {
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	if err := s.publisher.PublishSaleRecorded(pubCtx, sale); err != nil {
		s.log.Warn("failed to publish sale event",
			zap.String("sale_id", sale.ID.String()),
			zap.Error(err),
		)
	}
}

// lineNames returns the names of the catalog lines for the given products
func lineNames(cart entity.Cart, productIDs []int64) []string {
	names := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		name := fmt.Sprintf("product %d", id)
		for _, l := range cart.Lines {
			if l.IsCatalog() && l.ProductID == id {
				name = l.Description
				break
			}
		}
		names = append(names, name)
	}
	return names
}
