package fulfillment

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sellforge/sellforge/app/models"
	"github.com/sellforge/sellforge/app/repository"
	"github.com/sellforge/sellforge/internal/pkg/entitlements"
	"github.com/sellforge/sellforge/internal/pkg/env"
	"github.com/sellforge/sellforge/internal/pkg/orders"
)

// ErrNotPaid is returned when fulfillment is requested for an order that is
// not in paid.
var ErrNotPaid = errors.New("order is not paid")

// Notifier is told about fulfilled orders. It is called inside the
// confirmation request, so implementations must return promptly and do any
// slow delivery on their own goroutine. The mail sender implements it; tests
// use a recording fake.
type Notifier interface {
	OrderFulfilled(order *models.Order, result *Result)
}

// ItemResult records what fulfilling one order item produced.
type ItemResult struct {
	OrderItemID   uint
	ProductID     uint
	Grants        int
	PendingGrants int
	Bookings      int
	FeatureKeys   int
	Err           error
}

// Result aggregates per-item outcomes of one fulfillment run.
type Result struct {
	OrderID   uint
	Items     []ItemResult
	Fulfilled bool
}

// Failed returns the items whose fulfillment errored.
func (r *Result) Failed() []ItemResult {
	var out []ItemResult
	for _, item := range r.Items {
		if item.Err != nil {
			out = append(out, item)
		}
	}
	return out
}

// Engine turns a paid order into its artifacts: download grants for digital
// products, bookings for service products, entitlements for feature keys and
// local subscription rows for recurring prices. Every write is idempotent on
// a natural key, so running the engine twice on the same order is a no-op.
type Engine struct {
	ordersMgr *orders.Manager
	repo      repository.FulfillmentRepository
	subs      repository.SubscriptionRepository
	notifier  Notifier

	grantTTLDays      int
	grantMaxDownloads int
}

// NewEngine creates a fulfillment engine. The notifier may be nil.
func NewEngine(ordersMgr *orders.Manager, repo repository.FulfillmentRepository, subs repository.SubscriptionRepository, notifier Notifier) *Engine {
	return &Engine{
		ordersMgr:         ordersMgr,
		repo:              repo,
		subs:              subs,
		notifier:          notifier,
		grantTTLDays:      env.GetEnvInt("DOWNLOAD_GRANT_TTL_DAYS", 365),
		grantMaxDownloads: env.GetEnvInt("DOWNLOAD_GRANT_MAX_DOWNLOADS", 5),
	}
}

// Fulfill processes every item of a paid order. Item failures are isolated:
// one failing item leaves the others fulfilled and keeps the order in paid so
// a later run can retry. Only a fully clean run moves the order to fulfilled.
func (e *Engine) Fulfill(order *models.Order, at time.Time) (*Result, error) {
	if order.Status != models.OrderStatusPaid {
		if order.Status == models.OrderStatusFulfilled {
			return &Result{OrderID: order.ID, Fulfilled: true}, nil
		}
		return nil, fmt.Errorf("%w: order %s is %s", ErrNotPaid, order.PublicID, order.Status)
	}

	ents := entitlements.NewService(e.repo)
	result := &Result{OrderID: order.ID}

	for i := range order.Items {
		item := &order.Items[i]
		ir := ItemResult{OrderItemID: item.ID, ProductID: item.ProductID}
		if item.Product == nil {
			ir.Err = fmt.Errorf("order item %d has no loaded product", item.ID)
			result.Items = append(result.Items, ir)
			continue
		}

		ir.Err = e.fulfillItem(order, item, ents, at, &ir)
		if ir.Err != nil {
			log.Printf("order %s: item %d (%s) fulfillment failed: %v", order.PublicID, item.ID, item.ProductNameSnapshot, ir.Err)
		}
		result.Items = append(result.Items, ir)
	}

	if len(result.Failed()) == 0 {
		moved, err := e.ordersMgr.MarkFulfilled(order.ID, at)
		if err != nil {
			return result, err
		}
		result.Fulfilled = true
		if moved {
			order.Status = models.OrderStatusFulfilled
			fulfilledAt := at
			order.FulfilledAt = &fulfilledAt
			if e.notifier != nil {
				e.notifier.OrderFulfilled(order, result)
			}
		}
	}
	return result, nil
}

func (e *Engine) fulfillItem(order *models.Order, item *models.OrderItem, ents *entitlements.Service, at time.Time, ir *ItemResult) error {
	switch item.Product.ProductType {
	case models.ProductTypeDigital:
		if err := e.grantDownloads(order, item, at, ir); err != nil {
			return err
		}
	case models.ProductTypeService:
		if err := e.createBookings(order, item, at, ir); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown product type %q", item.Product.ProductType)
	}

	keys := item.Product.NormalizedFeatureKeys()
	if len(keys) > 0 {
		if err := ents.GrantPurchase(order.UserID, keys, order.PublicID, at); err != nil {
			return err
		}
		ir.FeatureKeys = len(keys)
	}

	if item.Price != nil && item.Price.IsRecurring() {
		if err := e.ensureSubscription(order, item, at); err != nil {
			return err
		}
	}
	return nil
}

// grantDownloads creates one grant per active asset. A digital product whose
// deliverable is not uploaded yet gets a pending placeholder asset plus a
// grant against it, so the buyer sees the purchase immediately.
func (e *Engine) grantDownloads(order *models.Order, item *models.OrderItem, at time.Time, ir *ItemResult) error {
	assets := item.Product.ActiveAssets()
	if len(assets) == 0 {
		// A retried run after a partial failure must not mint a second
		// placeholder for an item that already holds a pending grant.
		pending, err := e.repo.CountPendingGrantsForItem(item.ID)
		if err != nil {
			return err
		}
		if pending > 0 {
			ir.PendingGrants += int(pending)
			return nil
		}
		asset := &models.DigitalAsset{
			ProductID:     item.ProductID,
			Title:         item.Product.Name + " (in preparation)",
			FilePath:      fmt.Sprintf("pending/product-%d/order-item-%d", item.ProductID, item.ID),
			IsActive:      false,
			IsPending:     true,
			PendingReason: "awaiting_upload",
		}
		if err := e.repo.CreateAsset(asset); err != nil {
			return err
		}
		if _, err := e.createGrant(order, item, asset.ID, at); err != nil {
			return err
		}
		ir.PendingGrants++
		return nil
	}

	for _, asset := range assets {
		created, err := e.createGrant(order, item, asset.ID, at)
		if err != nil {
			return err
		}
		if created {
			ir.Grants++
		}
	}
	return nil
}

func (e *Engine) createGrant(order *models.Order, item *models.OrderItem, assetID uint, at time.Time) (bool, error) {
	var expiresAt *time.Time
	if e.grantTTLDays > 0 {
		t := at.AddDate(0, 0, e.grantTTLDays)
		expiresAt = &t
	}
	grant := &models.DownloadGrant{
		UserID:       order.UserID,
		OrderItemID:  item.ID,
		AssetID:      assetID,
		ExpiresAt:    expiresAt,
		MaxDownloads: e.grantMaxDownloads,
		IsActive:     true,
	}
	return e.repo.CreateGrantIfNotExists(grant)
}

// createBookings creates one booking per purchased unit. Existing bookings
// are counted first so a replayed run only fills the gap.
func (e *Engine) createBookings(order *models.Order, item *models.OrderItem, at time.Time, ir *ItemResult) error {
	offer := item.Product.ServiceOffer
	if offer == nil {
		return fmt.Errorf("service product %d has no offer terms", item.ProductID)
	}

	existing, err := e.repo.CountBookingsForItem(item.ID)
	if err != nil {
		return err
	}

	var dueAt *time.Time
	if offer.DeliveryDays > 0 {
		t := at.AddDate(0, 0, offer.DeliveryDays)
		dueAt = &t
	}

	qty := item.Quantity
	if qty < 1 {
		qty = 1
	}
	for seq := int(existing) + 1; seq <= qty; seq++ {
		booking := &models.Booking{
			UserID:         order.UserID,
			ServiceOfferID: offer.ID,
			OrderItemID:    item.ID,
			Sequence:       seq,
			Status:         models.BookingStatusRequested,
			DueAt:          dueAt,
		}
		if err := e.repo.CreateBooking(booking); err != nil {
			return err
		}
		ir.Bookings++
	}
	return nil
}

// ensureSubscription creates the local subscription row for a recurring
// price. The provider subscription ID is a local placeholder until the first
// subscription webhook claims the row.
func (e *Engine) ensureSubscription(order *models.Order, item *models.OrderItem, at time.Time) error {
	exists, err := e.subs.ExistsForOrderItem(item.ID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	itemID := item.ID
	productID := item.ProductID
	start := at
	sub := &models.Subscription{
		UserID:                 order.UserID,
		ProductID:              &productID,
		PriceID:                item.PriceID,
		Status:                 models.SubscriptionStatusActive,
		ProviderSubscriptionID: fmt.Sprintf("local:%s:%d", order.PublicID, item.ID),
		SourceOrderPublicID:    order.PublicID,
		SourceOrderItemID:      &itemID,
		CurrentPeriodStart:     &start,
		CurrentPeriodEnd:       item.Price.PeriodEnd(at),
		LastEventAt:            &start,
	}
	return e.subs.Create(sub)
}
