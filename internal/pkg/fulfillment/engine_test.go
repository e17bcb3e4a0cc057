package fulfillment

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/sellforge/sellforge/app/models"
	"github.com/sellforge/sellforge/internal/pkg/orders"
)

type engineOrderRepo struct {
	orders map[uint]*models.Order
}

func (r *engineOrderRepo) Create(*models.Order) error { return nil }

func (r *engineOrderRepo) GetByID(id uint) (*models.Order, error) {
	if o, ok := r.orders[id]; ok {
		return o, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *engineOrderRepo) GetByPublicID(string) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *engineOrderRepo) GetByCheckoutID(string) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *engineOrderRepo) GetByExternalReference(string) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *engineOrderRepo) GetByTransactionExternalID(string, string) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *engineOrderRepo) ListByUser(uint, int, int) ([]models.Order, error) { return nil, nil }

func (r *engineOrderRepo) TransitionStatus(orderID uint, from []string, to string, at time.Time) (bool, error) {
	order, ok := r.orders[orderID]
	if !ok {
		return false, nil
	}
	for _, f := range from {
		if order.Status == f {
			order.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (r *engineOrderRepo) SetPaymentReferences(uint, string, string) error { return nil }
func (r *engineOrderRepo) UpsertTransaction(*models.PaymentTransaction) error { return nil }

func (r *engineOrderRepo) GetTransaction(string, string) (*models.PaymentTransaction, error) {
	return nil, gorm.ErrRecordNotFound
}

type engineCatalogRepo struct{}

func (engineCatalogRepo) GetProductByID(uint) (*models.Product, error) {
	return nil, gorm.ErrRecordNotFound
}

func (engineCatalogRepo) GetPriceByID(uint) (*models.Price, error) {
	return nil, gorm.ErrRecordNotFound
}

func (engineCatalogRepo) GetPriceByProviderRef(string, string) (*models.Price, error) {
	return nil, gorm.ErrRecordNotFound
}

func (engineCatalogRepo) GetAssetByID(uint) (*models.DigitalAsset, error) {
	return nil, gorm.ErrRecordNotFound
}

func (engineCatalogRepo) GetServiceOfferByProductID(uint) (*models.ServiceOffer, error) {
	return nil, gorm.ErrRecordNotFound
}

type engineFulfillmentRepo struct {
	grants   []*models.DownloadGrant
	assets   []*models.DigitalAsset
	bookings []*models.Booking
	ents     []*models.Entitlement
	nextID   uint
}

func newEngineFulfillmentRepo() *engineFulfillmentRepo {
	return &engineFulfillmentRepo{nextID: 1}
}

func (r *engineFulfillmentRepo) id() uint {
	id := r.nextID
	r.nextID++
	return id
}

func (r *engineFulfillmentRepo) CreateGrantIfNotExists(grant *models.DownloadGrant) (bool, error) {
	for _, g := range r.grants {
		if g.OrderItemID == grant.OrderItemID && g.AssetID == grant.AssetID {
			return false, nil
		}
	}
	grant.ID = r.id()
	grant.Token = fmt.Sprintf("token-%d", grant.ID)
	r.grants = append(r.grants, grant)
	return true, nil
}

func (r *engineFulfillmentRepo) GetGrantByToken(string) (*models.DownloadGrant, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *engineFulfillmentRepo) ListGrantsByUser(uint) ([]models.DownloadGrant, error) {
	return nil, nil
}

func (r *engineFulfillmentRepo) RegisterDownload(uint, time.Time) error { return nil }

func (r *engineFulfillmentRepo) CreateAsset(asset *models.DigitalAsset) error {
	asset.ID = r.id()
	r.assets = append(r.assets, asset)
	return nil
}

func (r *engineFulfillmentRepo) CountPendingGrantsForItem(orderItemID uint) (int64, error) {
	var n int64
	for _, g := range r.grants {
		if g.OrderItemID != orderItemID {
			continue
		}
		for _, a := range r.assets {
			if a.ID == g.AssetID && a.IsPending {
				n++
			}
		}
	}
	return n, nil
}

func (r *engineFulfillmentRepo) CreateBooking(booking *models.Booking) error {
	booking.ID = r.id()
	r.bookings = append(r.bookings, booking)
	return nil
}

func (r *engineFulfillmentRepo) CountBookingsForItem(orderItemID uint) (int64, error) {
	var n int64
	for _, b := range r.bookings {
		if b.OrderItemID == orderItemID {
			n++
		}
	}
	return n, nil
}

func (r *engineFulfillmentRepo) ListBookingsByUser(uint) ([]models.Booking, error) {
	return nil, nil
}

func (r *engineFulfillmentRepo) CreateEntitlementIfNotExists(ent *models.Entitlement) (bool, *models.Entitlement, error) {
	for _, stored := range r.ents {
		if stored.UserID == ent.UserID && stored.FeatureKey == ent.FeatureKey &&
			stored.SourceType == ent.SourceType && stored.SourceReference == ent.SourceReference {
			return false, stored, nil
		}
	}
	ent.ID = r.id()
	r.ents = append(r.ents, ent)
	return true, ent, nil
}

func (r *engineFulfillmentRepo) SaveEntitlement(*models.Entitlement) error { return nil }

func (r *engineFulfillmentRepo) DeactivateCurrentEntitlements(uint, string, uint, time.Time) error {
	return nil
}

func (r *engineFulfillmentRepo) ListEntitlementsBySource(uint, string, string) ([]models.Entitlement, error) {
	return nil, nil
}

func (r *engineFulfillmentRepo) ListEntitlementsByUser(uint, bool) ([]models.Entitlement, error) {
	return nil, nil
}

type engineSubRepo struct {
	subs []*models.Subscription
}

func (r *engineSubRepo) Create(sub *models.Subscription) error {
	r.subs = append(r.subs, sub)
	return nil
}

func (r *engineSubRepo) Save(*models.Subscription) error { return nil }

func (r *engineSubRepo) GetByProviderSubscriptionID(string) (*models.Subscription, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *engineSubRepo) ExistsForOrderItem(orderItemID uint) (bool, error) {
	for _, s := range r.subs {
		if s.SourceOrderItemID != nil && *s.SourceOrderItemID == orderItemID {
			return true, nil
		}
	}
	return false, nil
}

func (r *engineSubRepo) ListByUser(uint) ([]models.Subscription, error) { return nil, nil }

type recordingNotifier struct {
	fulfilled int
}

func (n *recordingNotifier) OrderFulfilled(*models.Order, *Result) { n.fulfilled++ }

func digitalProduct(id uint, assets ...models.DigitalAsset) *models.Product {
	return &models.Product{
		ID:          id,
		Name:        "Icon Pack",
		ProductType: models.ProductTypeDigital,
		Visibility:  models.VisibilityPublished,
		FeatureKeys: []string{"icon_pack"},
		Assets:      assets,
	}
}

func testEngine(t *testing.T, order *models.Order) (*Engine, *engineFulfillmentRepo, *engineSubRepo, *recordingNotifier) {
	t.Helper()

	orderRepo := &engineOrderRepo{orders: map[uint]*models.Order{order.ID: order}}
	repo := newEngineFulfillmentRepo()
	subs := &engineSubRepo{}
	notifier := &recordingNotifier{}
	mgr := orders.NewManager(orderRepo, engineCatalogRepo{})
	return NewEngine(mgr, repo, subs, notifier), repo, subs, notifier
}

func TestFulfillDigitalOrder(t *testing.T) {
	product := digitalProduct(10,
		models.DigitalAsset{ID: 1, IsActive: true},
		models.DigitalAsset{ID: 2, IsActive: true},
		models.DigitalAsset{ID: 3, IsActive: false},
	)
	order := &models.Order{
		ID:       1,
		PublicID: "ord-1",
		UserID:   7,
		Status:   models.OrderStatusPaid,
		Items: []models.OrderItem{
			{ID: 20, ProductID: 10, Product: product, Quantity: 1},
		},
	}
	engine, repo, _, notifier := testEngine(t, order)
	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	result, err := engine.Fulfill(order, at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Fulfilled {
		t.Fatalf("expected clean run to fulfill")
	}
	if order.Status != models.OrderStatusFulfilled {
		t.Fatalf("unexpected order status %q", order.Status)
	}
	if len(repo.grants) != 2 {
		t.Fatalf("expected one grant per active asset, got %d", len(repo.grants))
	}
	if len(repo.ents) != 1 || repo.ents[0].FeatureKey != "icon_pack" {
		t.Fatalf("expected feature key entitlement, got %+v", repo.ents)
	}
	if notifier.fulfilled != 1 {
		t.Fatalf("expected one fulfillment notification, got %d", notifier.fulfilled)
	}

	// a replayed run creates nothing and notifies nobody
	again, err := engine.Fulfill(order, at.Add(time.Minute))
	if err != nil {
		t.Fatalf("unexpected error on replay: %v", err)
	}
	if !again.Fulfilled {
		t.Fatalf("expected replay to report fulfilled")
	}
	if len(repo.grants) != 2 || notifier.fulfilled != 1 {
		t.Fatalf("replay must be a no-op, got %d grants and %d notifications", len(repo.grants), notifier.fulfilled)
	}
}

func TestFulfillCreatesPendingPlaceholder(t *testing.T) {
	product := digitalProduct(10)
	product.FeatureKeys = nil
	order := &models.Order{
		ID:       1,
		PublicID: "ord-2",
		UserID:   7,
		Status:   models.OrderStatusPaid,
		Items: []models.OrderItem{
			{ID: 21, ProductID: 10, Product: product, Quantity: 1},
		},
	}
	engine, repo, _, _ := testEngine(t, order)

	result, err := engine.Fulfill(order, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Fulfilled {
		t.Fatalf("expected order to fulfill with a pending grant")
	}
	if len(repo.assets) != 1 {
		t.Fatalf("expected a placeholder asset, got %d", len(repo.assets))
	}
	asset := repo.assets[0]
	if !asset.IsPending || asset.IsActive || asset.PendingReason != "awaiting_upload" {
		t.Fatalf("unexpected placeholder asset %+v", asset)
	}
	if len(repo.grants) != 1 || repo.grants[0].AssetID != asset.ID {
		t.Fatalf("expected a grant against the placeholder, got %+v", repo.grants)
	}
	if result.Items[0].PendingGrants != 1 {
		t.Fatalf("expected item result to count the pending grant")
	}
}

func TestFulfillRetryKeepsSinglePendingPlaceholder(t *testing.T) {
	assetless := digitalProduct(10)
	assetless.FeatureKeys = nil
	broken := &models.Product{
		ID:          12,
		Name:        "Mystery",
		ProductType: "unknown",
		Visibility:  models.VisibilityPublished,
	}
	order := &models.Order{
		ID:       1,
		PublicID: "ord-7",
		UserID:   7,
		Status:   models.OrderStatusPaid,
		Items: []models.OrderItem{
			{ID: 26, ProductID: 10, Product: assetless, Quantity: 1},
			{ID: 27, ProductID: 12, Product: broken, Quantity: 1},
		},
	}
	engine, repo, _, _ := testEngine(t, order)

	result, err := engine.Fulfill(order, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Fulfilled || order.Status != models.OrderStatusPaid {
		t.Fatalf("the broken item must keep the order in paid")
	}
	if len(repo.assets) != 1 || len(repo.grants) != 1 {
		t.Fatalf("expected one placeholder and one grant, got %d and %d", len(repo.assets), len(repo.grants))
	}

	// the retried run must not mint fresh placeholder artifacts
	retry, err := engine.Fulfill(order, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("unexpected error on retry: %v", err)
	}
	if len(repo.assets) != 1 || len(repo.grants) != 1 {
		t.Fatalf("retry duplicated pending artifacts: %d assets, %d grants", len(repo.assets), len(repo.grants))
	}
	if retry.Items[0].PendingGrants != 1 {
		t.Fatalf("expected the retry to report the existing pending grant, got %d", retry.Items[0].PendingGrants)
	}
}

func TestFulfillServiceOrderBookings(t *testing.T) {
	product := &models.Product{
		ID:           11,
		Name:         "Logo Design",
		ProductType:  models.ProductTypeService,
		Visibility:   models.VisibilityPublished,
		ServiceOffer: &models.ServiceOffer{ID: 5, ProductID: 11, DeliveryDays: 7},
	}
	order := &models.Order{
		ID:       1,
		PublicID: "ord-3",
		UserID:   7,
		Status:   models.OrderStatusPaid,
		Items: []models.OrderItem{
			{ID: 22, ProductID: 11, Product: product, Quantity: 3},
		},
	}
	engine, repo, _, _ := testEngine(t, order)
	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	// one booking already exists from an interrupted earlier run
	if err := repo.CreateBooking(&models.Booking{UserID: 7, ServiceOfferID: 5, OrderItemID: 22, Sequence: 1}); err != nil {
		t.Fatalf("seed booking: %v", err)
	}

	result, err := engine.Fulfill(order, at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Fulfilled {
		t.Fatalf("expected order to fulfill")
	}
	if len(repo.bookings) != 3 {
		t.Fatalf("expected the gap to be filled to 3 bookings, got %d", len(repo.bookings))
	}
	if result.Items[0].Bookings != 2 {
		t.Fatalf("expected 2 new bookings, got %d", result.Items[0].Bookings)
	}
	last := repo.bookings[2]
	if last.Sequence != 3 || last.Status != models.BookingStatusRequested {
		t.Fatalf("unexpected booking %+v", last)
	}
	if last.DueAt == nil || !last.DueAt.Equal(at.AddDate(0, 0, 7)) {
		t.Fatalf("expected due date 7 days out, got %v", last.DueAt)
	}
}

func TestFulfillRecurringPriceCreatesLocalSubscription(t *testing.T) {
	price := &models.Price{ID: 100, ProductID: 10, BillingPeriod: models.BillingPeriodMonthly, IsActive: true}
	priceID := price.ID
	product := digitalProduct(10, models.DigitalAsset{ID: 1, IsActive: true})
	order := &models.Order{
		ID:       1,
		PublicID: "ord-4",
		UserID:   7,
		Status:   models.OrderStatusPaid,
		Items: []models.OrderItem{
			{ID: 23, ProductID: 10, Product: product, Price: price, PriceID: &priceID, Quantity: 1},
		},
	}
	engine, _, subs, _ := testEngine(t, order)
	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	if _, err := engine.Fulfill(order, at); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(subs.subs) != 1 {
		t.Fatalf("expected a local subscription row, got %d", len(subs.subs))
	}
	sub := subs.subs[0]
	if sub.ProviderSubscriptionID != "local:ord-4:23" {
		t.Fatalf("unexpected placeholder id %q", sub.ProviderSubscriptionID)
	}
	if sub.Status != models.SubscriptionStatusActive || sub.SourceOrderPublicID != "ord-4" {
		t.Fatalf("unexpected subscription %+v", sub)
	}
	if sub.CurrentPeriodEnd == nil || !sub.CurrentPeriodEnd.Equal(at.AddDate(0, 0, 30)) {
		t.Fatalf("unexpected period end %v", sub.CurrentPeriodEnd)
	}

	// replay does not create a second row
	order.Status = models.OrderStatusPaid
	if _, err := engine.Fulfill(order, at.Add(time.Minute)); err != nil {
		t.Fatalf("unexpected error on replay: %v", err)
	}
	if len(subs.subs) != 1 {
		t.Fatalf("replay must not create a second subscription, got %d", len(subs.subs))
	}
}

func TestFulfillIsolatesItemFailures(t *testing.T) {
	good := digitalProduct(10, models.DigitalAsset{ID: 1, IsActive: true})
	broken := &models.Product{
		ID:          12,
		Name:        "Mystery",
		ProductType: "unknown",
		Visibility:  models.VisibilityPublished,
	}
	order := &models.Order{
		ID:       1,
		PublicID: "ord-5",
		UserID:   7,
		Status:   models.OrderStatusPaid,
		Items: []models.OrderItem{
			{ID: 24, ProductID: 10, Product: good, Quantity: 1},
			{ID: 25, ProductID: 12, Product: broken, Quantity: 1},
		},
	}
	engine, repo, _, notifier := testEngine(t, order)

	result, err := engine.Fulfill(order, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Fulfilled {
		t.Fatalf("a failing item must keep the order in paid")
	}
	if order.Status != models.OrderStatusPaid {
		t.Fatalf("unexpected order status %q", order.Status)
	}
	if len(result.Failed()) != 1 || result.Failed()[0].OrderItemID != 25 {
		t.Fatalf("expected exactly the broken item to fail, got %+v", result.Failed())
	}
	if len(repo.grants) != 1 {
		t.Fatalf("the healthy item must still be fulfilled, got %d grants", len(repo.grants))
	}
	if notifier.fulfilled != 0 {
		t.Fatalf("no notification for a partial run")
	}
}

func TestFulfillRejectsUnpaidOrder(t *testing.T) {
	order := &models.Order{ID: 1, PublicID: "ord-6", Status: models.OrderStatusPendingPayment}
	engine, _, _, _ := testEngine(t, order)

	if _, err := engine.Fulfill(order, time.Now()); !errors.Is(err, ErrNotPaid) {
		t.Fatalf("expected ErrNotPaid, got %v", err)
	}
}
