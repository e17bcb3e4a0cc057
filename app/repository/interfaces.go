package repository

import (
	"time"

	"github.com/sellforge/sellforge/app/models"
)

// WebhookEventRepository provides the append-only event store used for
// webhook deduplication.
type WebhookEventRepository interface {
	// CreateIfNotExists inserts the event unless a row with the same
	// (provider, provider_event_id) already exists. Exactly one concurrent
	// caller observes created=true; the stored row is returned either way.
	CreateIfNotExists(event *models.WebhookEvent) (created bool, stored *models.WebhookEvent, err error)
	MarkProcessed(id uint, status string, processingError string) error
	GetByProviderEventID(provider, eventID string) (*models.WebhookEvent, error)
	CountByStatus(status string) (int64, error)
}

// OrderRepository defines order and payment-transaction persistence.
type OrderRepository interface {
	Create(order *models.Order) error
	GetByID(id uint) (*models.Order, error)
	GetByPublicID(publicID string) (*models.Order, error)
	GetByCheckoutID(checkoutID string) (*models.Order, error)
	GetByExternalReference(ref string) (*models.Order, error)
	GetByTransactionExternalID(provider, externalID string) (*models.Order, error)
	ListByUser(userID uint, offset, limit int) ([]models.Order, error)
	// TransitionStatus applies a conditional status update: the order moves to
	// the target status only if its current status is one of the expected
	// predecessors. Returns false when the row was not in an expected state,
	// which callers treat as a stale/duplicate no-op.
	TransitionStatus(orderID uint, from []string, to string, at time.Time) (bool, error)
	SetPaymentReferences(orderID uint, checkoutID, externalReference string) error
	UpsertTransaction(txn *models.PaymentTransaction) error
	GetTransaction(provider, externalID string) (*models.PaymentTransaction, error)
}

// SubscriptionRepository defines subscription persistence.
type SubscriptionRepository interface {
	Create(sub *models.Subscription) error
	Save(sub *models.Subscription) error
	GetByProviderSubscriptionID(providerSubscriptionID string) (*models.Subscription, error)
	ExistsForOrderItem(orderItemID uint) (bool, error)
	ListByUser(userID uint) ([]models.Subscription, error)
}

// FulfillmentRepository defines persistence for fulfillment artifacts:
// entitlements, download grants, pending assets and bookings.
type FulfillmentRepository interface {
	CreateGrantIfNotExists(grant *models.DownloadGrant) (bool, error)
	GetGrantByToken(token string) (*models.DownloadGrant, error)
	ListGrantsByUser(userID uint) ([]models.DownloadGrant, error)
	RegisterDownload(grantID uint, at time.Time) error
	CreateAsset(asset *models.DigitalAsset) error
	CountPendingGrantsForItem(orderItemID uint) (int64, error)
	CreateBooking(booking *models.Booking) error
	CountBookingsForItem(orderItemID uint) (int64, error)
	ListBookingsByUser(userID uint) ([]models.Booking, error)
	CreateEntitlementIfNotExists(ent *models.Entitlement) (bool, *models.Entitlement, error)
	SaveEntitlement(ent *models.Entitlement) error
	DeactivateCurrentEntitlements(userID uint, featureKey string, excludeID uint, at time.Time) error
	ListEntitlementsBySource(userID uint, sourceType, sourceReference string) ([]models.Entitlement, error)
	ListEntitlementsByUser(userID uint, currentOnly bool) ([]models.Entitlement, error)
}

// UserRepository defines buyer-account persistence.
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByExternalCustomerID(externalID string) (*models.User, error)
	GetByAPIKeyHash(hash string) (*models.User, error)
	UpsertByExternalCustomerID(user *models.User) error
	DeactivateByExternalCustomerID(externalID string) error
	Update(user *models.User) error
	TouchAPIKeyUsage(id uint, at time.Time) error
}

// CatalogRepository provides read access to products and prices.
type CatalogRepository interface {
	GetProductByID(id uint) (*models.Product, error)
	GetPriceByID(id uint) (*models.Price, error)
	GetPriceByProviderRef(providerPriceID, providerPlanID string) (*models.Price, error)
	GetAssetByID(id uint) (*models.DigitalAsset, error)
	GetServiceOfferByProductID(productID uint) (*models.ServiceOffer, error)
}
