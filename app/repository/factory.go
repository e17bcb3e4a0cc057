package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Repositories bundles all repository implementations.
type Repositories struct {
	WebhookEvent WebhookEventRepository
	Order        OrderRepository
	Subscription SubscriptionRepository
	Fulfillment  FulfillmentRepository
	User         UserRepository
	Catalog      CatalogRepository
}

var (
	instance *Repositories
	once     sync.Once
)

// InitRepositories builds the repository bundle once for the given database
// handle. Later calls return the bundle from the first call.
func InitRepositories(db *gorm.DB) *Repositories {
	once.Do(func() {
		instance = &Repositories{
			WebhookEvent: NewWebhookEventRepository(db),
			Order:        NewOrderRepository(db),
			Subscription: NewSubscriptionRepository(db),
			Fulfillment:  NewFulfillmentRepository(db),
			User:         NewUserRepository(db),
			Catalog:      NewCatalogRepository(db),
		}
	})
	return instance
}

// GetRepositories returns the initialized repository bundle. It panics when
// InitRepositories has not run, which indicates a wiring bug during startup.
func GetRepositories() *Repositories {
	if instance == nil {
		panic("repository: InitRepositories must be called before GetRepositories")
	}
	return instance
}
