package controllers

import (
	"github.com/go-playground/validator/v10"

	"github.com/sellforge/sellforge/app/repository"
	"github.com/sellforge/sellforge/internal/pkg/billing"
	"github.com/sellforge/sellforge/internal/pkg/database"
	"github.com/sellforge/sellforge/internal/pkg/entitlements"
	"github.com/sellforge/sellforge/internal/pkg/fulfillment"
	"github.com/sellforge/sellforge/internal/pkg/mail"
	"github.com/sellforge/sellforge/internal/pkg/orders"
	"github.com/sellforge/sellforge/internal/pkg/subscriptions"
)

var (
	repos          *repository.Repositories
	billingCfg     billing.Config
	billingService *billing.Service
	orderManager   *orders.Manager
	validate       = validator.New()
)

// InitializeControllers wires the repositories, managers and the billing
// service. Must run after the database is up.
func InitializeControllers() {
	repos = repository.InitRepositories(database.GetDB())
	billingCfg = billing.ConfigFromEnv()

	orderManager = orders.NewManager(repos.Order, repos.Catalog)
	ents := entitlements.NewService(repos.Fulfillment)
	engine := fulfillment.NewEngine(orderManager, repos.Fulfillment, repos.Subscription, mail.NewOrderMailer())
	subManager := subscriptions.NewManager(repos.Subscription, repos.User, repos.Order, repos.Catalog, ents)
	matcher := billing.NewOrderMatcher(repos.Order, billing.ProviderClerk)

	billingService = billing.NewService(repos.WebhookEvent, repos.User, orderManager, subManager, engine, matcher)
}
