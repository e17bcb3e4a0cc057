package mail

import (
	"fmt"
	"log"
	"strings"

	"github.com/sellforge/sellforge/app/models"
	"github.com/sellforge/sellforge/internal/pkg/env"
	"github.com/sellforge/sellforge/internal/pkg/fulfillment"
)

// OrderMailer sends buyer-facing order emails. It implements the fulfillment
// notifier so a completed order triggers the confirmation mail.
type OrderMailer struct{}

// NewOrderMailer creates an order mailer.
func NewOrderMailer() *OrderMailer {
	return &OrderMailer{}
}

// OrderFulfilled sends the order confirmation with download and booking info.
// Failures are logged, never propagated; mail must not fail fulfillment.
func (m *OrderMailer) OrderFulfilled(order *models.Order, result *fulfillment.Result) {
	if order.User == nil || order.User.Email == "" {
		log.Printf("order %s: no buyer email, skipping confirmation mail", order.PublicID)
		return
	}

	baseURL := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", "http://localhost:8080"), "/")
	subject := fmt.Sprintf("Your order %s is ready", shortID(order.PublicID))

	var b strings.Builder
	b.WriteString("<h2>Thanks for your purchase!</h2>")
	b.WriteString(fmt.Sprintf("<p>Order <strong>%s</strong> has been paid and processed.</p>", order.PublicID))
	b.WriteString("<ul>")
	for _, item := range order.Items {
		b.WriteString(fmt.Sprintf("<li>%d&times; %s</li>", item.Quantity, item.ProductNameSnapshot))
	}
	b.WriteString("</ul>")

	var grants, pending, bookings int
	for _, ir := range result.Items {
		grants += ir.Grants
		pending += ir.PendingGrants
		bookings += ir.Bookings
	}
	if grants > 0 {
		b.WriteString(fmt.Sprintf("<p>Your downloads are available in <a href=\"%s/api/v1/account/downloads\">your account</a>.</p>", baseURL))
	}
	if pending > 0 {
		b.WriteString("<p>Some files are still being prepared. You will be able to download them from your account as soon as they are uploaded.</p>")
	}
	if bookings > 0 {
		b.WriteString("<p>Your service booking has been created. We will reach out to schedule it.</p>")
	}

	// Delivery happens off the calling goroutine so fulfillment never waits
	// on the mail server. SendMail enforces its own deadline.
	recipient := order.User.Email
	publicID := order.PublicID
	html := b.String()
	go func() {
		if err := SendMail(recipient, subject, html); err != nil {
			log.Printf("order %s: confirmation mail failed: %v", publicID, err)
		}
	}()
}

func shortID(publicID string) string {
	if len(publicID) > 8 {
		return publicID[:8]
	}
	return publicID
}
