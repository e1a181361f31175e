package app

import (
	"encoding/json"
	"io"
	"net/http"

	"example/plan-api/app/models"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

const maxWebhookBodyBytes = int64(65536)

// StripeWebhook syncs entitlement tiers from Stripe subscription events.
func (s *server) StripeWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		log.WithError(err).Warn("stripe webhook read failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if s.StripeSecret == "" || s.Accounts == nil {
		log.Error("stripe webhook not configured")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook not configured"})
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		body,
		c.GetHeader("Stripe-Signature"),
		s.StripeSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		log.WithError(err).Warn("stripe webhook signature failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "signature verification failed"})
		return
	}

	ctx := c.Request.Context()
	fields := log.Fields{"event_id": event.ID, "event_type": event.Type}

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			log.WithError(err).WithFields(fields).Warn("stripe session unmarshal failed")
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session payload"})
			return
		}
		customerID := ""
		if sess.Customer != nil {
			customerID = sess.Customer.ID
		}

		if sess.ClientReferenceID != "" {
			if err := s.Accounts.SetTier(ctx, sess.ClientReferenceID, models.TierPro, customerID); err != nil {
				log.WithError(err).WithFields(fields).Error("stripe tier upgrade failed")
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update user"})
				return
			}
			break
		}
		if customerID == "" {
			log.WithFields(fields).Warn("stripe session has neither client reference nor customer")
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing customer id"})
			return
		}
		if !s.syncByCustomer(c, fields, customerID, models.TierPro) {
			return
		}

	case "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			log.WithError(err).WithFields(fields).Warn("stripe subscription unmarshal failed")
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid subscription payload"})
			return
		}
		customerID := ""
		if sub.Customer != nil {
			customerID = sub.Customer.ID
		}
		if customerID == "" {
			log.WithFields(fields).Warn("stripe subscription missing customer id")
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing customer id"})
			return
		}
		tier := models.TierFree
		if event.Type == "customer.subscription.updated" && subscriptionEntitled(sub.Status) {
			tier = models.TierPro
		}
		if !s.syncByCustomer(c, fields, customerID, tier) {
			return
		}

	default:
		log.WithFields(fields).Debug("stripe event ignored")
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// syncByCustomer writes the error response itself and reports whether the
// handler may continue.
func (s *server) syncByCustomer(c *gin.Context, fields log.Fields, customerID string, tier models.Tier) bool {
	found, err := s.Accounts.SetTierByCustomer(c.Request.Context(), customerID, tier)
	if err != nil {
		log.WithError(err).WithFields(fields).WithField("customer", customerID).Error("stripe tier sync failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update user"})
		return false
	}
	if !found {
		log.WithFields(fields).WithField("customer", customerID).Warn("stripe customer not linked to any account")
	}
	return true
}

func subscriptionEntitled(status stripe.SubscriptionStatus) bool {
	return status == stripe.SubscriptionStatusActive || status == stripe.SubscriptionStatusTrialing
}
