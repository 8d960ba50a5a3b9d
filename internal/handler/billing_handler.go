package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "aizeeno/internal/errors"
	"aizeeno/internal/model"
	"aizeeno/internal/service"
)

// BillingHandler handles subscription reconciliation endpoints: the provider
// webhook (push channel), the payment-status poll (pull channel) and the
// subscription status read.
type BillingHandler struct {
	subscriptionService service.SubscriptionService
	publishableKey      string
	planCatalog         map[model.Plan]model.PlanPricing
}

// NewBillingHandler creates a new billing handler.
func NewBillingHandler(
	subscriptionService service.SubscriptionService,
	publishableKey string,
	planCatalog map[model.Plan]model.PlanPricing,
) *BillingHandler {
	return &BillingHandler{
		subscriptionService: subscriptionService,
		publishableKey:      publishableKey,
		planCatalog:         planCatalog,
	}
}

// PaymentStatusRequest represents a payment-status poll.
type PaymentStatusRequest struct {
	Username  string `json:"username" validate:"required"`
	SessionID string `json:"session_id" validate:"required"`
	Plan      string `json:"plan" validate:"required"`
}

// Webhook ingests a provider event. Signature verification runs over the raw
// body, so the payload is read before any decoding. Events that cannot be
// attributed to a user are still acknowledged; only an invalid signature or
// an unparsable payload produce an error status.
func (h *BillingHandler) Webhook(c echo.Context) error {
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable payload"})
	}

	sigHeader := c.Request().Header.Get("Stripe-Signature")
	if err := h.subscriptionService.ReconcilePush(c.Request().Context(), payload, sigHeader); err != nil {
		// 400 is reserved for deliveries the provider should not retry as-is.
		// Anything else (a store failure, say) is transient on our side.
		if errors.Is(err, apperrors.ErrSignatureInvalid) || errors.Is(err, apperrors.ErrEventUnparsable) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		return failJSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"received": true})
}

// PaymentStatus resolves a checkout session against the provider and settles
// the user's subscription fields when the session is paid.
func (h *BillingHandler) PaymentStatus(c echo.Context) error {
	var req PaymentStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.subscriptionService.ReconcilePull(c.Request().Context(), req.Username, req.SessionID, req.Plan)
	if err != nil {
		return failJSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":        true,
		"payment":        result.PaymentActive,
		"subscription":   result.SubscriptionPlan,
		"payment_status": result.ProviderStatus,
		"message":        result.Message,
	})
}

// UserSubscription reports a user's current subscription state.
func (h *BillingHandler) UserSubscription(c echo.Context) error {
	username := c.Param("username")
	if username == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username is required")
	}

	view, err := h.subscriptionService.Status(c.Request().Context(), username)
	if err != nil {
		return failJSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "subscription": view})
}

// planConfig is one catalog entry in the billing config response.
type planConfig struct {
	PriceID string `json:"price_id,omitempty"`
	Monthly string `json:"monthly"`
}

// Config exposes the publishable key and plan catalog the checkout frontend
// needs. Secrets never leave the server.
func (h *BillingHandler) Config(c echo.Context) error {
	plans := make(map[string]planConfig, len(h.planCatalog))
	for plan, pricing := range h.planCatalog {
		plans[string(plan)] = planConfig{
			PriceID: pricing.PriceID,
			Monthly: pricing.Monthly.String(),
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"publishable_key": h.publishableKey,
		"plans":           plans,
	})
}
