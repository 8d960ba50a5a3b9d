package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"aizeeno/internal/cache"
	apperrors "aizeeno/internal/errors"
	"aizeeno/internal/model"
	"aizeeno/internal/provider"
	"aizeeno/internal/repository"
)

const statusCacheTTL = 30 * time.Second

// PullResult is the outcome of a client-initiated status check.
type PullResult struct {
	PaymentActive    bool       `json:"payment"`
	SubscriptionPlan model.Plan `json:"subscription"`
	ProviderStatus   string     `json:"payment_status"`
	Message          string     `json:"message"`
	// Applied reports whether this call changed the record. A repeat of an
	// already-settled reconciliation succeeds with Applied=false.
	Applied bool `json:"-"`
}

// SubscriptionService converges a user's subscription and payment fields from
// two independent, unordered channels: provider-pushed webhook events and
// client-initiated status polls. Whichever channel observes settlement first
// wins; the later arrival is a no-op for the same provider subscription id,
// and payment is never regressed without an explicit cancellation signal.
type SubscriptionService interface {
	ReconcilePush(ctx context.Context, payload []byte, sigHeader string) error
	ReconcilePull(ctx context.Context, username, sessionID, claimedPlan string) (*PullResult, error)
	Status(ctx context.Context, username string) (*model.SubscriptionView, error)
}

type subscriptionService struct {
	repo          repository.UserRepository
	client        provider.Client
	cache         *cache.Client
	webhookSecret string
	// Mutex map for per-user locking: check-and-apply for one user must be
	// atomic across concurrent push and pull.
	userMutexes sync.Map
}

// NewSubscriptionService creates a new subscription reconciler. An empty
// webhookSecret disables signature verification (events are parsed as-is).
func NewSubscriptionService(
	repo repository.UserRepository,
	client provider.Client,
	cache *cache.Client,
	webhookSecret string,
) SubscriptionService {
	return &subscriptionService{
		repo:          repo,
		client:        client,
		cache:         cache,
		webhookSecret: webhookSecret,
	}
}

func (s *subscriptionService) getMutex(username string) *sync.Mutex {
	value, _ := s.userMutexes.LoadOrStore(username, &sync.Mutex{})
	return value.(*sync.Mutex)
}

// ReconcilePush handles a provider-pushed event. Signature failures and
// unparsable payloads are the only errors returned; every other outcome,
// including orphan events and failed follow-up lookups, is acknowledged so
// the provider does not redeliver indefinitely.
func (s *subscriptionService) ReconcilePush(ctx context.Context, payload []byte, sigHeader string) error {
	var event *provider.Event
	var err error
	if s.webhookSecret != "" {
		event, err = provider.ConstructEvent(payload, sigHeader, s.webhookSecret)
	} else {
		log.Println("reconcile: webhook secret not configured, processing without signature verification")
		event, err = provider.ParseEvent(payload)
	}
	if err != nil {
		return err
	}

	switch event.Type {
	case provider.EventCheckoutCompleted:
		return s.handleCheckoutCompleted(ctx, event)
	case provider.EventSubscriptionDeleted:
		return s.handleSubscriptionDeleted(ctx, event)
	default:
		log.Printf("reconcile: ignoring event %s of type %s", event.ID, event.Type)
		return nil
	}
}

func (s *subscriptionService) handleCheckoutCompleted(ctx context.Context, event *provider.Event) error {
	obj, err := event.Checkout()
	if err != nil {
		return err
	}

	username := obj.Username()
	if username == "" {
		// Orphan event: acknowledged, logged, no state change.
		log.Printf("reconcile: orphan event %s, session %s has no username binding", event.ID, obj.ID)
		return nil
	}

	plan := model.Plan(obj.Metadata["plan"])
	if !plan.Valid() || !plan.Paid() {
		log.Printf("reconcile: event %s for %s carries unknown plan %q, keeping prior state", event.ID, username, plan)
		return nil
	}

	// Follow-up lookup for a stable subscription id. A transient failure is
	// acknowledged without touching the record; the pull channel can still
	// converge the user later.
	customerID, subscriptionID := obj.Customer, obj.Subscription
	if full, err := s.client.RetrieveCheckoutSession(ctx, obj.ID); err != nil {
		log.Printf("reconcile: expanded lookup for session %s failed: %v", obj.ID, err)
	} else {
		if full.CustomerID != "" {
			customerID = full.CustomerID
		}
		if full.SubscriptionID != "" {
			subscriptionID = full.SubscriptionID
		}
	}
	if subscriptionID == "" {
		log.Printf("reconcile: event %s for %s has no subscription id, keeping prior state", event.ID, username)
		return nil
	}

	applied, err := s.applySettlement(ctx, username, plan, customerID, subscriptionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("reconcile: orphan event %s, user %s not found", event.ID, username)
			return nil
		}
		return err
	}
	if applied {
		log.Printf("reconcile: push settled %s on plan %s (subscription %s)", username, plan, subscriptionID)
	}
	return nil
}

func (s *subscriptionService) handleSubscriptionDeleted(ctx context.Context, event *provider.Event) error {
	obj, err := event.Subscription()
	if err != nil {
		return err
	}

	user, err := s.repo.FindBySubscriptionID(ctx, obj.ID)
	if err != nil {
		if username := obj.Metadata["username"]; username != "" {
			user, err = s.repo.FindByUsername(ctx, username)
		}
	}
	if err != nil || user == nil {
		log.Printf("reconcile: orphan cancellation %s, subscription %s not bound to any user", event.ID, obj.ID)
		return nil
	}

	mutex := s.getMutex(user.Username)
	mutex.Lock()
	defer mutex.Unlock()

	current, err := s.repo.FindByUsername(ctx, user.Username)
	if err != nil {
		return err
	}
	if !current.PaymentActive && current.SubscriptionPlan == model.PlanFree {
		return nil // duplicate cancellation
	}

	// The explicit cancellation signal is the only transition allowed to
	// regress payment from active to inactive. Provider ids are retained.
	inactive := false
	free := model.PlanFree
	if err := s.repo.ApplyFieldUpdates(ctx, user.Username, model.FieldUpdates{
		PaymentActive:    &inactive,
		SubscriptionPlan: &free,
	}); err != nil {
		return err
	}
	s.invalidateStatus(ctx, user.Username)
	log.Printf("reconcile: cancellation applied for %s (subscription %s)", user.Username, obj.ID)
	return nil
}

// ReconcilePull checks the provider-side state of a known session and, when
// it settled, applies the same update as the push path. A pending session
// never regresses an already-active record.
func (s *subscriptionService) ReconcilePull(ctx context.Context, username, sessionID, claimedPlan string) (*PullResult, error) {
	plan := model.Plan(claimedPlan)
	if !plan.Valid() || !plan.Paid() {
		return nil, apperrors.ErrPlanUnknown
	}

	session, err := s.client.RetrieveCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !session.Paid() {
		user, err := s.repo.FindByUsername(ctx, username)
		if err != nil {
			return nil, err
		}
		if user.PaymentActive && user.ProviderSubscriptionID != nil &&
			session.SubscriptionID != "" && *user.ProviderSubscriptionID == session.SubscriptionID {
			// Conflicting signals for the same subscription id: the terminal
			// state is kept, the conflict is reported, nothing is overwritten.
			log.Printf("reconcile: conflict for %s, provider reports %q but subscription %s is already active",
				username, session.PaymentStatus, session.SubscriptionID)
			return &PullResult{
				PaymentActive:    true,
				SubscriptionPlan: user.SubscriptionPlan,
				ProviderStatus:   session.PaymentStatus,
				Message:          "Payment already confirmed",
			}, nil
		}
		return &PullResult{
			PaymentActive:    user.PaymentActive,
			SubscriptionPlan: user.SubscriptionPlan,
			ProviderStatus:   session.PaymentStatus,
			Message:          "Payment is pending",
		}, nil
	}

	if session.SubscriptionID == "" {
		return nil, fmt.Errorf("%w: paid session %s has no subscription id", apperrors.ErrProviderLookupFailed, sessionID)
	}

	// Best-effort detail log, mirroring the provider-side state at apply time.
	if sub, err := s.client.RetrieveSubscription(ctx, session.SubscriptionID); err == nil {
		log.Printf("reconcile: subscription %s status %s", sub.ID, sub.Status)
	}

	applied, err := s.applySettlement(ctx, username, plan, session.CustomerID, session.SubscriptionID)
	if err != nil {
		return nil, err
	}
	return &PullResult{
		PaymentActive:    true,
		SubscriptionPlan: plan,
		ProviderStatus:   session.PaymentStatus,
		Message:          fmt.Sprintf("Payment successful! Welcome to %s plan", plan),
		Applied:          applied,
	}, nil
}

// applySettlement is the single write path shared by both channels. The
// check-and-apply runs under the user's mutex: once the record carries the
// incoming subscription id with payment active, re-applies are no-ops that
// still succeed.
func (s *subscriptionService) applySettlement(ctx context.Context, username string, plan model.Plan, customerID, subscriptionID string) (bool, error) {
	mutex := s.getMutex(username)
	mutex.Lock()
	defer mutex.Unlock()

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return false, err
	}

	if user.PaymentActive && user.ProviderSubscriptionID != nil && *user.ProviderSubscriptionID == subscriptionID {
		if user.SubscriptionPlan != plan {
			log.Printf("reconcile: conflict for %s, subscription %s already active on plan %s (incoming %s)",
				username, subscriptionID, user.SubscriptionPlan, plan)
		}
		return false, nil
	}

	active := true
	updates := model.FieldUpdates{
		PaymentActive:          &active,
		SubscriptionPlan:       &plan,
		ProviderSubscriptionID: &subscriptionID,
	}
	if customerID != "" {
		updates.ProviderCustomerID = &customerID
	}
	if err := s.repo.ApplyFieldUpdates(ctx, username, updates); err != nil {
		return false, err
	}
	s.invalidateStatus(ctx, username)
	return true, nil
}

// Status returns the user's current subscription view, served from a short
// lived cache that settlement and cancellation invalidate.
func (s *subscriptionService) Status(ctx context.Context, username string) (*model.SubscriptionView, error) {
	key := cache.SubscriptionStatusKey(username)
	var cached model.SubscriptionView
	if s.cache.GetJSON(ctx, key, &cached) {
		return &cached, nil
	}

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user.PaymentActive && !user.SubscriptionPlan.Paid() {
		// Reportable inconsistency, never silently fixed.
		log.Printf("reconcile: inconsistent record for %s: payment active on plan %q", username, user.SubscriptionPlan)
	}

	view := user.SubscriptionStatus()
	s.cache.SetJSON(ctx, key, view, statusCacheTTL)
	return &view, nil
}

func (s *subscriptionService) invalidateStatus(ctx context.Context, username string) {
	s.cache.Delete(ctx, cache.SubscriptionStatusKey(username))
}
