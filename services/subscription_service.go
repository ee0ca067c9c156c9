package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yeremiapane/nagoyameshi/models"
	"github.com/yeremiapane/nagoyameshi/utils"
	"gorm.io/gorm"
)

var (
	ErrNoSubscription = errors.New("no subscription to cancel")
	// ErrSubscriptionIncomplete means the provider created the subscription
	// without a settled first payment, typically pending card authentication.
	ErrSubscriptionIncomplete = errors.New("subscription payment incomplete")
)

// Plan is the single premium tier.
type Plan struct {
	Name    string
	PriceID string
}

// SubscriptionService keeps the local subscription mirror in step with the
// billing provider and answers the "subscribed to premium" question.
type SubscriptionService struct {
	db       *gorm.DB
	provider BillingProvider
	plan     Plan
	now      func() time.Time
}

func NewSubscriptionService(db *gorm.DB, provider BillingProvider, plan Plan) *SubscriptionService {
	return &SubscriptionService{db: db, provider: provider, plan: plan, now: time.Now}
}

func (s *SubscriptionService) Plan() Plan {
	return s.plan
}

// Subscribed reports whether the user holds a valid subscription to the plan.
func (s *SubscriptionService) Subscribed(ctx context.Context, userID uint) (bool, error) {
	now := s.now()
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("user_id = ? AND type = ?", userID, s.plan.Name).
		Where("((ends_at IS NULL AND stripe_status IN ?) OR ends_at > ?)",
			[]string{models.SubscriptionActive, models.SubscriptionTrialing}, now).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Current returns the user's latest subscription row for the plan.
func (s *SubscriptionService) Current(ctx context.Context, userID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND type = ?", userID, s.plan.Name).
		Order("created_at desc").Order("id desc").
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// EnsureCustomer creates the provider customer on first use and stores its id.
func (s *SubscriptionService) EnsureCustomer(ctx context.Context, user *models.User) (string, error) {
	if user.HasStripeID() {
		return *user.StripeID, nil
	}
	customerID, err := s.provider.CreateCustomer(ctx, user.Email, user.Name)
	if err != nil {
		return "", err
	}
	if err := s.db.WithContext(ctx).Model(user).Update("stripe_id", customerID).Error; err != nil {
		return "", fmt.Errorf("save stripe id: %w", err)
	}
	user.StripeID = &customerID
	return customerID, nil
}

// SetupIntent returns a client secret for collecting a card.
func (s *SubscriptionService) SetupIntent(ctx context.Context, user *models.User) (string, error) {
	customerID, err := s.EnsureCustomer(ctx, user)
	if err != nil {
		return "", err
	}
	return s.provider.CreateSetupIntent(ctx, customerID)
}

// Subscribe makes paymentMethodID the default card and starts the premium plan.
// A subscription the provider leaves unpaid is canceled again and not mirrored.
func (s *SubscriptionService) Subscribe(ctx context.Context, user *models.User, paymentMethodID string) (*models.Subscription, error) {
	if _, err := s.UpdatePaymentMethod(ctx, user, paymentMethodID); err != nil {
		return nil, err
	}

	remote, err := s.provider.CreateSubscription(ctx, *user.StripeID, s.plan.PriceID, paymentMethodID)
	if err != nil {
		return nil, err
	}
	if remote.Status != models.SubscriptionActive && remote.Status != models.SubscriptionTrialing {
		if cerr := s.provider.CancelSubscription(ctx, remote.ID); cerr != nil {
			utils.ErrorLogger.Printf("Failed to cancel incomplete subscription %s for user %d: %v", remote.ID, user.ID, cerr)
		}
		subscriptionEvents.WithLabelValues("incomplete").Inc()
		return nil, fmt.Errorf("%s is %s: %w", remote.ID, remote.Status, ErrSubscriptionIncomplete)
	}

	sub := models.Subscription{
		UserID:       user.ID,
		Type:         s.plan.Name,
		StripeID:     remote.ID,
		StripeStatus: remote.Status,
		StripePrice:  remote.PriceID,
		Quantity:     1,
	}
	if err := s.db.WithContext(ctx).Create(&sub).Error; err != nil {
		return nil, fmt.Errorf("save subscription: %w", err)
	}

	subscriptionEvents.WithLabelValues("created").Inc()
	utils.InfoLogger.Printf("User %d subscribed to %s (%s)", user.ID, s.plan.Name, remote.ID)
	return &sub, nil
}

// UpdatePaymentMethod swaps the customer's default card, creating the
// customer first when needed.
func (s *SubscriptionService) UpdatePaymentMethod(ctx context.Context, user *models.User, paymentMethodID string) (PaymentMethodDetails, error) {
	customerID, err := s.EnsureCustomer(ctx, user)
	if err != nil {
		return PaymentMethodDetails{}, err
	}

	details, err := s.provider.UpdateDefaultPaymentMethod(ctx, customerID, paymentMethodID)
	if err != nil {
		return PaymentMethodDetails{}, err
	}

	err = s.db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"pm_type":      details.Type,
		"pm_last_four": details.LastFour,
	}).Error
	if err != nil {
		return PaymentMethodDetails{}, fmt.Errorf("save payment method: %w", err)
	}
	user.PmType = &details.Type
	user.PmLastFour = &details.LastFour
	return details, nil
}

// CancelNow cancels the premium subscription immediately.
func (s *SubscriptionService) CancelNow(ctx context.Context, user *models.User) error {
	sub, err := s.Current(ctx, user.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNoSubscription
	}
	if err != nil {
		return err
	}
	if !sub.Valid(s.now()) {
		return ErrNoSubscription
	}
	if err := s.provider.CancelSubscription(ctx, sub.StripeID); err != nil {
		return err
	}

	endedAt := s.now()
	err = s.db.WithContext(ctx).Model(sub).Updates(map[string]interface{}{
		"stripe_status": models.SubscriptionCanceled,
		"ends_at":       endedAt,
	}).Error
	if err != nil {
		return fmt.Errorf("mark subscription canceled: %w", err)
	}

	subscriptionEvents.WithLabelValues("canceled").Inc()
	utils.InfoLogger.Printf("User %d canceled %s (%s)", user.ID, s.plan.Name, sub.StripeID)
	return nil
}

// SyncStatus applies a provider-reported status change to the local row.
// Unknown subscription ids are ignored.
func (s *SubscriptionService) SyncStatus(ctx context.Context, stripeID, status string, endsAt *time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("stripe_id = ?", stripeID).
		Updates(map[string]interface{}{
			"stripe_status": status,
			"ends_at":       endsAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		subscriptionEvents.WithLabelValues("synced").Inc()
	}
	return nil
}

// PremiumUserCount counts users with an active subscription.
func (s *SubscriptionService) PremiumUserCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("stripe_status = ?", models.SubscriptionActive).
		Distinct("user_id").
		Count(&count).Error
	return count, err
}
