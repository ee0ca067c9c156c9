package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/yeremiapane/nagoyameshi/utils"
)

var ErrBillingUnavailable = errors.New("billing provider unavailable")

// ProviderSubscription is the provider's view of a created subscription.
type ProviderSubscription struct {
	ID      string
	Status  string
	PriceID string
}

// PaymentMethodDetails describes the default card kept on the customer.
type PaymentMethodDetails struct {
	Type     string
	LastFour string
}

// BillingProvider is the external payment service. Implementations must not
// retry; callers turn failures into user-facing messages.
type BillingProvider interface {
	CreateCustomer(ctx context.Context, email, name string) (string, error)
	CreateSetupIntent(ctx context.Context, customerID string) (string, error)
	CreateSubscription(ctx context.Context, customerID, priceID, paymentMethodID string) (ProviderSubscription, error)
	UpdateDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) (PaymentMethodDetails, error)
	CancelSubscription(ctx context.Context, subscriptionID string) error
}

type StripeConfig struct {
	SecretKey string
	Timeout   time.Duration
	// BaseURL overrides the Stripe API endpoint, for tests.
	BaseURL string
}

// StripeBilling talks to Stripe through stripe-go, behind a circuit breaker.
type StripeBilling struct {
	api     *client.API
	breaker *gobreaker.CircuitBreaker[any]
	timeout time.Duration
}

func NewStripeBilling(cfg StripeConfig) *StripeBilling {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "stripe",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		IsSuccessful: countsAsAvailable,
		OnStateChange: func(name string, from, to gobreaker.State) {
			utils.ErrorLogger.Printf("circuit breaker %s: %s -> %s", name, from, to)
		},
	})

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(0),
	}
	if cfg.BaseURL != "" {
		backendCfg.URL = stripe.String(cfg.BaseURL)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg)

	return &StripeBilling{
		api: client.New(cfg.SecretKey, &stripe.Backends{
			API:     backend,
			Connect: backend,
			Uploads: backend,
		}),
		breaker: cb,
		timeout: timeout,
	}
}

// countsAsAvailable keeps client errors such as a declined card or an unknown
// payment method from tripping the breaker. Only transport failures and 5xx
// answers count against the provider.
func countsAsAvailable(err error) bool {
	if err == nil {
		return true
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return stripeErr.HTTPStatusCode > 0 && stripeErr.HTTPStatusCode < http.StatusInternalServerError
	}
	return false
}

// call runs fn under the breaker and a provider timeout, recording metrics.
func (s *StripeBilling) call(ctx context.Context, op string, fn func(ctx context.Context) (any, error)) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	result, err := s.breaker.Execute(func() (any, error) {
		return fn(ctx)
	})
	observeBillingCall(op, start, err)

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%s: %w", op, ErrBillingUnavailable)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

func (s *StripeBilling) CreateCustomer(ctx context.Context, email, name string) (string, error) {
	res, err := s.call(ctx, "create_customer", func(ctx context.Context) (any, error) {
		params := &stripe.CustomerParams{
			Email: stripe.String(email),
			Name:  stripe.String(name),
		}
		params.Context = ctx
		return s.api.Customers.New(params)
	})
	if err != nil {
		return "", err
	}
	return res.(*stripe.Customer).ID, nil
}

func (s *StripeBilling) CreateSetupIntent(ctx context.Context, customerID string) (string, error) {
	res, err := s.call(ctx, "create_setup_intent", func(ctx context.Context) (any, error) {
		params := &stripe.SetupIntentParams{
			Customer:           stripe.String(customerID),
			PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
			Usage:              stripe.String(string(stripe.SetupIntentUsageOffSession)),
		}
		params.Context = ctx
		return s.api.SetupIntents.New(params)
	})
	if err != nil {
		return "", err
	}
	return res.(*stripe.SetupIntent).ClientSecret, nil
}

func (s *StripeBilling) CreateSubscription(ctx context.Context, customerID, priceID, paymentMethodID string) (ProviderSubscription, error) {
	res, err := s.call(ctx, "create_subscription", func(ctx context.Context) (any, error) {
		params := &stripe.SubscriptionParams{
			Customer: stripe.String(customerID),
			Items: []*stripe.SubscriptionItemsParams{
				{Price: stripe.String(priceID)},
			},
			DefaultPaymentMethod: stripe.String(paymentMethodID),
		}
		params.Context = ctx
		return s.api.Subscriptions.New(params)
	})
	if err != nil {
		return ProviderSubscription{}, err
	}
	sub := res.(*stripe.Subscription)
	return ProviderSubscription{ID: sub.ID, Status: string(sub.Status), PriceID: priceID}, nil
}

func (s *StripeBilling) UpdateDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) (PaymentMethodDetails, error) {
	res, err := s.call(ctx, "update_default_payment_method", func(ctx context.Context) (any, error) {
		attach := &stripe.PaymentMethodAttachParams{Customer: stripe.String(customerID)}
		attach.Context = ctx
		pm, err := s.api.PaymentMethods.Attach(paymentMethodID, attach)
		if err != nil {
			return nil, err
		}

		update := &stripe.CustomerParams{
			InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
				DefaultPaymentMethod: stripe.String(pm.ID),
			},
		}
		update.Context = ctx
		if _, err := s.api.Customers.Update(customerID, update); err != nil {
			return nil, err
		}
		return pm, nil
	})
	if err != nil {
		return PaymentMethodDetails{}, err
	}

	pm := res.(*stripe.PaymentMethod)
	details := PaymentMethodDetails{Type: string(pm.Type)}
	if pm.Card != nil {
		details.Type = string(pm.Card.Brand)
		details.LastFour = pm.Card.Last4
	}
	return details, nil
}

func (s *StripeBilling) CancelSubscription(ctx context.Context, subscriptionID string) error {
	_, err := s.call(ctx, "cancel_subscription", func(ctx context.Context) (any, error) {
		params := &stripe.SubscriptionCancelParams{}
		params.Context = ctx
		return s.api.Subscriptions.Cancel(subscriptionID, params)
	})
	return err
}

// DisabledBilling is used when no Stripe key is configured. Every call fails
// with ErrBillingUnavailable so subscription pages degrade to an error flash.
type DisabledBilling struct{}

func (DisabledBilling) CreateCustomer(context.Context, string, string) (string, error) {
	return "", ErrBillingUnavailable
}

func (DisabledBilling) CreateSetupIntent(context.Context, string) (string, error) {
	return "", ErrBillingUnavailable
}

func (DisabledBilling) CreateSubscription(context.Context, string, string, string) (ProviderSubscription, error) {
	return ProviderSubscription{}, ErrBillingUnavailable
}

func (DisabledBilling) UpdateDefaultPaymentMethod(context.Context, string, string) (PaymentMethodDetails, error) {
	return PaymentMethodDetails{}, ErrBillingUnavailable
}

func (DisabledBilling) CancelSubscription(context.Context, string) error {
	return ErrBillingUnavailable
}
