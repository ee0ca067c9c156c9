// Package testutil holds fixtures shared by package tests: an isolated
// in-memory database, row factories and a scripted billing provider.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/nagoyameshi/database"
	"github.com/yeremiapane/nagoyameshi/models"
	"github.com/yeremiapane/nagoyameshi/services"
	"github.com/yeremiapane/nagoyameshi/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	Password   = "password"
	PlanName   = "premium_plan"
	PriceID    = "price_test_premium"
	JWTSecret  = "a-very-long-test-secret"
	MonthlyFee = 300
)

var (
	loggerOnce sync.Once
	sequence   atomic.Int64
)

func InitLogger() {
	loggerOnce.Do(utils.InitLogger)
}

// NewTestDB opens a private in-memory SQLite database with every table migrated.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	InitLogger()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

func next() int64 {
	return sequence.Add(1)
}

func hash(t *testing.T, password string) string {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hashed)
}

func CreateUser(t *testing.T, db *gorm.DB, mutate ...func(*models.User)) *models.User {
	t.Helper()
	n := next()
	user := &models.User{
		Name:        fmt.Sprintf("会員%d", n),
		Kana:        "カイイン",
		Email:       fmt.Sprintf("user%d@example.com", n),
		Password:    hash(t, Password),
		PostalCode:  "1234567",
		Address:     "愛知県名古屋市",
		PhoneNumber: "09012345678",
	}
	for _, m := range mutate {
		m(user)
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func CreateAdmin(t *testing.T, db *gorm.DB) *models.Admin {
	t.Helper()
	admin := &models.Admin{
		Email:    fmt.Sprintf("admin%d@example.com", next()),
		Password: hash(t, Password),
	}
	require.NoError(t, db.Create(admin).Error)
	return admin
}

// Subscribe gives user an active premium subscription row.
func Subscribe(t *testing.T, db *gorm.DB, user *models.User) *models.Subscription {
	t.Helper()
	sub := &models.Subscription{
		UserID:       user.ID,
		Type:         PlanName,
		StripeID:     fmt.Sprintf("sub_%d", next()),
		StripeStatus: models.SubscriptionActive,
		StripePrice:  PriceID,
		Quantity:     1,
	}
	require.NoError(t, db.Create(sub).Error)
	return sub
}

func CreateCategory(t *testing.T, db *gorm.DB, name string) *models.Category {
	t.Helper()
	category := &models.Category{Name: name}
	require.NoError(t, db.Create(category).Error)
	return category
}

func CreateRestaurant(t *testing.T, db *gorm.DB, mutate ...func(*models.Restaurant)) *models.Restaurant {
	t.Helper()
	restaurant := &models.Restaurant{
		Name:            fmt.Sprintf("テスト店舗%d", next()),
		Description:     "テスト",
		LowestPrice:     1000,
		HighestPrice:    5000,
		PostalCode:      "0000000",
		Address:         "テスト",
		OpeningTime:     "10:00",
		ClosingTime:     "20:00",
		SeatingCapacity: 50,
	}
	for _, m := range mutate {
		m(restaurant)
	}
	require.NoError(t, db.Create(restaurant).Error)
	return restaurant
}

func CreateReview(t *testing.T, db *gorm.DB, restaurant *models.Restaurant, user *models.User, score int) *models.Review {
	t.Helper()
	review := &models.Review{
		Score:        score,
		Content:      "テスト",
		RestaurantID: restaurant.ID,
		UserID:       user.ID,
	}
	require.NoError(t, db.Create(review).Error)
	return review
}

func CreateReservation(t *testing.T, db *gorm.DB, restaurant *models.Restaurant, user *models.User) *models.Reservation {
	t.Helper()
	reservation := &models.Reservation{
		ReservedDatetime: time.Now().Add(48 * time.Hour).Truncate(time.Minute),
		NumberOfPeople:   2,
		RestaurantID:     restaurant.ID,
		UserID:           user.ID,
	}
	require.NoError(t, db.Create(reservation).Error)
	return reservation
}

// FakeBilling is a scripted BillingProvider. Set an Err field to make the
// matching call fail. SubscriptionStatus overrides the "active" status of
// created subscriptions.
type FakeBilling struct {
	mu    sync.Mutex
	Calls []string

	SubscriptionStatus string

	CreateCustomerErr     error
	SetupIntentErr        error
	CreateSubscriptionErr error
	UpdatePaymentErr      error
	CancelErr             error
}

var _ services.BillingProvider = (*FakeBilling)(nil)

func (f *FakeBilling) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, call)
}

// Called reports whether call was made at least once.
func (f *FakeBilling) Called(call string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.Calls {
		if c == call {
			return true
		}
	}
	return false
}

func (f *FakeBilling) CreateCustomer(_ context.Context, email, _ string) (string, error) {
	f.record("CreateCustomer")
	if f.CreateCustomerErr != nil {
		return "", f.CreateCustomerErr
	}
	return "cus_" + email, nil
}

func (f *FakeBilling) CreateSetupIntent(_ context.Context, customerID string) (string, error) {
	f.record("CreateSetupIntent")
	if f.SetupIntentErr != nil {
		return "", f.SetupIntentErr
	}
	return "seti_secret_" + customerID, nil
}

func (f *FakeBilling) CreateSubscription(_ context.Context, _, priceID, _ string) (services.ProviderSubscription, error) {
	f.record("CreateSubscription")
	if f.CreateSubscriptionErr != nil {
		return services.ProviderSubscription{}, f.CreateSubscriptionErr
	}
	status := models.SubscriptionActive
	if f.SubscriptionStatus != "" {
		status = f.SubscriptionStatus
	}
	return services.ProviderSubscription{
		ID:      fmt.Sprintf("sub_fake_%d", next()),
		Status:  status,
		PriceID: priceID,
	}, nil
}

func (f *FakeBilling) UpdateDefaultPaymentMethod(_ context.Context, _, _ string) (services.PaymentMethodDetails, error) {
	f.record("UpdateDefaultPaymentMethod")
	if f.UpdatePaymentErr != nil {
		return services.PaymentMethodDetails{}, f.UpdatePaymentErr
	}
	return services.PaymentMethodDetails{Type: "visa", LastFour: "4242"}, nil
}

func (f *FakeBilling) CancelSubscription(_ context.Context, _ string) error {
	f.record("CancelSubscription")
	return f.CancelErr
}

// NewSubscriptionService wires the fake provider with the test plan.
func NewSubscriptionService(db *gorm.DB, billing services.BillingProvider) *services.SubscriptionService {
	return services.NewSubscriptionService(db, billing, services.Plan{Name: PlanName, PriceID: PriceID})
}
