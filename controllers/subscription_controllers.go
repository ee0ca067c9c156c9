package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"github.com/yeremiapane/nagoyameshi/auth"
	"github.com/yeremiapane/nagoyameshi/services"
	"github.com/yeremiapane/nagoyameshi/utils"
)

const (
	subscriptionCreatePath = "/subscription/create"
	maxWebhookBytes        = 65536
)

type paymentMethodForm struct {
	PaymentMethodID string `form:"paymentMethodId" binding:"required"`
}

type SubscriptionController struct {
	Subscriptions  *services.SubscriptionService
	PublishableKey string
	WebhookSecret  string
}

func NewSubscriptionController(subs *services.SubscriptionService, publishableKey, webhookSecret string) *SubscriptionController {
	return &SubscriptionController{
		Subscriptions:  subs,
		PublishableKey: publishableKey,
		WebhookSecret:  webhookSecret,
	}
}

func (sc *SubscriptionController) setupIntent(c *gin.Context) (string, bool) {
	p := auth.FromContext(c)
	secret, err := sc.Subscriptions.SetupIntent(c.Request.Context(), p.User)
	if err != nil {
		utils.ErrorLogger.Printf("Failed to create setup intent for user %d: %v", p.UserID(), err)
		utils.RedirectWithFlash(c, HomePath, utils.ErrorMessage, "決済サービスに接続できませんでした。時間をおいて再度お試しください。")
		return "", false
	}
	return secret, true
}

// Create returns what the card form needs to start the premium plan.
func (sc *SubscriptionController) Create(c *gin.Context) {
	secret, ok := sc.setupIntent(c)
	if !ok {
		return
	}
	utils.RespondJSON(c, http.StatusOK, "有料プラン登録", gin.H{
		"intent_client_secret": secret,
		"publishable_key":      sc.PublishableKey,
		"plan":                 sc.Subscriptions.Plan().Name,
	})
}

func (sc *SubscriptionController) Store(c *gin.Context) {
	var form paymentMethodForm
	if errs := utils.BindForm(c, &form); errs != nil {
		utils.RespondValidation(c, errs)
		return
	}

	p := auth.FromContext(c)
	_, err := sc.Subscriptions.Subscribe(c.Request.Context(), p.User, form.PaymentMethodID)
	switch {
	case errors.Is(err, services.ErrSubscriptionIncomplete):
		utils.ErrorLogger.Printf("Subscription for user %d was not paid: %v", p.UserID(), err)
		utils.RedirectWithFlash(c, subscriptionCreatePath, utils.ErrorMessage, "お支払いを完了できませんでした。別のカードでお試しください。")
		return
	case err != nil:
		utils.ErrorLogger.Printf("Failed to subscribe user %d: %v", p.UserID(), err)
		utils.RedirectWithFlash(c, subscriptionCreatePath, utils.ErrorMessage, "有料プランへの登録に失敗しました。")
		return
	}

	utils.RedirectWithFlash(c, HomePath, utils.FlashMessage, "有料プランへの登録が完了しました。")
}

// Edit shows the current card and a fresh setup intent for replacing it.
func (sc *SubscriptionController) Edit(c *gin.Context) {
	secret, ok := sc.setupIntent(c)
	if !ok {
		return
	}
	user := auth.FromContext(c).User
	utils.RespondJSON(c, http.StatusOK, "お支払い方法編集", gin.H{
		"pm_type":              user.PmType,
		"pm_last_four":         user.PmLastFour,
		"intent_client_secret": secret,
		"publishable_key":      sc.PublishableKey,
	})
}

func (sc *SubscriptionController) Update(c *gin.Context) {
	var form paymentMethodForm
	if errs := utils.BindForm(c, &form); errs != nil {
		utils.RespondValidation(c, errs)
		return
	}

	p := auth.FromContext(c)
	if _, err := sc.Subscriptions.UpdatePaymentMethod(c.Request.Context(), p.User, form.PaymentMethodID); err != nil {
		utils.ErrorLogger.Printf("Failed to update payment method for user %d: %v", p.UserID(), err)
		utils.RedirectWithFlash(c, HomePath, utils.ErrorMessage, "支払い方法の変更に失敗しました。")
		return
	}

	utils.RedirectWithFlash(c, HomePath, utils.FlashMessage, "お支払い方法を変更しました。")
}

func (sc *SubscriptionController) Cancel(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, "有料プラン解約", gin.H{
		"user": auth.FromContext(c).User,
		"plan": sc.Subscriptions.Plan().Name,
	})
}

// Destroy cancels the premium plan immediately.
func (sc *SubscriptionController) Destroy(c *gin.Context) {
	p := auth.FromContext(c)
	err := sc.Subscriptions.CancelNow(c.Request.Context(), p.User)
	switch {
	case errors.Is(err, services.ErrNoSubscription):
		utils.RedirectWithFlash(c, HomePath, utils.ErrorMessage, "解約するサブスクリプションが見つかりません。")
		return
	case err != nil:
		utils.ErrorLogger.Printf("Failed to cancel subscription for user %d: %v", p.UserID(), err)
		utils.RedirectWithFlash(c, HomePath, utils.ErrorMessage, "有料プランの解約に失敗しました。")
		return
	}

	utils.RedirectWithFlash(c, HomePath, utils.FlashMessage, "有料プランを解約しました。")
}

// Webhook applies signed subscription events from Stripe to the local mirror.
func (sc *SubscriptionController) Webhook(c *gin.Context) {
	if sc.WebhookSecret == "" {
		utils.RespondError(c, http.StatusServiceUnavailable, services.ErrBillingUnavailable)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBytes)
	payload, err := c.GetRawData()
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, c.GetHeader("Stripe-Signature"), sc.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		utils.ErrorLogger.Printf("Rejected webhook: %v", err)
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid signature"))
		return
	}

	switch event.Type {
	case stripe.EventTypeCustomerSubscriptionUpdated, stripe.EventTypeCustomerSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		endsAt := subscriptionEndsAt(event.Type, &sub)
		if err := sc.Subscriptions.SyncStatus(c.Request.Context(), sub.ID, string(sub.Status), endsAt); err != nil {
			respondDBError(c, err)
			return
		}
		utils.InfoLogger.Printf("Webhook %s: subscription %s is %s", event.Type, sub.ID, sub.Status)
	default:
		utils.InfoLogger.Printf("Webhook %s ignored", event.Type)
	}

	utils.RespondJSON(c, http.StatusOK, "ok", nil)
}

// subscriptionEndsAt picks the moment access ends: the end time of a deleted
// subscription, or the scheduled cancellation of an updated one.
func subscriptionEndsAt(eventType stripe.EventType, sub *stripe.Subscription) *time.Time {
	var unix int64
	switch {
	case sub.EndedAt > 0:
		unix = sub.EndedAt
	case sub.CancelAt > 0:
		unix = sub.CancelAt
	case eventType == stripe.EventTypeCustomerSubscriptionDeleted:
		now := time.Now()
		return &now
	default:
		return nil
	}
	t := time.Unix(unix, 0)
	return &t
}
