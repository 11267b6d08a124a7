package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pomoroom/internal/api/v1/dto"
	"pomoroom/internal/config"
	"pomoroom/internal/model"
	"pomoroom/internal/plan"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
)

const webhookSecret = "whsec_test_secret"

func newStripeFixture() (*StripeService, *memSubs, *memUsers) {
	cust := "cus_123"
	users := newMemUsers(&model.User{UserID: "alice", StripeCustomerID: &cust}, &model.User{UserID: "bob"})
	subs := newMemSubs(&model.Subscription{UserID: "alice", Tier: plan.TierFree, Status: model.SubscriptionActive})
	subSvc := NewSubscriptionService(subs, users, newMemRooms(), plan.DefaultCatalog(), zerolog.Nop())
	cfg := &config.Config{StripeWebhookSecret: webhookSecret, StripePriceBasic: "price_basic", StripePricePro: "price_pro"}
	return NewStripeService(cfg, users, subSvc, zerolog.Nop()), subs, users
}

func subscriptionEvent(t *testing.T, typ string, sub map[string]any) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(sub)
	require.NoError(t, err)
	return stripe.Event{ID: "evt_1", Type: stripe.EventType(typ), Data: &stripe.EventData{Raw: raw}}
}

func TestProcessSubscriptionUpdatedMapsPrice(t *testing.T) {
	svc, subs, _ := newStripeFixture()
	ev := subscriptionEvent(t, "customer.subscription.updated", map[string]any{
		"id":       "sub_1",
		"status":   "active",
		"customer": "cus_123",
		"items":    map[string]any{"data": []any{map[string]any{"price": map[string]any{"id": "price_pro"}}}},
	})

	require.NoError(t, svc.ProcessEvent(context.Background(), ev))
	assert.Equal(t, plan.TierPro, subs.subs["alice"].Tier)
	assert.Equal(t, model.SubscriptionActive, subs.subs["alice"].Status)
	require.NotNil(t, subs.subs["alice"].StripeSubscriptionID)
	assert.Equal(t, "sub_1", *subs.subs["alice"].StripeSubscriptionID)
}

func TestProcessSubscriptionCreatedUsesMetadata(t *testing.T) {
	svc, subs, _ := newStripeFixture()
	ev := subscriptionEvent(t, "customer.subscription.created", map[string]any{
		"id":       "sub_2",
		"status":   "past_due",
		"metadata": map[string]string{"user_id": "bob", "tier": "basic"},
		"items":    map[string]any{"data": []any{map[string]any{"price": map[string]any{"id": "price_unknown"}}}},
	})

	require.NoError(t, svc.ProcessEvent(context.Background(), ev))
	assert.Equal(t, plan.TierBasic, subs.subs["bob"].Tier)
	assert.Equal(t, model.SubscriptionPastDue, subs.subs["bob"].Status)
}

func TestProcessSubscriptionDeletedDowngrades(t *testing.T) {
	svc, subs, _ := newStripeFixture()
	subs.subs["alice"].Tier = plan.TierPro
	ev := subscriptionEvent(t, "customer.subscription.deleted", map[string]any{"id": "sub_1", "customer": "cus_123"})

	require.NoError(t, svc.ProcessEvent(context.Background(), ev))
	assert.Equal(t, plan.TierFree, subs.subs["alice"].Tier)
	assert.Equal(t, model.SubscriptionCancelled, subs.subs["alice"].Status)
}

func TestProcessCheckoutStoresCustomer(t *testing.T) {
	svc, _, users := newStripeFixture()
	ev := subscriptionEvent(t, "checkout.session.completed", map[string]any{
		"id":                  "cs_1",
		"client_reference_id": "bob",
		"customer":            "cus_bob",
	})

	require.NoError(t, svc.ProcessEvent(context.Background(), ev))
	require.NotNil(t, users.users["bob"].StripeCustomerID)
	assert.Equal(t, "cus_bob", *users.users["bob"].StripeCustomerID)
}

func TestProcessSubscriptionWithoutTierFails(t *testing.T) {
	svc, _, _ := newStripeFixture()
	ev := subscriptionEvent(t, "customer.subscription.updated", map[string]any{"id": "sub_3", "customer": "cus_123"})
	assert.Error(t, svc.ProcessEvent(context.Background(), ev))
}

func TestHandleWebhookVerifiesSignature(t *testing.T) {
	svc, subs, _ := newStripeFixture()
	payload := []byte(`{"id":"evt_1","object":"event","type":"customer.subscription.updated","data":{"object":` +
		`{"id":"sub_1","object":"subscription","status":"active","customer":"cus_123",` +
		`"items":{"object":"list","data":[{"id":"si_1","price":{"id":"price_basic"}}]}}}}`)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/stripe", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", "t=1,v1=bad")
	svc.HandleWebhook(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	signed := stripe.GenerateTestSignedPayload(&stripe.UnsignedPayload{Payload: payload, Secret: webhookSecret})
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/v1/webhooks/stripe", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", signed.Header)
	svc.HandleWebhook(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, plan.TierBasic, subs.subs["alice"].Tier)
}

func TestHandleWebhookHidesProcessingErrors(t *testing.T) {
	svc, subs, _ := newStripeFixture()
	payload := []byte(`{"id":"evt_2","object":"event","type":"customer.subscription.updated","data":{"object":` +
		`{"id":"sub_secret_9","object":"subscription","status":"active","customer":"cus_123",` +
		`"items":{"object":"list","data":[{"id":"si_1","price":{"id":"price_unknown"}}]}}}}`)

	signed := stripe.GenerateTestSignedPayload(&stripe.UnsignedPayload{Payload: payload, Secret: webhookSecret})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/stripe", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", signed.Header)
	svc.HandleWebhook(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "failed to process webhook", body.Error)
	assert.NotContains(t, rec.Body.String(), "sub_secret_9")
	assert.Equal(t, plan.TierFree, subs.subs["alice"].Tier)
}
