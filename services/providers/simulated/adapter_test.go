package simulated

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grocerlink/commerce-router/models"
	"github.com/grocerlink/commerce-router/services/providers"
)

func testCart() []models.CartItem {
	return []models.CartItem{
		{Name: "organic bananas", Quantity: 2, UnitPriceCents: 129},
		{Name: "whole milk", Quantity: 1, UnitPriceCents: 349},
		{Name: "sourdough bread", Quantity: 1, UnitPriceCents: 499},
	}
}

func testAddress() models.Address {
	return models.Address{Line1: "500 Mission St", City: "San Francisco", State: "CA", PostalCode: "94105"}
}

func TestGetQuoteDeterministic(t *testing.T) {
	a := New("freshmart", DefaultOptions())

	first, err := a.GetQuote(context.Background(), testCart(), testAddress())
	require.NoError(t, err)

	second, err := a.GetQuote(context.Background(), testCart(), testAddress())
	require.NoError(t, err)

	assert.Equal(t, first.TotalCents, second.TotalCents)
	assert.Equal(t, first.EstimatedDeliveryMinutes, second.EstimatedDeliveryMinutes)
	assert.Equal(t, first.ItemAvailability, second.ItemAvailability)
	assert.Equal(t, "freshmart", first.ProviderID)
	assert.Equal(t, first.SubtotalCents+first.FeesCents+first.TaxCents, first.TotalCents)
	assert.Len(t, first.ItemAvailability, 3)
}

func TestGetQuoteVariesByProvider(t *testing.T) {
	a := New("freshmart", DefaultOptions())
	b := New("quickbasket", DefaultOptions())

	qa, err := a.GetQuote(context.Background(), testCart(), testAddress())
	require.NoError(t, err)
	qb, err := b.GetQuote(context.Background(), testCart(), testAddress())
	require.NoError(t, err)

	assert.NotEqual(t, qa.TotalCents, qb.TotalCents)
}

func TestGetQuoteEmptyCart(t *testing.T) {
	a := New("freshmart", DefaultOptions())

	_, err := a.GetQuote(context.Background(), nil, testAddress())
	require.Error(t, err)

	var provErr *providers.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, 400, provErr.StatusCode)
	assert.False(t, provErr.Retryable)
}

func TestScriptedQuoteFailure(t *testing.T) {
	scripted := providers.NewProviderError("freshmart", "OUTAGE", "service unavailable", 503, true, nil)
	a := New("freshmart", Options{QuoteErr: scripted})

	_, err := a.GetQuote(context.Background(), testCart(), testAddress())
	assert.True(t, errors.Is(err, scripted) || err == scripted)
}

func TestConfirmAndCancel(t *testing.T) {
	a := New("freshmart", DefaultOptions())

	conf, err := a.ConfirmOrder(context.Background(), &providers.ConfirmRequest{
		OrderID:      "ord-1",
		Items:        testCart(),
		Address:      testAddress(),
		PaymentToken: "pm_test_token",
		TotalCents:   1500,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, conf.ProviderOrderID)
	assert.Equal(t, "confirmed", conf.Status)

	require.NoError(t, a.CancelOrder(context.Background(), conf.ProviderOrderID))

	err = a.CancelOrder(context.Background(), conf.ProviderOrderID)
	var provErr *providers.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "ALREADY_CANCELLED", provErr.Code)
}

func TestConfirmDeclinesEmptyPayment(t *testing.T) {
	a := New("freshmart", DefaultOptions())

	_, err := a.ConfirmOrder(context.Background(), &providers.ConfirmRequest{OrderID: "ord-1", TotalCents: 100})
	var provErr *providers.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "PAYMENT_DECLINED", provErr.Code)
	assert.False(t, provErr.Retryable)
}

func TestCancelUnknownOrder(t *testing.T) {
	a := New("freshmart", DefaultOptions())

	err := a.CancelOrder(context.Background(), "freshmart-999999")
	var provErr *providers.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "ORDER_NOT_FOUND", provErr.Code)
}

func TestSimulatedLatencyHonorsContext(t *testing.T) {
	a := New("freshmart", Options{Latency: 500 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := a.GetQuote(ctx, testCart(), testAddress())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 250*time.Millisecond)
}
