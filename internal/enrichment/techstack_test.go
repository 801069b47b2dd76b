package enrichment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octobees/lead-enricher/pkg/builtwith"
)

func TestClassify(t *testing.T) {
	stack := Classify([]builtwith.Technology{
		{Name: "Shopify", Categories: []string{"eCommerce"}},
		{Name: "Shopify Payments", Categories: []string{"Payments Processor", "Shopify App"}},
		{Name: "Klarna", Categories: []string{"Pay Later"}},
		{Name: "Google Analytics", Categories: []string{"Audience Measurement"}},
		{Name: "shopify", Categories: []string{"eCommerce"}},
	})

	assert.Equal(t, []string{"Shopify", "Shopify Payments"}, stack.Ecommerce)
	assert.Equal(t, []string{"Klarna", "Shopify Payments"}, stack.Payments)
	require.NotNil(t, stack.EcommerceProvider())
	assert.Equal(t, "Shopify, Shopify Payments", *stack.EcommerceProvider())
}

func TestClassify_Empty(t *testing.T) {
	stack := Classify(nil)
	assert.True(t, stack.IsEmpty())
	assert.NotNil(t, stack.Ecommerce)
	assert.Nil(t, stack.EcommerceProvider())
	assert.Nil(t, stack.PaymentProvider())
}

func TestTechDetector_Detect(t *testing.T) {
	resp := &builtwith.LookupResponse{Results: []builtwith.Result{{}}}
	resp.Results[0].Result.Paths = []builtwith.Path{{
		Technologies: []builtwith.Technology{{Name: "Stripe", Categories: []string{"Payments Processor"}}},
	}}
	stack := NewTechDetector(&fakeBuiltWith{resp: resp}).Detect(context.Background(), "acme.com")
	assert.Equal(t, []string{"Stripe"}, stack.Payments)
	assert.Empty(t, stack.Ecommerce)
}

func TestTechDetector_FailureIsEmpty(t *testing.T) {
	stack := NewTechDetector(&fakeBuiltWith{err: errors.New("quota")}).Detect(context.Background(), "acme.com")
	assert.True(t, stack.IsEmpty())
}

func TestInferTechStack(t *testing.T) {
	stack := InferTechStack("Checkout securely with PayPal or Klarna. Built on WooCommerce. Stripey shirts on sale.")
	assert.Equal(t, []string{"WooCommerce"}, stack.Ecommerce)
	assert.Equal(t, []string{"Klarna", "PayPal"}, stack.Payments)

	assert.True(t, InferTechStack("We make handmade furniture.").IsEmpty())
}
