package enrichment

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/octobees/lead-enricher/internal/normalize"
	"github.com/octobees/lead-enricher/pkg/builtwith"
)

var (
	ecommerceCategories = map[string]bool{"ecommerce": true, "shopify app": true}
	paymentCategories   = map[string]bool{"payments processor": true, "pay later": true}
)

// TechStack is the set of e-commerce platforms and payment processors found for a site.
type TechStack struct {
	Ecommerce []string `json:"ecommerce"`
	Payments  []string `json:"payments"`
}

// IsEmpty reports whether neither list has an entry.
func (t TechStack) IsEmpty() bool {
	return len(t.Ecommerce) == 0 && len(t.Payments) == 0
}

// EcommerceProvider returns the platforms comma-joined, or nil when none were found.
func (t TechStack) EcommerceProvider() *string {
	return normalize.JoinList(t.Ecommerce)
}

// PaymentProvider returns the processors comma-joined, or nil when none were found.
func (t TechStack) PaymentProvider() *string {
	return normalize.JoinList(t.Payments)
}

// TechDetector classifies the technologies the detector reports for a domain.
type TechDetector struct {
	client builtwith.Client
}

// NewTechDetector wires a detector over the BuiltWith client.
func NewTechDetector(client builtwith.Client) *TechDetector {
	return &TechDetector{client: client}
}

// Detect never fails: lookup errors are logged and yield an empty stack.
func (d *TechDetector) Detect(ctx context.Context, domain string) TechStack {
	resp, err := d.client.Lookup(ctx, domain)
	if err != nil {
		zap.L().Warn("tech detection failed", zap.String("domain", domain), zap.Error(err))
		return TechStack{Ecommerce: []string{}, Payments: []string{}}
	}
	return Classify(resp.Technologies())
}

// Classify buckets technologies by category. A technology can land in both lists.
func Classify(techs []builtwith.Technology) TechStack {
	var ecommerce, payments []string
	for _, t := range techs {
		for _, c := range t.Categories {
			c = strings.ToLower(strings.TrimSpace(c))
			if ecommerceCategories[strings.ReplaceAll(c, "-", "")] {
				ecommerce = append(ecommerce, t.Name)
			}
			if paymentCategories[c] {
				payments = append(payments, t.Name)
			}
		}
	}
	return TechStack{
		Ecommerce: normalize.TechList(ecommerce...),
		Payments:  normalize.TechList(payments...),
	}
}

type vendorPattern struct {
	name string
	re   *regexp.Regexp
}

func vendors(names ...string) []vendorPattern {
	out := make([]vendorPattern, len(names))
	for i, n := range names {
		out[i] = vendorPattern{name: n, re: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(n) + `\b`)}
	}
	return out
}

var (
	ecommerceVendors = vendors(
		"Shopify", "WooCommerce", "Magento", "BigCommerce", "PrestaShop",
		"Shopware", "OpenCart", "Squarespace Commerce", "Salesforce Commerce Cloud", "Ecwid",
	)
	paymentVendors = vendors(
		"Stripe", "PayPal", "Klarna", "Adyen", "Braintree", "Worldpay", "Clearpay",
		"Afterpay", "Opayo", "GoCardless", "Checkout.com", "Apple Pay", "Google Pay",
	)
)

// InferTechStack finds known vendor names mentioned in page content. It is the low
// confidence tier used when the detector finds nothing.
func InferTechStack(content string) TechStack {
	var ecommerce, payments []string
	for _, v := range ecommerceVendors {
		if v.re.MatchString(content) {
			ecommerce = append(ecommerce, v.name)
		}
	}
	for _, v := range paymentVendors {
		if v.re.MatchString(content) {
			payments = append(payments, v.name)
		}
	}
	return TechStack{
		Ecommerce: normalize.TechList(ecommerce...),
		Payments:  normalize.TechList(payments...),
	}
}
