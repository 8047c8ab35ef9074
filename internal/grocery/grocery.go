// Package grocery hands the consolidated shopping list to a cart provider
// and returns a checkout link. The provider is a capability with two
// implementations, live and mock, selected by configuration; a failing live
// provider degrades to the mock result instead of failing the planning flow.
package grocery

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"nutrition-coach/internal/domain"
)

// Checkout modes.
const (
	ModeLive = "live"
	ModeMock = "mock"
)

// Result is the outcome of a checkout: the link to hand the user plus how it
// was produced, so callers and tests can tell a real cart from the fallback.
type Result struct {
	URL  string `json:"checkout_url"`
	Mode string `json:"mode"`
}

// CartService creates a cart for a shopping list and returns its checkout URL.
type CartService interface {
	CreateCart(ctx context.Context, items []domain.Ingredient) (string, error)
}

// Checkout wraps an optional live provider with the mock fallback. A nil
// provider means no credentials were configured.
type Checkout struct {
	live    CartService
	mockURL string
}

// NewCheckout creates the adapter. mockURL is the base for deterministic
// fallback links.
func NewCheckout(live CartService, mockURL string) *Checkout {
	return &Checkout{live: live, mockURL: mockURL}
}

// Run maps the shopping list to a cart. It never returns an error: missing
// credentials, unreachable providers, and provider-side failures all produce
// a mock-mode result, because the meal plan is still useful without a
// working cart link.
func (c *Checkout) Run(ctx context.Context, items []domain.Ingredient) Result {
	if c.live == nil || len(items) == 0 {
		return c.mock(items)
	}

	url, err := c.live.CreateCart(ctx, items)
	if err != nil {
		log.Warn().Err(err).Msg("live cart provider failed, degrading to mock checkout")
		return c.mock(items)
	}
	return Result{URL: url, Mode: ModeLive}
}

func (c *Checkout) mock(items []domain.Ingredient) Result {
	return Result{
		URL:  fmt.Sprintf("%s?items=%d", c.mockURL, len(items)),
		Mode: ModeMock,
	}
}
