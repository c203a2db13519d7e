package fake

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"rentbox/internal/app/policies"
)

// Gateway hands out local checkout sessions for development. Payment
// outcomes are then posted to the generic payment webhook.
type Gateway struct {
	BaseURL string

	mu       sync.Mutex
	sessions map[string]policies.CheckoutRequest
}

func NewGateway(baseURL string) *Gateway {
	return &Gateway{BaseURL: strings.TrimRight(baseURL, "/"), sessions: make(map[string]policies.CheckoutRequest)}
}

func (g *Gateway) CreateCheckoutSession(ctx context.Context, req policies.CheckoutRequest) (policies.CheckoutSession, error) {
	if err := ctx.Err(); err != nil {
		return policies.CheckoutSession{}, err
	}
	ref := "fake_cs_" + uuid.NewString()
	g.mu.Lock()
	g.sessions[ref] = req
	g.mu.Unlock()
	return policies.CheckoutSession{
		Reference: ref,
		URL:       g.BaseURL + "/booking/success?session_id=" + ref,
	}, nil
}

// Session returns the request a reference was created for.
func (g *Gateway) Session(reference string) (policies.CheckoutRequest, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	req, ok := g.sessions[reference]
	return req, ok
}

var _ policies.PaymentGateway = (*Gateway)(nil)
