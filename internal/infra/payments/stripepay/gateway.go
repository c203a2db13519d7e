package stripepay

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"rentbox/internal/app/policies"
)

type Config struct {
	SecretKey     string
	PublicBaseURL string
	ProductName   string
}

// Gateway opens Stripe Checkout sessions billed per started week.
type Gateway struct {
	api         *client.API
	baseURL     string
	productName string
}

func NewGateway(cfg Config) (*Gateway, error) {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, fmt.Errorf("stripe: %w: secret key missing", policies.ErrNotConfigured)
	}
	if strings.TrimSpace(cfg.PublicBaseURL) == "" {
		return nil, fmt.Errorf("stripe: %w: public base url missing", policies.ErrNotConfigured)
	}
	name := cfg.ProductName
	if name == "" {
		name = "Storage rental"
	}
	return &Gateway{
		api:         client.New(cfg.SecretKey, nil),
		baseURL:     strings.TrimRight(cfg.PublicBaseURL, "/"),
		productName: name,
	}, nil
}

func (g *Gateway) CreateCheckoutSession(ctx context.Context, req policies.CheckoutRequest) (policies.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		CustomerEmail:     stripe.String(req.CustomerEmail),
		ClientReferenceID: stripe.String(req.ReservationID),
		SuccessURL:        stripe.String(g.baseURL + "/booking/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:         stripe.String(g.baseURL + "/booking/cancelled"),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(int64(req.Weeks)),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(req.WeeklyRate.Currency)),
				UnitAmount: stripe.Int64(req.WeeklyRate.Amount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String(g.productName),
					Description: stripe.String(fmt.Sprintf("%s to %s (%d week(s))", req.Range.Start, req.Range.End, req.Weeks)),
				},
			},
		}},
	}
	params.Context = ctx
	params.AddMetadata("reservation_id", req.ReservationID)
	params.AddMetadata("start_date", req.Range.Start.String())
	params.AddMetadata("end_date", req.Range.End.String())
	params.AddMetadata("weeks", strconv.Itoa(req.Weeks))

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return policies.CheckoutSession{}, fmt.Errorf("%w: stripe: %v", policies.ErrGateway, err)
	}
	return policies.CheckoutSession{Reference: sess.ID, URL: sess.URL}, nil
}

var _ policies.PaymentGateway = (*Gateway)(nil)
