package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainreservation "rentbox/internal/domain/reservation"
	"rentbox/internal/domain/shared/daterange"
	"rentbox/internal/domain/shared/money"
)

const reservationsCollection = "reservations"

type ReservationRepository struct {
	col *mongo.Collection
}

func NewReservationRepository(db *mongo.Database) *ReservationRepository {
	col := db.Collection(reservationsCollection)
	_, _ = col.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "payment_reference", Value: 1}},
			Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{"payment_reference": bson.M{"$gt": ""}}),
		},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
	})
	return &ReservationRepository{col: col}
}

func (r *ReservationRepository) ByID(ctx context.Context, id domainreservation.ID) (*domainreservation.Reservation, error) {
	return r.findOne(ctx, bson.M{"_id": string(id)})
}

func (r *ReservationRepository) ByPaymentReference(ctx context.Context, reference string) (*domainreservation.Reservation, error) {
	if reference == "" {
		return nil, domainreservation.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"payment_reference": reference})
}

func (r *ReservationRepository) findOne(ctx context.Context, filter bson.M) (*domainreservation.Reservation, error) {
	var doc reservationDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainreservation.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate()
}

func (r *ReservationRepository) ListByStatus(ctx context.Context, statuses ...domainreservation.Status) ([]*domainreservation.Reservation, error) {
	filter := bson.M{}
	if len(statuses) > 0 {
		values := make([]string, 0, len(statuses))
		for _, s := range statuses {
			values = append(values, string(s))
		}
		filter["status"] = bson.M{"$in": values}
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]*domainreservation.Reservation, 0)
	for cur.Next(ctx) {
		var doc reservationDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		res, err := doc.toAggregate()
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, cur.Err()
}

// Save upserts with an optimistic version check.
func (r *ReservationRepository) Save(ctx context.Context, res *domainreservation.Reservation) error {
	doc := newReservationDocument(res)
	filter := bson.M{"_id": doc.ID, "version": res.Version}
	doc.Version = res.Version + 1
	result, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainreservation.ErrConcurrentUpdate
		}
		return err
	}
	if result.MatchedCount == 0 && result.UpsertedCount == 0 {
		return domainreservation.ErrConcurrentUpdate
	}
	res.Version = doc.Version
	return nil
}

type reservationDocument struct {
	ID               string    `bson:"_id"`
	CustomerName     string    `bson:"customer_name"`
	CustomerEmail    string    `bson:"customer_email"`
	CustomerPhone    string    `bson:"customer_phone,omitempty"`
	Notes            string    `bson:"notes,omitempty"`
	StartDate        string    `bson:"start_date"`
	EndDate          string    `bson:"end_date"`
	TotalCents       int64     `bson:"total_cents"`
	Currency         string    `bson:"currency"`
	PaymentReference string    `bson:"payment_reference,omitempty"`
	PaymentIntent    string    `bson:"payment_intent,omitempty"`
	Status           string    `bson:"status"`
	CreatedAt        time.Time `bson:"created_at"`
	UpdatedAt        time.Time `bson:"updated_at"`
	Version          int64     `bson:"version"`
}

func newReservationDocument(r *domainreservation.Reservation) reservationDocument {
	return reservationDocument{
		ID:               string(r.ID),
		CustomerName:     r.Customer.Name,
		CustomerEmail:    r.Customer.Email,
		CustomerPhone:    r.Customer.Phone,
		Notes:            r.Notes,
		StartDate:        r.Range.Start.String(),
		EndDate:          r.Range.End.String(),
		TotalCents:       r.TotalPrice.Amount,
		Currency:         r.TotalPrice.Currency,
		PaymentReference: r.PaymentReference,
		PaymentIntent:    r.PaymentIntent,
		Status:           string(r.Status),
		CreatedAt:        r.CreatedAt.UTC(),
		UpdatedAt:        r.UpdatedAt.UTC(),
	}
}

func (d reservationDocument) toAggregate() (*domainreservation.Reservation, error) {
	start, err := daterange.ParseDate(d.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := daterange.ParseDate(d.EndDate)
	if err != nil {
		return nil, err
	}
	status, err := domainreservation.ParseStatus(d.Status)
	if err != nil {
		return nil, err
	}
	total, err := money.New(d.TotalCents, d.Currency)
	if err != nil {
		return nil, err
	}
	return &domainreservation.Reservation{
		ID:               domainreservation.ID(d.ID),
		Customer:         domainreservation.Customer{Name: d.CustomerName, Email: d.CustomerEmail, Phone: d.CustomerPhone},
		Notes:            d.Notes,
		Range:            daterange.Range{Start: start, End: end},
		TotalPrice:       total,
		PaymentReference: d.PaymentReference,
		PaymentIntent:    d.PaymentIntent,
		Status:           status,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
		Version:          d.Version,
	}, nil
}

var _ domainreservation.Repository = (*ReservationRepository)(nil)
