package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainavailability "rentbox/internal/domain/availability"
	"rentbox/internal/domain/shared/daterange"
)

const blockedDatesCollection = "blocked_dates"

// BlockedDateRepository keys documents by the ISO date, which makes duplicates impossible.
type BlockedDateRepository struct {
	col *mongo.Collection
}

func NewBlockedDateRepository(db *mongo.Database) *BlockedDateRepository {
	return &BlockedDateRepository{col: db.Collection(blockedDatesCollection)}
}

type blockedDateDocument struct {
	Date      string    `bson:"_id"`
	Reason    string    `bson:"reason,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
}

func (r *BlockedDateRepository) List(ctx context.Context) ([]domainavailability.BlockedDate, error) {
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var docs []blockedDateDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domainavailability.BlockedDate, 0, len(docs))
	for _, doc := range docs {
		d, err := daterange.ParseDate(doc.Date)
		if err != nil {
			return nil, err
		}
		out = append(out, domainavailability.BlockedDate{Date: d, Reason: doc.Reason, CreatedAt: doc.CreatedAt})
	}
	return out, nil
}

func (r *BlockedDateRepository) Add(ctx context.Context, b domainavailability.BlockedDate) error {
	_, err := r.col.InsertOne(ctx, blockedDateDocument{Date: b.Date.String(), Reason: b.Reason, CreatedAt: b.CreatedAt.UTC()})
	if mongo.IsDuplicateKeyError(err) {
		return domainavailability.ErrDateAlreadyBlocked
	}
	return err
}

func (r *BlockedDateRepository) Remove(ctx context.Context, d daterange.Date) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": d.String()})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domainavailability.ErrBlockedDateNotFound
	}
	return nil
}

var _ domainavailability.BlockedDateRepository = (*BlockedDateRepository)(nil)
