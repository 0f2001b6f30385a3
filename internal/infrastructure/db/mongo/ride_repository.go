package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iotrix/puller-dispatch/internal/core/domain"
	"github.com/iotrix/puller-dispatch/internal/core/ports"
)

const collectionRides = "rides"

// RideRepository is the ride ledger. State changes are single UpdateOne calls
// whose filter carries the expected current state, so a stale writer matches
// nothing instead of overwriting.
type RideRepository struct {
	col *mongo.Collection
}

func NewRideRepository(db *mongo.Database) *RideRepository {
	return &RideRepository{col: db.Collection(collectionRides)}
}

type rideDoc struct {
	ID             string     `bson:"_id"`
	ConsumerID     string     `bson:"consumer_id"`
	Destination    string     `bson:"destination"`
	PickupLocation string     `bson:"pickup_location,omitempty"`
	Status         string     `bson:"status"`
	PullerID       *string    `bson:"puller_id"`
	CreatedAt      time.Time  `bson:"created_at"`
	AcceptedAt     *time.Time `bson:"accepted_at"`
	CompletedAt    *time.Time `bson:"completed_at"`
	Rating         *int       `bson:"rating"`
	Review         *string    `bson:"review"`
	DeclinedBy     []string   `bson:"declined_by"`
}

func toRideDoc(r *domain.Ride) rideDoc {
	declined := r.DeclinedBy
	if declined == nil {
		declined = []string{}
	}
	return rideDoc{
		ID:             r.ID,
		ConsumerID:     r.ConsumerID,
		Destination:    r.Destination,
		PickupLocation: r.PickupLocation,
		Status:         string(r.Status),
		PullerID:       r.PullerID,
		CreatedAt:      r.CreatedAt.UTC(),
		AcceptedAt:     r.AcceptedAt,
		CompletedAt:    r.CompletedAt,
		Rating:         r.Rating,
		Review:         r.Review,
		DeclinedBy:     declined,
	}
}

func (d rideDoc) toDomain() *domain.Ride {
	return &domain.Ride{
		ID:             d.ID,
		ConsumerID:     d.ConsumerID,
		Destination:    d.Destination,
		PickupLocation: d.PickupLocation,
		Status:         domain.RideStatus(d.Status),
		PullerID:       d.PullerID,
		CreatedAt:      d.CreatedAt,
		AcceptedAt:     d.AcceptedAt,
		CompletedAt:    d.CompletedAt,
		Rating:         d.Rating,
		Review:         d.Review,
		DeclinedBy:     d.DeclinedBy,
	}
}

func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, toRideDoc(ride)); err != nil {
		return fmt.Errorf("insert ride: %w", err)
	}
	return nil
}

func (r *RideRepository) FindByID(ctx context.Context, id string) (*domain.Ride, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var d rideDoc
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRideNotFound
		}
		return nil, fmt.Errorf("find ride: %w", err)
	}
	return d.toDomain(), nil
}

func (r *RideRepository) List(ctx context.Context, f ports.RideFilter) ([]*domain.Ride, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = string(f.Status)
	}
	if f.ConsumerID != "" {
		filter["consumer_id"] = f.ConsumerID
	}
	if f.PullerID != "" {
		filter["puller_id"] = f.PullerID
	}
	if f.OnlyRated {
		filter["rating"] = bson.M{"$ne": nil}
	}
	if f.NotDeclinedBy != "" {
		filter["declined_by"] = bson.M{"$ne": f.NotDeclinedBy}
	}

	order := -1
	if f.OldestFirst {
		order = 1
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: order}, {Key: "_id", Value: order}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list rides: %w", err)
	}
	defer cur.Close(ctx)

	var docs []rideDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode rides: %w", err)
	}
	out := make([]*domain.Ride, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *RideRepository) Claim(ctx context.Context, id, pullerID string, at time.Time) (bool, error) {
	filter := bson.M{"_id": id, "status": string(domain.RideStatusPending)}
	update := bson.M{"$set": bson.M{
		"status":      string(domain.RideStatusAccepted),
		"puller_id":   pullerID,
		"accepted_at": at.UTC(),
	}}
	return r.conditionalUpdate(ctx, "claim ride", filter, update)
}

func (r *RideRepository) Complete(ctx context.Context, id, pullerID string, at time.Time) (bool, error) {
	filter := bson.M{
		"_id":       id,
		"status":    string(domain.RideStatusAccepted),
		"puller_id": pullerID,
	}
	update := bson.M{"$set": bson.M{
		"status":       string(domain.RideStatusCompleted),
		"completed_at": at.UTC(),
	}}
	return r.conditionalUpdate(ctx, "complete ride", filter, update)
}

func (r *RideRepository) RecordDecline(ctx context.Context, id, pullerID string) (bool, error) {
	filter := bson.M{"_id": id, "status": string(domain.RideStatusPending)}
	update := bson.M{"$addToSet": bson.M{"declined_by": pullerID}}
	return r.conditionalUpdate(ctx, "decline ride", filter, update)
}

func (r *RideRepository) SetRating(ctx context.Context, id string, rating int, review *string) (bool, error) {
	filter := bson.M{
		"_id":    id,
		"status": string(domain.RideStatusCompleted),
		"rating": nil,
	}
	update := bson.M{"$set": bson.M{"rating": rating, "review": review}}
	return r.conditionalUpdate(ctx, "rate ride", filter, update)
}

// conditionalUpdate reports whether filter matched. A repeated $addToSet
// matches without modifying, which still counts as success.
func (r *RideRepository) conditionalUpdate(ctx context.Context, op string, filter, update bson.M) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return res.MatchedCount == 1, nil
}

func (r *RideRepository) RatingStats(ctx context.Context, pullerID string) (ports.RatingStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "puller_id", Value: pullerID},
			{Key: "rating", Value: bson.D{{Key: "$ne", Value: nil}}},
		}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "sum", Value: bson.D{{Key: "$sum", Value: "$rating"}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	var rows []struct {
		Sum   int64 `bson:"sum"`
		Count int   `bson:"count"`
	}
	if err := r.aggregate(ctx, pipeline, &rows); err != nil {
		return ports.RatingStats{}, fmt.Errorf("rating stats: %w", err)
	}
	if len(rows) == 0 {
		return ports.RatingStats{}, nil
	}
	return ports.RatingStats{Sum: rows[0].Sum, Count: rows[0].Count}, nil
}

func (r *RideRepository) CountByStatus(ctx context.Context) (map[domain.RideStatus]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	var rows []struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := r.aggregate(ctx, pipeline, &rows); err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	out := make(map[domain.RideStatus]int64, len(rows))
	for _, row := range rows {
		out[domain.RideStatus(row.Status)] = row.Count
	}
	return out, nil
}

func (r *RideRepository) DestinationHistogram(ctx context.Context, limit int) ([]domain.DestinationCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$destination"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: limit}},
	}
	var rows []struct {
		Destination string `bson:"_id"`
		Count       int64  `bson:"count"`
	}
	if err := r.aggregate(ctx, pipeline, &rows); err != nil {
		return nil, fmt.Errorf("destination histogram: %w", err)
	}
	out := make([]domain.DestinationCount, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.DestinationCount{Destination: row.Destination, Count: row.Count})
	}
	return out, nil
}

func (r *RideRepository) CountActivePullers(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"status": bson.M{"$in": []string{
		string(domain.RideStatusAccepted),
		string(domain.RideStatusCompleted),
	}}}
	ids, err := r.col.Distinct(ctx, "puller_id", filter)
	if err != nil {
		return 0, fmt.Errorf("count active pullers: %w", err)
	}
	return int64(len(ids)), nil
}

func (r *RideRepository) aggregate(ctx context.Context, pipeline mongo.Pipeline, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	defer cur.Close(ctx)
	return cur.All(ctx, out)
}

// EnsureIndexes creates necessary indexes on the rides collection.
func (r *RideRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "consumer_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "puller_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "destination", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
