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
)

const collectionAccounts = "accounts"

type AccountRepository struct {
	col *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{col: db.Collection(collectionAccounts)}
}

type accountDoc struct {
	ID             string     `bson:"_id"`
	Username       string     `bson:"username"`
	PasswordHash   string     `bson:"password_hash"`
	Role           string     `bson:"role"`
	ApprovalStatus string     `bson:"approval_status"`
	Rating         *float64   `bson:"rating"`
	RatedRides     int        `bson:"rated_rides"`
	Points         int        `bson:"points"`
	CompletedRides int        `bson:"completed_rides"`
	CreatedAt      time.Time  `bson:"created_at"`
	DecidedAt      *time.Time `bson:"decided_at,omitempty"`
	UpdatedAt      time.Time  `bson:"updated_at"`
}

func toAccountDoc(a *domain.Account) accountDoc {
	return accountDoc{
		ID:             a.ID,
		Username:       a.Username,
		PasswordHash:   a.PasswordHash,
		Role:           string(a.Role),
		ApprovalStatus: string(a.ApprovalStatus),
		Rating:         a.Rating,
		RatedRides:     a.RatedRides,
		Points:         a.Points,
		CompletedRides: a.CompletedRides,
		CreatedAt:      a.CreatedAt.UTC(),
		DecidedAt:      a.DecidedAt,
		UpdatedAt:      a.UpdatedAt.UTC(),
	}
}

func (d accountDoc) toDomain() *domain.Account {
	return &domain.Account{
		ID:             d.ID,
		Username:       d.Username,
		PasswordHash:   d.PasswordHash,
		Role:           domain.Role(d.Role),
		ApprovalStatus: domain.ApprovalStatus(d.ApprovalStatus),
		Rating:         d.Rating,
		RatedRides:     d.RatedRides,
		Points:         d.Points,
		CompletedRides: d.CompletedRides,
		CreatedAt:      d.CreatedAt,
		DecidedAt:      d.DecidedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, toAccountDoc(a)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateUsername
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *AccountRepository) findOne(ctx context.Context, filter bson.M) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var d accountDoc
	if err := r.col.FindOne(ctx, filter).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return d.toDomain(), nil
}

// ListPending returns pending pullers, oldest application first.
func (r *AccountRepository) ListPending(ctx context.Context) ([]*domain.Account, error) {
	filter := bson.M{
		"role":            string(domain.RolePuller),
		"approval_status": string(domain.ApprovalPending),
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	return r.find(ctx, filter, opts)
}

// SetApproval is a conditional update: it only matches a puller still in from.
func (r *AccountRepository) SetApproval(ctx context.Context, id string, from, to domain.ApprovalStatus, at time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{
		"_id":             id,
		"role":            string(domain.RolePuller),
		"approval_status": string(from),
	}
	update := bson.M{"$set": bson.M{
		"approval_status": string(to),
		"decided_at":      at.UTC(),
		"updated_at":      at.UTC(),
	}}
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("set approval: %w", err)
	}
	return res.MatchedCount == 1, nil
}

func (r *AccountRepository) AddCompletion(ctx context.Context, id string, points int) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	update := bson.M{
		"$inc": bson.M{"points": points, "completed_rides": 1},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("add completion: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) SetRating(ctx context.Context, id string, rating *float64, ratedRides int) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"rating":      rating,
		"rated_rides": ratedRides,
		"updated_at":  time.Now().UTC(),
	}}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("set rating: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// TopPullers ranks approved pullers. Null ratings sort after every number in
// a descending sort.
func (r *AccountRepository) TopPullers(ctx context.Context, limit int) ([]*domain.Account, error) {
	filter := bson.M{
		"role":            string(domain.RolePuller),
		"approval_status": string(domain.ApprovalApproved),
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "rating", Value: -1}, {Key: "completed_rides", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))
	return r.find(ctx, filter, opts)
}

func (r *AccountRepository) CountPullers(ctx context.Context, status domain.ApprovalStatus) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, bson.M{
		"role":            string(domain.RolePuller),
		"approval_status": string(status),
	})
	if err != nil {
		return 0, fmt.Errorf("count pullers: %w", err)
	}
	return n, nil
}

func (r *AccountRepository) TotalPoints(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$points"}}},
		}}},
	}
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("total points: %w", err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		Total int64 `bson:"total"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, fmt.Errorf("total points: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}

func (r *AccountRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find accounts: %w", err)
	}
	defer cur.Close(ctx)

	var docs []accountDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode accounts: %w", err)
	}
	out := make([]*domain.Account, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// EnsureIndexes creates necessary indexes on the accounts collection.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "role", Value: 1}, {Key: "approval_status", Value: 1}, {Key: "created_at", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
