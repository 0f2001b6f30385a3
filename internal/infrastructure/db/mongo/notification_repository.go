package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iotrix/puller-dispatch/internal/core/domain"
)

const collectionNotifications = "notifications"

type NotificationRepository struct {
	col *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	return &NotificationRepository{col: db.Collection(collectionNotifications)}
}

type notificationDoc struct {
	ID        string    `bson:"_id"`
	AccountID string    `bson:"account_id"`
	Type      string    `bson:"type"`
	Message   string    `bson:"message"`
	IsRead    bool      `bson:"is_read"`
	CreatedAt time.Time `bson:"created_at"`
}

func (r *NotificationRepository) Insert(ctx context.Context, n *domain.Notification) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := notificationDoc{
		ID:        n.ID,
		AccountID: n.AccountID,
		Type:      string(n.Type),
		Message:   n.Message,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt.UTC(),
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *NotificationRepository) ListUnread(ctx context.Context, accountID string) ([]*domain.Notification, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.col.Find(ctx, bson.M{"account_id": accountID, "is_read": false}, opts)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer cur.Close(ctx)

	var docs []notificationDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode notifications: %w", err)
	}
	out := make([]*domain.Notification, 0, len(docs))
	for _, d := range docs {
		out = append(out, &domain.Notification{
			ID:        d.ID,
			AccountID: d.AccountID,
			Type:      domain.NotificationType(d.Type),
			Message:   d.Message,
			IsRead:    d.IsRead,
			CreatedAt: d.CreatedAt,
		})
	}
	return out, nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, accountID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, bson.M{"account_id": accountID, "is_read": false})
	if err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return n, nil
}

// EnsureIndexes creates necessary indexes on the notifications collection.
func (r *NotificationRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "is_read", Value: 1}, {Key: "created_at", Value: -1}},
	})
	return err
}
