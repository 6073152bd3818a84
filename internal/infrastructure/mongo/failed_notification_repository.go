package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sngm3741/salon-survey-services/api/internal/survey/domain"
)

// FailedNotificationStatusPending marks entries nobody has retried yet.
const FailedNotificationStatusPending = "pending"

// FailedNotification は再送待ちの通知・送信 1 件。
type FailedNotification struct {
	Target   string
	Payload  any
	Error    string
	Attempts int
}

// FailedNotificationDocument is the stored shape of a FailedNotification.
type FailedNotificationDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Target      string             `bson:"target"`
	Payload     bson.Raw           `bson:"payload"`
	Error       string             `bson:"error"`
	Attempts    int                `bson:"attempts"`
	Status      string             `bson:"status"`
	CreatedAt   time.Time          `bson:"createdAt"`
	LastTriedAt time.Time          `bson:"lastTriedAt"`
}

// FailedNotificationRepository は failed_notifications コレクションへの記録を担う。
type FailedNotificationRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewFailedNotificationRepository(db *mongo.Database, collectionName string) *FailedNotificationRepository {
	return &FailedNotificationRepository{collection: db.Collection(collectionName), now: time.Now}
}

// Record は送信に失敗した通知を pending 状態で保存する。
func (r *FailedNotificationRepository) Record(ctx context.Context, n FailedNotification) error {
	if n.Target == "" {
		return errors.New("notification target is required")
	}
	now := r.now().UTC()
	doc := bson.M{
		"target":      n.Target,
		"payload":     n.Payload,
		"error":       n.Error,
		"attempts":    n.Attempts,
		"status":      FailedNotificationStatusPending,
		"createdAt":   now,
		"lastTriedAt": now,
	}
	_, err := r.collection.InsertOne(ctx, doc)
	return err
}

// RecordFailure keeps a SubmissionPayload whose fire-and-forget POST failed.
func (r *FailedNotificationRepository) RecordFailure(ctx context.Context, target string, payload domain.SubmissionPayload, cause error) error {
	message := ""
	if cause != nil {
		message = cause.Error()
	}
	doc := newResponseDocument(domain.Response{Payload: payload})
	return r.Record(ctx, FailedNotification{
		Target:   target,
		Payload:  doc,
		Error:    message,
		Attempts: 1,
	})
}

// Pending は未処理の記録を古い順に返す。
func (r *FailedNotificationRepository) Pending(ctx context.Context, limit int) ([]FailedNotificationDocument, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	if limit > 0 {
		findOpts.SetLimit(int64(limit))
	}
	cursor, err := r.collection.Find(ctx, bson.M{"status": FailedNotificationStatusPending}, findOpts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []FailedNotificationDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}
