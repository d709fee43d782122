package broadcast

import (
	"context"
	"fmt"
	"time"

	"fraud-detector/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoCollection is the part of *mongo.Collection the archive writes through.
type mongoCollection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

// alertDocument is one archived alert, unique on transaction_id.
type alertDocument struct {
	AlertID         string               `bson:"alert_id"`
	TransactionID   string               `bson:"transaction_id"`
	RiskScore       int                  `bson:"risk_score"`
	TriggeredRules  []string             `bson:"triggered_rules"`
	AlertStatus     string               `bson:"alert_status"`
	AmountUSD       primitive.Decimal128 `bson:"amount_usd"`
	CustomerEmail   string               `bson:"customer_email"`
	ProductCategory string               `bson:"product_category"`
	ArchivedAt      time.Time            `bson:"archived_at"`
}

// MongoSubscriber archives every alert payload into a MongoDB collection.
// Redelivery of a transaction that is already archived is not an error.
type MongoSubscriber struct {
	client     *mongo.Client
	collection mongoCollection
	name       string
}

// ConnectMongoSubscriber connects, pings and ensures the unique
// transaction_id index before returning the subscriber.
func ConnectMongoSubscriber(ctx context.Context, uri, database, collection string, timeout time.Duration) (*MongoSubscriber, error) {
	const op = "broadcast.ConnectMongoSubscriber"

	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect to MongoDB: %w", op, err)
	}

	ctxPing, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(ctxPing, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%s: failed to ping MongoDB: %w", op, err)
	}

	coll := client.Database(database).Collection(collection)
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "transaction_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}

	ctxIndex, cancelIndex := context.WithTimeout(ctx, timeout)
	defer cancelIndex()
	if _, err := coll.Indexes().CreateOne(ctxIndex, indexModel); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%s: failed to create index: %w", op, err)
	}

	sub := NewMongoSubscriber(coll, database+"."+collection)
	sub.client = client
	return sub, nil
}

func NewMongoSubscriber(collection mongoCollection, name string) *MongoSubscriber {
	return &MongoSubscriber{collection: collection, name: name}
}

func (s *MongoSubscriber) ID() string { return "mongo:" + s.name }

func (s *MongoSubscriber) Deliver(ctx context.Context, payload models.AlertPayload) error {
	doc, err := newAlertDocument(payload)
	if err != nil {
		return err
	}

	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("mongo archive of %s: %w", payload.TransactionID, err)
	}
	return nil
}

func (s *MongoSubscriber) Close() error {
	if s.client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.client.Disconnect(ctx)
}

func newAlertDocument(payload models.AlertPayload) (alertDocument, error) {
	amount, err := primitive.ParseDecimal128(payload.AmountUSD.String())
	if err != nil {
		return alertDocument{}, fmt.Errorf("amount %s: %w", payload.AmountUSD, err)
	}

	rules := make([]string, len(payload.TriggeredRules))
	for i, r := range payload.TriggeredRules {
		rules[i] = string(r)
	}

	return alertDocument{
		AlertID:         payload.AlertID.String(),
		TransactionID:   payload.TransactionID,
		RiskScore:       payload.RiskScore,
		TriggeredRules:  rules,
		AlertStatus:     payload.AlertStatus,
		AmountUSD:       amount,
		CustomerEmail:   payload.CustomerEmail,
		ProductCategory: string(payload.ProductCategory),
		ArchivedAt:      time.Now().UTC(),
	}, nil
}
