package broadcast

import (
	"context"
	"errors"
	"testing"
	"time"

	"fraud-detector/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestMongoSubscriber_DeliverArchivesPayload(t *testing.T) {
	coll := new(MockMongoCollection)
	sent := payloadFor("TXN-1")
	sent.AmountUSD = decimal.RequireFromString("1500.25")
	sent.TriggeredRules = []models.RuleName{models.RuleHighValueFirstPurchase, models.RuleGeographicMismatch}
	sent.CustomerEmail = "a@x.com"
	sent.ProductCategory = models.CategoryAccessories

	var archived alertDocument
	coll.On("InsertOne", mock.Anything, mock.AnythingOfType("broadcast.alertDocument")).
		Run(func(args mock.Arguments) { archived = args.Get(1).(alertDocument) }).
		Return(&mongo.InsertOneResult{InsertedID: "x"}, nil).Once()

	sub := NewMongoSubscriber(coll, "fraud_detection.fraud_alerts")
	assert.Equal(t, "mongo:fraud_detection.fraud_alerts", sub.ID())
	require.NoError(t, sub.Deliver(context.Background(), sent))

	coll.AssertExpectations(t)
	assert.Equal(t, sent.AlertID.String(), archived.AlertID)
	assert.Equal(t, "TXN-1", archived.TransactionID)
	assert.Equal(t, 55, archived.RiskScore)
	assert.Equal(t, []string{string(models.RuleHighValueFirstPurchase), string(models.RuleGeographicMismatch)}, archived.TriggeredRules)
	assert.Equal(t, "1500.25", archived.AmountUSD.String())
	assert.Equal(t, string(models.CategoryAccessories), archived.ProductCategory)
	assert.WithinDuration(t, time.Now(), archived.ArchivedAt, time.Minute)
}

func TestMongoSubscriber_DuplicateTransactionIsNotAnError(t *testing.T) {
	coll := new(MockMongoCollection)
	duplicate := mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key error"}}}
	coll.On("InsertOne", mock.Anything, mock.Anything).Return(nil, duplicate).Once()

	sub := NewMongoSubscriber(coll, "fraud_detection.fraud_alerts")
	assert.NoError(t, sub.Deliver(context.Background(), payloadFor("TXN-1")))
	coll.AssertExpectations(t)
}

func TestMongoSubscriber_InsertError(t *testing.T) {
	coll := new(MockMongoCollection)
	coll.On("InsertOne", mock.Anything, mock.Anything).Return(nil, errors.New("server selection timeout")).Once()

	sub := NewMongoSubscriber(coll, "fraud_detection.fraud_alerts")
	err := sub.Deliver(context.Background(), payloadFor("TXN-1"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "TXN-1")
	assert.Contains(t, err.Error(), "server selection timeout")
}

func TestMongoSubscriber_CloseWithoutClient(t *testing.T) {
	sub := NewMongoSubscriber(new(MockMongoCollection), "fraud_detection.fraud_alerts")
	assert.NoError(t, sub.Close())
}
