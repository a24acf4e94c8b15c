// Package db stores the reconciliation ledger of the checkout flow in MongoDB,
// so that every instance of the web front sees which redirect returns were
// already resolved.
package db

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/tutorhub/webfront/checkout"
	"github.com/tutorhub/webfront/internal/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const ledgerCollection = "reconciliations"

// MongoStorage uses an external MongoDB service for storing reconciled returns.
type MongoStorage struct {
	client   *mongo.Client
	database string
	ttl      time.Duration

	ledger *mongo.Collection
}

var _ checkout.Ledger = (*MongoStorage)(nil)

// New connects to MongoDB and prepares the ledger collection. Entries older
// than ttl are removed by the server through a TTL index.
func New(url, database string, ttl time.Duration) (*MongoStorage, error) {
	if url == "" {
		return nil, fmt.Errorf("mongo URL is not defined")
	}
	if database == "" {
		return nil, fmt.Errorf("mongo database is not defined")
	}
	if ttl <= 0 {
		ttl = checkout.DefaultLedgerTTL
	}
	log.Infow("connecting to mongodb", "database", database)
	// preparing connection
	opts := options.Client()
	opts.ApplyURI(url)
	opts.SetMaxConnecting(200)
	timeout := time.Second * 10
	opts.ConnectTimeout = &timeout
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to mongodb: %w", err)
	}
	// check if the connection is successful
	ctx, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("cannot connect to mongodb: %w", err)
	}
	ms := &MongoStorage{client: client, database: database, ttl: ttl}
	if err := ms.initCollections(database); err != nil {
		return nil, err
	}
	if reset := os.Getenv("TUTOR_MONGO_RESET_DB"); reset != "" {
		if err := ms.Reset(); err != nil {
			return nil, err
		}
	} else if err := ms.createIndexes(); err != nil {
		return nil, err
	}
	return ms, nil
}

// Close disconnects from MongoDB.
func (ms *MongoStorage) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ms.client.Disconnect(ctx); err != nil {
		log.Warn(err)
	}
}

// Reset drops the ledger and recreates it with its validator and indexes.
func (ms *MongoStorage) Reset() error {
	log.Infof("resetting database")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ms.ledger.Drop(ctx); err != nil {
		return err
	}
	if err := ms.initCollections(ms.database); err != nil {
		return err
	}
	return ms.createIndexes()
}

// initCollections creates the ledger collection with its validator if it
// does not exist yet, or updates the validator otherwise.
func (ms *MongoStorage) initCollections(database string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	db := ms.client.Database(database)
	names, err := db.ListCollectionNames(ctx, bson.M{"name": ledgerCollection})
	if err != nil {
		return err
	}
	if len(names) > 0 {
		err := db.RunCommand(ctx, bson.D{
			{Key: "collMod", Value: ledgerCollection},
			{Key: "validator", Value: ledgerValidator},
		}).Err()
		if err != nil {
			return fmt.Errorf("failed to update collection validator: %w", err)
		}
	} else {
		opts := options.CreateCollection().
			SetValidator(ledgerValidator).
			SetValidationLevel("strict").
			SetValidationAction("error")
		if err := db.CreateCollection(ctx, ledgerCollection, opts); err != nil {
			return err
		}
	}
	ms.ledger = db.Collection(ledgerCollection)
	return nil
}

// createIndexes creates the TTL index on creation time and the lookup index
// on the vendor intent.
func (ms *MongoStorage) createIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	ttlIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "createdAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(int32(ms.ttl.Seconds())),
	}
	if _, err := ms.ledger.Indexes().CreateOne(ctx, ttlIndex); err != nil {
		return fmt.Errorf("failed to create ttl index on reconciliations: %w", err)
	}
	intentIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "intentId", Value: 1}},
	}
	if _, err := ms.ledger.Indexes().CreateOne(ctx, intentIndex); err != nil {
		return fmt.Errorf("failed to create index on intentId: %w", err)
	}
	return nil
}

var ledgerValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"_id", "flow", "owner", "intentId", "status", "createdAt"},
		"properties": bson.M{
			"flow": bson.M{
				"enum":        []string{string(checkout.KindSubscription), string(checkout.KindBooking)},
				"description": "must be a checkout flow kind and is required",
			},
			"owner": bson.M{
				"bsonType":    "string",
				"description": "must be a string and is required",
			},
			"intentId": bson.M{
				"bsonType":    "string",
				"description": "must be a string and is required",
				"minLength":   1,
			},
			"createdAt": bson.M{
				"bsonType":    "date",
				"description": "must be a date and is required",
			},
		},
	},
}
