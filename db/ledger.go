package db

import (
	"context"
	"errors"
	"time"

	"github.com/tutorhub/webfront/checkout"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Get returns the reconciled return stored under key, or nil when there is
// none or it has expired.
func (ms *MongoStorage) Get(ctx context.Context, key string) (*checkout.LedgerEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	entry := &checkout.LedgerEntry{}
	if err := ms.ledger.FindOne(ctx, bson.M{"_id": key}).Decode(entry); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	// the TTL monitor runs once a minute, skip what it has not removed yet
	if time.Since(entry.CreatedAt) > ms.ttl {
		return nil, nil
	}
	return entry, nil
}

// Put stores the entry, replacing any previous one with the same key.
func (ms *MongoStorage) Put(ctx context.Context, entry *checkout.LedgerEntry) error {
	if entry == nil || entry.Key == "" || entry.IntentID == "" {
		return ErrInvalidData
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	e := *entry
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	// mongo stores milliseconds
	e.CreatedAt = e.CreatedAt.UTC().Truncate(time.Millisecond)
	opts := options.Replace().SetUpsert(true)
	_, err := ms.ledger.ReplaceOne(ctx, bson.M{"_id": e.Key}, &e, opts)
	return err
}

// Prune removes the entries created before the given time.
func (ms *MongoStorage) Prune(ctx context.Context, before time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	res, err := ms.ledger.DeleteMany(ctx, bson.M{"createdAt": bson.M{"$lt": before}})
	if err != nil {
		return 0, err
	}
	return int(res.DeletedCount), nil
}

// Count returns the number of stored entries.
func (ms *MongoStorage) Count(ctx context.Context) (int64, error) {
	return ms.ledger.CountDocuments(ctx, bson.M{})
}
