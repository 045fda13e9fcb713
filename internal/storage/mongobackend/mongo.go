package mongobackend

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/FranksOps/newsprobe/internal/storage"
)

// ensure mongoBackend implements storage.Backend
var _ storage.Backend = (*mongoBackend)(nil)

// DefaultCollection holds search records unless New is given another name.
const DefaultCollection = "search_records"

type mongoBackend struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// New connects to uri and stores records in database/collection. Timestamps
// are kept at millisecond precision.
func New(ctx context.Context, uri, database, collection string) (storage.Backend, error) {
	if collection == "" {
		collection = DefaultCollection
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	coll := client.Database(database).Collection(collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &mongoBackend{client: client, coll: coll}, nil
}

func (b *mongoBackend) Save(ctx context.Context, record *storage.SearchRecord) error {
	if _, err := b.coll.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("insert record %s: %w", record.ID, err)
	}
	return nil
}

func (b *mongoBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.SearchRecord, error) {
	cond := bson.M{}
	if filter.Terms != "" {
		cond["terms"] = filter.Terms
	}
	if filter.Intercepted != nil {
		if *filter.Intercepted {
			cond["interception"] = bson.M{"$ne": ""}
		} else {
			cond["interception"] = ""
		}
	}
	if filter.Since != nil {
		cond["created_at"] = bson.M{"$gte": *filter.Since}
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}

	cur, err := b.coll.Find(ctx, cond, opts)
	if err != nil {
		return nil, fmt.Errorf("find records: %w", err)
	}
	defer cur.Close(ctx)

	var records []*storage.SearchRecord
	if err := cur.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return records, nil
}

func (b *mongoBackend) Close() error {
	return b.client.Disconnect(context.Background())
}
