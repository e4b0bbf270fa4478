package journal

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore is a Store backed by a MongoDB collection. Documents are keyed
// by trigger id.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

var _ Store = (*MongoStore)(nil)

type mongoRunDoc struct {
	TriggerID  string `bson:"_id"`
	ID         string `bson:"run_id"`
	FlowID     string `bson:"flow_id"`
	BatchID    string `bson:"batch_id,omitempty"`
	WebhookURL string `bson:"webhook_url,omitempty"`
	CreatedAt  int64  `bson:"created_at"`
}

// NewMongoStore creates a Mongo-backed store. dbName defaults to "eachlabs"
// and collName to "runs". Close disconnects client.
func NewMongoStore(client *mongo.Client, dbName, collName string) *MongoStore {
	if dbName == "" {
		dbName = "eachlabs"
	}
	if collName == "" {
		collName = "runs"
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(dbName).Collection(collName),
	}
}

// OpenMongo connects with a mongodb:// URI. The database is taken from the
// URI path when present.
func OpenMongo(ctx context.Context, uri string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return NewMongoStore(client, mongoDatabase(uri), ""), nil
}

func mongoDatabase(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	return strings.Trim(u.Path, "/")
}

func (s *MongoStore) Save(ctx context.Context, run Run) error {
	if err := run.validate(); err != nil {
		return err
	}
	doc := mongoRunDoc{
		TriggerID:  run.TriggerID,
		ID:         run.ID.String(),
		FlowID:     run.FlowID,
		BatchID:    run.BatchID,
		WebhookURL: run.WebhookURL,
		CreatedAt:  run.CreatedAt.UnixNano(),
	}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": run.TriggerID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("journal: save %q: %w", run.TriggerID, err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, triggerID string) (Run, error) {
	var doc mongoRunDoc
	if err := s.coll.FindOne(ctx, bson.M{"_id": triggerID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Run{}, ErrRunNotFound
		}
		return Run{}, fmt.Errorf("journal: get %q: %w", triggerID, err)
	}
	return doc.run()
}

func (s *MongoStore) List(ctx context.Context, filter Filter) ([]Run, error) {
	query := bson.M{}
	if filter.FlowID != "" {
		query["flow_id"] = filter.FlowID
	}
	if filter.BatchID != "" {
		query["batch_id"] = filter.BatchID
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cur, err := s.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("journal: list: %w", err)
	}
	defer cur.Close(ctx)

	runs := []Run{}
	for cur.Next(ctx) {
		var doc mongoRunDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("journal: list: %w", err)
		}
		run, err := doc.run()
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("journal: list: %w", err)
	}
	return runs, nil
}

func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

func (d mongoRunDoc) run() (Run, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return Run{}, fmt.Errorf("journal: decode run %q: %w", d.TriggerID, err)
	}
	return Run{
		ID:         id,
		TriggerID:  d.TriggerID,
		FlowID:     d.FlowID,
		BatchID:    d.BatchID,
		WebhookURL: d.WebhookURL,
		CreatedAt:  fromUnixNano(d.CreatedAt),
	}, nil
}
