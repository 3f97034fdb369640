package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/platinummonkey/itemsapi/pkg/storage"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.mongodb.org/mongo-driver/v2/x/mongo/driver/connstring"
)

// Backend is the label used for this store in metrics and logs
const Backend = "mongodb"

// Store persists items in a single MongoDB collection
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
	database   string
}

var _ storage.ItemStore = (*Store)(nil)

// itemDocument is the stored shape of an item
type itemDocument struct {
	ID        bson.ObjectID `bson:"_id"`
	Name      string        `bson:"name"`
	CreatedAt time.Time     `bson:"createdAt"`
}

func (d itemDocument) toItem() *storage.Item {
	return &storage.Item{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		CreatedAt: d.CreatedAt.UTC(),
	}
}

// Open connects to MongoDB and verifies the primary is reachable before
// returning. The ping is bounded by the server selection timeout.
func Open(ctx context.Context, cfg storage.Config) (*Store, error) {
	if cfg.MongoCollection == "" {
		return nil, errors.New("mongo collection name is required")
	}

	database, err := DatabaseName(cfg.MongoURL, cfg.MongoDatabase)
	if err != nil {
		return nil, err
	}

	opts := options.Client().ApplyURI(cfg.MongoURL)
	if cfg.ServerSelectionTimeout > 0 {
		opts.SetServerSelectionTimeout(cfg.ServerSelectionTimeout)
	}
	if cfg.OperationTimeout > 0 {
		opts.SetTimeout(cfg.OperationTimeout)
	}

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	pingCtx := ctx
	if cfg.ServerSelectionTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ServerSelectionTimeout)
		defer cancel()
	}

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return &Store{
		client:     client,
		collection: client.Database(database).Collection(cfg.MongoCollection),
		database:   database,
	}, nil
}

// DatabaseName returns the database named in the connection string's
// path, or fallback when the path is empty.
func DatabaseName(uri, fallback string) (string, error) {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return "", fmt.Errorf("invalid mongo url: %w", err)
	}
	if cs.Database != "" {
		return cs.Database, nil
	}
	if fallback == "" {
		return "", errors.New("mongo url names no database and no default is configured")
	}
	return fallback, nil
}

// Database returns the resolved database name
func (s *Store) Database() string {
	return s.database
}

// ListItems implements storage.ItemReader
func (s *Store) ListItems(ctx context.Context, limit int) ([]*storage.Item, error) {
	if limit <= 0 {
		limit = storage.DefaultListLimit
	}

	cursor, err := s.collection.Find(ctx, bson.D{}, options.Find().SetLimit(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	var docs []itemDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode items: %w", err)
	}

	items := make([]*storage.Item, 0, len(docs))
	for _, doc := range docs {
		items = append(items, doc.toItem())
	}
	return items, nil
}

// CreateItem implements storage.ItemWriter
func (s *Store) CreateItem(ctx context.Context, item *storage.Item) (string, error) {
	if err := storage.ValidateName(item.Name); err != nil {
		return "", err
	}

	doc := itemDocument{
		ID:        bson.NewObjectID(),
		Name:      item.Name,
		CreatedAt: item.CreatedAt.UTC().Truncate(time.Millisecond),
	}

	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to insert item: %w", err)
	}

	item.ID = doc.ID.Hex()
	item.CreatedAt = doc.CreatedAt
	return item.ID, nil
}

// Ping implements storage.HealthChecker
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("failed to ping mongo: %w", err)
	}
	return nil
}

// Close implements storage.Closer
func (s *Store) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect mongo: %w", err)
	}
	return nil
}
