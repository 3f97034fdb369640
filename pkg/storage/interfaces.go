package storage

import (
	"context"
	"time"
)

// DefaultListLimit caps how many items a single list returns
const DefaultListLimit = 50

// ItemReader reads items
type ItemReader interface {
	// ListItems returns up to limit items in store order, without filtering
	ListItems(ctx context.Context, limit int) ([]*Item, error)
}

// ItemWriter creates items
type ItemWriter interface {
	// CreateItem persists item, assigns item.ID and returns it
	CreateItem(ctx context.Context, item *Item) (string, error)
}

// HealthChecker reports backend reachability
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Closer releases the backend connection
type Closer interface {
	Close(ctx context.Context) error
}

// ItemStore is the full contract of an item backend
type ItemStore interface {
	ItemReader
	ItemWriter
	HealthChecker
	Closer
}

// Config for the item backend
type Config struct {
	// MongoURL is the connection string; its path names the database
	MongoURL string
	// MongoDatabase is used when the connection string names no database
	MongoDatabase string
	// MongoCollection holds the item documents
	MongoCollection string
	// ServerSelectionTimeout bounds how long the driver waits for a usable server
	ServerSelectionTimeout time.Duration
	// OperationTimeout is an optional client-side timeout for every operation; zero leaves the driver default
	OperationTimeout time.Duration
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		MongoURL:               "mongodb://mongo:27017/appdb",
		MongoDatabase:          "appdb",
		MongoCollection:        "items",
		ServerSelectionTimeout: 5 * time.Second,
	}
}
