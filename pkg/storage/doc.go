// Package storage defines the Item entity and the contract item backends
// implement.
//
// The store is composed from small interfaces:
//
//   - ItemReader: ListItems
//   - ItemWriter: CreateItem
//   - HealthChecker: Ping
//   - Closer: Close
//
// ItemStore combines all four. The MongoDB implementation lives in
// pkg/storage/mongo. InstrumentedStore decorates any ItemStore with
// Prometheus operation metrics:
//
//	store := storage.NewInstrumentedStore(mongoStore, metrics, "mongodb")
//
// Items are created once and never updated or deleted. Name validation
// rejects empty and whitespace-only names; names are stored as given.
package storage
