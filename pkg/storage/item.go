package storage

import (
	"errors"
	"strings"
	"time"
)

// ErrInvalidName is returned when an item name is missing or blank
var ErrInvalidName = errors.New("invalid item name")

// Item is the single persisted entity. ID and CreatedAt are assigned on
// creation and never change afterwards.
type Item struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewItem builds an unsaved item stamped with now, truncated to the
// millisecond precision the database keeps.
func NewItem(name string, now time.Time) (*Item, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	return &Item{
		Name:      name,
		CreatedAt: now.UTC().Truncate(time.Millisecond),
	}, nil
}

// ValidateName rejects empty and whitespace-only names
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidName
	}
	return nil
}
