// Package store provides watchlist persistence.
package store

import (
	"context"
)

// DefaultList is the watchlist used when no name is given.
const DefaultList = "default"

// WatchlistStore defines the interface for named symbol lists. Only symbols
// are stored; analysis results are never persisted.
type WatchlistStore interface {
	AddToWatchlist(ctx context.Context, symbol, listName string) error
	RemoveFromWatchlist(ctx context.Context, symbol, listName string) error
	GetWatchlist(ctx context.Context, listName string) ([]string, error)
	GetAllWatchlists(ctx context.Context) (map[string][]string, error)
	DeleteWatchlist(ctx context.Context, listName string) (int, error)
	Close() error
}
