// ABOUTME: Realtime remote document store abstraction
// ABOUTME: Full-snapshot subscriptions plus whole-record upsert and idempotent delete
package remote

import (
	"context"
	"errors"

	"github.com/harperreed/leadsync/models"
)

// ErrClosed is returned by operations on a store that has been shut down.
var ErrClosed = errors.New("remote store closed")

// Store is a shared lead collection. Every change to the collection, local or
// from another client, is delivered to subscribers as a full snapshot. The
// implementation owns reconnection; subscribers never see transport errors.
type Store interface {
	// Subscribe delivers the current collection and every later change until
	// the returned function is called or ctx ends.
	Subscribe(ctx context.Context, onSnapshot func([]models.Lead)) (unsubscribe func(), err error)

	// Upsert replaces the whole record for lead.ID. It does not retry.
	Upsert(ctx context.Context, lead models.Lead) error

	// Delete removes the record. Deleting an absent id succeeds.
	Delete(ctx context.Context, id string) error
}
