package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mkravets/storefront-bridge/internal/models"
)

// ErrBackupUnavailable means there is no backup to restore: none was taken,
// it was cleared, or it is older than the retention window.
var ErrBackupUnavailable = errors.New("cart backup unavailable")

// TTL is the retention window for a backup. Restore checks the snapshot's
// creation time on read as well, so a stale entry is never applied even if
// the key outlives its expiry.
const TTL = time.Hour

type cartStore interface {
	GetCart(ctx context.Context, cartID string) (*models.Cart, error)
	AddLineItems(ctx context.Context, cartID string, items []models.LineItem) (*models.Cart, error)
}

// Store keeps one backup slot per session in Redis. A new snapshot
// overwrites the previous one; only one reconciliation is in flight per
// session at a time.
type Store struct {
	client *redis.Client
	carts  cartStore
	ttl    time.Duration
	now    func() time.Time
}

func NewStore(client *redis.Client, carts cartStore) *Store {
	return &Store{
		client: client,
		carts:  carts,
		ttl:    TTL,
		now:    time.Now,
	}
}

func backupKey(sessionID string) string {
	return fmt.Sprintf("cart_backup:%s", sessionID)
}

// Snapshot reads the cart's current line items and stashes them under the
// session's slot. An empty cart still produces a trivial backup so callers
// get a uniform contract.
func (s *Store) Snapshot(ctx context.Context, sessionID, cartID string) (*models.CartBackup, error) {
	cart, err := s.carts.GetCart(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("read cart %s for backup: %w", cartID, err)
	}

	b := &models.CartBackup{
		CartID:    cartID,
		Items:     cart.Items,
		CreatedAt: s.now().UTC(),
	}
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("marshal backup: %w", err)
	}

	if err := s.client.Set(ctx, backupKey(sessionID), data, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("store backup: %w", err)
	}
	return b, nil
}

// Restore re-adds the backed-up line items to the target cart. Additive
// only: nothing already in the target is touched.
func (s *Store) Restore(ctx context.Context, sessionID, targetCartID string) error {
	b, err := s.load(ctx, sessionID)
	if err != nil {
		return err
	}
	if len(b.Items) == 0 {
		return nil
	}
	if _, err := s.carts.AddLineItems(ctx, targetCartID, b.Items); err != nil {
		return fmt.Errorf("restore backup of cart %s into %s: %w", b.CartID, targetCartID, err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, backupKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("clear backup: %w", err)
	}
	return nil
}

func (s *Store) load(ctx context.Context, sessionID string) (*models.CartBackup, error) {
	data, err := s.client.Get(ctx, backupKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrBackupUnavailable
	}
	if err != nil {
		return nil, fmt.Errorf("read backup: %w", err)
	}

	var b models.CartBackup
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("unmarshal backup: %w", err)
	}
	if s.now().Sub(b.CreatedAt) > s.ttl {
		return nil, ErrBackupUnavailable
	}
	return &b, nil
}
