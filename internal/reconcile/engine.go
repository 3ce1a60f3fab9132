package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/mkravets/storefront-bridge/internal/commerce"
	"github.com/mkravets/storefront-bridge/internal/models"
	"github.com/mkravets/storefront-bridge/pkg/logging"
)

type cartStore interface {
	GetCart(ctx context.Context, cartID string) (*models.Cart, error)
	AddLineItems(ctx context.Context, cartID string, items []models.LineItem) (*models.Cart, error)
}

type backupStore interface {
	Snapshot(ctx context.Context, sessionID, cartID string) (*models.CartBackup, error)
	Restore(ctx context.Context, sessionID, targetCartID string) error
	Clear(ctx context.Context, sessionID string) error
}

// Engine merges one cart's line items into another, guarded by a backup
// taken before any mutation. The caller advances its cart pointer only when
// Reconcile returns nil; on error the old cart stays authoritative, so no
// item is ever orphaned from the shopper's reachable cart.
type Engine struct {
	carts   cartStore
	backups backupStore
}

func NewEngine(carts cartStore, backups backupStore) *Engine {
	return &Engine{carts: carts, backups: backups}
}

func (e *Engine) Reconcile(ctx context.Context, sessionID, oldCartID, newCartID string) error {
	l := logging.FromContext(ctx).With("svc", "reconcile", "old_cart", oldCartID, "new_cart", newCartID)

	oldCart, err := e.carts.GetCart(ctx, oldCartID)
	if errors.Is(err, commerce.ErrCartNotFound) {
		l.Info("reconcile_skipped", "reason", "old_cart_missing")
		return nil
	}
	if err != nil {
		return fmt.Errorf("read cart %s: %w", oldCartID, err)
	}
	if len(oldCart.Items) == 0 {
		l.Info("reconcile_skipped", "reason", "old_cart_empty")
		return nil
	}

	if _, err := e.backups.Snapshot(ctx, sessionID, oldCartID); err != nil {
		return fmt.Errorf("snapshot cart %s: %w", oldCartID, err)
	}

	newCart, err := e.carts.GetCart(ctx, newCartID)
	if err != nil {
		return fmt.Errorf("read cart %s: %w", newCartID, err)
	}

	// A duplicate notification may arrive after the merge already ran.
	// Containment is checked by product id only; options are ignored here.
	if containsAllProducts(newCart.Items, oldCart.Items) {
		l.Info("reconcile_noop", "reason", "already_merged")
		if err := e.backups.Clear(ctx, sessionID); err != nil {
			l.Warn("backup_clear_failed", "error", err)
		}
		return nil
	}

	// Single bulk write with the full old-cart list. On partial overlap this
	// over-adds rather than risk dropping items.
	if _, err := e.carts.AddLineItems(ctx, newCartID, oldCart.Items); err != nil {
		l.Error("reconcile_merge_failed", "error", err)
		if rerr := e.backups.Restore(ctx, sessionID, newCartID); rerr != nil {
			// Backup stays in place for out-of-band recovery.
			l.Error("reconcile_restore_failed", "error", rerr)
		}
		return fmt.Errorf("merge cart %s into %s: %w", oldCartID, newCartID, err)
	}

	if err := e.backups.Clear(ctx, sessionID); err != nil {
		l.Warn("backup_clear_failed", "error", err)
	}
	l.Info("reconcile_success", "items_moved", len(oldCart.Items))
	return nil
}

func containsAllProducts(have, want []models.LineItem) bool {
	present := make(map[int64]struct{}, len(have))
	for _, it := range have {
		present[it.ProductID] = struct{}{}
	}
	for _, it := range want {
		if _, ok := present[it.ProductID]; !ok {
			return false
		}
	}
	return true
}
