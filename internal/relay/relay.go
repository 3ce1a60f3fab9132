package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mkravets/storefront-bridge/internal/models"
	"github.com/mkravets/storefront-bridge/pkg/logging"
)

// WidgetClient is the injected interface to the secondary system's
// cart-aware widget. Ready blocks until the widget is usable; callers await
// it once instead of polling a shared handle.
type WidgetClient interface {
	Ready(ctx context.Context) error
	Events() <-chan json.RawMessage
	CurrentCartID(ctx context.Context) (string, error)
	SetCurrentCartID(ctx context.Context, id string) error
}

type cartNotifier interface {
	SecondaryCartCreated(ctx context.Context, sess *models.Session, newCartID string) (string, error)
}

// Relay forwards the widget's cart-creation notifications to the session
// bridge and keeps the widget's active cart id aligned with the session's
// pointer. The widget is only moved to a cart id the session has accepted.
type Relay struct {
	widget WidgetClient
	bridge cartNotifier
	sess   *models.Session
}

func New(widget WidgetClient, bridge cartNotifier, sess *models.Session) *Relay {
	return &Relay{widget: widget, bridge: bridge, sess: sess}
}

// Run blocks until the widget's event channel closes or ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	l := logging.FromContext(ctx).With("svc", "relay", "customer_id", r.sess.CustomerID)

	if err := r.widget.Ready(ctx); err != nil {
		return fmt.Errorf("widget ready: %w", err)
	}
	if r.sess.CartID != "" {
		cur, err := r.widget.CurrentCartID(ctx)
		if err != nil || cur != r.sess.CartID {
			if err := r.widget.SetCurrentCartID(ctx, r.sess.CartID); err != nil {
				l.Warn("widget_cart_sync_failed", "cart_id", r.sess.CartID, "error", err)
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-r.widget.Events():
			if !ok {
				return nil
			}
			r.handle(ctx, l, raw)
		}
	}
}

func (r *Relay) handle(ctx context.Context, l *slog.Logger, raw json.RawMessage) {
	ev, err := ParseEvent(raw)
	if err != nil {
		l.Warn("widget_event_rejected", "error", err)
		return
	}

	switch ev.Type {
	case EventCartCreated:
		id, err := r.bridge.SecondaryCartCreated(ctx, r.sess, ev.CartID)
		if err != nil {
			l.Warn("cart_created_notification_failed", "cart_id", ev.CartID, "error", err)
			// The session did not accept the new cart; force the widget
			// back onto the pointer the session still holds.
			if r.sess.CartID != "" {
				if serr := r.widget.SetCurrentCartID(ctx, r.sess.CartID); serr != nil {
					l.Warn("widget_cart_sync_failed", "cart_id", r.sess.CartID, "error", serr)
				}
			}
			return
		}
		if err := r.widget.SetCurrentCartID(ctx, id); err != nil {
			l.Warn("widget_cart_sync_failed", "cart_id", id, "error", err)
			return
		}
		l.Info("widget_cart_synced", "cart_id", id)
	}
}
