package bridge

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/mkravets/storefront-bridge/internal/commerce"
	"github.com/mkravets/storefront-bridge/internal/models"
	"github.com/mkravets/storefront-bridge/pkg/logging"
)

var ErrCartIDRequired = errors.New("cart id required")

type identityClient interface {
	Login(ctx context.Context, username, password string) (*commerce.LoginResult, error)
	Logout(ctx context.Context, accessToken string) error
}

type tokenExchanger interface {
	Exchange(ctx context.Context, customerID, accessToken string) (string, error)
}

type reconciler interface {
	Reconcile(ctx context.Context, sessionID, oldCartID, newCartID string) error
}

type eventPublisher interface {
	Publish(ctx context.Context, eventType, key string, payload map[string]any) error
}

// Bridge orchestrates the two triggers of the session lifecycle: primary
// login and the asynchronous "secondary cart created" notification.
type Bridge struct {
	identity identityClient
	b2b      tokenExchanger
	engine   reconciler
	events   eventPublisher
	sfg      singleflight.Group
}

func New(identity identityClient, b2b tokenExchanger, engine reconciler, events eventPublisher) *Bridge {
	return &Bridge{
		identity: identity,
		b2b:      b2b,
		engine:   engine,
		events:   events,
	}
}

// Login authenticates against the primary backend and attaches a secondary
// token best-effort. A B2B outage is logged and swallowed; it never fails
// the login.
func (b *Bridge) Login(ctx context.Context, username, password string) (*models.Session, error) {
	l := logging.FromContext(ctx).With("svc", "bridge.login")

	res, err := b.identity.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}

	cartID, _ := NoCart().OnLogin(res.AnonymousCartID).CartID()
	sess := &models.Session{
		CustomerID:  res.CustomerID,
		Name:        res.Name,
		Email:       res.Email,
		AccessToken: res.AccessToken,
		CartID:      cartID,
	}

	token, err := b.b2b.Exchange(ctx, res.CustomerID, res.AccessToken)
	if err != nil {
		l.Warn("b2b_token_exchange_failed", "customer_id", res.CustomerID, "error", err)
	} else {
		sess.B2BToken = token
	}

	b.publish(ctx, "session_login", sess.CustomerID, map[string]any{
		"customer_id": sess.CustomerID,
		"cart_id":     sess.CartID,
		"b2b_token":   sess.B2BToken != "",
	})
	l.Info("login_success", "customer_id", sess.CustomerID, "has_b2b_token", sess.B2BToken != "")
	return sess, nil
}

// Logout best-effort invalidates the primary token.
func (b *Bridge) Logout(ctx context.Context, sess *models.Session) error {
	if err := b.identity.Logout(ctx, sess.AccessToken); err != nil {
		logging.FromContext(ctx).Warn("logout_revoke_failed", "customer_id", sess.CustomerID, "error", err)
		return err
	}
	return nil
}

// SecondaryCartCreated applies the cart-created notification to the session
// and returns the authoritative cart id afterwards. Safe to call repeatedly
// with the same id; concurrent duplicates for one session collapse into a
// single reconciliation.
func (b *Bridge) SecondaryCartCreated(ctx context.Context, sess *models.Session, newCartID string) (string, error) {
	l := logging.FromContext(ctx).With("svc", "bridge.cart_created", "customer_id", sess.CustomerID, "new_cart", newCartID)
	if newCartID == "" {
		return sess.CartID, ErrCartIDRequired
	}

	state := NoCart()
	if sess.CartID != "" {
		state = HasCart(sess.CartID)
	}
	next, decision := state.OnSecondaryCartCreated(newCartID)

	switch decision {
	case DecisionNone:
		l.Info("cart_created_noop")
		return sess.CartID, nil

	case DecisionAdopt:
		id, _ := next.CartID()
		sess.CartID = id
		l.Info("cart_adopted")
		return id, nil

	case DecisionReconcile:
		oldCartID := sess.CartID
		key := sess.CustomerID + ":" + newCartID
		_, err, _ := b.sfg.Do(key, func() (any, error) {
			return nil, b.engine.Reconcile(ctx, sess.CustomerID, oldCartID, newCartID)
		})
		if err != nil {
			b.publish(ctx, "cart_reconcile_failed", sess.CustomerID, map[string]any{
				"customer_id": sess.CustomerID,
				"old_cart":    oldCartID,
				"new_cart":    newCartID,
			})
			return sess.CartID, fmt.Errorf("reconcile carts: %w", err)
		}
		id, _ := next.CartID()
		sess.CartID = id
		b.publish(ctx, "cart_reconciled", sess.CustomerID, map[string]any{
			"customer_id": sess.CustomerID,
			"old_cart":    oldCartID,
			"new_cart":    newCartID,
		})
		return id, nil
	}

	return sess.CartID, nil
}

func (b *Bridge) publish(ctx context.Context, eventType, key string, payload map[string]any) {
	if b.events == nil {
		return
	}
	if err := b.events.Publish(ctx, eventType, key, payload); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "event", eventType, "error", err)
	}
}
