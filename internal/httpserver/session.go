package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mkravets/storefront-bridge/internal/commerce"
	"github.com/mkravets/storefront-bridge/internal/models"
	"github.com/mkravets/storefront-bridge/pkg/logging"
	"github.com/mkravets/storefront-bridge/pkg/tokens"
)

const sessionCookie = "session"

type sessionBridge interface {
	Login(ctx context.Context, username, password string) (*models.Session, error)
	Logout(ctx context.Context, sess *models.Session) error
	SecondaryCartCreated(ctx context.Context, sess *models.Session, newCartID string) (string, error)
}

type cartGetter interface {
	GetCart(ctx context.Context, cartID string) (*models.Cart, error)
}

type SessionHandler struct {
	Bridge    sessionBridge
	Carts     cartGetter
	JWTSecret []byte
}

func (h *SessionHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "session.login")

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, "invalid body")
	}
	if req.Username == "" || req.Password == "" {
		l.Warn("login_error", "status", 400)
		return c.JSON(http.StatusBadRequest, "username and password required")
	}

	sess, err := h.Bridge.Login(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, commerce.ErrInvalidCredentials) {
			l.Warn("login_failed", "status", 401, "reason", "invalid username or password")
			return c.JSON(http.StatusUnauthorized, "invalid username or password")
		}
		l.Error("login_failed", "status", 502, "error", err)
		return c.JSON(http.StatusBadGateway, "identity service unavailable")
	}

	if err := h.setSessionCookie(c, sess); err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot sign session", "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}

	l.Info("login_success", "customer_id", sess.CustomerID)
	return c.JSON(http.StatusOK, echo.Map{
		"name":    sess.Name,
		"email":   sess.Email,
		"cart_id": sess.CartID,
	})
}

func (h *SessionHandler) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "session.logout")

	if sess, err := h.sessionFromRequest(c); err == nil {
		if err := h.Bridge.Logout(ctx, sess); err != nil {
			l.Warn("logout_revoke_failed", "error", err)
		}
	}

	c.SetCookie(tokens.DeleteCookie(sessionCookie, "/"))
	l.Info("logout_success")
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// CartCreated is the entry point the client-side relay calls when the
// secondary system reports a freshly created cart.
func (h *SessionHandler) CartCreated(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "session.cart_created")

	sess, err := h.sessionFromRequest(c)
	if err != nil {
		l.Warn("cart_created_error", "status", 401, "error", err)
		return c.JSON(http.StatusUnauthorized, "unauthorized")
	}

	var req struct {
		CartID string `json:"cart_id"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("cart_created_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, "invalid body")
	}
	if req.CartID == "" {
		l.Warn("cart_created_error", "status", 400)
		return c.JSON(http.StatusBadRequest, "cart_id required")
	}

	prev := sess.CartID
	id, err := h.Bridge.SecondaryCartCreated(ctx, sess, req.CartID)
	if err != nil {
		// The old pointer stays authoritative; the relay must not move the
		// widget onto the rejected cart.
		l.Error("cart_created_failed", "status", 409, "cart_id", req.CartID, "error", err)
		return c.JSON(http.StatusConflict, echo.Map{"cart_id": sess.CartID})
	}

	if id != prev {
		if err := h.setSessionCookie(c, sess); err != nil {
			l.Error("cart_created_error", "status", 500, "reason", "cannot sign session", "error", err)
			return c.JSON(http.StatusInternalServerError, "internal error")
		}
	}

	l.Info("cart_created_applied", "cart_id", id)
	return c.JSON(http.StatusOK, echo.Map{"cart_id": id})
}

func (h *SessionHandler) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "session.get_cart")

	sess, err := h.sessionFromRequest(c)
	if err != nil {
		l.Warn("get_cart_error", "status", 401, "error", err)
		return c.JSON(http.StatusUnauthorized, "unauthorized")
	}
	if sess.CartID == "" {
		return c.JSON(http.StatusOK, models.Cart{Items: []models.LineItem{}})
	}

	cart, err := h.Carts.GetCart(ctx, sess.CartID)
	if err != nil {
		if errors.Is(err, commerce.ErrCartNotFound) {
			l.Warn("get_cart_not_found", "status", 404, "cart_id", sess.CartID)
			return c.JSON(http.StatusNotFound, "cart not found")
		}
		l.Error("get_cart_error", "status", 502, "error", err)
		return c.JSON(http.StatusBadGateway, "cart store unavailable")
	}
	return c.JSON(http.StatusOK, cart)
}

func (h *SessionHandler) sessionFromRequest(c echo.Context) (*models.Session, error) {
	cookie, err := c.Cookie(sessionCookie)
	if err != nil || cookie.Value == "" {
		return nil, errors.New("missing session cookie")
	}
	claims, err := tokens.SessionClaimsFromToken(cookie.Value, h.JWTSecret)
	if err != nil || claims == nil {
		return nil, errors.New("invalid session token")
	}
	return &models.Session{
		CustomerID:  claims.Subject,
		Name:        claims.Name,
		Email:       claims.Email,
		AccessToken: claims.AccessToken,
		B2BToken:    claims.B2BToken,
		CartID:      claims.CartID,
	}, nil
}

func (h *SessionHandler) setSessionCookie(c echo.Context, sess *models.Session) error {
	claims := tokens.SessionClaims{
		Name:        sess.Name,
		Email:       sess.Email,
		AccessToken: sess.AccessToken,
		B2BToken:    sess.B2BToken,
		CartID:      sess.CartID,
	}
	claims.Subject = sess.CustomerID

	signed, err := tokens.SignSession(claims, h.JWTSecret)
	if err != nil {
		return err
	}
	c.SetCookie(tokens.CreateCookie(sessionCookie, signed, "/", time.Now().Add(tokens.SessionTTL)))
	return nil
}
