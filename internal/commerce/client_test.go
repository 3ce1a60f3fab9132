package commerce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkravets/storefront-bridge/internal/models"
)

func newTestBackend(t *testing.T) (*Client, *http.ServeMux) {
	t.Helper()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL + "/"), mux
}

func TestLogin_Success(t *testing.T) {
	t.Parallel()

	client, mux := newTestBackend(t)
	mux.HandleFunc("POST /identity/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "jane", req.Username)
		assert.Equal(t, "secret", req.Password)

		json.NewEncoder(w).Encode(LoginResult{
			AccessToken:     "primary-token",
			CustomerID:      "customer-1",
			Name:            "Jane Shopper",
			Email:           "jane@example.com",
			AnonymousCartID: "anon-cart",
		})
	})

	res, err := client.Login(context.Background(), "jane", "secret")
	require.NoError(t, err)
	assert.Equal(t, "primary-token", res.AccessToken)
	assert.Equal(t, "customer-1", res.CustomerID)
	assert.Equal(t, "anon-cart", res.AnonymousCartID)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	t.Parallel()

	client, mux := newTestBackend(t)
	mux.HandleFunc("POST /identity/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	res, err := client.Login(context.Background(), "jane", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Nil(t, res)
}

func TestLogout_SendsBearerToken(t *testing.T) {
	t.Parallel()

	client, mux := newTestBackend(t)
	mux.HandleFunc("POST /identity/logout", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer primary-token", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	})

	assert.NoError(t, client.Logout(context.Background(), "primary-token"))
}

func TestGetCart_Success(t *testing.T) {
	t.Parallel()

	client, mux := newTestBackend(t)
	mux.HandleFunc("GET /carts/cart-1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(cartResponse{
			ID: "cart-1",
			Items: []models.LineItem{
				{ProductID: 10, Quantity: 2, Options: []models.SelectedOption{{OptionID: 7, Value: "XL"}}},
			},
		})
	})

	cart, err := client.GetCart(context.Background(), "cart-1")
	require.NoError(t, err)
	assert.Equal(t, "cart-1", cart.ID)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int64(10), cart.Items[0].ProductID)
	assert.Equal(t, "XL", cart.Items[0].Options[0].Value)
}

func TestGetCart_NotFound(t *testing.T) {
	t.Parallel()

	client, mux := newTestBackend(t)
	mux.HandleFunc("GET /carts/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	cart, err := client.GetCart(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrCartNotFound)
	assert.Nil(t, cart)
}

func TestAddLineItems_Success(t *testing.T) {
	t.Parallel()

	client, mux := newTestBackend(t)
	mux.HandleFunc("POST /carts/cart-1/items", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			LineItems []models.LineItem `json:"line_items"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.LineItems, 1)

		json.NewEncoder(w).Encode(cartResponse{ID: "cart-1", Items: req.LineItems})
	})

	cart, err := client.AddLineItems(context.Background(), "cart-1", []models.LineItem{{ProductID: 10, Quantity: 2}})
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
}

func TestAddLineItems_StructuredErrorsAreFailure(t *testing.T) {
	t.Parallel()

	client, mux := newTestBackend(t)
	mux.HandleFunc("POST /carts/cart-1/items", func(w http.ResponseWriter, r *http.Request) {
		// The cart store reports some failures with HTTP 200 and a
		// non-empty error list.
		json.NewEncoder(w).Encode(cartResponse{
			ID:     "cart-1",
			Errors: []BackendError{{Type: "OutOfStock", Message: "product 10 is out of stock"}},
		})
	})

	cart, err := client.AddLineItems(context.Background(), "cart-1", []models.LineItem{{ProductID: 10, Quantity: 2}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of stock")
	assert.Nil(t, cart)
}

func TestAddLineItems_HTTPError(t *testing.T) {
	t.Parallel()

	client, mux := newTestBackend(t)
	mux.HandleFunc("POST /carts/cart-1/items", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.AddLineItems(context.Background(), "cart-1", []models.LineItem{{ProductID: 10, Quantity: 2}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status: 500")
}
