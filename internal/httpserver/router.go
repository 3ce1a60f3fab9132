package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type Deps struct {
	SessionHandler *SessionHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	s := e.Group("/session")
	s.POST("/login", d.SessionHandler.Login)
	s.POST("/logout", d.SessionHandler.Logout)
	s.POST("/cart-created", d.SessionHandler.CartCreated)
	s.GET("/cart", d.SessionHandler.GetCart)
}
