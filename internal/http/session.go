package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/managerd/internal/logging"
)

// handleLogin opens the session.
func (s *Server) handleLogin(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	if err := s.reg.Session().Login(c.Request().Context(), req.Passphrase); err != nil {
		return s.httpError(c, err)
	}
	return c.JSON(http.StatusOK, s.sessionStatus(true))
}

// handleSessionStatus reports the gate and provider state. Counts are only
// shown to an authenticated caller.
func (s *Server) handleSessionStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.sessionStatus(s.reg.Session().Authenticated()))
}

// handleLogout closes the session after confirmation.
func (s *Server) handleLogout(c echo.Context) error {
	if err := confirmed(c); err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := s.reg.Session().Logout(ctx); err != nil {
		return s.httpError(c, err)
	}
	s.logger.Info("operator logged out", logging.ContextFields(ctx)...)
	return c.JSON(http.StatusOK, s.sessionStatus(false))
}

func (s *Server) sessionStatus(authed bool) SessionResponse {
	resp := SessionResponse{
		Authenticated: authed,
		Provider:      s.reg.Gateway().ProviderName(),
		ProviderReady: s.reg.Gateway().Ready() == nil,
		Agency:        s.reg.AgencyName(),
		Monitoring:    s.reg.Monitor() != nil && s.reg.Monitor().Running(),
	}
	if authed {
		resp.Counts = CountFromRegistry(s.reg)
	}
	return resp
}
