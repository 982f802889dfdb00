package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/managerd/internal/dashboard"
	"github.com/fyrsmithlabs/managerd/internal/entity"
)

func (s *Server) handleLedger(c echo.Context) error {
	return c.JSON(http.StatusOK, dashboard.Summarize(s.reg.Entities().Transactions()))
}

func (s *Server) handleAddTransaction(c echo.Context) error {
	var req entity.TransactionInput
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	tx, err := dashboard.RecordTransaction(c.Request().Context(), s.reg.Entities(), s.reg.Notifier(), req)
	if err != nil {
		return s.httpError(c, err)
	}
	return c.JSON(http.StatusCreated, tx)
}

func (s *Server) handleDeleteTransaction(c echo.Context) error {
	if err := confirmed(c); err != nil {
		return err
	}
	if err := s.reg.Entities().DeleteTransaction(c.Request().Context(), c.Param("id")); err != nil {
		return s.httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleListNotifications(c echo.Context) error {
	return c.JSON(http.StatusOK, s.reg.Notifier().List())
}

func (s *Server) handleDismissNotification(c echo.Context) error {
	if !s.reg.Notifier().Dismiss(c.Param("id")) {
		return echo.NewHTTPError(http.StatusNotFound, "notification not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleGetPushRecipient(c echo.Context) error {
	return c.JSON(http.StatusOK, PushRecipient{RecipientID: s.reg.Push().Recipient()})
}

func (s *Server) handleSetPushRecipient(c echo.Context) error {
	var req PushRecipient
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	if err := s.reg.Push().SetRecipient(c.Request().Context(), req.RecipientID); err != nil {
		return s.httpError(c, err)
	}
	return c.JSON(http.StatusOK, PushRecipient{RecipientID: s.reg.Push().Recipient()})
}
