package http

import (
	"errors"
	"mime"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/managerd/internal/chat"
	"github.com/fyrsmithlabs/managerd/internal/export"
)

func (s *Server) handleChatHistory(c echo.Context) error {
	return c.JSON(http.StatusOK, s.reg.Chat().History())
}

// handleChatSubmit runs one chat turn. Provider failures come back as a
// 200 with a plain-text reply.
func (s *Server) handleChatSubmit(c echo.Context) error {
	var req SubmitRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	turn, err := s.reg.Chat().Submit(c.Request().Context(), req.Content)
	if errors.Is(err, chat.ErrEmptyUtterance) {
		return badRequest("content field is required")
	}
	if err != nil {
		return s.httpError(c, err)
	}
	return c.JSON(http.StatusOK, turn)
}

func (s *Server) handleChatClear(c echo.Context) error {
	if err := confirmed(c); err != nil {
		return err
	}
	if err := s.reg.Chat().Clear(c.Request().Context()); err != nil {
		return s.httpError(c, err)
	}
	return c.JSON(http.StatusOK, s.reg.Chat().History())
}

func (s *Server) handleChatExport(c echo.Context) error {
	f, err := export.ChatLog(s.reg.AgencyName(), s.reg.Chat().History())
	if err != nil {
		return s.httpError(c, err)
	}
	return attachment(c, f)
}

// attachment sends a rendered file as a download.
func attachment(c echo.Context, f export.File) error {
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": f.Name})
	c.Response().Header().Set(echo.HeaderContentDisposition, disposition)
	return c.Blob(http.StatusOK, f.ContentType, f.Data)
}
