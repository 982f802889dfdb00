package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/managerd/internal/export"
	"github.com/fyrsmithlabs/managerd/internal/gateway"
)

func (s *Server) handleGenerateImage(c echo.Context) error {
	var req ImageRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	img, err := s.reg.Gateway().GenerateImage(c.Request().Context(), req.Prompt, req.ImageOptions)
	if err != nil {
		return s.httpError(c, err)
	}
	return c.JSON(http.StatusOK, ImageResponse{Image: img})
}

func (s *Server) handleEditImage(c echo.Context) error {
	var req EditImageRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	img, err := s.reg.Gateway().EditImage(c.Request().Context(), gateway.Image(req.Image), req.Prompt)
	if err != nil {
		return s.httpError(c, err)
	}
	return c.JSON(http.StatusOK, ImageResponse{Image: img})
}

// handleTranscribe never fails on provider errors; the text is then the
// fixed failure sentence.
func (s *Server) handleTranscribe(c echo.Context) error {
	var req TranscribeRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	audio, err := gateway.ParseAudio(req.Audio)
	if err != nil {
		return s.httpError(c, err)
	}
	text := s.reg.Gateway().Transcribe(c.Request().Context(), audio)
	return c.JSON(http.StatusOK, TranscribeResponse{Text: text})
}

func (s *Server) handleSearch(c echo.Context) error {
	var req SearchRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	result, err := s.reg.Gateway().Search(c.Request().Context(), req.Query)
	if err != nil {
		return s.httpError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleExportDocument(c echo.Context) error {
	format, err := export.ParseFormat(c.QueryParam("format"))
	if err != nil {
		return s.httpError(c, err)
	}
	var req DocumentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	f, err := export.Document(req.Title, req.Content, format)
	if err != nil {
		return s.httpError(c, err)
	}
	return attachment(c, f)
}
