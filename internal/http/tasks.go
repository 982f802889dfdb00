package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/managerd/internal/dashboard"
	"github.com/fyrsmithlabs/managerd/internal/entity"
)

func (s *Server) filter(c echo.Context) (dashboard.Filter, error) {
	f, err := dashboard.ParseFilter(
		c.QueryParam("priority"),
		c.QueryParam("assignee"),
		c.QueryParam("bucket"),
		c.QueryParam("q"),
	)
	if err != nil {
		return dashboard.Filter{}, s.httpError(c, err)
	}
	return f, nil
}

func (s *Server) visible(f dashboard.Filter) []entity.Task {
	return dashboard.Apply(s.reg.Entities().Tasks(), f, time.Now(), s.reg.Location())
}

// handleListTasks returns the filtered task view with its aggregates.
func (s *Server) handleListTasks(c echo.Context) error {
	f, err := s.filter(c)
	if err != nil {
		return err
	}
	tasks := s.visible(f)
	return c.JSON(http.StatusOK, TaskListResponse{
		Tasks:     tasks,
		Stats:     dashboard.ComputeStats(tasks),
		Assignees: dashboard.Assignees(s.reg.Entities().Tasks()),
		Filter:    f,
		Selected:  s.reg.Selection().IDs(),
	})
}

func (s *Server) handleSetTaskStatus(c echo.Context) error {
	var req StatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	id := c.Param("id")
	if err := s.reg.Entities().UpdateTaskStatus(c.Request().Context(), id, req.Status); err != nil {
		return s.httpError(c, err)
	}
	task, _ := s.reg.Entities().Task(id)
	return c.JSON(http.StatusOK, task)
}

func (s *Server) selection(c echo.Context, visible []entity.Task) error {
	sel := s.reg.Selection()
	return c.JSON(http.StatusOK, SelectionResponse{
		Selected:    sel.IDs(),
		AllSelected: sel.AllSelected(visible),
	})
}

func (s *Server) handleGetSelection(c echo.Context) error {
	f, err := s.filter(c)
	if err != nil {
		return err
	}
	return s.selection(c, s.visible(f))
}

func (s *Server) handleToggleSelection(c echo.Context) error {
	var req SelectionRequest
	if err := c.Bind(&req); err != nil || req.ID == "" {
		return badRequest("id field is required")
	}
	s.reg.Selection().Toggle(req.ID)
	return s.selection(c, nil)
}

// handleToggleAllSelection flips the tasks visible under the query filter.
func (s *Server) handleToggleAllSelection(c echo.Context) error {
	f, err := s.filter(c)
	if err != nil {
		return err
	}
	visible := s.visible(f)
	s.reg.Selection().ToggleAll(visible)
	return s.selection(c, visible)
}

func (s *Server) handleClearSelection(c echo.Context) error {
	s.reg.Selection().Clear()
	return s.selection(c, nil)
}

// handleBulkEdit applies a one-field patch to the explicit ids or, when
// none are given, to the server-side selection.
func (s *Server) handleBulkEdit(c echo.Context) error {
	var req BulkRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}

	sel := s.reg.Selection()
	if len(req.IDs) > 0 {
		sel = dashboard.NewSelection()
		for _, id := range req.IDs {
			if !sel.Contains(id) {
				sel.Toggle(id)
			}
		}
	}

	n, err := dashboard.BulkEdit(c.Request().Context(), s.reg.Entities(), s.reg.Notifier(), sel, req.Patch)
	if err != nil {
		return s.httpError(c, err)
	}
	return c.JSON(http.StatusOK, BulkResponse{Updated: n, Field: req.Patch.Field()})
}
