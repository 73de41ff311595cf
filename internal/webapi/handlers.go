package webapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cwaproj/cwa/internal/cwaerr"
	"github.com/cwaproj/cwa/internal/domain"
	"github.com/cwaproj/cwa/internal/services"
)

type handlers struct {
	svc *services.Services
}

func writeErr(c echo.Context, err error) error {
	code := cwaerr.CodeOf(err)
	return c.JSON(code.HTTPStatus(), map[string]any{"error": err.Error(), "code": string(code)})
}

func (h *handlers) listTasks(c echo.Context) error {
	tasks, err := h.svc.ListTasks(c.Request().Context())
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, tasks)
}

type createTaskBody struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	SpecID      string `json:"spec_id"`
	Priority    string `json:"priority"`
}

func (h *handlers) createTask(c echo.Context) error {
	var body createTaskBody
	if err := c.Bind(&body); err != nil {
		return writeErr(c, cwaerr.Wrap(cwaerr.InvalidArguments, "invalid request body", err))
	}
	if body.Priority == "" {
		body.Priority = domain.PriorityMedium
	}
	task, err := h.svc.CreateTask(c.Request().Context(), body.Title, body.Description, body.Priority, body.SpecID, "")
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, task)
}

func (h *handlers) getTask(c echo.Context) error {
	task, err := h.svc.GetTask(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, task)
}

type updateTaskBody struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
	Force       bool   `json:"force"`
	// BeforeID/AfterID reposition the card between two siblings in its
	// current column (drag-and-drop); either may be empty for start/end.
	BeforeID string `json:"before_id"`
	AfterID  string `json:"after_id"`
}

func (h *handlers) updateTask(c echo.Context) error {
	var body updateTaskBody
	if err := c.Bind(&body); err != nil {
		return writeErr(c, cwaerr.Wrap(cwaerr.InvalidArguments, "invalid request body", err))
	}
	ctx := c.Request().Context()
	id := c.Param("id")

	if body.Title != "" || body.Description != "" || body.Priority != "" {
		if _, err := h.svc.UpdateTaskFields(ctx, id, body.Title, body.Description, body.Priority); err != nil {
			return writeErr(c, err)
		}
	}
	if body.BeforeID != "" || body.AfterID != "" {
		if err := h.svc.ReorderTask(ctx, id, body.BeforeID, body.AfterID); err != nil {
			return writeErr(c, err)
		}
	}
	if body.Status != "" {
		task, err := h.svc.UpdateTaskStatus(ctx, id, body.Status, body.Force)
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(http.StatusOK, task)
	}
	task, err := h.svc.GetTask(ctx, id)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, task)
}

type boardColumn struct {
	Name  string         `json:"name"`
	Limit int            `json:"limit"`
	Tasks []*domain.Task `json:"tasks"`
}

func (h *handlers) getBoard(c echo.Context) error {
	ctx := c.Request().Context()
	status, err := h.svc.WipStatus(ctx)
	if err != nil {
		return writeErr(c, err)
	}
	columns := make([]boardColumn, 0, 5)
	for _, col := range []string{domain.ColumnBacklog, domain.ColumnTodo, domain.ColumnInProgress, domain.ColumnReview, domain.ColumnDone} {
		tasks, err := h.svc.Board.ListColumn(ctx, col)
		if err != nil {
			return writeErr(c, err)
		}
		columns = append(columns, boardColumn{Name: col, Limit: status[col].Limit, Tasks: tasks})
	}
	return c.JSON(http.StatusOK, map[string]any{"columns": columns})
}

func (h *handlers) listSpecs(c echo.Context) error {
	specs, err := h.svc.ListSpecs(c.Request().Context())
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, specs)
}

type createSpecBody struct {
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Priority           string   `json:"priority"`
	AcceptanceCriteria []string `json:"acceptance_criteria"`
	Dependencies       []string `json:"dependencies"`
}

func (h *handlers) createSpec(c echo.Context) error {
	var body createSpecBody
	if err := c.Bind(&body); err != nil {
		return writeErr(c, cwaerr.Wrap(cwaerr.InvalidArguments, "invalid request body", err))
	}
	if body.Priority == "" {
		body.Priority = domain.PriorityMedium
	}
	sp, err := h.svc.CreateSpec(c.Request().Context(), body.Title, body.Description, body.Priority, body.AcceptanceCriteria, body.Dependencies)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, sp)
}

func (h *handlers) getSpec(c echo.Context) error {
	sp, err := h.svc.GetSpec(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, sp)
}

func (h *handlers) generateTasks(c echo.Context) error {
	created, errs := h.svc.GenerateTasks(c.Request().Context(), c.Param("id"))
	errStrs := make([]string, len(errs))
	for i, e := range errs {
		errStrs[i] = e.Error()
	}
	return c.JSON(http.StatusOK, map[string]any{"created": created, "errors": errStrs})
}

func (h *handlers) getDomains(c echo.Context) error {
	model, err := h.svc.GetDomainModel(c.Request().Context())
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, model)
}

func (h *handlers) listDecisions(c echo.Context) error {
	decisions, err := h.svc.ListDecisions(c.Request().Context())
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, decisions)
}

type createDecisionBody struct {
	Title         string   `json:"title"`
	Rationale     string   `json:"rationale"`
	Alternatives  []string `json:"alternatives"`
	Supersedes    string   `json:"supersedes"`
	RelatedEntity string   `json:"related_entity"`
}

func (h *handlers) createDecision(c echo.Context) error {
	var body createDecisionBody
	if err := c.Bind(&body); err != nil {
		return writeErr(c, cwaerr.Wrap(cwaerr.InvalidArguments, "invalid request body", err))
	}
	d, err := h.svc.AddDecision(c.Request().Context(), body.Title, body.Rationale, body.Alternatives, body.Supersedes, body.RelatedEntity)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *handlers) contextSummary(c echo.Context) error {
	projectID := h.svc.Store.ProjectID()
	summary, err := h.svc.GetContextSummary(c.Request().Context(), projectID)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}
