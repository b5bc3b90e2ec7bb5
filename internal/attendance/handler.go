package attendance

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/registria/registria/internal/accesscontrol"
	"github.com/registria/registria/internal/platform/httpx"
)

// Handler exposes attendance endpoints gated by the access-control engine.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	gate      accesscontrol.Middleware
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, gate accesscontrol.Middleware) *Handler {
	return &Handler{logger: logger, service: service, gate: gate, validator: validator.New()}
}

// MountRoutes registers attendance routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.gate.Require(accesscontrol.OpRead, accesscontrol.ResourceAttendance))
		r.Get("/absentList", h.absentList)
		r.Get("/attendancePercentage", h.belowPercentage)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.gate.Require(accesscontrol.OpCreate, accesscontrol.ResourceAttendance))
		r.Post("/", h.bulkCreate)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.gate.Require(accesscontrol.OpUpdate, accesscontrol.ResourceAttendance))
		r.Put("/", h.edit)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.gate.Require(accesscontrol.OpDelete, accesscontrol.ResourceAttendance))
		r.Delete("/", h.remove)
	})
}

type markForm struct {
	StudentID int64  `json:"studentId" validate:"required,gt=0"`
	Date      string `json:"date" validate:"required"`
	Present   bool   `json:"present"`
}

func (f markForm) toMark() (Mark, error) {
	day, err := time.Parse("2006-01-02", f.Date)
	if err != nil {
		return Mark{}, err
	}
	return Mark{StudentID: f.StudentID, Date: day, Present: f.Present}, nil
}

func (h *Handler) bulkCreate(w http.ResponseWriter, r *http.Request) {
	principal, _ := accesscontrol.PrincipalFromContext(r.Context())
	var forms []markForm
	if err := httpx.DecodeJSON(r, &forms); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed body")
		return
	}
	if len(forms) == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "empty attendance sheet")
		return
	}

	marks := make([]Mark, 0, len(forms))
	for _, form := range forms {
		if err := h.validator.Struct(form); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		mark, err := form.toMark()
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
			return
		}
		marks = append(marks, mark)
	}

	result := h.service.BulkCreate(r.Context(), principal, marks)
	switch {
	case len(result.SuccessRecords) == 0:
		httpx.JSON(w, http.StatusBadRequest, map[string]any{
			"status":         "failed",
			"message":        "no records were saved",
			"successRecords": result.SuccessRecords,
			"failedRecords":  result.FailedRecords,
		})
	case len(result.FailedRecords) > 0:
		httpx.JSON(w, http.StatusMultiStatus, map[string]any{
			"status":         "partial",
			"message":        "some records were created, some failed",
			"successRecords": result.SuccessRecords,
			"failedRecords":  result.FailedRecords,
		})
	default:
		httpx.JSON(w, http.StatusCreated, map[string]any{
			"status":         "success",
			"message":        "all records were created",
			"successRecords": result.SuccessRecords,
		})
	}
}

func (h *Handler) edit(w http.ResponseWriter, r *http.Request) {
	principal, _ := accesscontrol.PrincipalFromContext(r.Context())
	mark, ok := h.decodeMark(w, r)
	if !ok {
		return
	}
	updated, err := h.service.Edit(r.Context(), principal, mark)
	if err != nil {
		h.logger.Error("edit attendance failed", slog.Any("error", err), slog.Int64("studentId", mark.StudentID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	principal, _ := accesscontrol.PrincipalFromContext(r.Context())
	mark, ok := h.decodeMark(w, r)
	if !ok {
		return
	}
	deleted, err := h.service.Delete(r.Context(), principal, mark.StudentID, mark.Date)
	if err != nil {
		h.logger.Error("delete attendance failed", slog.Any("error", err), slog.Int64("studentId", mark.StudentID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, deleted)
}

func (h *Handler) decodeMark(w http.ResponseWriter, r *http.Request) (Mark, bool) {
	var form markForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed body")
		return Mark{}, false
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return Mark{}, false
	}
	mark, err := form.toMark()
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
		return Mark{}, false
	}
	return mark, true
}

func (h *Handler) absentList(w http.ResponseWriter, r *http.Request) {
	principal, _ := accesscontrol.PrincipalFromContext(r.Context())
	day, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
		return
	}
	rows, err := h.service.AbsentList(r.Context(), principal, day, reportFilters(r))
	if err != nil {
		h.logger.Error("absent list failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *Handler) belowPercentage(w http.ResponseWriter, r *http.Request) {
	principal, _ := accesscontrol.PrincipalFromContext(r.Context())
	percentage, err := strconv.ParseFloat(r.URL.Query().Get("percentage"), 64)
	if err != nil || percentage <= 0 || percentage > 100 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "percentage must be in (0, 100]")
		return
	}
	rows, err := h.service.BelowPercentage(r.Context(), principal, percentage, reportFilters(r))
	if err != nil {
		h.logger.Error("attendance percentage failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func reportFilters(r *http.Request) ReportFilters {
	batch, _ := strconv.Atoi(r.URL.Query().Get("batch"))
	semester, _ := strconv.Atoi(r.URL.Query().Get("semester"))
	return ReportFilters{
		Branch:   r.URL.Query().Get("branch"),
		Batch:    batch,
		Semester: semester,
	}
}
