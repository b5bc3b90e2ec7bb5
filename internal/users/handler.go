package users

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/registria/registria/internal/accesscontrol"
	"github.com/registria/registria/internal/platform/httpx"
)

// Handler exposes user endpoints. The route gate only checks that a
// principal exists; ownership and field-mask decisions depend on the
// target record and run inside the service.
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

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.gate.Require(accesscontrol.OpRead, accesscontrol.ResourceBatchAnalysis))
		r.Get("/analysis/batch", h.batchAnalysis)
		r.Get("/analysis/vacantSeats", h.vacantSeatAnalysis)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireAuthenticated)
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.remove)
	})
}

type createUserForm struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required"`
	Details  struct {
		BranchID        int64  `json:"branchId"`
		BranchName      string `json:"branchName"`
		Phone           string `json:"phone"`
		Batch           int    `json:"batch"`
		CurrentSemester int    `json:"currentSemester"`
	} `json:"userDetails"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	principal, _ := accesscontrol.PrincipalFromContext(r.Context())

	var form createUserForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	role, err := accesscontrol.ParseRole(form.Role)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	created, err := h.service.Create(r.Context(), principal, CreateInput{
		Email:    form.Email,
		Name:     form.Name,
		Password: form.Password,
		Role:     role,
		Details: UserDetails{
			BranchID:        form.Details.BranchID,
			BranchName:      form.Details.BranchName,
			Phone:           form.Details.Phone,
			Batch:           form.Details.Batch,
			CurrentSemester: form.Details.CurrentSemester,
		},
	})
	if err != nil {
		h.logger.Error("create user failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	principal, _ := accesscontrol.PrincipalFromContext(r.Context())

	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = 10
	}
	filters := ListFilters{
		MatchRole: r.URL.Query().Get("matchingBy"),
		SortBy:    r.URL.Query().Get("sortBy"),
		Order:     r.URL.Query().Get("order"),
		Skip:      skip,
		Limit:     limit,
	}

	found, err := h.service.List(r.Context(), principal, filters)
	if err != nil {
		h.logger.Error("list users failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": found})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	principal, _ := accesscontrol.PrincipalFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return
	}
	found, err := h.service.Get(r.Context(), principal, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, found)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	principal, _ := accesscontrol.PrincipalFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return
	}
	// Raw map, not a typed form: the field mask must see exactly the paths
	// the client sent.
	var payload map[string]any
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed body")
		return
	}

	updated, err := h.service.Update(r.Context(), principal, id, payload)
	if err != nil {
		h.logger.Error("update user failed", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	principal, _ := accesscontrol.PrincipalFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return
	}
	if err := h.service.Delete(r.Context(), principal, id); err != nil {
		h.logger.Error("delete user failed", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
}

func (h *Handler) batchAnalysis(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.BatchAnalysis(r.Context())
	if err != nil {
		h.logger.Error("batch analysis failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *Handler) vacantSeatAnalysis(w http.ResponseWriter, r *http.Request) {
	batch, _ := strconv.Atoi(r.URL.Query().Get("batch"))
	rows, err := h.service.VacantSeatAnalysis(r.Context(), VacantSeatFilters{
		Batch:      batch,
		BranchName: r.URL.Query().Get("branchName"),
	})
	if err != nil {
		h.logger.Error("vacant seat analysis failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}
