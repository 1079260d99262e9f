package goalhistory

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/book-collection/internal/http/middlewarectx"
	"github.com/magabrotheeeer/book-collection/internal/http/response"
	"github.com/magabrotheeeer/book-collection/internal/lib/sl"
	"github.com/magabrotheeeer/book-collection/internal/lib/validation"
	"github.com/magabrotheeeer/book-collection/internal/models"
	"github.com/magabrotheeeer/book-collection/internal/services/user"
)

type Service interface {
	RecordGoalHistory(ctx context.Context, auth0ID string, in models.GoalHistoryInput) (*models.GoalHistory, error)
}

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validation.New(),
	}
}

// ServeHTTP godoc
// @Summary      Record a goal result
// @Tags         user
// @Accept       json
// @Produce      json
// @Param        request  body      models.GoalHistoryInput  true  "Goal result"
// @Success      201      {object}  response.Response{data=models.GoalHistory}
// @Failure      400      {object}  response.ErrorResponse
// @Failure      401      {object}  response.ErrorResponse
// @Failure      422      {object}  response.ErrorResponse
// @Failure      500      {object}  response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/user/goal-history [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.goalhistory"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID := middlewarectx.UserUIDFrom(r.Context())
	if userUID == "" {
		log.Error("user not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	var req models.GoalHistoryInput
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	row, err := h.service.RecordGoalHistory(r.Context(), userUID, req)
	if errors.Is(err, user.ErrInvalidInput) {
		log.Info("goal history rejected", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.Error("end_date must not be before start_date"))
		return
	}
	if err != nil {
		log.Error("failed to record goal history", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not record goal history"))
		return
	}

	log.Info("goal history recorded", slog.Int64("id", row.ID), slog.Bool("completed", row.WasCompleted))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(row))
}
