// Package readinggoal serves GET and PUT /api/user/reading-goal.
package readinggoal

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
	"github.com/magabrotheeeer/book-collection/internal/storage"
)

type Service interface {
	ReadingGoal(ctx context.Context, auth0ID string) (int, error)
	UpdateReadingGoal(ctx context.Context, auth0ID string, goal int) error
}

type GetHandler struct {
	log     *slog.Logger
	service Service
}

func NewGet(log *slog.Logger, service Service) *GetHandler {
	return &GetHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary      Get reading goal
// @Tags         user
// @Produce      json
// @Success      200  {object}  response.Response
// @Failure      401  {object}  response.ErrorResponse
// @Failure      404  {object}  response.ErrorResponse
// @Failure      500  {object}  response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/user/reading-goal [get]
func (h *GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.readinggoal.get"

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

	goal, err := h.service.ReadingGoal(r.Context(), userUID)
	if errors.Is(err, storage.ErrUserNotFound) {
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("user not found"))
		return
	}
	if err != nil {
		log.Error("failed to read reading goal", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not load reading goal"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"readingGoal": goal,
	}))
}

type UpdateHandler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

func NewUpdate(log *slog.Logger, service Service) *UpdateHandler {
	return &UpdateHandler{log: log, service: service, validate: validation.New()}
}

// ServeHTTP godoc
// @Summary      Set reading goal
// @Tags         user
// @Accept       json
// @Produce      json
// @Param        request  body      models.ReadingGoalInput  true  "Goal"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.ErrorResponse
// @Failure      401      {object}  response.ErrorResponse
// @Failure      404      {object}  response.ErrorResponse
// @Failure      422      {object}  response.ErrorResponse
// @Failure      500      {object}  response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/user/reading-goal [put]
func (h *UpdateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.readinggoal.update"

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

	var req models.ReadingGoalInput
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

	err := h.service.UpdateReadingGoal(r.Context(), userUID, *req.ReadingGoal)
	switch {
	case errors.Is(err, user.ErrInvalidInput):
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.Error("reading goal must not be negative"))
		return
	case errors.Is(err, storage.ErrUserNotFound):
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("user not found"))
		return
	case err != nil:
		log.Error("failed to update reading goal", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not update reading goal"))
		return
	}

	log.Info("reading goal updated", slog.Int("goal", *req.ReadingGoal))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"readingGoal": *req.ReadingGoal,
	}))
}
