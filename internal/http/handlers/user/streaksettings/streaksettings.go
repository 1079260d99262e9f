// Package streaksettings serves GET and POST /api/user/streak-settings.
package streaksettings

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
	StreakSettings(ctx context.Context, auth0ID string) (*models.StreakSettings, error)
	UpdateStreakSettings(ctx context.Context, auth0ID string, in models.StreakSettingsInput) (*models.StreakSettings, error)
}

type GetHandler struct {
	log     *slog.Logger
	service Service
}

func NewGet(log *slog.Logger, service Service) *GetHandler {
	return &GetHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary      Get streak settings
// @Description  Returns the settings, creating the defaults on first access
// @Tags         user
// @Produce      json
// @Success      200  {object}  response.Response{data=models.StreakSettings}
// @Failure      401  {object}  response.ErrorResponse
// @Failure      500  {object}  response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/user/streak-settings [get]
func (h *GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.streaksettings.get"

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

	st, err := h.service.StreakSettings(r.Context(), userUID)
	if err != nil {
		log.Error("failed to load streak settings", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not load streak settings"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(st))
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
// @Summary      Update streak settings
// @Description  Sets the weekdays that never break a streak and the goal interval
// @Tags         user
// @Accept       json
// @Produce      json
// @Param        request  body      models.StreakSettingsInput  true  "Settings"
// @Success      200      {object}  response.Response{data=models.StreakSettings}
// @Failure      400      {object}  response.ErrorResponse
// @Failure      401      {object}  response.ErrorResponse
// @Failure      422      {object}  response.ErrorResponse
// @Failure      500      {object}  response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/user/streak-settings [post]
func (h *UpdateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.streaksettings.update"

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

	var req models.StreakSettingsInput
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

	st, err := h.service.UpdateStreakSettings(r.Context(), userUID, req)
	if errors.Is(err, user.ErrInvalidInput) {
		log.Info("invalid streak settings", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.Error("invalid streak settings"))
		return
	}
	if err != nil {
		log.Error("failed to update streak settings", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not update streak settings"))
		return
	}

	log.Info("streak settings updated", slog.String("interval", st.GoalInterval), slog.Any("excluded_days", st.ExcludedDays))
	render.JSON(w, r, response.StatusOKWithData(st))
}
