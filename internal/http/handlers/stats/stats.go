package stats

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/book-collection/internal/http/middlewarectx"
	"github.com/magabrotheeeer/book-collection/internal/http/response"
	"github.com/magabrotheeeer/book-collection/internal/lib/sl"
	statsservice "github.com/magabrotheeeer/book-collection/internal/services/stats"
)

type Service interface {
	Stats(ctx context.Context, userUID, tier string) (statsservice.Result, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary      Collection statistics
// @Description  Basic statistics for everyone, premium statistics for subscribers
// @Tags         books
// @Produce      json
// @Param        X-Time-Zone  header  string  false  "IANA time zone for day boundaries"
// @Success      200  {object}  response.Response{data=statsservice.Result}
// @Failure      400  {object}  response.ErrorResponse
// @Failure      401  {object}  response.ErrorResponse
// @Failure      500  {object}  response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/books/stats [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.stats"

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
	tier := middlewarectx.TierFrom(r.Context())

	res, err := h.service.Stats(r.Context(), userUID, tier)
	if err != nil {
		log.Error("failed to compute stats", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not compute statistics"))
		return
	}

	log.Debug("stats computed", slog.String("tier", res.Tier), slog.Int("books", res.Basic.TotalBooks))
	render.JSON(w, r, response.StatusOKWithData(res))
}
