package deleted

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/book-collection/internal/http/middlewarectx"
	"github.com/magabrotheeeer/book-collection/internal/http/response"
	"github.com/magabrotheeeer/book-collection/internal/lib/sl"
	"github.com/magabrotheeeer/book-collection/internal/models"
)

type Service interface {
	RecentlyDeleted(ctx context.Context, userUID string) ([]models.Book, error)
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
// @Summary      Recently deleted books
// @Description  Returns books deleted within the last 30 days, newest deletion first
// @Tags         books
// @Produce      json
// @Success      200  {object}  response.Response
// @Failure      401  {object}  response.ErrorResponse
// @Failure      500  {object}  response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/books/recently-deleted [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.books.deleted"

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

	books, err := h.service.RecentlyDeleted(r.Context(), userUID)
	if err != nil {
		log.Error("failed to list deleted books", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not load deleted books"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"count": len(books),
		"books": books,
	}))
}
