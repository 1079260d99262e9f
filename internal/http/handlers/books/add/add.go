package add

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
	"github.com/magabrotheeeer/book-collection/internal/services/book"
	"github.com/magabrotheeeer/book-collection/internal/storage"
)

type Service interface {
	Add(ctx context.Context, userUID string, in models.BookInput) (book.AddResult, error)
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
// @Summary      Add a book
// @Description  Adds a book to the collection. A recently deleted book with the same title is restored instead.
// @Tags         books
// @Accept       json
// @Produce      json
// @Param        request  body      models.BookInput  true  "Book"
// @Success      201      {object}  response.Response
// @Success      200      {object}  response.Response  "restored"
// @Failure      400      {object}  response.ErrorResponse
// @Failure      401      {object}  response.ErrorResponse
// @Failure      409      {object}  response.ErrorResponse
// @Failure      422      {object}  response.ErrorResponse
// @Failure      500      {object}  response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/books/add [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.books.add"

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

	var req models.BookInput
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

	res, err := h.service.Add(r.Context(), userUID, req)
	if errors.Is(err, storage.ErrBookExists) {
		log.Info("book already exists", slog.String("title", req.Title))
		w.WriteHeader(http.StatusConflict)
		render.JSON(w, r, response.Error("book already exists"))
		return
	}
	if err != nil {
		log.Error("failed to add book", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not add book"))
		return
	}

	if res.Restored {
		log.Info("book restored", slog.Int64("id", res.Book.ID))
		render.JSON(w, r, response.StatusOKWithData(map[string]any{
			"book":     res.Book,
			"restored": true,
		}))
		return
	}

	log.Info("book added", slog.Int64("id", res.Book.ID))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"book": res.Book,
	}))
}
