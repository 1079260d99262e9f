package collection

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/book-collection/internal/filter"
	"github.com/magabrotheeeer/book-collection/internal/http/middlewarectx"
	"github.com/magabrotheeeer/book-collection/internal/http/response"
	"github.com/magabrotheeeer/book-collection/internal/lib/sl"
	"github.com/magabrotheeeer/book-collection/internal/models"
)

type Service interface {
	Collection(ctx context.Context, userUID string) ([]models.Book, error)
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
// @Summary      List books
// @Description  Returns the filtered and paginated live books of the caller
// @Tags         books
// @Produce      json
// @Param        q          query  string   false  "Search in title and author"
// @Param        genre      query  []string false  "Genre filter, repeatable"
// @Param        min_rating query  number   false  "Minimum rating"
// @Param        min_pages  query  int      false  "Minimum page count"
// @Param        max_pages  query  int      false  "Maximum page count"
// @Param        page       query  int      false  "Page number"
// @Param        page_size  query  int      false  "Page size"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.ErrorResponse
// @Failure      401  {object}  response.ErrorResponse
// @Failure      500  {object}  response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/books/collection [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.books.collection"

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

	view, err := parseView(r)
	if err != nil {
		log.Info("invalid query", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid query parameters"))
		return
	}

	books, err := h.service.Collection(r.Context(), userUID)
	if err != nil {
		log.Error("failed to load collection", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not load books"))
		return
	}

	res := view.Result(books)
	log.Debug("collection listed", slog.Int("total", res.Total), slog.Int("page", res.Page))
	render.JSON(w, r, response.StatusOKWithData(res))
}

// parseView builds a filter view from the query string. Missing values keep
// their defaults, page sizes above filter.MaxPageSize are clamped and
// malformed numbers are rejected.
func parseView(r *http.Request) (*filter.View, error) {
	q := r.URL.Query()

	pageSize, err := intParam(q.Get("page_size"))
	if err != nil {
		return nil, err
	}
	view := filter.NewView(min(pageSize, filter.MaxPageSize))

	var c filter.Criteria
	c.Search = q.Get("q")
	c.Genres = q["genre"]
	if s := q.Get("min_rating"); s != "" {
		if c.MinRating, err = strconv.ParseFloat(s, 64); err != nil {
			return nil, err
		}
	}
	if c.MinPages, err = intParam(q.Get("min_pages")); err != nil {
		return nil, err
	}
	if c.MaxPages, err = intParam(q.Get("max_pages")); err != nil {
		return nil, err
	}
	view.SetCriteria(c)

	page, err := intParam(q.Get("page"))
	if err != nil {
		return nil, err
	}
	view.SetPage(page)
	return view, nil
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
