package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/book-collection/internal/http/response"
	"github.com/magabrotheeeer/book-collection/internal/lib/sl"
	"github.com/magabrotheeeer/book-collection/internal/services/subscription"
)

// maxBodyBytes bounds webhook payloads.
const maxBodyBytes = 65536

// SignatureHeader carries the Stripe payload signature.
const SignatureHeader = "Stripe-Signature"

type Service interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
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
// @Summary      Stripe webhook
// @Description  Receives subscription lifecycle events signed by Stripe
// @Tags         checkout
// @Accept       json
// @Produce      json
// @Param        Stripe-Signature  header    string  true  "Payload signature"
// @Success      200               {object}  response.Response
// @Failure      400               {object}  response.ErrorResponse
// @Failure      500               {object}  response.ErrorResponse
// @Router       /api/checkout/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.checkout.webhook"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("could not read request body"))
		return
	}

	signature := r.Header.Get(SignatureHeader)
	if signature == "" {
		log.Info("webhook without signature")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("missing signature"))
		return
	}

	err = h.service.HandleWebhook(r.Context(), payload, signature)
	if errors.Is(err, subscription.ErrInvalidWebhook) {
		log.Info("webhook rejected", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid webhook"))
		return
	}
	if err != nil {
		log.Error("failed to handle webhook", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not handle webhook"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"received": true,
	}))
}
