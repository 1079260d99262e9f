package middlewarectx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/book-collection/internal/http/response"
	"github.com/magabrotheeeer/book-collection/internal/lib/calendar"
	"github.com/magabrotheeeer/book-collection/internal/lib/sl"
)

// TimeZoneHeader carries the caller's IANA time zone, e.g. "Europe/Berlin".
const TimeZoneHeader = "X-Time-Zone"

// TimeZoneMiddleware stores the caller's time zone in the context. It is read
// from TimeZoneHeader or the tz query parameter; without either, day
// boundaries fall back to the server zone.
func TimeZoneMiddleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			name := r.Header.Get(TimeZoneHeader)
			if name == "" {
				name = r.URL.Query().Get("tz")
			}
			if name == "" {
				next.ServeHTTP(w, r)
				return
			}

			loc, err := time.LoadLocation(name)
			if err != nil {
				log.Info("invalid time zone", slog.String("tz", name), sl.Err(err))
				w.WriteHeader(http.StatusBadRequest)
				render.JSON(w, r, response.Error("invalid time zone"))
				return
			}
			next.ServeHTTP(w, r.WithContext(calendar.WithLocation(r.Context(), loc)))
		})
	}
}
