// Package stats assembles the statistics response of a user's collection.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/book-collection/internal/lib/calendar"
	"github.com/magabrotheeeer/book-collection/internal/models"
	"github.com/magabrotheeeer/book-collection/internal/stats"
)

// Collection provides the user's live books.
type Collection interface {
	Collection(ctx context.Context, userUID string) ([]models.Book, error)
}

// SettingsProvider provides the user's streak settings.
type SettingsProvider interface {
	StreakSettings(ctx context.Context, auth0ID string) (*models.StreakSettings, error)
}

// Result is the statistics payload. Premium is nil on the free tier.
type Result struct {
	Basic   stats.Basic    `json:"basic"`
	Premium *stats.Premium `json:"premium,omitempty"`
	Tier    string         `json:"tier"`
}

// Service computes statistics for a tier.
type Service struct {
	books    Collection
	settings SettingsProvider
	now      func() time.Time
}

// NewService creates a Service.
func NewService(books Collection, settings SettingsProvider) *Service {
	return &Service{books: books, settings: settings, now: time.Now}
}

// Stats returns basic statistics, plus premium ones when tier is premium.
// Day boundaries follow the time zone carried by ctx.
func (s *Service) Stats(ctx context.Context, userUID, tier string) (Result, error) {
	const op = "services.stats.Stats"

	books, err := s.books.Collection(ctx, userUID)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	res := Result{Basic: stats.ComputeBasic(books), Tier: models.TierFree}
	if tier != models.TierPremium {
		return res, nil
	}

	st, err := s.settings.StreakSettings(ctx, userUID)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	premium := stats.ComputePremium(books, calendar.InContext(ctx, s.now()), st.ExcludedWeekdays())
	res.Premium = &premium
	res.Tier = models.TierPremium
	return res, nil
}
