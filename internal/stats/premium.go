package stats

import (
	"time"

	"github.com/magabrotheeeer/book-collection/internal/models"
)

// Premium is the statistics block reserved for premium subscribers.
type Premium struct {
	CurrentStreak         int             `json:"current_streak"`
	LongestStreak         int             `json:"longest_streak"`
	ReadingSpeed          int             `json:"reading_speed"`
	Velocity              float64         `json:"velocity"`
	CompletionRate        int             `json:"completion_rate"`
	InProgress            int             `json:"in_progress"`
	AverageReadingDays    int             `json:"average_reading_days"`
	AverageCompletionDays int             `json:"average_completion_days"`
	PeakSeason            Season          `json:"peak_season"`
	BestSprint            Sprint          `json:"best_sprint"`
	PreferredDays         string          `json:"preferred_days"`
	MonthlyProgress       []MonthProgress `json:"monthly_progress"`
	GenreVariety          int             `json:"genre_variety"`
	BestRatedGenre        GenreRating     `json:"best_rated_genre"`
	GenreDistribution     []GenreCount    `json:"genre_distribution"`
	PagesByGenre          []GenreCount    `json:"pages_by_genre"`
	RatingDistribution    []RatingBucket  `json:"rating_distribution"`
	AveragePages          int             `json:"average_pages"`
	LongestBook           *BookRef        `json:"longest_book"`
	ShortestBook          *BookRef        `json:"shortest_book"`
	FastestRead           *FastRead       `json:"fastest_read"`
}

// ComputePremium returns the premium statistics of books at now. Weekdays in
// excluded never break a reading streak.
func ComputePremium(books []models.Book, now time.Time, excluded map[time.Weekday]bool) Premium {
	return Premium{
		CurrentStreak:         CurrentStreak(books, now, excluded),
		LongestStreak:         LongestStreak(books, now, excluded),
		ReadingSpeed:          ReadingSpeed(books, now),
		Velocity:              Velocity(books, now),
		CompletionRate:        CompletionRate(books, now),
		InProgress:            InProgress(books),
		AverageReadingDays:    AverageReadingDays(books),
		AverageCompletionDays: AverageCompletionDays(books, now),
		PeakSeason:            PeakSeason(books, now),
		BestSprint:            BestSprint(books),
		PreferredDays:         PreferredDays(books, now),
		MonthlyProgress:       MonthlyProgress(books, now),
		GenreVariety:          GenreVariety(books),
		BestRatedGenre:        BestRatedGenre(books),
		GenreDistribution:     GenreDistribution(books),
		PagesByGenre:          PagesByGenre(books),
		RatingDistribution:    RatingDistribution(books),
		AveragePages:          AveragePages(books),
		LongestBook:           LongestBook(books),
		ShortestBook:          ShortestBook(books),
		FastestRead:           FastestRead(books),
	}
}
