package models

import "time"

// Goal intervals.
const (
	IntervalDaily   = "daily"
	IntervalWeekly  = "weekly"
	IntervalMonthly = "monthly"
	IntervalYearly  = "yearly"
)

// DefaultInterval is used when a user has no streak settings.
const DefaultInterval = IntervalYearly

// IsInterval reports whether s names a supported goal interval.
func IsInterval(s string) bool {
	switch s {
	case IntervalDaily, IntervalWeekly, IntervalMonthly, IntervalYearly:
		return true
	}
	return false
}

// StreakSettings holds per-user streak and goal preferences.
// ExcludedDays are weekdays (0 = Sunday) that never break a streak.
type StreakSettings struct {
	ID           int64     `json:"id"`
	UserUID      string    `json:"auth0_id"`
	ExcludedDays []int     `json:"excluded_days"`
	GoalInterval string    `json:"goal_interval"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ExcludedWeekdays converts ExcludedDays into a lookup set.
func (s StreakSettings) ExcludedWeekdays() map[time.Weekday]bool {
	set := make(map[time.Weekday]bool, len(s.ExcludedDays))
	for _, d := range s.ExcludedDays {
		set[time.Weekday(d)] = true
	}
	return set
}

// StreakSettingsInput is the payload of POST /api/user/streak-settings.
type StreakSettingsInput struct {
	ExcludedDays []int  `json:"excluded_days" validate:"max=7,dive,min=0,max=6"`
	GoalInterval string `json:"goal_interval" validate:"omitempty,interval"`
}

// GoalHistory records how a goal interval ended up.
type GoalHistory struct {
	ID           int64     `json:"id"`
	UserUID      string    `json:"auth0_id"`
	Interval     string    `json:"interval"`
	Target       int       `json:"target"`
	Achieved     int       `json:"achieved"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	WasCompleted bool      `json:"was_completed"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// GoalHistoryInput is the payload of POST /api/user/goal-history.
type GoalHistoryInput struct {
	Interval  string    `json:"interval" validate:"required,interval"`
	Target    int       `json:"target" validate:"min=0"`
	Achieved  int       `json:"achieved" validate:"min=0"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
}

// GoalStats aggregates a user's goal history.
type GoalStats struct {
	CurrentGoalStreak  int        `json:"current_goal_streak"`
	LongestGoalStreak  int        `json:"longest_goal_streak"`
	TotalGoalsSet      int        `json:"total_goals_set"`
	TotalGoalsMet      int        `json:"total_goals_met"`
	GoalCompletionRate float64    `json:"goal_completion_rate"`
	AverageOvershoot   float64    `json:"average_overshoot"`
	BestInterval       string     `json:"best_interval"`
	LastGoalMet        *time.Time `json:"last_goal_met"`
}

// GoalProgress describes progress inside the current goal interval.
type GoalProgress struct {
	Interval        string    `json:"interval"`
	Target          int       `json:"target"`
	BooksRead       int       `json:"books_read"`
	PercentComplete float64   `json:"percent_complete"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
}
