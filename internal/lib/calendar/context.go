package calendar

import (
	"context"
	"time"
)

type locationKey struct{}

// WithLocation returns a copy of ctx carrying the caller's time zone.
func WithLocation(ctx context.Context, loc *time.Location) context.Context {
	return context.WithValue(ctx, locationKey{}, loc)
}

// LocationFrom returns the time zone stored by WithLocation, or time.Local.
func LocationFrom(ctx context.Context) *time.Location {
	if loc, ok := ctx.Value(locationKey{}).(*time.Location); ok && loc != nil {
		return loc
	}
	return time.Local
}

// InContext returns t in the time zone carried by ctx. Without one t is
// returned unchanged.
func InContext(ctx context.Context, t time.Time) time.Time {
	if loc, ok := ctx.Value(locationKey{}).(*time.Location); ok && loc != nil {
		return t.In(loc)
	}
	return t
}
