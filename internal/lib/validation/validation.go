// Package validation builds the request validator shared by HTTP handlers
// and registers the domain-specific tags used in models.
package validation

import (
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/book-collection/internal/models"
)

// Custom tags.
const (
	TagGenre              = "genre"
	TagHalfStep           = "halfstep"
	TagInterval           = "interval"
	TagFinishedAfterStart = "finishedafterstart"
)

// New returns a validator that reports json field names and knows the
// custom tags.
func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	// registration only fails on an empty tag
	_ = v.RegisterValidation(TagGenre, isGenre)
	_ = v.RegisterValidation(TagHalfStep, isHalfStep)
	_ = v.RegisterValidation(TagInterval, isInterval)
	_ = v.RegisterValidation(TagFinishedAfterStart, finishedAfterStart)
	return v
}

func isGenre(fl validator.FieldLevel) bool {
	return models.IsGenre(fl.Field().String())
}

func isInterval(fl validator.FieldLevel) bool {
	return models.IsInterval(fl.Field().String())
}

// isHalfStep accepts multiples of 0.5.
func isHalfStep(fl validator.FieldLevel) bool {
	f := fl.Field()
	switch f.Kind() {
	case reflect.Float32, reflect.Float64:
		v := f.Float()
		return math.Mod(v*2, 1) == 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

// finishedAfterStart compares the field with the sibling StartedAt field.
// A missing start date always passes.
func finishedAfterStart(fl validator.FieldLevel) bool {
	finished, ok := fl.Field().Interface().(time.Time)
	if !ok {
		return false
	}

	parent := fl.Parent()
	if parent.Kind() == reflect.Ptr {
		parent = parent.Elem()
	}
	if parent.Kind() != reflect.Struct {
		return true
	}

	started := parent.FieldByName("StartedAt")
	if !started.IsValid() {
		return true
	}
	if started.Kind() == reflect.Ptr {
		if started.IsNil() {
			return true
		}
		started = started.Elem()
	}
	s, ok := started.Interface().(time.Time)
	if !ok {
		return true
	}
	return !finished.Before(s)
}
