package engine

import (
	"time"

	"github.com/leaplabs/leap-server/models"
)

// Clock abstracts "now" so tests can pin the calendar day. All date reads in
// the engines go through it.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }

// FixedClock always reports the given instant. Test helper.
type FixedClock struct {
	Instant time.Time
}

func (c FixedClock) Now() time.Time { return c.Instant }

// today returns the clock's calendar date.
func today(c Clock) models.Date {
	return models.DateOf(c.Now())
}
