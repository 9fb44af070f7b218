package dto

import (
	"time"

	"github.com/Essau-dev/PolleriaMontiel/internal/core/apperror"
)

// DateRangeQuery binds the from/to query parameters shared by the
// report endpoints. Dates accept RFC 3339 or a plain day.
type DateRangeQuery struct {
	From string `form:"from" binding:"required"`
	To   string `form:"to" binding:"required"`
}

// Range parses the bounds. A plain day on the upper bound extends to
// the end of that day so the range stays inclusive.
func (q *DateRangeQuery) Range() (time.Time, time.Time, error) {
	from, _, err := parseDate(q.From, "from")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, toDay, err := parseDate(q.To, "to")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if toDay {
		to = to.Add(24*time.Hour - time.Nanosecond)
	}
	return from, to, nil
}

func parseDate(s, field string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, apperror.NewValidation("invalid date").
		WithDetail("field", field).
		WithDetail("value", s)
}
