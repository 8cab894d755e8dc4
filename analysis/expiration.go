package analysis

import (
	"errors"
	"time"
)

// ErrNoExpirations is returned when there is nothing to match against
var ErrNoExpirations = errors.New("no expirations available")

// marketCloseHour anchors a calendar date to the U.S. market close
const marketCloseHour = 16

// ClosestExpiration returns the available expiration nearest to 16:00 on the
// target's calendar date in loc (time.Local when nil). The earliest entry wins
// ties.
func ClosestExpiration(available []int64, target time.Time, loc *time.Location) (int64, error) {
	if len(available) == 0 {
		return 0, ErrNoExpirations
	}
	if loc == nil {
		loc = time.Local
	}

	y, m, d := target.Date()
	anchor := time.Date(y, m, d, marketCloseHour, 0, 0, 0, loc).Unix()

	best := available[0]
	bestDist := absInt64(best - anchor)
	for _, ts := range available[1:] {
		if dist := absInt64(ts - anchor); dist < bestDist {
			best, bestDist = ts, dist
		}
	}
	return best, nil
}

// UpcomingFridays returns n consecutive Fridays starting on or after from's date
func UpcomingFridays(from time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	y, m, d := from.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, from.Location())

	offset := (int(time.Friday) - int(day.Weekday()) + 7) % 7
	next := day.AddDate(0, 0, offset)

	fridays := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		fridays = append(fridays, next.AddDate(0, 0, 7*i))
	}
	return fridays
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
