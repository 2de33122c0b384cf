// Public domain.

package mops

import (
	"fmt"
	"math"
	"strconv"

	"github.com/soniakeys/meeus/v3/julian"
)

// Night buckets an MJD into a calendar night.
func Night(mjd float64) int {
	return int(math.Floor(mjd))
}

// mjdOffset converts between Julian date and modified Julian date.
const mjdOffset = 2400000.5

// NightDate formats a night bucket as a Gregorian calendar date, for
// human-facing diagnostics.
func NightDate(night int) string {
	y, m, d := julian.JDToCalendar(float64(night) + mjdOffset)
	return fmt.Sprintf("%04d-%02d-%02d", y, m, int(d))
}

// ParseEpoch parses a time-valued option as either an MJD number or a
// Gregorian calendar date in YYYY-MM-DD form.
func ParseEpoch(s string) (float64, error) {
	if mjd, err := strconv.ParseFloat(s, 64); err == nil {
		return mjd, nil
	}
	var y, m int
	var d float64
	if _, err := fmt.Sscanf(s, "%d-%d-%f", &y, &m, &d); err != nil || y < 1 || m < 1 || m > 12 {
		return 0, fmt.Errorf("%w: epoch %q: want MJD or YYYY-MM-DD", ErrBadInput, s)
	}
	return julian.CalendarGregorianToJD(y, m, d) - mjdOffset, nil
}
