package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Workbook date serials accepted in a date column, 1954 to 2119.
const (
	minDateSerial = 20000
	maxDateSerial = 80000
)

// joinDateTime builds one timestamp from a date cell and a time cell.
// Workbook cells arrive as raw serials: a day number for the date and a
// day fraction for the time. Text cells are joined with a space.
func joinDateTime(date, clock string) string {
	d, dateIsSerial := serial(date)
	dateIsSerial = dateIsSerial && d >= minDateSerial && d <= maxDateSerial
	c, clockIsFraction := serial(clock)
	clockIsFraction = clockIsFraction && c >= 0 && c < 1

	if dateIsSerial && clockIsFraction {
		return strconv.FormatFloat(math.Floor(d)+c, 'f', -1, 64)
	}
	if dateIsSerial {
		if t, err := excelize.ExcelDateToTime(math.Floor(d), false); err == nil {
			date = t.Format(time.DateOnly)
		}
	}
	if clockIsFraction {
		clock = clockFromFraction(c)
	}
	return strings.TrimSpace(date + " " + clock)
}

func serial(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

func clockFromFraction(f float64) string {
	secs := int(math.Round(f * 86400))
	if secs >= 86400 {
		secs = 86399
	}
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
}
