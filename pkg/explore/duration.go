package explore

import (
	"fmt"
	"strings"
)

// HistoryDuration is the time range of a chart.
type HistoryDuration string

const (
	DurationFiveMinute HistoryDuration = "FIVE_MINUTE"
	DurationHour       HistoryDuration = "HOUR"
	DurationDay        HistoryDuration = "DAY"
	DurationWeek       HistoryDuration = "WEEK"
	DurationMonth      HistoryDuration = "MONTH"
	DurationYear       HistoryDuration = "YEAR"
	DurationMax        HistoryDuration = "MAX"
)

// ParseHistoryDuration parses a duration name case-insensitively.
func ParseHistoryDuration(s string) (HistoryDuration, error) {
	d := HistoryDuration(strings.ToUpper(strings.TrimSpace(s)))
	switch d {
	case DurationFiveMinute, DurationHour, DurationDay, DurationWeek, DurationMonth, DurationYear, DurationMax:
		return d, nil
	}
	return "", fmt.Errorf("unknown history duration %q", s)
}

// Bucket sizes for volume series.
var volumeIntervals = map[HistoryDuration]string{
	DurationHour:  "5 minute",
	DurationDay:   "1 hour",
	DurationWeek:  "6 hour",
	DurationMonth: "1 day",
	DurationYear:  "1 week",
}

// Bucket sizes for price series.
var priceIntervals = map[HistoryDuration]string{
	DurationHour:  "1 minute",
	DurationDay:   "1 hour",
	DurationWeek:  "1 hour",
	DurationMonth: "4 hour",
	DurationYear:  "1 day",
}

var durationNames = map[HistoryDuration]string{
	DurationHour:  "hour",
	DurationDay:   "day",
	DurationWeek:  "week",
	DurationMonth: "month",
	DurationYear:  "year",
}

// SeriesWindow is the (interval, duration) pair sent to the analytics backend.
type SeriesWindow struct {
	Interval string
	Duration string
}

func lookupWindow(intervals map[HistoryDuration]string, d HistoryDuration) (SeriesWindow, bool) {
	interval, ok := intervals[d]
	if !ok {
		return SeriesWindow{}, false
	}
	return SeriesWindow{Interval: interval, Duration: durationNames[d]}, true
}

// VolumeWindow maps a duration to the volume series window. FIVE_MINUTE and
// MAX have no window.
func VolumeWindow(d HistoryDuration) (SeriesWindow, bool) {
	return lookupWindow(volumeIntervals, d)
}

// PriceWindow maps a duration to the price series window. FIVE_MINUTE and
// MAX have no window.
func PriceWindow(d HistoryDuration) (SeriesWindow, bool) {
	return lookupWindow(priceIntervals, d)
}

// ProtocolVolumeWindow is the window of the protocol-wide volume chart.
type ProtocolVolumeWindow struct {
	Interval string
	Duration string
	AllTime  bool
}

var protocolVolumeWindows = map[HistoryDuration]ProtocolVolumeWindow{
	DurationMonth: {Interval: "day", Duration: "month"},
	DurationYear:  {Interval: "week", Duration: "year"},
	DurationMax:   {Interval: "month", AllTime: true},
}

// ProtocolVolumeWindowFor maps a duration to the protocol volume window. Only
// MONTH, YEAR and MAX are supported.
func ProtocolVolumeWindowFor(d HistoryDuration) (ProtocolVolumeWindow, bool) {
	w, ok := protocolVolumeWindows[d]
	return w, ok
}
