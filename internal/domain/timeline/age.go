package timeline

import (
	"strconv"
	"time"
)

// Age renders how long ago t was relative to now: "12s", "5m", "3h", "2d".
// Future times render as "0s".
func Age(now, t time.Time) string {
	secs := int64(now.Sub(t) / time.Second)
	switch {
	case secs < 0:
		return "0s"
	case secs < 60:
		return strconv.FormatInt(secs, 10) + "s"
	case secs < 3600:
		return strconv.FormatInt(secs/60, 10) + "m"
	case secs < 86400:
		return strconv.FormatInt(secs/3600, 10) + "h"
	default:
		return strconv.FormatInt(secs/86400, 10) + "d"
	}
}
