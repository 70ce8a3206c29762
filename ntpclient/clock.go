package ntpclient

import (
	"fmt"
	"regexp"
	"strconv"
)

// Local reference clocks use the pseudo address 127.127.<type>.<unit>
var localClock = regexp.MustCompile(`^127\.127\.(\d{1,3})\.(\d{1,3})$`)

func clockParts(address string) (clockType, unit int, ok bool) {
	m := localClock.FindStringSubmatch(address)
	if m == nil {
		return 0, 0, false
	}
	clockType, _ = strconv.Atoi(m[1])
	unit, _ = strconv.Atoi(m[2])
	if clockType > 255 || unit > 255 {
		return 0, 0, false
	}
	return clockType, unit, true
}

// IsLocalClock reports whether address names a reference clock driver
func IsLocalClock(address string) bool {
	_, _, ok := clockParts(address)
	return ok
}

// ClockType returns the driver number of a clock address
func ClockType(address string) (int, bool) {
	t, _, ok := clockParts(address)
	return t, ok
}

// ClockUnit returns the unit number of a clock address
func ClockUnit(address string) (int, bool) {
	_, u, ok := clockParts(address)
	return u, ok
}

// ClockAddress builds the pseudo address of a driver and unit
func ClockAddress(clockType, unit int) string {
	return fmt.Sprintf("127.127.%d.%d", clockType, unit)
}
