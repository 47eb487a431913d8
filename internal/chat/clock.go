package chat

import "time"

// TimeLayout renders server time as a wall-clock string such as "3:45:12 PM".
// The result is for display only and does not sort across days or zones.
const TimeLayout = "3:04:05 PM"

// Clock formats the current time for chat messages.
type Clock func() string

// LocalClock returns a Clock reporting time in loc; nil means time.Local.
func LocalClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return func() string {
		return time.Now().In(loc).Format(TimeLayout)
	}
}
