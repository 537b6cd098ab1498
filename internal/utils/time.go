package utils

import "time"

// Now returns the current UTC time. All persisted timestamps go through this.
func Now() time.Time {
	return time.Now().UTC()
}
