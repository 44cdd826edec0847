package schema

import (
	"time"

	"github.com/advelops/adcp-salesagent/internal/apperr"
)

// ParseTimezoneAware parses an RFC3339 datetime string and rejects naive
// (no offset / no "Z") values. start_time additionally admits the literal
// "asap", which callers must check for before calling this function.
func ParseTimezoneAware(field, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, apperr.Validation("%s must be a timezone-aware RFC3339 datetime: %v", field, err)
	}
	if _, offset := t.Zone(); offset == 0 && !hasExplicitUTCDesignator(value) {
		return time.Time{}, apperr.Validation("%s must carry an explicit UTC offset or 'Z' designator", field)
	}
	return t, nil
}

func hasExplicitUTCDesignator(value string) bool {
	for _, suffix := range []string{"Z", "+00:00", "-00:00"} {
		if len(value) >= len(suffix) && value[len(value)-len(suffix):] == suffix {
			return true
		}
	}
	return false
}
