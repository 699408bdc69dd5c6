package catalog

import (
	"time"

	"archivarr/internal/domain/consts"
)

// CutoffFor converts a time filter into a publish-date lower bound.
// The zero time means unbounded.
func CutoffFor(filter consts.TimeFilter, now time.Time) time.Time {
	switch filter {
	case consts.TimeFilterWeek:
		return now.AddDate(0, 0, -7)
	case consts.TimeFilterMonth:
		return now.AddDate(0, 0, -30)
	case consts.TimeFilterYear:
		return now.AddDate(0, 0, -365)
	default:
		return time.Time{}
	}
}

// InWindow reports whether a publish date passes the cutoff. An
// unparsed (zero) publish date always passes so unknown items are not
// silently skipped.
func InWindow(uploadDate, cutoff time.Time) bool {
	if cutoff.IsZero() || uploadDate.IsZero() {
		return true
	}
	return !uploadDate.Before(cutoff)
}
