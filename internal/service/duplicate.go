package service

import (
	"time"

	"github.com/iammusic/submissions/internal/model"
)

// IsDuplicate reports whether candidate repeats latest within window.
// Only the single most recent record is considered; an identical
// submission behind someone else's is not caught.
func IsDuplicate(now time.Time, candidate model.Draft, latest *model.Submission, window time.Duration) bool {
	if latest == nil {
		return false
	}
	if now.Sub(latest.Timestamp) >= window {
		return false
	}
	return candidate.Text == latest.Text &&
		model.EqualOptional(candidate.IP, latest.IP) &&
		model.EqualOptional(candidate.OS, latest.OS)
}
