package interactions

import (
	"time"

	"github.com/pathlight/pathlight/pkg/models"
)

// Segment derives sessions from a chronologically ordered interaction log
// using the idle-gap rule: a new session starts when the gap since the
// current session's last activity exceeds idleGap.
func Segment(log []models.Interaction, idleGap time.Duration) []models.Session {
	if len(log) == 0 {
		return nil
	}
	if idleGap <= 0 {
		idleGap = models.DefaultAnalysisConfig().SessionGap
	}

	var sessions []models.Session
	var current *models.Session

	for _, entry := range log {
		if current == nil || entry.Timestamp.Sub(current.LastActivity) > idleGap {
			sessions = append(sessions, models.Session{
				StartTime:    entry.Timestamp,
				EndTime:      entry.Timestamp,
				LastActivity: entry.Timestamp,
				Interactions: []models.Interaction{entry},
			})
			current = &sessions[len(sessions)-1]
			continue
		}

		current.EndTime = entry.Timestamp
		current.LastActivity = entry.Timestamp
		current.Interactions = append(current.Interactions, entry)
		current.Duration = current.EndTime.Sub(current.StartTime)
	}

	return sessions
}

// AverageSessionTime returns the mean session duration, zero when there
// are no sessions.
func AverageSessionTime(sessions []models.Session) time.Duration {
	if len(sessions) == 0 {
		return 0
	}
	var total time.Duration
	for _, s := range sessions {
		total += s.Duration
	}
	return total / time.Duration(len(sessions))
}
