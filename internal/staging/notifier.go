package staging

import (
	"github.com/sirupsen/logrus"

	"inbox-autopilot-go/internal/model"
)

// Notifier receives stage/rescue events after the store write commits. The
// pipeline dispatches on a separate goroutine; implementations may block
// without affecting the transactional outcome.
type Notifier interface {
	StagedCreated(staged *model.StagedAction)
	StagedRescued(staged *model.StagedAction)
}

// LogNotifier writes notification events to the log. It stands in for a
// real push channel in deployments without one.
type LogNotifier struct{}

func (LogNotifier) StagedCreated(staged *model.StagedAction) {
	logrus.WithFields(logrus.Fields{
		"staged_id":  staged.ID,
		"user_id":    staged.UserID,
		"expires_at": staged.ExpiresAt,
	}).Info("Notification: action staged")
}

func (LogNotifier) StagedRescued(staged *model.StagedAction) {
	logrus.WithFields(logrus.Fields{
		"staged_id": staged.ID,
		"user_id":   staged.UserID,
	}).Info("Notification: staged action rescued")
}
