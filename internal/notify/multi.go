package notify

import "github.com/betbot/wfmtrader/internal/ports"

// Multi forwards every notification to each non-nil sink.
type Multi []ports.Notifier

func (m Multi) Notify(message string, ping bool) {
	for _, n := range m {
		if n != nil {
			n.Notify(message, ping)
		}
	}
}

// Log records notifications in the application log.
type Log struct{}

func (Log) Notify(message string, ping bool) {
	log.WithField("ping", ping).Info(message)
}
