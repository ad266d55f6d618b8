package eelog

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/betbot/wfmtrader/internal/events"
	"github.com/betbot/wfmtrader/internal/ports"
)

// The client opens a private chat tab whose channel name is "F" + player.
var conversationRe = regexp.MustCompile(`ChatRedux::AddTab: Adding tab with channel name: F(\S+?)(?: to index|\s|$)`)

// ConversationDetector reports new whisper conversations.
type ConversationDetector struct {
	notifier ports.Notifier
	events   ports.EventPublisher
	ping     bool
	now      func() time.Time
}

func NewConversationDetector(notifier ports.Notifier, pub ports.EventPublisher, ping bool) *ConversationDetector {
	return &ConversationDetector{notifier: notifier, events: pub, ping: ping, now: time.Now}
}

func (d *ConversationDetector) Name() string { return "conversation" }

func (d *ConversationDetector) Detect(_ context.Context, index int64, line string) (bool, error) {
	m := conversationRe.FindStringSubmatch(line)
	if m == nil {
		return false, nil
	}
	player := m[1]
	log.Infof("new conversation with %s (line %d)", player, index)
	if d.notifier != nil {
		d.notifier.Notify(fmt.Sprintf("New conversation with %s", player), d.ping)
	}
	if d.events != nil {
		d.events.Publish(events.KindConversation, events.ConversationEvent{
			Player: player, LineIndex: index, Timestamp: d.now(),
		})
	}
	return true, nil
}
