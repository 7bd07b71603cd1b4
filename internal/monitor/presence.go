// Package monitor turns game-server status into chat presence: it fetches
// the status off the control loop, classifies it, debounces the result and
// pushes it on a fixed schedule or on demand.
package monitor

import (
	"fmt"

	kit "mcstatusbot/internal/transport"
)

const (
	TextOffline     = "offline"
	TextMaintenance = "under maintenance"
)

// Presence is one candidate presence update.
type Presence struct {
	Status kit.PresenceStatus
	Text   string
}

func (p Presence) String() string { return fmt.Sprintf("%s: %s", p.Status, p.Text) }

func playersText(online, max int) string {
	return fmt.Sprintf("%d/%d online", online, max)
}
