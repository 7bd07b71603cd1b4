package monitor

import (
	"mcstatusbot/internal/mcserver"
	kit "mcstatusbot/internal/transport"
)

// FetchResult is either a snapshot or an unreachable error.
type FetchResult struct {
	Snapshot mcserver.Snapshot
	Err      error
}

// Classify maps a fetch outcome to a presence. It is pure: equal inputs give
// equal outputs. A malformed marker skips the maintenance check and is
// returned as the diagnostic so the caller can log it.
func Classify(res FetchResult, marker any) (Presence, error) {
	if res.Err != nil {
		return Presence{Status: kit.PresenceOffline, Text: TextOffline}, nil
	}

	m, diag := ResolveMarker(marker)
	if diag == nil && DetectMaintenance(res.Snapshot.Description, m) {
		return Presence{Status: kit.PresenceDoNotDisturb, Text: TextMaintenance}, nil
	}

	snap := res.Snapshot
	status := kit.PresenceOnline
	if snap.PlayersOnline == snap.PlayersMax {
		status = kit.PresenceIdle
	}
	return Presence{Status: status, Text: playersText(snap.PlayersOnline, snap.PlayersMax)}, diag
}
