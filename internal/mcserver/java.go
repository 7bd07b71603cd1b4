package mcserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Tnze/go-mc/bot"
)

type javaClient struct {
	*resolver
}

// statusJSON is the Server List Ping reply. description stays raw so it can
// be any chat component form.
type statusJSON struct {
	Version struct {
		Name     string `json:"name"`
		Protocol int    `json:"protocol"`
	} `json:"version"`
	Players struct {
		Max    int `json:"max"`
		Online int `json:"online"`
	} `json:"players"`
	Description json.RawMessage `json:"description"`
}

func (c *javaClient) Ping(ctx context.Context, ep Endpoint) (Snapshot, error) {
	raw, _, err := bot.PingAndListContext(ctx, ep.String())
	if err != nil {
		return Snapshot{}, err
	}
	return parseJavaStatus(raw)
}

func parseJavaStatus(raw []byte) (Snapshot, error) {
	var st statusJSON
	if err := json.Unmarshal(raw, &st); err != nil {
		return Snapshot{}, fmt.Errorf("malformed status reply: %w", err)
	}
	return Snapshot{
		PlayersOnline: st.Players.Online,
		PlayersMax:    st.Players.Max,
		Description:   ParseRichText(st.Description),
		Version:       st.Version.Name,
	}, nil
}

func (c *javaClient) Query(ctx context.Context, ep Endpoint) ([]string, error) {
	return fullQueryPlayers(ctx, ep)
}
