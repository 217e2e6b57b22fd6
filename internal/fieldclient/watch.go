package fieldclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/parks-gardens/fieldops-api/internal/notify"
	"golang.org/x/net/websocket"
)

// Watch connects to the notification socket and calls fn for every frame
// until ctx is done, the server hangs up, or fn returns an error. Extra
// rooms are joined after the default ones.
func (c *Client) Watch(ctx context.Context, rooms []string, fn func(notify.Frame) error) error {
	if c.token == "" {
		return ErrNotLoggedIn
	}

	wsURL, err := c.socketURL()
	if err != nil {
		return err
	}
	cfg, err := websocket.NewConfig(wsURL, c.baseURL)
	if err != nil {
		return fmt.Errorf("websocket config: %w", err)
	}
	conn, err := cfg.DialContext(ctx)
	if err != nil {
		return fmt.Errorf("dial %s: %w", cfg.Location.Host, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for _, room := range rooms {
		if err := websocket.JSON.Send(conn, notify.Frame{Type: notify.FrameJoinRoom, Room: room}); err != nil {
			return fmt.Errorf("join %s: %w", room, err)
		}
	}

	decoder := json.NewDecoder(conn)
	for {
		var frame notify.Frame
		if err := decoder.Decode(&frame); err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}
		if err := fn(frame); err != nil {
			return err
		}
	}
}

func (c *Client) socketURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	u.RawQuery = url.Values{"token": {c.token}}.Encode()
	return u.String(), nil
}
