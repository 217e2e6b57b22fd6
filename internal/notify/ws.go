package notify

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/parks-gardens/fieldops-api/internal/auth"
	"golang.org/x/net/websocket"
)

const maxDecodeErrorsPerConn = 5

// TokenParser validates bearer tokens.
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

type wsError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewWSHandler serves the notification websocket. The token comes from the
// token query parameter or the Authorization header. On connect the peer
// joins its own user room, and the supervisors room for supervisory roles.
func NewWSHandler(hub *Hub, tokens TokenParser, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		claims, err := tokens.Parse(auth.TokenFromRequest(r, true))
		if err != nil {
			if errors.Is(err, auth.ErrTokenMissing) {
				writeJSONError(w, http.StatusUnauthorized, "TOKEN_MISSING", "Unauthorized")
				return
			}
			logger.Info("websocket unauthorized", "remote", r.RemoteAddr, "err", err)
			writeJSONError(w, http.StatusForbidden, "TOKEN_INVALID", "Invalid or expired token")
			return
		}

		server := websocket.Server{
			// Field devices connect without a browser Origin.
			Handshake: func(*websocket.Config, *http.Request) error { return nil },
			Handler: func(conn *websocket.Conn) {
				serveConn(conn, hub, claims, logger)
			},
		}
		server.ServeHTTP(w, r)
	})
}

func serveConn(conn *websocket.Conn, hub *Hub, claims *auth.Claims, logger *slog.Logger) {
	peer := NewPeer(claims.UserID, claims.Role, conn)
	defer func() {
		hub.LeaveAll(peer)
		_ = peer.Close()
	}()

	join := func(room string) {
		hub.Join(room, peer)
		_ = peer.Send(Frame{Type: FrameJoined, Room: room})
	}
	join(UserRoom(claims.UserID))
	if claims.Role.Supervisory() {
		join(SupervisorRooms()[0])
	}
	logger.Debug("websocket connected", "peer", peer.ID, "user_id", claims.UserID)

	decoder := json.NewDecoder(conn)
	decodeErrors := 0
	for {
		var frame Frame
		if err := decoder.Decode(&frame); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if !errors.As(err, &syntaxErr) && !errors.As(err, &typeErr) {
				if !errors.Is(err, io.EOF) {
					logger.Debug("websocket read failed", "peer", peer.ID, "err", err)
				}
				return
			}
			decodeErrors++
			_ = peer.Send(errorFrame("INVALID_INPUT", "invalid frame"))
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		room := strings.TrimSpace(frame.Room)
		switch frame.Type {
		case FrameJoinRoom:
			if !CanJoin(claims.UserID, claims.Role, room) {
				_ = peer.Send(errorFrame("FORBIDDEN", "cannot join room "+room))
				continue
			}
			join(room)
		case FrameLeaveRoom:
			hub.Leave(room, peer)
			_ = peer.Send(Frame{Type: FrameLeft, Room: room})
		default:
			_ = peer.Send(errorFrame("INVALID_INPUT", "unsupported frame type"))
		}
	}
}

func errorFrame(code, message string) Frame {
	return Frame{Type: FrameError, Code: code, Message: message}
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(wsError{Code: code, Message: message})
}
