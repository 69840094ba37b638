package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/lol-champ-roulette/internal/hub"
	"github.com/DoyleJ11/lol-champ-roulette/internal/lobby"
	"github.com/DoyleJ11/lol-champ-roulette/internal/types"
)

var errLobbyClosed = errors.New("lobby closed")

// Handler streams every roll in a lobby to the socket and accepts {"type":"Reroll"}.
// The socket is closed with StatusGoingAway once the lobby stops sending.
func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		reply := make(chan *lobby.Lobby, 1)
		h.Inbox() <- hub.GetLobby{Code: code, Reply: reply}
		lb := <-reply
		if lb == nil {
			http.Error(w, "lobby not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			log.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan lobby.Snapshot, 8)
		clientID := uuid.NewString()
		log := log.With(zap.String("lobby", code), zap.String("client", clientID))

		select {
		case lb.Inbox() <- lobby.Join{ClientID: clientID, Outbox: out}:
		case <-lb.Done():
			conn.Close(websocket.StatusGoingAway, errLobbyClosed.Error())
			return
		}
		defer func() {
			select {
			case lb.Inbox() <- lobby.Leave{ClientID: clientID}:
			case <-lb.Done():
			}
		}()

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				select {
				case snap, ok := <-out:
					if !ok {
						// closed by Leave on our way out, or by the lobby shutting down or dropping us
						if writeCtx.Err() == nil {
							log.Debug("lobby stopped sending, closing socket")
							conn.Close(websocket.StatusGoingAway, errLobbyClosed.Error())
						}
						return
					}
					write(writeCtx, conn, types.RollResult(code, snap))
				case <-writeCtx.Done():
					return
				}
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debug("websocket read ended", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				write(r.Context(), conn, types.ServerMessage{Type: "Error", Error: "bad json"})
				continue
			}

			switch cm.Type {
			case "Reroll":
				res, err := requestRoll(r.Context(), lb)
				if errors.Is(err, errLobbyClosed) {
					conn.Close(websocket.StatusGoingAway, errLobbyClosed.Error())
					return
				}
				if err != nil {
					return
				}
				// success arrives through the broadcast; only failures go back directly
				if res.Err != nil {
					write(r.Context(), conn, types.ErrorMessage(res.Err))
				}
			default:
				write(r.Context(), conn, types.ServerMessage{Type: "Error", Error: "unknown type"})
			}
		}
	}
}

// requestRoll asks lb for a roll, giving up if the lobby shuts down or ctx ends first.
func requestRoll(ctx context.Context, lb *lobby.Lobby) (lobby.RollReply, error) {
	rr := make(chan lobby.RollReply, 1)
	select {
	case lb.Inbox() <- lobby.Roll{Reply: rr}:
	case <-lb.Done():
		return lobby.RollReply{}, errLobbyClosed
	case <-ctx.Done():
		return lobby.RollReply{}, ctx.Err()
	}

	select {
	case res := <-rr:
		return res, nil
	case <-lb.Done():
		return lobby.RollReply{}, errLobbyClosed
	case <-ctx.Done():
		return lobby.RollReply{}, ctx.Err()
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) {
	payload, _ := json.Marshal(msg)
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_ = conn.Write(ctx, websocket.MessageText, payload)
}
