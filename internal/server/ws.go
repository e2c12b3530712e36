package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"nhooyr.io/websocket"
)

// handleWS pushes the same state events as handleEvents over a websocket.
// Incoming messages are ignored.
func handleWS(game *Game, broker *Broker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		ctx := conn.CloseRead(r.Context())

		ch := broker.Subscribe()
		defer broker.Unsubscribe(ch)

		s, err := game.State(ctx)
		if err != nil {
			conn.Close(websocket.StatusInternalError, ErrUnavailable.Error())
			return
		}
		initial, _ := json.Marshal(StateEvent{Type: "state", State: s.Public()})
		if err := writeWS(ctx, conn, initial); err != nil {
			logger.Debug("websocket write failed", "error", err)
			return
		}

		for {
			select {
			case <-ctx.Done():
				conn.Close(websocket.StatusNormalClosure, "")
				return
			case data := <-ch:
				if err := writeWS(ctx, conn, data); err != nil {
					logger.Debug("websocket write failed", "error", err)
					return
				}
			}
		}
	}
}

func writeWS(ctx context.Context, conn *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}
