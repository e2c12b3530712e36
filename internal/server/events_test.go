package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
)

// readSSE returns the data payload of the next SSE event, skipping comments.
func readSSE(t *testing.T, rd *bufio.Reader) StateEvent {
	t.Helper()
	var data string
	for {
		line, err := rd.ReadString('\n')
		if err != nil {
			t.Fatalf("reading stream: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && data != "":
			var ev StateEvent
			if err := json.Unmarshal([]byte(data), &ev); err != nil {
				t.Fatalf("decoding event %q: %v", data, err)
			}
			return ev
		}
	}
}

func TestEventsStream(t *testing.T) {
	env := newTestEnv(t, NewMemoryStore(testRules()))
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type = %q", ct)
	}
	rd := bufio.NewReader(resp.Body)

	first := readSSE(t, rd)
	if first.Type != "state" || len(first.State.Boxes) != 18 {
		t.Fatalf("first event = %+v", first)
	}

	if _, err := env.game.Draw(ctx, "Thành", 6); err != nil {
		t.Fatalf("draw: %v", err)
	}

	ev := readSSE(t, rd)
	if ev.Type != eventDraw || ev.Member != "Thành" || ev.BoxID != 6 {
		t.Errorf("draw event = %+v", ev)
	}
	if v, ok := ev.State.Result("Thành"); !ok || v != 20000 {
		t.Errorf("event state result = %d/%v", v, ok)
	}
}

func TestWSStream(t *testing.T) {
	env := newTestEnv(t, NewMemoryStore(testRules()))
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + srv.URL[len("http"):] + "/api/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	read := func() StateEvent {
		t.Helper()
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var ev StateEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("decoding: %v", err)
		}
		return ev
	}

	if first := read(); first.Type != "state" || first.State.DrawCount() != 0 {
		t.Fatalf("first message = %+v", first)
	}

	if _, err := env.game.Draw(ctx, "Ánh", 17); err != nil {
		t.Fatalf("draw: %v", err)
	}
	if ev := read(); ev.Type != eventDraw || ev.BoxID != 17 {
		t.Errorf("draw message = %+v", ev)
	}

	if _, err := env.game.Reset(ctx, testResetPIN, "RESET"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if ev := read(); ev.Type != eventReset || ev.State.DrawCount() != 0 {
		t.Errorf("reset message = %+v", ev)
	}

	conn.Close(websocket.StatusNormalClosure, "done")
}

func TestBrokerFanOut(t *testing.T) {
	b := NewBroker()
	a, c := b.Subscribe(), b.Subscribe()
	defer b.Unsubscribe(c)

	b.Publish(context.Background(), StateEvent{Type: eventReset})
	for _, ch := range []chan []byte{a, c} {
		select {
		case data := <-ch:
			if !strings.Contains(string(data), `"type":"reset"`) {
				t.Errorf("payload = %s", data)
			}
		default:
			t.Error("subscriber got nothing")
		}
	}

	b.Unsubscribe(a)
	b.Publish(context.Background(), StateEvent{Type: eventReset})
	select {
	case <-a:
		t.Error("unsubscribed channel still receives")
	default:
	}
}
