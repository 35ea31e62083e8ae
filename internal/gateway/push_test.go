package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type pushScript func(ctx context.Context, conn *websocket.Conn, n int32)

func newPushServer(t *testing.T, script pushScript) (string, *atomic.Int32) {
	t.Helper()
	var conns atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		n := conns.Add(1)
		script(r.Context(), conn, n)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http"), &conns
}

func holdOpen(ctx context.Context, conn *websocket.Conn) {
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
	}
}

// collect reads events until stop returns true or the timeout passes.
func collect(t *testing.T, ch <-chan Event, stop func(Event) bool) []Event {
	t.Helper()
	var out []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
			if stop(ev) {
				return out
			}
		case <-timeout:
			t.Fatalf("timed out; got %d events: %#v", len(out), out)
		}
	}
}

func countStates(events []Event, st ConnState) int {
	n := 0
	for _, ev := range events {
		if c, ok := ev.(EventConnection); ok && c.State == st {
			n++
		}
	}
	return n
}

func TestPushDeliversFramesInOrder(t *testing.T) {
	url, conns := newPushServer(t, func(ctx context.Context, conn *websocket.Conn, _ int32) {
		_ = wsjson.Write(ctx, conn, Frame{Type: "boardUpdated", Board: afterE4})
		_ = wsjson.Write(ctx, conn, Frame{Type: "clearBoard"})
		_ = wsjson.Write(ctx, conn, Frame{Type: "emote", Message: "gg"})
		_ = conn.Close(websocket.StatusPolicyViolation, "removed from lobby")
	})

	p := NewPushChannel(url, 3, 10*time.Millisecond, WithPushLogger(zaptest.NewLogger(t)))
	defer p.Close(context.Background())
	if err := p.Subscribe(context.Background()); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	events := collect(t, p.Events(), func(ev Event) bool {
		c, ok := ev.(EventConnection)
		return ok && c.State == StateUnsubscribed
	})

	var kinds []string
	for _, ev := range events {
		switch e := ev.(type) {
		case EventConnection:
			kinds = append(kinds, "conn:"+string(e.State))
		case EventBoardUpdated:
			kinds = append(kinds, "board")
		case EventCleared:
			kinds = append(kinds, "clear")
		case EventUnknown:
			kinds = append(kinds, "unknown:"+e.Type)
		case EventKicked:
			kinds = append(kinds, "kicked")
		}
	}
	want := []string{"conn:connecting", "conn:subscribed", "board", "clear", "unknown:emote", "kicked", "conn:unsubscribed"}
	if strings.Join(kinds, ",") != strings.Join(want, ",") {
		t.Fatalf("events = %v, want %v", kinds, want)
	}

	time.Sleep(100 * time.Millisecond)
	if got := conns.Load(); got != 1 {
		t.Fatalf("kicked channel must not reconnect, saw %d connections", got)
	}
}

func TestPushReconnectsAfterDrop(t *testing.T) {
	url, conns := newPushServer(t, func(ctx context.Context, conn *websocket.Conn, n int32) {
		if n == 1 {
			_ = conn.Close(websocket.StatusGoingAway, "restart")
			return
		}
		_ = wsjson.Write(ctx, conn, Frame{Type: "boardUpdated", Board: afterE4})
		holdOpen(ctx, conn)
	})

	p := NewPushChannel(url, 5, 10*time.Millisecond, WithPushLogger(zaptest.NewLogger(t)))
	defer p.Close(context.Background())
	if err := p.Subscribe(context.Background()); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	events := collect(t, p.Events(), func(ev Event) bool {
		_, ok := ev.(EventBoardUpdated)
		return ok
	})
	if countStates(events, StateSubscribed) != 2 {
		t.Fatalf("expected two subscribed transitions, got %#v", events)
	}
	if countStates(events, StateReconnecting) != 1 {
		t.Fatalf("expected a reconnecting transition, got %#v", events)
	}
	if conns.Load() != 2 {
		t.Fatalf("expected 2 connections, got %d", conns.Load())
	}
}

func TestPushKickedFrameStopsReconnect(t *testing.T) {
	url, conns := newPushServer(t, func(ctx context.Context, conn *websocket.Conn, _ int32) {
		_ = wsjson.Write(ctx, conn, Frame{Type: "kicked", Message: "host left"})
		holdOpen(ctx, conn)
	})

	p := NewPushChannel(url, 5, 10*time.Millisecond)
	defer p.Close(context.Background())
	if err := p.Subscribe(context.Background()); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	events := collect(t, p.Events(), func(ev Event) bool {
		c, ok := ev.(EventConnection)
		return ok && c.State == StateUnsubscribed
	})
	foundKick := false
	for _, ev := range events {
		if k, ok := ev.(EventKicked); ok && k.Reason == "host left" {
			foundKick = true
		}
	}
	if !foundKick {
		t.Fatalf("expected kicked event, got %#v", events)
	}
	time.Sleep(100 * time.Millisecond)
	if conns.Load() != 1 {
		t.Fatalf("expected no reconnect, got %d connections", conns.Load())
	}
}

func TestPushCloseClosesEvents(t *testing.T) {
	url, _ := newPushServer(t, func(ctx context.Context, conn *websocket.Conn, _ int32) {
		holdOpen(ctx, conn)
	})
	p := NewPushChannel(url, 0, 0)
	if err := p.Subscribe(context.Background()); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	go func() {
		for range p.Events() {
		}
	}()
	if err := p.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
