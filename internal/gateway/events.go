package gateway

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ConnState is the push channel's connection state.
type ConnState string

const (
	StateConnecting   ConnState = "connecting"
	StateSubscribed   ConnState = "subscribed"
	StateUnsubscribed ConnState = "unsubscribed"
	StateReconnecting ConnState = "reconnecting"
	StateFailed       ConnState = "failed"
)

// Event is one inbound push notification.
type Event interface{ isEvent() }

type EventBoardUpdated struct{ Board string }

type EventCleared struct{}

type EventConnection struct{ State ConnState }

type EventKicked struct{ Reason string }

type EventError struct{ Err error }

// EventUnknown carries frames the client does not understand yet.
type EventUnknown struct {
	Type string
	Raw  json.RawMessage
}

func (EventBoardUpdated) isEvent() {}
func (EventCleared) isEvent()      {}
func (EventConnection) isEvent()   {}
func (EventKicked) isEvent()       {}
func (EventError) isEvent()        {}
func (EventUnknown) isEvent()      {}

// Frame is the wire envelope of a push message.
type Frame struct {
	Type    string `json:"type"`
	Board   string `json:"board,omitempty"`
	Message string `json:"message,omitempty"`
}

const (
	frameBoardUpdated = "boardUpdated"
	frameClearBoard   = "clearBoard"
	frameKicked       = "kicked"
	frameError        = "error"
)

// ParseFrame maps a raw frame to an Event. It never fails: anything it cannot
// read becomes EventUnknown.
func ParseFrame(raw []byte) Event {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return EventUnknown{Raw: append(json.RawMessage(nil), raw...)}
	}
	switch f.Type {
	case frameBoardUpdated:
		board := f.Board
		if board == "" && f.Message != "" {
			// some senders nest the payload as a JSON string
			var nested struct {
				Board string `json:"board"`
			}
			if err := json.Unmarshal([]byte(f.Message), &nested); err == nil {
				board = nested.Board
			}
		}
		return EventBoardUpdated{Board: board}
	case frameClearBoard:
		return EventCleared{}
	case frameKicked:
		return EventKicked{Reason: f.Message}
	case frameError:
		msg := strings.TrimSpace(f.Message)
		if msg == "" {
			msg = "unspecified"
		}
		return EventError{Err: fmt.Errorf("push channel error: %s", msg)}
	default:
		return EventUnknown{Type: f.Type, Raw: append(json.RawMessage(nil), raw...)}
	}
}
