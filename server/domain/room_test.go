package domain

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

var errTransportClosed = errors.New("transport closed")

type fakeTransport struct {
	in        chan []byte
	out       chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		in:     make(chan []byte, 16),
		out:    make(chan []byte, 256),
		closed: make(chan struct{}),
	}
}

func (t *fakeTransport) Read(ctx context.Context) ([]byte, error) {
	select {
	case data := <-t.in:
		return data, nil
	case <-t.closed:
		return nil, errTransportClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *fakeTransport) Write(ctx context.Context, data []byte) error {
	select {
	case t.out <- data:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *fakeTransport) Close(code int32, reason string) error {
	t.closeOnce.Do(func() { close(t.closed) })
	return nil
}

type fakeEngine struct {
	sink    ViewSink
	added   chan string
	removed chan string
	actions chan string
}

func (e *fakeEngine) AddPlayer(name string)    { e.added <- name }
func (e *fakeEngine) RemovePlayer(name string) { e.removed <- name }

func (e *fakeEngine) TakeAction(viewer string, action json.RawMessage) {
	e.actions <- string(action)
	e.sink.ContentChanged(viewer, map[string]any{"echo": string(action)})
}

func (e *fakeEngine) ContentFor(viewer string) any {
	return map[string]any{"for": viewer}
}

type engineTracker struct {
	mu      sync.Mutex
	created int
	engines []*fakeEngine
}

func (tr *engineTracker) factory(sink ViewSink) Engine {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.created++
	e := &fakeEngine{
		sink:    sink,
		added:   make(chan string, 16),
		removed: make(chan string, 16),
		actions: make(chan string, 16),
	}
	tr.engines = append(tr.engines, e)
	return e
}

func (tr *engineTracker) count() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.created
}

func (tr *engineTracker) last() *fakeEngine {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.engines[len(tr.engines)-1]
}

func newTestRegistry(t *testing.T) (*Registry, *engineTracker, context.Context) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	tracker := &engineTracker{}
	reg := NewRegistry(ctx, map[string]EngineFactory{"game": tracker.factory})
	return reg, tracker, ctx
}

func dial(t *testing.T, ctx context.Context, reg *Registry, viewer string) *fakeTransport {
	t.Helper()
	tr := newFakeTransport()
	sock := NewSocket(viewer, NewConnection(tr))
	if err := reg.Connect("game", "room1", sock); err != nil {
		t.Fatalf("Connect(%q) failed: %v", viewer, err)
	}
	go func() { _ = sock.Run(ctx) }()
	return tr
}

func recvEnvelope(t *testing.T, tr *fakeTransport) (string, json.RawMessage) {
	t.Helper()
	select {
	case data := <-tr.out:
		var msg struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("bad envelope %s: %v", data, err)
		}
		return msg.Type, msg.Data
	case <-time.After(2 * time.Second):
		t.Fatalf("no message pushed")
		return "", nil
	}
}

func waitRoomCount(t *testing.T, reg *Registry, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if reg.RoomCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("room count = %d, want %d", reg.RoomCount(), want)
}

func TestRoomKey_CompositeParts(t *testing.T) {
	key := NewRoomKey("splendor", "abc")
	if key.Variant() != "splendor" || key.Code() != "abc" {
		t.Fatalf("key parts = %q / %q", key.Variant(), key.Code())
	}
	if NewRoomKey("a", "bc") == NewRoomKey("ab", "c") {
		t.Fatalf("variant and code must not collide across the separator")
	}
}

func TestRegistry_UnknownVariant(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	sock := NewSocket("alice", NewConnection(newFakeTransport()))
	if err := reg.Connect("nope", "room1", sock); !errors.Is(err, ErrUnknownVariant) {
		t.Fatalf("err = %v, want ErrUnknownVariant", err)
	}
	if reg.RoomCount() != 0 {
		t.Fatalf("unknown variant created a room")
	}
}

func TestRoom_PlayerJoinRegistersAndPushesContent(t *testing.T) {
	reg, tracker, ctx := newTestRegistry(t)
	tr := dial(t, ctx, reg, "alice")

	msgType, _ := recvEnvelope(t, tr)
	if msgType != MsgContent {
		t.Fatalf("first push = %q, want %q", msgType, MsgContent)
	}

	select {
	case name := <-tracker.last().added:
		if name != "alice" {
			t.Fatalf("AddPlayer(%q)", name)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("engine never saw the player")
	}
}

func TestRoom_BoardJoinGetsContentAndRoster(t *testing.T) {
	reg, _, ctx := newTestRegistry(t)
	_ = dial(t, ctx, reg, "alice")
	board := dial(t, ctx, reg, ViewerBoard)

	sawContent, sawRoster := false, false
	for i := 0; i < 2; i++ {
		msgType, data := recvEnvelope(t, board)
		switch msgType {
		case MsgContent:
			sawContent = true
		case MsgPlayers:
			sawRoster = true
			var roster []string
			if err := json.Unmarshal(data, &roster); err != nil {
				t.Fatalf("roster payload: %v", err)
			}
			if len(roster) != 1 || roster[0] != "alice" {
				t.Fatalf("roster = %v, want [alice]", roster)
			}
		}
	}
	if !sawContent || !sawRoster {
		t.Fatalf("board join pushes: content=%v roster=%v", sawContent, sawRoster)
	}
}

func TestRoom_ActionRoutedToEngineAndViewPushedBack(t *testing.T) {
	reg, tracker, ctx := newTestRegistry(t)
	tr := dial(t, ctx, reg, "alice")
	_, _ = recvEnvelope(t, tr) // 参加直後のビュー

	tr.in <- []byte(`{"type":"action","data":{"type":"move","index":3}}`)

	select {
	case got := <-tracker.last().actions:
		var act struct {
			Type  string `json:"type"`
			Index int    `json:"index"`
		}
		if err := json.Unmarshal([]byte(got), &act); err != nil || act.Type != "move" || act.Index != 3 {
			t.Fatalf("engine saw action %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("action never reached the engine")
	}

	msgType, _ := recvEnvelope(t, tr)
	if msgType != MsgContent {
		t.Fatalf("push after action = %q, want %q", msgType, MsgContent)
	}
}

func TestRoom_LegacyStartBecomesAction(t *testing.T) {
	reg, tracker, ctx := newTestRegistry(t)
	tr := dial(t, ctx, reg, "alice")
	_, _ = recvEnvelope(t, tr)

	tr.in <- []byte(`{"type":"start"}`)

	select {
	case got := <-tracker.last().actions:
		var act struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal([]byte(got), &act); err != nil || act.Type != "start" {
			t.Fatalf("legacy start became %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("legacy start never reached the engine")
	}
}

func TestRoom_MultiSocketViewerLeavesOnlyWhenLastSocketCloses(t *testing.T) {
	reg, tracker, ctx := newTestRegistry(t)
	tr1 := dial(t, ctx, reg, "alice")
	_, _ = recvEnvelope(t, tr1)
	engine := tracker.last()
	<-engine.added

	tr2 := dial(t, ctx, reg, "alice")
	_, _ = recvEnvelope(t, tr2)

	select {
	case name := <-engine.added:
		t.Fatalf("second socket re-added player %q", name)
	case <-time.After(100 * time.Millisecond):
	}

	_ = tr1.Close(1000, "")
	select {
	case <-engine.removed:
		t.Fatalf("player removed while a socket is still connected")
	case <-time.After(100 * time.Millisecond):
	}

	_ = tr2.Close(1000, "")
	select {
	case name := <-engine.removed:
		if name != "alice" {
			t.Fatalf("RemovePlayer(%q)", name)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("player never removed after last socket closed")
	}
}

func TestRoom_TornDownRoomGetsFreshEngine(t *testing.T) {
	reg, tracker, ctx := newTestRegistry(t)
	tr := dial(t, ctx, reg, "alice")
	_, _ = recvEnvelope(t, tr)
	waitRoomCount(t, reg, 1)

	_ = tr.Close(1000, "")
	waitRoomCount(t, reg, 0)

	tr2 := dial(t, ctx, reg, "alice")
	_, _ = recvEnvelope(t, tr2)
	if tracker.count() != 2 {
		t.Fatalf("engines created = %d, want a fresh engine per room", tracker.count())
	}
}

func TestParseInbound_RejectsGarbage(t *testing.T) {
	if _, err := ParseInbound([]byte(`{`)); err == nil {
		t.Fatalf("garbage parsed")
	}
	msg, err := ParseInbound([]byte(`{"type":"action","data":{"type":"x"}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if msg.Type != MsgAction {
		t.Fatalf("type = %q", msg.Type)
	}
}
