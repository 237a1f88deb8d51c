package domain

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
)

const eventChSize = 1024

type eventKind uint8

const (
	evJoin eventKind = iota
	evLeave
	evAction
)

type event struct {
	kind   eventKind
	viewer string
	sock   *Socket
	action json.RawMessage
}

// Room は1つの対戦卓です。Engineの状態はrunを回すゴルーチンだけが
// 触るので、Engine実装はロックを持ちません。
type Room struct {
	key      RoomKey
	variant  string
	registry *Registry
	engine   Engine

	events chan event
	// closed はregistry.muで保護されます。trueになったRoomは
	// 二度と参加を受け付けません。
	closed bool

	// 以下はイベントループ専有。
	viewers map[string]map[*Socket]struct{}
}

func newRoom(registry *Registry, key RoomKey, variant string, factory EngineFactory) *Room {
	r := &Room{
		key:      key,
		variant:  variant,
		registry: registry,
		events:   make(chan event, eventChSize),
		viewers:  make(map[string]map[*Socket]struct{}),
	}
	r.engine = factory(r)
	return r
}

func (r *Room) Key() RoomKey {
	return r.key
}

func (r *Room) Variant() string {
	return r.variant
}

// enqueueJoin はregistry.muを保持した状態でのみ呼ばれます。
func (r *Room) enqueueJoin(sock *Socket) bool {
	if r.closed {
		return false
	}
	select {
	case r.events <- event{kind: evJoin, viewer: sock.viewer, sock: sock}:
		return true
	default:
		return false
	}
}

func (r *Room) enqueueAction(viewer string, action json.RawMessage) {
	select {
	case r.events <- event{kind: evAction, viewer: viewer, action: action}:
	default:
		slog.Warn("enqueueAction: event buffer full, action dropped", "room", string(r.key), "viewer", viewer)
	}
}

// leave はバッファに空きが出るまで待ちます。落としてしまうと
// viewerが幽霊として残るためです。
func (r *Room) leave(s *Socket) {
	select {
	case r.events <- event{kind: evLeave, viewer: s.viewer, sock: s}:
	case <-r.registry.ctx.Done():
	}
}

func (r *Room) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			r.registry.forceRetire(r)
			return
		case ev := <-r.events:
			switch ev.kind {
			case evJoin:
				r.handleJoin(ev)
			case evLeave:
				r.handleLeave(ev)
			case evAction:
				r.engine.TakeAction(ev.viewer, ev.action)
			}
			if len(r.viewers) == 0 && r.registry.retire(r) {
				slog.Debug("room retired", "room", string(r.key))
				return
			}
		}
	}
}

func (r *Room) handleJoin(ev event) {
	set, known := r.viewers[ev.viewer]
	if !known {
		set = make(map[*Socket]struct{})
		r.viewers[ev.viewer] = set
	}
	set[ev.sock] = struct{}{}

	if !known && ev.viewer != ViewerBoard {
		r.engine.AddPlayer(ev.viewer)
		// ロスターが変わると他のviewerのビューも変わりうる。
		r.broadcastAll()
		r.broadcastRoster()
	} else {
		r.pushContent(ev.viewer, ev.sock)
	}
	if ev.viewer == ViewerBoard {
		r.pushRoster(ev.sock)
	}
	slog.Debug("socket joined", "room", string(r.key), "viewer", ev.viewer, "socketID", ev.sock.id)
}

func (r *Room) handleLeave(ev event) {
	set, ok := r.viewers[ev.viewer]
	if !ok {
		return
	}
	delete(set, ev.sock)
	if len(set) > 0 {
		return
	}
	delete(r.viewers, ev.viewer)
	if ev.viewer != ViewerBoard {
		r.engine.RemovePlayer(ev.viewer)
		r.broadcastAll()
		r.broadcastRoster()
	}
	slog.Debug("viewer left", "room", string(r.key), "viewer", ev.viewer)
}

// ContentChanged はEngineからのコールバックです。イベントループの
// 中からしか呼ばれません。
func (r *Room) ContentChanged(viewer string, view any) {
	set, ok := r.viewers[viewer]
	if !ok {
		return
	}
	data, err := EncodeOutbound(MsgContent, view)
	if err != nil {
		slog.Error("ContentChanged: failed to encode view", "room", string(r.key), "viewer", viewer, "err", err)
		return
	}
	for sock := range set {
		sock.send(data)
	}
}

func (r *Room) pushContent(viewer string, sock *Socket) {
	data, err := EncodeOutbound(MsgContent, r.engine.ContentFor(viewer))
	if err != nil {
		slog.Error("pushContent: failed to encode view", "room", string(r.key), "viewer", viewer, "err", err)
		return
	}
	sock.send(data)
}

func (r *Room) broadcastAll() {
	for viewer := range r.viewers {
		r.ContentChanged(viewer, r.engine.ContentFor(viewer))
	}
}

// roster は接続中のプレイヤー識別子を安定した順序で返します。
func (r *Room) roster() []string {
	names := make([]string, 0, len(r.viewers))
	for viewer := range r.viewers {
		if viewer == ViewerBoard {
			continue
		}
		names = append(names, viewer)
	}
	sort.Strings(names)
	return names
}

func (r *Room) pushRoster(sock *Socket) {
	data, err := EncodeOutbound(MsgPlayers, r.roster())
	if err != nil {
		slog.Error("pushRoster: failed to encode roster", "room", string(r.key), "err", err)
		return
	}
	sock.send(data)
}

func (r *Room) broadcastRoster() {
	set, ok := r.viewers[ViewerBoard]
	if !ok {
		return
	}
	data, err := EncodeOutbound(MsgPlayers, r.roster())
	if err != nil {
		slog.Error("broadcastRoster: failed to encode roster", "room", string(r.key), "err", err)
		return
	}
	for sock := range set {
		sock.send(data)
	}
}
