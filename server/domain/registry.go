package domain

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var (
	// ErrUnknownVariant は登録されていないゲーム名が指定されたことを示します。
	ErrUnknownVariant = errors.New("unknown game variant")
	// ErrVariantMismatch は既存Roomのバリアントと接続要求が食い違ったことを示します。
	ErrVariantMismatch = errors.New("room belongs to a different game variant")
	// ErrRoomBusy はRoomのイベントバッファが飽和していて参加できないことを示します。
	ErrRoomBusy = errors.New("room event buffer is full")
)

// RoomKey はバリアント名とルームコードの複合キーです。
// 同じコードでもバリアントが違えば別のRoomになります。
type RoomKey string

// roomKeySep はどちらのパートにも現れない制御文字です。
const roomKeySep = "\x1f"

func NewRoomKey(variant, code string) RoomKey {
	return RoomKey(variant + roomKeySep + code)
}

// Variant はキーからバリアント名を取り出します。
func (k RoomKey) Variant() string {
	v, _, _ := strings.Cut(string(k), roomKeySep)
	return v
}

// Code はキーからルームコードを取り出します。
func (k RoomKey) Code() string {
	_, c, _ := strings.Cut(string(k), roomKeySep)
	return c
}

// Registry は稼働中のRoomを管理し、接続を正しいRoomへ振り分けます。
// Roomは最初の接続で生成され、最後の接続が離れると破棄されます。
type Registry struct {
	ctx      context.Context
	variants map[string]EngineFactory

	mu    sync.Mutex
	rooms map[RoomKey]*Room
}

// NewRegistry はctxをRoomイベントループの寿命の上限として使います。
func NewRegistry(ctx context.Context, variants map[string]EngineFactory) *Registry {
	return &Registry{
		ctx:      ctx,
		variants: variants,
		rooms:    make(map[RoomKey]*Room),
	}
}

func (r *Registry) HasVariant(name string) bool {
	_, ok := r.variants[name]
	return ok
}

// Connect はSocketをRoomに参加させます。Roomがなければ作ります。
// ちょうど破棄中のRoomに当たった場合は新しいRoomで再試行します。
func (r *Registry) Connect(variant, code string, sock *Socket) error {
	factory, ok := r.variants[variant]
	if !ok {
		return ErrUnknownVariant
	}
	key := NewRoomKey(variant, code)

	for {
		r.mu.Lock()
		room, ok := r.rooms[key]
		if !ok {
			room = newRoom(r, key, variant, factory)
			r.rooms[key] = room
			go room.run(r.ctx)
		}
		if room.variant != variant {
			r.mu.Unlock()
			return ErrVariantMismatch
		}
		ok = room.enqueueJoin(sock)
		if !ok {
			if room.closed {
				// 退役と入れ違った。エントリを消して作り直す。
				if r.rooms[key] == room {
					delete(r.rooms, key)
				}
				r.mu.Unlock()
				continue
			}
			r.mu.Unlock()
			return ErrRoomBusy
		}
		sock.room = room
		r.mu.Unlock()
		return nil
	}
}

// retire は最後のviewerが離れたRoomを破棄します。
// 破棄判定と参加はどちらもmuの下で行うため、参加イベントが
// 残っているRoomを消してしまうことはありません。
func (r *Registry) retire(room *Room) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(room.events) > 0 {
		return false
	}
	room.closed = true
	if r.rooms[room.key] == room {
		delete(r.rooms, room.key)
	}
	return true
}

// forceRetire はサーバ停止時の後始末です。保留イベントは捨てます。
func (r *Registry) forceRetire(room *Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room.closed = true
	if r.rooms[room.key] == room {
		delete(r.rooms, room.key)
	}
}

// RoomCount は現在稼働中のRoom数を返します。
func (r *Registry) RoomCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}
