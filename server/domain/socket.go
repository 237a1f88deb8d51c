package domain

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const writeChSize = 64

// Socket は1本のwebsocket接続です。同じviewer識別子で複数のSocketが
// 同じRoomに参加できます。
type Socket struct {
	id      string
	viewer  string
	conn    *Connection
	room    *Room
	writeCh chan []byte
}

func NewSocket(viewer string, conn *Connection) *Socket {
	return &Socket{
		id:      uuid.NewString(),
		viewer:  viewer,
		conn:    conn,
		writeCh: make(chan []byte, writeChSize),
	}
}

func (s *Socket) ID() string {
	return s.id
}

func (s *Socket) Viewer() string {
	return s.viewer
}

// Run は読み書きループを接続が切れるまで実行します。
// 戻る前に必ずRoomへleaveを通知します。
func (s *Socket) Run(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return s.readLoop(ctx)
	})
	eg.Go(func() error {
		return s.writeLoop(ctx)
	})

	err := eg.Wait()
	if s.room != nil {
		s.room.leave(s)
	}
	s.conn.Close()
	return err
}

func (s *Socket) readLoop(ctx context.Context) error {
	for {
		data, err := s.conn.Read(ctx)
		if err != nil {
			return err
		}
		msg, err := ParseInbound(data)
		if err != nil {
			slog.WarnContext(ctx, "readLoop: failed to parse message", "socketID", s.id, "err", err)
			continue
		}
		switch msg.Type {
		case MsgAction:
			s.room.enqueueAction(s.viewer, msg.Data)
		case MsgStart:
			// 旧クライアントはstartを専用メッセージで送ってくる。
			s.room.enqueueAction(s.viewer, startAction)
		default:
			slog.WarnContext(ctx, "readLoop: unknown message type", "socketID", s.id, "type", msg.Type)
		}
	}
}

func (s *Socket) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data := <-s.writeCh:
			if err := s.conn.Write(ctx, data); err != nil {
				return err
			}
		}
	}
}

// send はバッファ経由の非ブロッキング送信です。
// 溢れた場合はメッセージを破棄します。遅いviewerが同室の他の
// viewerを巻き込まないための措置です。
func (s *Socket) send(data []byte) {
	select {
	case s.writeCh <- data:
	default:
		slog.Warn("send: writeCh full, message dropped", "socketID", s.id, "viewer", s.viewer)
	}
}
