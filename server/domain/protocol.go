package domain

import (
	"encoding/json"
)

// ViewerBoard は観戦ディスプレイ用に予約されたviewer識別子です。
// それ以外の識別子はすべてプレイヤーとして扱われます。
const ViewerBoard = "board"

// クライアントと取り交わすメッセージタイプ。
const (
	MsgAction  = "action"  // inbound: タグ付きアクションペイロード
	MsgStart   = "start"   // inbound: 旧クライアント用。in-bandのstartアクションに読み替える
	MsgContent = "content" // outbound: viewerごとのビューモデル
	MsgPlayers = "players" // outbound: 観戦ディスプレイ向けの接続プレイヤー一覧
)

// Inbound はクライアントから受信するメッセージの封筒です。
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Outbound はクライアントへ送信するメッセージの封筒です。
type Outbound struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// startAction は旧startイベントをin-bandアクションへ読み替えるためのペイロードです。
var startAction = json.RawMessage(`{"type":"start"}`)

func ParseInbound(data []byte) (*Inbound, error) {
	var msg Inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func EncodeOutbound(msgType string, payload any) ([]byte, error) {
	return json.Marshal(Outbound{Type: msgType, Data: payload})
}
