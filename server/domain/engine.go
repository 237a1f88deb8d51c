package domain

import "encoding/json"

// ViewSink は状態変化後に再計算されたviewerごとのビューを受け取ります。
// EngineはViewSinkなしでは構築できないため、コールバック未設定のまま
// アクションが処理されることはありません。
type ViewSink interface {
	ContentChanged(viewer string, view any)
}

// Engine は1つのゲームバリアントのルール実装です。
// すべての状態はEngineが占有し、Roomのイベントループからのみ触られます。
type Engine interface {
	// AddPlayer / RemovePlayer はロスター変更です。同じ識別子での
	// 重複呼び出しに対して冪等でなければなりません。
	AddPlayer(name string)
	RemovePlayer(name string)

	// TakeAction はタグ付きアクションを検証して適用します。
	// 現在のターン状態に合わない、または手番でないviewerからの
	// アクションは状態を変えずに黙って無視します。
	TakeAction(viewer string, action json.RawMessage)

	// ContentFor は現在の状態とviewer識別子の純関数です。
	// viewerごとに秘匿情報を落としたビューモデルを返します。
	ContentFor(viewer string) any
}

// EngineFactory はRoomをsinkとしてEngineを構築します。
type EngineFactory func(sink ViewSink) Engine
