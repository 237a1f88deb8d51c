package splendor

import (
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"slices"

	"parlor/server/domain"
)

// status はターン状態機械の現在位置です。値はそのままクライアントに
// 見える表示状態と対応します。
type status string

const (
	statusReset         status = "reset"
	statusStartTurn     status = "start-turn"
	statusCoinTake      status = "start-coin-take"
	statusCoin1Taken    status = "coin1-taken"
	statusCoin2Taken    status = "coin2-taken"
	statusDiscardCoins  status = "discard-coins"
	statusReserveCard   status = "start-reserve-card"
	statusBuyCard       status = "start-buy-card"
	statusCheckPrestige status = "check-prestige"
	statusChooseNoble   status = "choose-noble"
	statusEndTurn       status = "end-turn"
	statusGameOver      status = "game-over"
)

// finalRoundPrestige に届いたプレイヤーが出ると最終ラウンドに入ります。
// 卓上版の規定値は15ですが、短い対戦に合わせて下げてあります。
const finalRoundPrestige = 1

const (
	minPlayers   = 2
	maxPlayers   = 4
	maxReserved  = 3
	maxHeldCoins = 10
	boardCols    = 4
)

// action はクライアントから届くタグ付きアクションです。
// 使わないフィールドはゼロ値のまま無視されます。
type action struct {
	Type     string `json:"type"`
	Color    Color  `json:"color"`
	Level    int    `json:"level"`
	RowIndex int    `json:"rowIndex"`
	ColIndex int    `json:"colIndex"`
	Index    int    `json:"index"`
}

const (
	actReset            = "reset"
	actStart            = "start"
	actSkipTurn         = "skip-turn"
	actTakeCoinsButton  = "take-coins-button"
	actSelectCoin       = "select-coin"
	actReserveButton    = "reserve-card-button"
	actBuyButton        = "buy-card-button"
	actCancel           = "cancel-to-start-turn"
	actSelectPileCard   = "select-pile-card"
	actSelectBoardCard  = "select-board-card"
	actSelectHandCard   = "select-hand-card"
	actSelectPlayerCoin = "select-player-coin"
	actSelectNobleCard  = "select-noble-card"
)

type playerState struct {
	cards    CardSet
	coins    CoinSet
	reserved []Card
	prestige int
}

// Game は宝石収集ゲームのルールエンジンです。状態はRoomのイベント
// ループ専有なのでロックを持ちません。
type Game struct {
	sink domain.ViewSink
	rng  *rand.Rand

	// players はラウンド中は凍結されたロスター、standbyは次の
	// ラウンドの参加者です。
	players []string
	standby []string
	states  []*playerState

	// board の行0がレベル3、行2がレベル1です。pilesも同じ並びです。
	board [3][boardCols]*Card
	piles [3][]Card

	coins  CoinSet
	nobles []*Noble

	current int
	first   int
	status  status

	// pick1 / pick2 はこのターンに取ったコインの色です。
	pick1, pick2 Color
}

func New(sink domain.ViewSink) domain.Engine {
	return NewWithRand(sink, rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
}

// NewWithRand はシャッフルと手番決定の乱数源を差し替えます。
func NewWithRand(sink domain.ViewSink, rng *rand.Rand) *Game {
	g := &Game{sink: sink, rng: rng}
	g.reset()
	return g
}

func (g *Game) AddPlayer(name string) {
	if name == domain.ViewerBoard {
		return
	}
	if g.status == statusReset {
		if g.playerIndex(name) >= 0 {
			return
		}
		g.players = append(g.players, name)
		g.states = append(g.states, &playerState{})
		return
	}
	if !slices.Contains(g.standby, name) {
		g.standby = append(g.standby, name)
	}
}

// RemovePlayer はラウンド中は待機列からしか取り除きません。凍結中の
// ロスターの席は再接続に備えて残ります。
func (g *Game) RemovePlayer(name string) {
	if name == domain.ViewerBoard {
		return
	}
	if g.status == statusReset {
		i := g.playerIndex(name)
		if i < 0 {
			return
		}
		g.players = slices.Delete(g.players, i, i+1)
		g.states = slices.Delete(g.states, i, i+1)
		return
	}
	if i := slices.Index(g.standby, name); i >= 0 {
		g.standby = slices.Delete(g.standby, i, i+1)
	}
}

func (g *Game) ContentFor(viewer string) any {
	if viewer == domain.ViewerBoard {
		return g.boardView()
	}
	return g.handView(viewer)
}

func (g *Game) TakeAction(viewer string, raw json.RawMessage) {
	var act action
	if err := json.Unmarshal(raw, &act); err != nil {
		slog.Debug("splendor: malformed action ignored", "viewer", viewer, "err", err)
		return
	}
	if !g.allowed(viewer, act.Type) {
		return
	}

	switch act.Type {
	case actReset:
		g.reset()
		return

	case actStart:
		if g.status != statusReset || len(g.players) < minPlayers || len(g.players) > maxPlayers {
			return
		}
		g.start()

	case actSkipTurn:
		if g.status != statusStartTurn {
			return
		}
		g.status = statusEndTurn

	case actTakeCoinsButton:
		if g.status != statusStartTurn || g.bankGemTotal() == 0 {
			return
		}
		g.status = statusCoinTake

	case actSelectCoin:
		if !g.takeCoin(act.Color) {
			return
		}

	case actReserveButton:
		if g.status != statusStartTurn || len(g.states[g.current].reserved) >= maxReserved {
			return
		}
		g.status = statusReserveCard

	case actBuyButton:
		if g.status != statusStartTurn {
			return
		}
		g.status = statusBuyCard

	case actCancel:
		switch g.status {
		case statusCoinTake, statusReserveCard, statusBuyCard:
			g.status = statusStartTurn
		default:
			return
		}

	case actSelectPileCard:
		if g.status != statusReserveCard || !g.reserveFromPile(act.Level) {
			return
		}

	case actSelectBoardCard:
		if !g.pickBoardCard(act.RowIndex, act.ColIndex) {
			return
		}

	case actSelectHandCard:
		if !g.buyReserved(act.Index) {
			return
		}

	case actSelectPlayerCoin:
		if !g.discardCoin(act.Color) {
			return
		}

	case actSelectNobleCard:
		if !g.chooseNoble(act.Index) {
			return
		}

	default:
		return
	}

	g.resolve()
	g.broadcast()
}

// allowed は誰がそのアクションを出せるかを決めます。共有の卓は
// board識別子のクライアントが描画するので、フェーズ操作はboardと
// 手番プレイヤーの両方から受け付けます。手札の選択だけは本人限定です。
func (g *Game) allowed(viewer, actType string) bool {
	switch actType {
	case actStart, actReset:
		return true
	case actSelectHandCard:
		return g.current >= 0 && g.current < len(g.players) && viewer == g.players[g.current]
	default:
		if viewer == domain.ViewerBoard {
			return true
		}
		return g.current >= 0 && g.current < len(g.players) && viewer == g.players[g.current]
	}
}

func (g *Game) reset() {
	g.players = append([]string(nil), g.standby...)
	g.standby = nil
	g.states = make([]*playerState, len(g.players))
	for i := range g.states {
		g.states[i] = &playerState{}
	}
	g.board = [3][boardCols]*Card{}
	g.piles[0] = g.shuffled(level3Cards)
	g.piles[1] = g.shuffled(level2Cards)
	g.piles[2] = g.shuffled(level1Cards)
	g.coins = CoinSet{}
	g.nobles = make([]*Noble, 5)
	g.current = -1
	g.first = -1
	g.status = statusReset
	g.pick1, g.pick2 = "", ""
	g.broadcast()
}

func (g *Game) start() {
	n := len(g.players)
	g.standby = append([]string(nil), g.players...)

	var gems int
	switch n {
	case 2:
		gems = 4
	case 3:
		gems = 5
	default:
		gems = 7
	}
	g.coins = CoinSet{White: gems, Blue: gems, Green: gems, Red: gems, Black: gems, Gold: 5}

	for level := 1; level <= 3; level++ {
		for j := 0; j < boardCols; j++ {
			g.drawToBoard(level)
		}
	}

	order := g.rng.Perm(len(allNobles))
	g.nobles = make([]*Noble, 0, n+1)
	for _, idx := range order[:n+1] {
		noble := allNobles[idx]
		g.nobles = append(g.nobles, &noble)
	}

	g.states = make([]*playerState, n)
	for i := range g.states {
		g.states[i] = &playerState{}
	}

	g.first = g.rng.IntN(n)
	g.current = g.first
	g.status = statusStartTurn
}

func (g *Game) takeCoin(c Color) bool {
	switch g.status {
	case statusCoinTake, statusCoin1Taken, statusCoin2Taken:
	default:
		return false
	}
	if !slices.Contains(cardColors, c) {
		return false
	}
	if g.coins.Get(c) == 0 {
		return false
	}
	// 同色2枚目はその山に3枚以上残っている場合のみ。
	if (g.pick1 == c || g.pick2 == c) && g.coins.Get(c) < 3 {
		return false
	}

	g.states[g.current].coins.Add(c, 1)
	g.coins.Add(c, -1)

	switch g.status {
	case statusCoinTake:
		g.pick1 = c
		g.status = statusCoin1Taken
		if !g.selectableCoins().any() {
			g.finishCoinPhase()
		}
	case statusCoin1Taken:
		g.pick2 = c
		g.status = statusCoin2Taken
		// 同色2枚でコインフェーズは即終了。
		if g.pick1 == c || !g.selectableCoins().any() {
			g.finishCoinPhase()
		}
	case statusCoin2Taken:
		g.finishCoinPhase()
	}
	return true
}

func (g *Game) finishCoinPhase() {
	if g.states[g.current].coins.Total() > maxHeldCoins {
		g.status = statusDiscardCoins
		return
	}
	g.status = statusEndTurn
}

func (g *Game) reserveFromPile(level int) bool {
	if level < 1 || level > 3 {
		return false
	}
	st := g.states[g.current]
	if len(st.reserved) >= maxReserved {
		return false
	}
	card := g.drawFromPile(level)
	if card == nil {
		return false
	}
	st.reserved = append(st.reserved, *card)
	g.grantReserveGold(st)
	return true
}

func (g *Game) pickBoardCard(row, col int) bool {
	if row < 0 || row >= 3 || col < 0 || col >= boardCols {
		return false
	}
	card := g.board[row][col]
	if card == nil {
		return false
	}

	switch g.status {
	case statusReserveCard:
		st := g.states[g.current]
		if len(st.reserved) >= maxReserved {
			return false
		}
		g.board[row][col] = nil
		g.drawToBoard(card.Level)
		st.reserved = append(st.reserved, *card)
		g.grantReserveGold(st)
		return true

	case statusBuyCard:
		if !g.isBuyable(card) {
			return false
		}
		g.board[row][col] = nil
		g.drawToBoard(card.Level)
		g.acquire(card)
		return true
	}
	return false
}

func (g *Game) buyReserved(index int) bool {
	if g.status != statusBuyCard {
		return false
	}
	st := g.states[g.current]
	if index < 0 || index >= len(st.reserved) {
		return false
	}
	card := st.reserved[index]
	if !g.isBuyable(&card) {
		return false
	}
	st.reserved = slices.Delete(st.reserved, index, index+1)
	g.acquire(&card)
	return true
}

// grantReserveGold は予約時のゴールド付与です。銀行に残っていなければ
// 何も付きません。
func (g *Game) grantReserveGold(st *playerState) {
	if g.coins.Gold == 0 {
		g.status = statusEndTurn
		return
	}
	g.coins.Gold--
	st.coins.Gold++
	if st.coins.Total() > maxHeldCoins {
		g.status = statusDiscardCoins
		return
	}
	g.status = statusEndTurn
}

// acquire は支払いを済ませてカードを恒久所有に移します。
func (g *Game) acquire(card *Card) {
	st := g.states[g.current]
	g.payFor(st, card)
	st.prestige += card.Prestige
	st.cards.Add(card.Color, 1)
	g.status = statusCheckPrestige
}

// payFor は所持カードの割引後の不足分をコインで、さらに足りない分を
// ゴールドで支払います。支払ったコインは銀行へ戻します。カードの
// Costは共有テーブルなので書き換えません。
func (g *Game) payFor(st *playerState, card *Card) {
	for _, c := range cardColors {
		need := card.Cost.Get(c) - st.cards.Get(c)
		if need <= 0 {
			continue
		}
		fromCoins := min(need, st.coins.Get(c))
		if fromCoins > 0 {
			st.coins.Add(c, -fromCoins)
			g.coins.Add(c, fromCoins)
			need -= fromCoins
		}
		if need > 0 {
			st.coins.Gold -= need
			g.coins.Gold += need
		}
	}
}

func (g *Game) discardCoin(c Color) bool {
	if g.status != statusDiscardCoins {
		return false
	}
	st := g.states[g.current]
	if st.coins.Get(c) > 0 {
		st.coins.Add(c, -1)
		g.coins.Add(c, 1)
	}
	if st.coins.Total() <= maxHeldCoins {
		g.status = statusEndTurn
	}
	return true
}

func (g *Game) chooseNoble(index int) bool {
	if g.status != statusChooseNoble {
		return false
	}
	if index < 0 || index >= len(g.nobles) {
		return false
	}
	if !g.eligibleNobles()[index] {
		return false
	}
	noble := g.nobles[index]
	g.nobles[index] = nil
	g.states[g.current].prestige += noble.Prestige
	g.status = statusEndTurn
	return true
}

// resolve は複合アクションの後段です。貴族判定と手番送りをここで
// まとめて処理します。
func (g *Game) resolve() {
	if g.status == statusCheckPrestige {
		if slices.Contains(g.eligibleNobles(), true) {
			g.status = statusChooseNoble
		} else {
			g.status = statusEndTurn
		}
	}

	if g.status == statusEndTurn {
		g.pick1, g.pick2 = "", ""
		g.current = (g.current + 1) % len(g.players)
		if g.current == g.first && g.winners() != nil {
			g.status = statusGameOver
			g.current = -1
		} else {
			g.status = statusStartTurn
		}
	}
}

func (g *Game) broadcast() {
	g.sink.ContentChanged(domain.ViewerBoard, g.boardView())
	for _, name := range g.players {
		g.sink.ContentChanged(name, g.handView(name))
	}
}

func (g *Game) playerIndex(name string) int {
	return slices.Index(g.players, name)
}

func (g *Game) shuffled(src []Card) []Card {
	deck := append([]Card(nil), src...)
	g.rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
	return deck
}

func (g *Game) drawToBoard(level int) {
	row := 3 - level
	pile := g.piles[row]
	if len(pile) == 0 {
		return
	}
	for i := 0; i < boardCols; i++ {
		if g.board[row][i] == nil {
			card := pile[len(pile)-1]
			g.piles[row] = pile[:len(pile)-1]
			g.board[row][i] = &card
			return
		}
	}
	slog.Error("splendor: no empty board slot to restock", "level", level)
}

func (g *Game) drawFromPile(level int) *Card {
	row := 3 - level
	pile := g.piles[row]
	if len(pile) == 0 {
		return nil
	}
	card := pile[len(pile)-1]
	g.piles[row] = pile[:len(pile)-1]
	return &card
}

func (g *Game) bankGemTotal() int {
	total := 0
	for _, c := range cardColors {
		total += g.coins.Get(c)
	}
	return total
}

func (g *Game) isBuyable(card *Card) bool {
	if card == nil {
		return false
	}
	st := g.states[g.current]
	short := 0
	for _, c := range cardColors {
		short += max(0, card.Cost.Get(c)-st.cards.Get(c)-st.coins.Get(c))
	}
	return short <= st.coins.Gold
}

func (g *Game) eligibleNobles() []bool {
	eligible := make([]bool, len(g.nobles))
	if g.current < 0 || g.current >= len(g.states) {
		return eligible
	}
	st := g.states[g.current]
	for i, noble := range g.nobles {
		if noble == nil {
			continue
		}
		ok := true
		for _, cost := range noble.Cost {
			if st.cards.Get(cost.Color) < cost.Count {
				ok = false
				break
			}
		}
		eligible[i] = ok
	}
	return eligible
}

// winners は最終ラウンド終了時の勝者のプレイヤー番号を返します。
// 威信点で並べ、同点なら所有カード総数で比べます。両方同じなら
// 全員が勝者です。誰も規定点に届いていなければnilです。
func (g *Game) winners() []int {
	if len(g.states) == 0 {
		return nil
	}
	best := 0
	for _, st := range g.states {
		if st.prestige > best {
			best = st.prestige
		}
	}
	if best < finalRoundPrestige {
		return nil
	}
	bestCards := -1
	for _, st := range g.states {
		if st.prestige == best && st.cards.Total() > bestCards {
			bestCards = st.cards.Total()
		}
	}
	var winners []int
	for i, st := range g.states {
		if st.prestige == best && st.cards.Total() == bestCards {
			winners = append(winners, i)
		}
	}
	return winners
}
