package jaipur

import (
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"slices"

	"parlor/server/domain"
)

// Good は商品カードの種類です。Camelもカードとしては同列に扱います。
type Good string

const (
	Diamond Good = "diamond"
	Gold    Good = "gold"
	Silver  Good = "silver"
	Cloth   Good = "cloth"
	Spice   Good = "spice"
	Leather Good = "leather"
	Camel   Good = "camel"
)

// goodsOrder は商品の固定順です。山札の組成やトークン走査は
// 必ずこの順で行います。
var goodsOrder = []Good{Diamond, Gold, Silver, Cloth, Spice, Leather}

// deckCounts は山札に入る枚数です。ラクダは11頭のうち3頭が
// 最初から市場に置かれるため8枚です。
var deckCounts = []struct {
	good  Good
	count int
}{
	{Diamond, 6},
	{Gold, 6},
	{Silver, 6},
	{Cloth, 8},
	{Spice, 8},
	{Leather, 10},
	{Camel, 8},
}

// 商品トークンの額面。下から積み、売るたびに上から取ります。
var goodsTokenStacks = map[Good][]int{
	Diamond: {5, 5, 5, 7, 7},
	Gold:    {5, 5, 5, 6, 6},
	Silver:  {5, 5, 5, 5, 5},
	Cloth:   {1, 1, 2, 2, 3, 3, 5},
	Spice:   {1, 1, 2, 2, 3, 3, 5},
	Leather: {1, 1, 1, 1, 1, 1, 2, 3, 4},
}

var (
	bonus3Values = []int{1, 2, 3, 1, 2, 3}
	bonus4Values = []int{4, 5, 6, 4, 5, 6}
	bonus5Values = []int{8, 9, 10, 8, 9, 10}
)

const (
	numPlayers            = 2
	marketSize            = 5
	handLimit             = 7
	camelBonus            = 5
	sealsToWin            = 3
	emptyStacksToEndRound = 3
)

type status string

const (
	statusReset      status = "reset"
	statusStartTurn  status = "start-turn"
	statusTakeSingle status = "take-single-good"
	statusExchange   status = "exchange-goods"
	statusSell       status = "sell-cards"
	statusEndRound   status = "end-round"
	statusEndGame    status = "end-game"
)

const (
	actStart            = "start"
	actReset            = "reset"
	actTakeAllCamels    = "take-all-camels"
	actTakeSingle       = "take-single-good"
	actCancelTakeSingle = "cancel-take-single-good"
	actExchange         = "exchange-goods"
	actCancelExchange   = "cancel-exchange-goods"
	actDoExchange       = "do-exchange-goods"
	actSell             = "sell-cards"
	actCancelSell       = "cancel-sell-cards"
	actDoSell           = "do-sell-cards"
	actSelectCard       = "select-card"
	actNextRound        = "next-round"
	actSelectHandCard   = "select-hand-card"
)

type action struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
}

// GoodsTokens は商品ごとのトークン列です。値はラウンド開始時の
// 積み順のまま、末尾が山の一番上です。
type GoodsTokens struct {
	Diamond []int `json:"diamond"`
	Gold    []int `json:"gold"`
	Silver  []int `json:"silver"`
	Cloth   []int `json:"cloth"`
	Spice   []int `json:"spice"`
	Leather []int `json:"leather"`
}

func (t *GoodsTokens) stack(g Good) *[]int {
	switch g {
	case Diamond:
		return &t.Diamond
	case Gold:
		return &t.Gold
	case Silver:
		return &t.Silver
	case Cloth:
		return &t.Cloth
	case Spice:
		return &t.Spice
	case Leather:
		return &t.Leather
	}
	return nil
}

func (t *GoodsTokens) emptyStacks() int {
	empty := 0
	for _, g := range goodsOrder {
		if len(*t.stack(g)) == 0 {
			empty++
		}
	}
	return empty
}

func (t *GoodsTokens) tokenCount() int {
	total := 0
	for _, g := range goodsOrder {
		total += len(*t.stack(g))
	}
	return total
}

func (t *GoodsTokens) tokenValue() int {
	total := 0
	for _, g := range goodsOrder {
		for _, v := range *t.stack(g) {
			total += v
		}
	}
	return total
}

// BonusTokens は売却枚数ボーナスの山です。
type BonusTokens struct {
	Bonus3 []int `json:"bonus_3"`
	Bonus4 []int `json:"bonus_4"`
	Bonus5 []int `json:"bonus_5"`
}

func (t *BonusTokens) tokenCount() int {
	return len(t.Bonus3) + len(t.Bonus4) + len(t.Bonus5)
}

func (t *BonusTokens) tokenValue() int {
	total := 0
	for _, vs := range [][]int{t.Bonus3, t.Bonus4, t.Bonus5} {
		for _, v := range vs {
			total += v
		}
	}
	return total
}

type playerState struct {
	seals         int
	camels        int
	goods         GoodsTokens
	bonus         BonusTokens
	hand          []Good
	selected      []bool
	hasCamelToken bool
}

// Game は2人用の交易ゲームのルールエンジンです。
type Game struct {
	sink domain.ViewSink
	rng  *rand.Rand

	players []string
	states  [numPlayers]*playerState

	market         [marketSize]Good
	marketSelected [marketSize]bool
	drawPile       []Good
	overdrawn      bool

	goods      GoodsTokens
	bonus      BonusTokens
	camelToken bool

	current    int
	topDiscard Good
	status     status

	// lastLoser は前ラウンドの敗者です。次ラウンドの先手になります。
	lastLoser int
}

func New(sink domain.ViewSink) domain.Engine {
	return NewWithRand(sink, rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
}

func NewWithRand(sink domain.ViewSink, rng *rand.Rand) *Game {
	g := &Game{sink: sink, rng: rng}
	g.reset()
	return g
}

func (g *Game) AddPlayer(name string) {
	if name == domain.ViewerBoard {
		return
	}
	if slices.Contains(g.players, name) {
		return
	}
	// 3人目以降は観戦のみ。2人席のゲームです。
	if g.status == statusReset && len(g.players) < numPlayers {
		g.players = append(g.players, name)
	}
}

// RemovePlayer はゲーム開始前だけ席を空けます。対局中の切断は
// 再接続に備えて席を保持します。
func (g *Game) RemovePlayer(name string) {
	if g.status != statusReset {
		return
	}
	if i := slices.Index(g.players, name); i >= 0 {
		g.players = slices.Delete(g.players, i, i+1)
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
		slog.Debug("jaipur: malformed action ignored", "viewer", viewer, "err", err)
		return
	}

	if act.Type == actSelectHandCard {
		if g.playerIndex(viewer) != g.current || g.current < 0 {
			return
		}
		if !g.toggleHandCard(act.Index) {
			return
		}
		g.broadcast()
		return
	}

	// フェーズ操作は共有の卓（board）が出します。開始とリセットだけは
	// 誰でも押せます。
	if viewer != domain.ViewerBoard && act.Type != actStart && act.Type != actReset {
		return
	}

	switch act.Type {
	case actReset:
		g.reset()
		return

	case actStart:
		if g.status != statusReset || len(g.players) != numPlayers {
			return
		}
		g.newRound()
		return

	case actNextRound:
		if g.status != statusEndRound {
			return
		}
		g.newRound()
		return

	case actTakeAllCamels:
		if g.status != statusStartTurn || !g.marketHasCamel() {
			return
		}
		for i, card := range g.market {
			if card != Camel {
				continue
			}
			g.market[i] = g.draw()
			g.states[g.current].camels++
		}
		g.endPlayerTurn()

	case actTakeSingle:
		if g.status != statusStartTurn || len(g.states[g.current].hand) >= handLimit || !g.marketHasGood() {
			return
		}
		g.status = statusTakeSingle

	case actCancelTakeSingle:
		if g.status != statusTakeSingle {
			return
		}
		g.status = statusStartTurn

	case actExchange:
		if g.status != statusStartTurn {
			return
		}
		g.status = statusExchange

	case actCancelExchange:
		if g.status != statusExchange {
			return
		}
		g.clearSelections()
		g.status = statusStartTurn

	case actDoExchange:
		if g.status != statusExchange || !g.exchangeLegal() {
			return
		}
		g.doExchange()
		g.endPlayerTurn()

	case actSell:
		if g.status != statusStartTurn || !g.canOpenSell() {
			return
		}
		g.status = statusSell

	case actCancelSell:
		if g.status != statusSell {
			return
		}
		g.clearSelections()
		g.status = statusStartTurn

	case actDoSell:
		if g.status != statusSell {
			return
		}
		if !g.doSell() {
			return
		}
		g.endPlayerTurn()

	case actSelectCard:
		if !g.selectMarketCard(act.Index) {
			return
		}

	default:
		return
	}

	g.maybeEndRound()
	g.broadcast()
}

func (g *Game) reset() {
	g.market = [marketSize]Good{}
	g.marketSelected = [marketSize]bool{}
	g.drawPile = nil
	g.overdrawn = false
	g.camelToken = false
	g.goods = GoodsTokens{}
	g.bonus = BonusTokens{}
	g.lastLoser = -1
	for i := range g.states {
		g.states[i] = &playerState{}
	}
	g.topDiscard = ""
	g.current = -1
	g.status = statusReset
	g.broadcast()
}

// newRound はラウンドを組み直します。シールと前ラウンドの敗者は
// 持ち越します。
func (g *Game) newRound() {
	if g.lastLoser != -1 {
		g.current = g.lastLoser
	} else {
		g.current = g.rng.IntN(numPlayers)
	}

	g.drawPile = g.drawPile[:0]
	for _, dc := range deckCounts {
		for i := 0; i < dc.count; i++ {
			g.drawPile = append(g.drawPile, dc.good)
		}
	}
	g.rng.Shuffle(len(g.drawPile), func(i, j int) {
		g.drawPile[i], g.drawPile[j] = g.drawPile[j], g.drawPile[i]
	})
	g.overdrawn = false

	g.goods = GoodsTokens{}
	for _, good := range goodsOrder {
		*g.goods.stack(good) = append([]int(nil), goodsTokenStacks[good]...)
	}
	g.bonus = BonusTokens{
		Bonus3: g.shuffledValues(bonus3Values),
		Bonus4: g.shuffledValues(bonus4Values),
		Bonus5: g.shuffledValues(bonus5Values),
	}
	g.camelToken = true

	for i := range g.states {
		st := g.states[i]
		st.camels = 0
		st.goods = GoodsTokens{}
		st.bonus = BonusTokens{}
		st.hand = nil
		st.selected = nil
		st.hasCamelToken = false
	}

	for i := 0; i < numPlayers; i++ {
		for j := 0; j < 5; j++ {
			card := g.draw()
			if card == Camel {
				g.states[i].camels++
			} else if card != "" {
				g.states[i].hand = append(g.states[i].hand, card)
				g.states[i].selected = append(g.states[i].selected, false)
			}
		}
	}

	for i := 0; i < 3; i++ {
		g.market[i] = Camel
	}
	for i := 3; i < marketSize; i++ {
		g.market[i] = g.draw()
	}
	g.marketSelected = [marketSize]bool{}

	g.topDiscard = ""
	g.status = statusStartTurn
	g.broadcast()
}

func (g *Game) draw() Good {
	if len(g.drawPile) == 0 {
		g.overdrawn = true
		return ""
	}
	card := g.drawPile[len(g.drawPile)-1]
	g.drawPile = g.drawPile[:len(g.drawPile)-1]
	return card
}

func (g *Game) shuffledValues(src []int) []int {
	vs := append([]int(nil), src...)
	g.rng.Shuffle(len(vs), func(i, j int) {
		vs[i], vs[j] = vs[j], vs[i]
	})
	return vs
}

func (g *Game) playerIndex(name string) int {
	return slices.Index(g.players, name)
}

func (g *Game) marketHasCamel() bool {
	return slices.Contains(g.market[:], Camel)
}

func (g *Game) marketHasGood() bool {
	for _, card := range g.market {
		if card != Camel && card != "" {
			return true
		}
	}
	return false
}

func (g *Game) toggleHandCard(index int) bool {
	switch g.status {
	case statusExchange, statusSell:
	default:
		return false
	}
	st := g.states[g.current]
	if index < 0 || index >= len(st.selected) {
		return false
	}
	st.selected[index] = !st.selected[index]
	return true
}

func (g *Game) selectMarketCard(index int) bool {
	if index < 0 || index >= marketSize {
		return false
	}
	switch g.status {
	case statusTakeSingle:
		card := g.market[index]
		if card == Camel || card == "" {
			return false
		}
		st := g.states[g.current]
		if len(st.hand) >= handLimit {
			return false
		}
		st.hand = append(st.hand, card)
		st.selected = append(st.selected, false)
		g.market[index] = g.draw()
		g.endPlayerTurn()
		return true
	case statusExchange:
		if g.market[index] == Camel || g.market[index] == "" {
			return false
		}
		g.marketSelected[index] = !g.marketSelected[index]
		return true
	}
	return false
}

func (g *Game) clearSelections() {
	g.marketSelected = [marketSize]bool{}
	st := g.states[g.current]
	for i := range st.selected {
		st.selected[i] = false
	}
}

// canOpenSell は売れる組み合わせが手札に存在するかです。高級品
// （ダイヤ・金・銀）は2枚から、それ以外は1枚から売れます。
func (g *Game) canOpenSell() bool {
	counts := map[Good]int{}
	for _, card := range g.states[g.current].hand {
		counts[card]++
	}
	return counts[Diamond] > 1 || counts[Gold] > 1 || counts[Silver] > 1 ||
		counts[Cloth] > 0 || counts[Spice] > 0 || counts[Leather] > 0
}

// sellSelection は選択中の手札が単一種で売却可能な組かを検証します。
func (g *Game) sellSelection() (Good, []int, bool) {
	st := g.states[g.current]
	var typ Good
	var indices []int
	for i, sel := range st.selected {
		if !sel {
			continue
		}
		if typ == "" {
			typ = st.hand[i]
		} else if st.hand[i] != typ {
			return "", nil, false
		}
		indices = append(indices, i)
	}
	if typ == "" {
		return "", nil, false
	}
	if (typ == Diamond || typ == Silver || typ == Gold) && len(indices) < 2 {
		return "", nil, false
	}
	return typ, indices, true
}

func (g *Game) doSell() bool {
	typ, indices, ok := g.sellSelection()
	if !ok {
		return false
	}
	st := g.states[g.current]
	count := len(indices)

	for i := len(indices) - 1; i >= 0; i-- {
		st.hand = slices.Delete(st.hand, indices[i], indices[i]+1)
		st.selected = slices.Delete(st.selected, indices[i], indices[i]+1)
	}

	board := g.goods.stack(typ)
	mine := st.goods.stack(typ)
	for i := 0; i < count && len(*board) > 0; i++ {
		*mine = append(*mine, (*board)[len(*board)-1])
		*board = (*board)[:len(*board)-1]
	}

	switch {
	case count == 3:
		if len(g.bonus.Bonus3) > 0 {
			st.bonus.Bonus3 = append(st.bonus.Bonus3, g.bonus.Bonus3[len(g.bonus.Bonus3)-1])
			g.bonus.Bonus3 = g.bonus.Bonus3[:len(g.bonus.Bonus3)-1]
		}
	case count == 4:
		if len(g.bonus.Bonus4) > 0 {
			st.bonus.Bonus4 = append(st.bonus.Bonus4, g.bonus.Bonus4[len(g.bonus.Bonus4)-1])
			g.bonus.Bonus4 = g.bonus.Bonus4[:len(g.bonus.Bonus4)-1]
		}
	case count >= 5:
		if len(g.bonus.Bonus5) > 0 {
			st.bonus.Bonus5 = append(st.bonus.Bonus5, g.bonus.Bonus5[len(g.bonus.Bonus5)-1])
			g.bonus.Bonus5 = g.bonus.Bonus5[:len(g.bonus.Bonus5)-1]
		}
	}

	g.topDiscard = typ
	for i := range st.selected {
		st.selected[i] = false
	}
	return true
}

// exchangeLegal は交換の成立条件です。2枚以上、市場と手札で同数、
// かつ同じ種類を両側から出していないこと。
func (g *Game) exchangeLegal() bool {
	st := g.states[g.current]
	marketCount := 0
	for _, sel := range g.marketSelected {
		if sel {
			marketCount++
		}
	}
	handCount := 0
	selectedGoods := map[Good]bool{}
	for i, sel := range st.selected {
		if sel {
			handCount++
			selectedGoods[st.hand[i]] = true
		}
	}
	if marketCount < 2 || marketCount != handCount {
		return false
	}
	for i, sel := range g.marketSelected {
		if sel && selectedGoods[g.market[i]] {
			return false
		}
	}
	return true
}

func (g *Game) doExchange() {
	st := g.states[g.current]
	var marketIdx, handIdx []int
	for i, sel := range g.marketSelected {
		if sel {
			marketIdx = append(marketIdx, i)
		}
	}
	for i, sel := range st.selected {
		if sel {
			handIdx = append(handIdx, i)
		}
	}
	for i := range marketIdx {
		st.hand[handIdx[i]], g.market[marketIdx[i]] = g.market[marketIdx[i]], st.hand[handIdx[i]]
	}
	g.clearSelections()
	g.status = statusStartTurn
}

func (g *Game) endPlayerTurn() {
	g.status = statusStartTurn
	g.current = (g.current + 1) % numPlayers
}

// maybeEndRound はラウンド終了条件を判定し、ラクダトークンとシールを
// 清算します。3つ以上の商品トークンの山が尽きるか、山札を引き切ると
// ラウンド終了です。
func (g *Game) maybeEndRound() {
	switch g.status {
	case statusReset, statusEndRound, statusEndGame:
		return
	}
	if g.goods.emptyStacks() < emptyStacksToEndRound && !g.overdrawn {
		return
	}
	g.status = statusEndRound

	if g.states[0].camels > g.states[1].camels {
		g.states[0].hasCamelToken = true
		g.camelToken = false
	} else if g.states[1].camels > g.states[0].camels {
		g.states[1].hasCamelToken = true
		g.camelToken = false
	}

	winner := g.roundWinner()
	if winner >= 0 {
		g.states[winner].seals++
		g.lastLoser = 1 - winner
	}

	if g.states[0].seals >= sealsToWin || g.states[1].seals >= sealsToWin {
		g.status = statusEndGame
	}
}

// roundWinner はルピー、次にボーナストークン枚数、次に商品トークン
// 枚数で比べます。全部同じなら引き分けで-1です。
func (g *Game) roundWinner() int {
	s0, s1 := g.score(0), g.score(1)
	if s0 != s1 {
		return pick(s0 > s1)
	}
	b0, b1 := g.states[0].bonus.tokenCount(), g.states[1].bonus.tokenCount()
	if b0 != b1 {
		return pick(b0 > b1)
	}
	t0, t1 := g.states[0].goods.tokenCount(), g.states[1].goods.tokenCount()
	if t0 != t1 {
		return pick(t0 > t1)
	}
	return -1
}

func pick(first bool) int {
	if first {
		return 0
	}
	return 1
}

// score はそのプレイヤーのルピーです。
func (g *Game) score(i int) int {
	st := g.states[i]
	total := st.goods.tokenValue() + st.bonus.tokenValue()
	if st.hasCamelToken {
		total += camelBonus
	}
	return total
}

func (g *Game) broadcast() {
	g.sink.ContentChanged(domain.ViewerBoard, g.boardView())
	for _, name := range g.players {
		g.sink.ContentChanged(name, g.handView(name))
	}
}
