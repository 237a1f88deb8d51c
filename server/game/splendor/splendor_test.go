package splendor

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"testing"

	"pgregory.net/rapid"

	"parlor/server/domain"
)

type sinkStub struct {
	views map[string]any
}

func newSinkStub() *sinkStub {
	return &sinkStub{views: map[string]any{}}
}

func (s *sinkStub) ContentChanged(viewer string, view any) {
	s.views[viewer] = view
}

func newStartedGame(t *testing.T, names ...string) *Game {
	t.Helper()
	g := NewWithRand(newSinkStub(), rand.New(rand.NewPCG(1, 2)))
	for _, name := range names {
		g.AddPlayer(name)
	}
	act(g, domain.ViewerBoard, `{"type":"start"}`)
	if g.status != statusStartTurn {
		t.Fatalf("status after start = %q, want %q", g.status, statusStartTurn)
	}
	return g
}

func act(g *Game, viewer, payload string) {
	g.TakeAction(viewer, json.RawMessage(payload))
}

func currentName(g *Game) string {
	return g.players[g.current]
}

func TestStart_SeedsBankBoardAndNobles(t *testing.T) {
	g := newStartedGame(t, "alice", "bob")

	want := CoinSet{White: 4, Blue: 4, Green: 4, Red: 4, Black: 4, Gold: 5}
	if g.coins != want {
		t.Fatalf("bank = %+v, want %+v", g.coins, want)
	}

	faceup := 0
	for i := range g.board {
		for j := range g.board[i] {
			if g.board[i][j] != nil {
				faceup++
			}
		}
	}
	if faceup != 12 {
		t.Fatalf("faceup cards = %d, want 12", faceup)
	}
	if len(g.nobles) != 3 {
		t.Fatalf("nobles = %d, want playerCount+1 = 3", len(g.nobles))
	}
	if len(g.piles[0]) != len(level3Cards)-4 || len(g.piles[1]) != len(level2Cards)-4 || len(g.piles[2]) != len(level1Cards)-4 {
		t.Fatalf("pile sizes = %d/%d/%d after dealing", len(g.piles[0]), len(g.piles[1]), len(g.piles[2]))
	}
	if g.current != g.first {
		t.Fatalf("current = %d, first = %d", g.current, g.first)
	}
}

func TestStart_RequiresTwoToFourPlayers(t *testing.T) {
	g := NewWithRand(newSinkStub(), rand.New(rand.NewPCG(1, 2)))
	g.AddPlayer("alone")
	act(g, domain.ViewerBoard, `{"type":"start"}`)
	if g.status != statusReset {
		t.Fatalf("single player game started, status = %q", g.status)
	}
}

func TestTakeCoins_ThreeDistinctColors(t *testing.T) {
	g := newStartedGame(t, "alice", "bob")
	st := g.states[g.current]

	act(g, domain.ViewerBoard, `{"type":"take-coins-button"}`)
	act(g, domain.ViewerBoard, `{"type":"select-coin","color":"white"}`)
	act(g, domain.ViewerBoard, `{"type":"select-coin","color":"blue"}`)
	act(g, domain.ViewerBoard, `{"type":"select-coin","color":"green"}`)

	if st.coins.White != 1 || st.coins.Blue != 1 || st.coins.Green != 1 {
		t.Fatalf("player coins = %+v, want one of each picked color", st.coins)
	}
	if g.coins.White != 3 || g.coins.Blue != 3 || g.coins.Green != 3 {
		t.Fatalf("bank = %+v, want 3 of each picked color", g.coins)
	}
	if g.status != statusStartTurn {
		t.Fatalf("status = %q, want next turn", g.status)
	}
}

func TestTakeCoins_SameColorPairEndsPhase(t *testing.T) {
	g := newStartedGame(t, "alice", "bob")
	st := g.states[g.current]

	act(g, domain.ViewerBoard, `{"type":"take-coins-button"}`)
	act(g, domain.ViewerBoard, `{"type":"select-coin","color":"red"}`)
	act(g, domain.ViewerBoard, `{"type":"select-coin","color":"red"}`)

	if st.coins.Red != 2 {
		t.Fatalf("player red coins = %d, want 2", st.coins.Red)
	}
	if g.status != statusStartTurn {
		t.Fatalf("status = %q, want phase ended after same-color pair", g.status)
	}
}

func TestTakeCoins_SameColorNeedsDeepPile(t *testing.T) {
	g := newStartedGame(t, "alice", "bob")
	g.coins.Red = 3
	st := g.states[g.current]

	act(g, domain.ViewerBoard, `{"type":"take-coins-button"}`)
	act(g, domain.ViewerBoard, `{"type":"select-coin","color":"red"}`)
	// 残り2枚の山からの同色2枚目は不成立。
	act(g, domain.ViewerBoard, `{"type":"select-coin","color":"red"}`)

	if st.coins.Red != 1 {
		t.Fatalf("player red coins = %d, want second pick rejected", st.coins.Red)
	}
	if g.status != statusCoin1Taken {
		t.Fatalf("status = %q, want still %q", g.status, statusCoin1Taken)
	}
}

func TestTakeCoins_ShortCircuitsWhenNothingLeft(t *testing.T) {
	g := newStartedGame(t, "alice", "bob")
	before := g.current
	g.coins = CoinSet{White: 1, Gold: 5}

	act(g, domain.ViewerBoard, `{"type":"take-coins-button"}`)
	act(g, domain.ViewerBoard, `{"type":"select-coin","color":"white"}`)

	if g.status != statusStartTurn {
		t.Fatalf("status = %q, want turn over once no pick remains", g.status)
	}
	if g.current == before {
		t.Fatalf("turn did not advance")
	}
}

func TestDiscardCoins_OverTenForcesDiscard(t *testing.T) {
	g := newStartedGame(t, "alice", "bob")
	st := g.states[g.current]
	st.coins = CoinSet{White: 9}
	bankWhite := g.coins.White

	act(g, domain.ViewerBoard, `{"type":"take-coins-button"}`)
	act(g, domain.ViewerBoard, `{"type":"select-coin","color":"blue"}`)
	act(g, domain.ViewerBoard, `{"type":"select-coin","color":"green"}`)
	act(g, domain.ViewerBoard, `{"type":"select-coin","color":"red"}`)

	if g.status != statusDiscardCoins {
		t.Fatalf("status = %q, want %q at 12 coins", g.status, statusDiscardCoins)
	}

	act(g, domain.ViewerBoard, `{"type":"select-player-coin","color":"white"}`)
	if g.status != statusDiscardCoins {
		t.Fatalf("still over limit, status = %q", g.status)
	}
	act(g, domain.ViewerBoard, `{"type":"select-player-coin","color":"white"}`)

	if st.coins.Total() != 10 {
		t.Fatalf("player coin total = %d, want 10", st.coins.Total())
	}
	if g.coins.White != bankWhite+2 {
		t.Fatalf("bank white = %d, want discards returned", g.coins.White)
	}
	if g.status != statusStartTurn {
		t.Fatalf("status = %q, want next turn", g.status)
	}
}

func TestBuyCard_PaysWithDiscountAndGoldAndRestocksBank(t *testing.T) {
	g := newStartedGame(t, "alice", "bob")
	st := g.states[g.current]
	st.coins = CoinSet{White: 2, Blue: 1, Gold: 2}
	st.cards = CardSet{Green: 1}

	card := &Card{Color: Red, Prestige: 1, Cost: CardSet{White: 2, Blue: 1, Green: 2, Red: 1}, Level: 1}
	g.board[2][0] = card
	bankBefore := g.coins

	act(g, domain.ViewerBoard, `{"type":"buy-card-button"}`)
	act(g, domain.ViewerBoard, `{"type":"select-board-card","rowIndex":2,"colIndex":0}`)

	if st.coins != (CoinSet{}) {
		t.Fatalf("player coins = %+v, want everything spent", st.coins)
	}
	if st.cards.Red != 1 || st.prestige != 1 {
		t.Fatalf("acquisition not recorded: cards=%+v prestige=%d", st.cards, st.prestige)
	}
	if g.coins.White != bankBefore.White+2 || g.coins.Blue != bankBefore.Blue+1 || g.coins.Gold != bankBefore.Gold+2 {
		t.Fatalf("bank = %+v, want spent coins returned (before %+v)", g.coins, bankBefore)
	}
	if card.Cost != (CardSet{White: 2, Blue: 1, Green: 2, Red: 1}) {
		t.Fatalf("card cost mutated during payment: %+v", card.Cost)
	}
}

func TestBuyCard_UnaffordableIgnored(t *testing.T) {
	g := newStartedGame(t, "alice", "bob")
	st := g.states[g.current]
	st.coins = CoinSet{}

	card := &Card{Color: Red, Prestige: 1, Cost: CardSet{White: 7}, Level: 3}
	g.board[0][0] = card

	act(g, domain.ViewerBoard, `{"type":"buy-card-button"}`)
	act(g, domain.ViewerBoard, `{"type":"select-board-card","rowIndex":0,"colIndex":0}`)

	if g.board[0][0] != card {
		t.Fatalf("unaffordable card left the board")
	}
	if g.status != statusBuyCard {
		t.Fatalf("status = %q, want unchanged", g.status)
	}
}

func TestReserve_FromPileGrantsGold(t *testing.T) {
	g := newStartedGame(t, "alice", "bob")
	st := g.states[g.current]

	act(g, domain.ViewerBoard, `{"type":"reserve-card-button"}`)
	act(g, domain.ViewerBoard, `{"type":"select-pile-card","level":1}`)

	if len(st.reserved) != 1 {
		t.Fatalf("reserved = %d, want 1", len(st.reserved))
	}
	if st.coins.Gold != 1 {
		t.Fatalf("gold = %d, want reserve bonus", st.coins.Gold)
	}
	if g.status != statusStartTurn {
		t.Fatalf("status = %q, want next turn", g.status)
	}
}

func TestReserve_NoGoldWhenBankEmpty(t *testing.T) {
	g := newStartedGame(t, "alice", "bob")
	st := g.states[g.current]
	g.coins.Gold = 0

	act(g, domain.ViewerBoard, `{"type":"reserve-card-button"}`)
	act(g, domain.ViewerBoard, `{"type":"select-board-card","rowIndex":2,"colIndex":1}`)

	if len(st.reserved) != 1 {
		t.Fatalf("reserved = %d, want 1", len(st.reserved))
	}
	if st.coins.Gold != 0 {
		t.Fatalf("gold = %d, want none granted", st.coins.Gold)
	}
}

func TestReserve_GoldBonusOverTenForcesDiscard(t *testing.T) {
	g := newStartedGame(t, "alice", "bob")
	st := g.states[g.current]
	st.coins = CoinSet{White: 5, Blue: 5}
	before := g.current

	act(g, domain.ViewerBoard, `{"type":"reserve-card-button"}`)
	act(g, domain.ViewerBoard, `{"type":"select-pile-card","level":1}`)

	if g.status != statusDiscardCoins {
		t.Fatalf("status = %q, want %q at 11 coins", g.status, statusDiscardCoins)
	}
	if g.current != before {
		t.Fatalf("turn advanced while over the coin limit")
	}

	act(g, domain.ViewerBoard, `{"type":"select-player-coin","color":"white"}`)

	if st.coins.Total() != 10 {
		t.Fatalf("player coin total = %d, want 10", st.coins.Total())
	}
	if g.status != statusStartTurn {
		t.Fatalf("status = %q, want next turn", g.status)
	}
}

func TestReserve_LimitOfThree(t *testing.T) {
	g := newStartedGame(t, "alice", "bob")
	st := g.states[g.current]
	st.reserved = []Card{{Level: 1}, {Level: 1}, {Level: 2}}

	act(g, domain.ViewerBoard, `{"type":"reserve-card-button"}`)

	if g.status != statusStartTurn {
		t.Fatalf("status = %q, want reserve refused at limit", g.status)
	}
}

func TestNoble_MustBeChosenNeverAutoAwarded(t *testing.T) {
	g := newStartedGame(t, "alice", "bob")
	st := g.states[g.current]
	st.cards = CardSet{White: 3, Blue: 3}
	g.nobles = []*Noble{
		{Cost: []NobleCost{{Color: White, Count: 3}}, Prestige: noblePrestige, NobleIndex: 1},
		{Cost: []NobleCost{{Color: Blue, Count: 3}}, Prestige: noblePrestige, NobleIndex: 2},
	}
	g.board[2][0] = &Card{Color: Green, Cost: CardSet{}, Level: 1}

	act(g, domain.ViewerBoard, `{"type":"buy-card-button"}`)
	act(g, domain.ViewerBoard, `{"type":"select-board-card","rowIndex":2,"colIndex":0}`)

	if g.status != statusChooseNoble {
		t.Fatalf("status = %q, want %q with two eligible nobles", g.status, statusChooseNoble)
	}
	if st.prestige != 0 {
		t.Fatalf("prestige = %d, noble must not be auto-awarded", st.prestige)
	}

	act(g, domain.ViewerBoard, `{"type":"select-noble-card","index":1}`)

	if st.prestige != noblePrestige {
		t.Fatalf("prestige = %d, want %d from chosen noble", st.prestige, noblePrestige)
	}
	if g.nobles[1] != nil || g.nobles[0] == nil {
		t.Fatalf("wrong noble consumed: %v", g.nobles)
	}
}

func TestWinners_PrestigeThenCardCount(t *testing.T) {
	g := newStartedGame(t, "alice", "bob")
	g.states[0].prestige = 2
	g.states[0].cards = CardSet{White: 5}
	g.states[1].prestige = 2
	g.states[1].cards = CardSet{White: 4}

	winners := g.winners()
	if len(winners) != 1 || winners[0] != 0 {
		t.Fatalf("winners = %v, want card count to break prestige tie", winners)
	}

	g.states[1].cards = CardSet{White: 5}
	winners = g.winners()
	if len(winners) != 2 {
		t.Fatalf("winners = %v, want co-winners on full tie", winners)
	}

	g.states[0].prestige = 0
	g.states[1].prestige = 0
	if g.winners() != nil {
		t.Fatalf("winners before anyone reaches the threshold")
	}
}

func TestRoster_MidRoundJoinGoesToStandby(t *testing.T) {
	g := newStartedGame(t, "alice", "bob")

	g.AddPlayer("carol")
	if len(g.players) != 2 {
		t.Fatalf("in-round roster changed: %v", g.players)
	}
	if len(g.standby) != 3 {
		t.Fatalf("standby = %v, want alice, bob, carol", g.standby)
	}

	g.RemovePlayer("bob")
	if len(g.players) != 2 {
		t.Fatalf("in-round roster lost a seat: %v", g.players)
	}

	act(g, domain.ViewerBoard, `{"type":"reset"}`)
	if len(g.players) != 2 || g.players[0] != "alice" || g.players[1] != "carol" {
		t.Fatalf("roster after reset = %v, want [alice carol]", g.players)
	}
}

func TestTakeAction_IgnoresNonActingPlayer(t *testing.T) {
	g := newStartedGame(t, "alice", "bob")
	other := g.players[(g.current+1)%2]

	act(g, other, `{"type":"take-coins-button"}`)
	if g.status != statusStartTurn {
		t.Fatalf("non-acting player drove the state machine")
	}

	act(g, currentName(g), `{"type":"take-coins-button"}`)
	if g.status != statusCoinTake {
		t.Fatalf("acting player was refused")
	}
}

func TestTakeAction_MalformedAndUnknownIgnored(t *testing.T) {
	g := newStartedGame(t, "alice", "bob")

	act(g, domain.ViewerBoard, `{broken`)
	act(g, domain.ViewerBoard, `{"type":"no-such-action"}`)
	act(g, domain.ViewerBoard, `{"type":"select-board-card","rowIndex":99,"colIndex":-1}`)

	if g.status != statusStartTurn {
		t.Fatalf("status = %q, want unchanged by garbage", g.status)
	}
}

func TestContentFor_BoardNeverContainsHands(t *testing.T) {
	g := newStartedGame(t, "alice", "bob")
	g.states[0].reserved = []Card{{Color: Red, Level: 2, Cost: CardSet{Red: 3}}}

	board := g.ContentFor(domain.ViewerBoard).(*BoardView)
	if len(board.PlayerStates[0].ReservedCards) != 1 || board.PlayerStates[0].ReservedCards[0] != 2 {
		t.Fatalf("board must show reserved card levels only: %v", board.PlayerStates[0].ReservedCards)
	}

	hand := g.ContentFor("alice").(*HandView)
	if len(hand.Hand) != 1 || hand.Hand[0].Cost.Red != 3 {
		t.Fatalf("own hand must show the full card: %+v", hand.Hand)
	}
}

// 乱数アクション列の下で、コインは銀行とプレイヤーの間でのみ移動し、
// 総数が変わらないこと。カードも山・場・手札・所有の間を移るだけ。
func TestInvariants_RandomActionSequences(t *testing.T) {
	colors := []string{"white", "blue", "green", "red", "black", "gold", "bogus"}
	types := []string{
		"take-coins-button", "select-coin", "reserve-card-button", "buy-card-button",
		"cancel-to-start-turn", "skip-turn", "select-pile-card", "select-board-card",
		"select-hand-card", "select-player-coin", "select-noble-card",
	}
	totalCards := len(level1Cards) + len(level2Cards) + len(level3Cards)

	rapid.Check(t, func(rt *rapid.T) {
		g := NewWithRand(newSinkStub(), rand.New(rand.NewPCG(rapid.Uint64().Draw(rt, "seed"), 7)))
		g.AddPlayer("alice")
		g.AddPlayer("bob")
		act(g, domain.ViewerBoard, `{"type":"start"}`)

		steps := rapid.IntRange(1, 300).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			payload := fmt.Sprintf(`{"type":%q,"color":%q,"level":%d,"rowIndex":%d,"colIndex":%d,"index":%d}`,
				rapid.SampledFrom(types).Draw(rt, "type"),
				rapid.SampledFrom(colors).Draw(rt, "color"),
				rapid.IntRange(0, 4).Draw(rt, "level"),
				rapid.IntRange(-1, 3).Draw(rt, "row"),
				rapid.IntRange(-1, 4).Draw(rt, "col"),
				rapid.IntRange(-1, 5).Draw(rt, "index"),
			)
			viewer := rapid.SampledFrom([]string{domain.ViewerBoard, "alice", "bob"}).Draw(rt, "viewer")
			act(g, viewer, payload)
			if g.status == statusGameOver {
				break
			}
		}

		for _, c := range []Color{White, Blue, Green, Red, Black} {
			total := g.coins.Get(c)
			for _, st := range g.states {
				if st.coins.Get(c) < 0 {
					rt.Fatalf("negative %s coins: %+v", c, st.coins)
				}
				total += st.coins.Get(c)
			}
			if total != 4 {
				rt.Fatalf("%s coins not conserved: total %d", c, total)
			}
		}
		goldTotal := g.coins.Gold
		for _, st := range g.states {
			if st.coins.Gold < 0 {
				rt.Fatalf("negative gold: %+v", st.coins)
			}
			goldTotal += st.coins.Gold
		}
		if goldTotal != 5 {
			rt.Fatalf("gold not conserved: total %d", goldTotal)
		}

		cards := len(g.piles[0]) + len(g.piles[1]) + len(g.piles[2])
		for i := range g.board {
			for j := range g.board[i] {
				if g.board[i][j] != nil {
					cards++
				}
			}
		}
		for _, st := range g.states {
			cards += len(st.reserved) + st.cards.Total()
		}
		if cards != totalCards {
			rt.Fatalf("cards not conserved: %d of %d", cards, totalCards)
		}

		if g.status == statusStartTurn {
			for i, st := range g.states {
				if st.coins.Total() > maxHeldCoins {
					rt.Fatalf("player %d holds %d coins at turn start", i, st.coins.Total())
				}
			}
		}
	})
}
