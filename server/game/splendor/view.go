package splendor

import (
	"strings"
)

// Button は卓画面の操作ボタンです。
type Button struct {
	Label   string `json:"label"`
	Action  string `json:"action"`
	Enabled bool   `json:"enabled"`
}

// CoinFlags は色ごとの選択可否です。
type CoinFlags struct {
	White bool `json:"white"`
	Blue  bool `json:"blue"`
	Green bool `json:"green"`
	Red   bool `json:"red"`
	Black bool `json:"black"`
	Gold  bool `json:"gold"`
}

func (f *CoinFlags) set(c Color) {
	switch c {
	case White:
		f.White = true
	case Blue:
		f.Blue = true
	case Green:
		f.Green = true
	case Red:
		f.Red = true
	case Black:
		f.Black = true
	case Gold:
		f.Gold = true
	}
}

func (f CoinFlags) any() bool {
	return f.White || f.Blue || f.Green || f.Red || f.Black || f.Gold
}

// CardView は選択可否を付けたカードです。
type CardView struct {
	Color        Color   `json:"color"`
	Prestige     int     `json:"prestige"`
	Cost         CardSet `json:"cost"`
	Level        int     `json:"level"`
	IsSelectable bool    `json:"isSelectable"`
}

type NobleView struct {
	Cost         []NobleCost `json:"cost"`
	Prestige     int         `json:"prestige"`
	NobleIndex   int         `json:"nobleIndex"`
	IsSelectable bool        `json:"isSelectable"`
}

// PlayerView は卓画面に並ぶ各プレイヤーの公開情報です。予約カードは
// レベルだけを見せます。
type PlayerView struct {
	Name            string  `json:"name"`
	IsTurn          bool    `json:"isTurn"`
	Coins           CoinSet `json:"coins"`
	CoinsSelectable bool    `json:"coinsSelectable"`
	Prestige        int     `json:"prestige"`
	ReservedCards   []int   `json:"reservedCards"`
	Cards           CardSet `json:"cards"`
}

// BoardView は共有の卓画面のビューモデルです。手札は一切含みません。
type BoardView struct {
	Buttons         []Button      `json:"buttons"`
	FaceupCards     [][]*CardView `json:"faceupCards"`
	Coins           CoinSet       `json:"coins"`
	CoinsSelectable CoinFlags     `json:"coinsSelectable"`
	PilesSelectable [3]bool       `json:"pilesSelectable"`
	PilesVisible    [3]bool       `json:"pilesVisible"`
	Nobles          []*NobleView  `json:"nobles"`
	DisplayText     string        `json:"displayText"`
	PlayerStates    []PlayerView  `json:"playerStates"`
}

// HandView はプレイヤー個人の手元画面です。
type HandView struct {
	Hand        []*CardView `json:"hand"`
	DisplayText string      `json:"displayText"`
}

// selectableCoins は現在のコインフェーズで銀行から取れる色を返します。
func (g *Game) selectableCoins() CoinFlags {
	var flags CoinFlags
	switch g.status {
	case statusCoinTake:
		for _, c := range cardColors {
			if g.coins.Get(c) > 0 {
				flags.set(c)
			}
		}
	case statusCoin1Taken:
		for _, c := range cardColors {
			if g.coins.Get(c) > 0 && !(g.coins.Get(c) < 3 && g.pick1 == c) {
				flags.set(c)
			}
		}
	case statusCoin2Taken:
		for _, c := range cardColors {
			if g.coins.Get(c) > 0 && g.pick1 != c && g.pick2 != c {
				flags.set(c)
			}
		}
	}
	return flags
}

func (g *Game) boardView() *BoardView {
	buttons := []Button{
		{Label: "Back", Action: "back", Enabled: true},
		{Label: "Reset", Action: actReset, Enabled: g.status != statusReset},
	}

	var displayText string
	playerCoinsSelectable := false
	var pilesSelectable [3]bool
	faceupSelectable := [3][boardCols]bool{}
	noblesSelectable := make([]bool, len(g.nobles))

	switch g.status {
	case statusReset:
		startable := len(g.players) >= minPlayers && len(g.players) <= maxPlayers
		buttons = append(buttons, Button{Label: "Start Game", Action: actStart, Enabled: startable})

	case statusStartTurn:
		st := g.states[g.current]
		buttons = append(buttons,
			Button{Label: "Take Coins", Action: actTakeCoinsButton, Enabled: g.bankGemTotal() != 0},
			Button{Label: "Reserve Card", Action: actReserveButton, Enabled: len(st.reserved) < maxReserved},
			Button{Label: "Buy Card", Action: actBuyButton, Enabled: true},
			Button{Label: "Skip Turn", Action: actSkipTurn, Enabled: true},
		)
		displayText = g.players[g.current] + "'s Turn"

	case statusCoinTake:
		displayText = "Choose a coin to take"
		buttons = append(buttons, Button{Label: "Cancel", Action: actCancel, Enabled: true})

	case statusCoin1Taken:
		displayText = "Choose second coin to take"

	case statusCoin2Taken:
		displayText = "Choose third coin to take"

	case statusDiscardCoins:
		displayText = "Return coins until you have 10 coins"
		playerCoinsSelectable = true

	case statusReserveCard:
		displayText = "Choose a card to reserve"
		buttons = append(buttons, Button{Label: "Cancel", Action: actCancel, Enabled: true})
		pilesSelectable = [3]bool{true, true, true}
		for i := range faceupSelectable {
			for j := range faceupSelectable[i] {
				faceupSelectable[i][j] = g.board[i][j] != nil
			}
		}

	case statusBuyCard:
		displayText = "Choose a card to take"
		buttons = append(buttons, Button{Label: "Cancel", Action: actCancel, Enabled: true})
		for i := range g.board {
			for j := range g.board[i] {
				faceupSelectable[i][j] = g.isBuyable(g.board[i][j])
			}
		}

	case statusChooseNoble:
		displayText = "Choose a noble"
		copy(noblesSelectable, g.eligibleNobles())

	case statusGameOver:
		var names []string
		for _, idx := range g.winners() {
			names = append(names, " "+g.players[idx])
		}
		displayText = "Game Over! Congratulations" + strings.Join(names, ",") + "!"
	}

	if g.status == statusStartTurn && g.lastRound() {
		displayText = "Last Round - " + displayText
	}

	faceup := make([][]*CardView, len(g.board))
	for i := range g.board {
		row := make([]*CardView, boardCols)
		for j, card := range g.board[i] {
			if card == nil {
				continue
			}
			row[j] = &CardView{
				Color:        card.Color,
				Prestige:     card.Prestige,
				Cost:         card.Cost,
				Level:        card.Level,
				IsSelectable: faceupSelectable[i][j],
			}
		}
		faceup[i] = row
	}

	nobles := make([]*NobleView, len(g.nobles))
	for i, noble := range g.nobles {
		if noble == nil {
			continue
		}
		nobles[i] = &NobleView{
			Cost:         noble.Cost,
			Prestige:     noble.Prestige,
			NobleIndex:   noble.NobleIndex,
			IsSelectable: noblesSelectable[i],
		}
	}

	players := make([]PlayerView, len(g.players))
	for i, name := range g.players {
		st := g.states[i]
		levels := make([]int, len(st.reserved))
		for j, card := range st.reserved {
			levels[j] = card.Level
		}
		players[i] = PlayerView{
			Name:            name,
			IsTurn:          g.current == i,
			Coins:           st.coins,
			CoinsSelectable: i == g.current && playerCoinsSelectable,
			Prestige:        st.prestige,
			ReservedCards:   levels,
			Cards:           st.cards,
		}
	}

	return &BoardView{
		Buttons:         buttons,
		FaceupCards:     faceup,
		Coins:           g.coins,
		CoinsSelectable: g.selectableCoins(),
		PilesSelectable: pilesSelectable,
		PilesVisible:    [3]bool{len(g.piles[2]) > 0, len(g.piles[1]) > 0, len(g.piles[0]) > 0},
		Nobles:          nobles,
		DisplayText:     displayText,
		PlayerStates:    players,
	}
}

func (g *Game) handView(name string) *HandView {
	idx := g.playerIndex(name)
	if idx < 0 {
		return &HandView{Hand: []*CardView{}, DisplayText: "Waiting for game to start"}
	}
	st := g.states[idx]

	selectable := make([]bool, len(st.reserved))
	var displayText string
	switch g.status {
	case statusReset:
		displayText = "Waiting for game to start"
	case statusStartTurn:
		if idx == g.current {
			displayText = "It's your turn"
		}
	case statusBuyCard:
		if idx == g.current {
			for i := range st.reserved {
				selectable[i] = g.isBuyable(&st.reserved[i])
			}
			if len(st.reserved) > 0 {
				displayText = "Choose a card to buy"
			}
		}
	}

	hand := make([]*CardView, len(st.reserved))
	for i, card := range st.reserved {
		hand[i] = &CardView{
			Color:        card.Color,
			Prestige:     card.Prestige,
			Cost:         card.Cost,
			Level:        card.Level,
			IsSelectable: selectable[i],
		}
	}
	return &HandView{Hand: hand, DisplayText: displayText}
}

// lastRound は誰かが規定の威信点に届いたラウンドかを返します。
func (g *Game) lastRound() bool {
	for _, st := range g.states {
		if st.prestige >= finalRoundPrestige {
			return true
		}
	}
	return false
}
