package jaipur

// Button は卓画面の操作ボタンです。出ているボタンは押せるものだけです。
type Button struct {
	Label  string `json:"label"`
	Action string `json:"action"`
}

// BonusCounts はボーナス山の残枚数です。額面は伏せられています。
type BonusCounts struct {
	Bonus3 int `json:"bonus_3"`
	Bonus4 int `json:"bonus_4"`
	Bonus5 int `json:"bonus_5"`
}

// BoardPlayerView は卓に見える各プレイヤーの状態です。手札そのものは
// 含みません。
type BoardPlayerView struct {
	SealsOfExcellence int         `json:"sealsOfExcellence"`
	Camels            int         `json:"camels"`
	GoodsTokens       GoodsTokens `json:"goodsTokens"`
	Rupees            int         `json:"rupees"`
	HasCamelToken     bool        `json:"hasCamelToken"`
	BonusTokens       BonusTokens `json:"bonusTokens"`
}

type BoardView struct {
	PlayerStates       [numPlayers]BoardPlayerView `json:"playerStates"`
	Market             [marketSize]Good            `json:"market"`
	MarketIsSelected   [marketSize]bool            `json:"marketIsSelected"`
	MarketIsSelectable [marketSize]bool            `json:"marketIsSelectable"`
	TopDiscard         Good                        `json:"topDiscard"`
	DrawPileHasCards   bool                        `json:"drawPileHasCards"`
	GoodsTokens        GoodsTokens                 `json:"goodsTokens"`
	BonusTokens        BonusCounts                 `json:"bonusTokens"`
	CamelToken         bool                        `json:"camelToken"`
	CurrentPlayerIndex int                         `json:"currentPlayerIndex"`
	Buttons            []Button                    `json:"buttons"`
}

type HandView struct {
	Hand           []Good `json:"hand"`
	HandIsSelected []bool `json:"handIsSelected"`
	DisplayText    string `json:"displayText"`
}

func (g *Game) boardView() *BoardView {
	var buttons []Button
	var selectable [marketSize]bool

	switch g.status {
	case statusReset:
		buttons = append(buttons, Button{Label: "Start Game", Action: actStart})

	case statusStartTurn:
		buttons = append(buttons, Button{Label: "Exchange Goods", Action: actExchange})
		if len(g.states[g.current].hand) < handLimit && g.marketHasGood() {
			buttons = append(buttons, Button{Label: "Take Single Good", Action: actTakeSingle})
		}
		if g.marketHasCamel() {
			buttons = append(buttons, Button{Label: "Take All Camels", Action: actTakeAllCamels})
		}
		if g.canOpenSell() {
			buttons = append(buttons, Button{Label: "Sell Cards", Action: actSell})
		}

	case statusTakeSingle:
		g.markGoodSlots(&selectable)
		buttons = append(buttons, Button{Label: "Cancel", Action: actCancelTakeSingle})

	case statusExchange:
		g.markGoodSlots(&selectable)
		if g.exchangeLegal() {
			buttons = append(buttons, Button{Label: "Exchange", Action: actDoExchange})
		}
		buttons = append(buttons, Button{Label: "Cancel", Action: actCancelExchange})

	case statusSell:
		if _, _, ok := g.sellSelection(); ok {
			buttons = append(buttons, Button{Label: "Sell", Action: actDoSell})
		}
		buttons = append(buttons, Button{Label: "Cancel", Action: actCancelSell})

	case statusEndRound:
		buttons = append(buttons, Button{Label: "Next Round", Action: actNextRound})

	case statusEndGame:
		buttons = append(buttons, Button{Label: "Reset", Action: actReset})
	}

	var players [numPlayers]BoardPlayerView
	for i := range g.states {
		st := g.states[i]
		players[i] = BoardPlayerView{
			SealsOfExcellence: st.seals,
			Camels:            st.camels,
			GoodsTokens:       st.goods,
			Rupees:            g.score(i),
			HasCamelToken:     st.hasCamelToken,
			BonusTokens:       st.bonus,
		}
	}

	return &BoardView{
		PlayerStates:       players,
		Market:             g.market,
		MarketIsSelected:   g.marketSelected,
		MarketIsSelectable: selectable,
		TopDiscard:         g.topDiscard,
		DrawPileHasCards:   len(g.drawPile) > 0,
		GoodsTokens:        g.goods,
		BonusTokens: BonusCounts{
			Bonus3: len(g.bonus.Bonus3),
			Bonus4: len(g.bonus.Bonus4),
			Bonus5: len(g.bonus.Bonus5),
		},
		CamelToken:         g.camelToken,
		CurrentPlayerIndex: g.current,
		Buttons:            buttons,
	}
}

func (g *Game) markGoodSlots(selectable *[marketSize]bool) {
	for i, card := range g.market {
		if card != Camel && card != "" {
			selectable[i] = true
		}
	}
}

func (g *Game) handView(name string) *HandView {
	idx := g.playerIndex(name)
	if idx < 0 {
		return &HandView{Hand: []Good{}, HandIsSelected: []bool{}, DisplayText: "Waiting for a new game"}
	}
	st := g.states[idx]

	var displayText string
	switch g.status {
	case statusReset:
		displayText = "Waiting for game to start"
	case statusEndRound:
		if g.lastLoser == idx {
			displayText = "Your opponent gained a token of excellence"
		} else {
			displayText = "You gained a token of excellence"
		}
	case statusEndGame:
		if st.seals >= sealsToWin {
			displayText = "You Won!"
		} else {
			displayText = "You Lost!"
		}
	default:
		if idx == g.current {
			switch g.status {
			case statusStartTurn:
				displayText = "It's your turn!"
			case statusTakeSingle:
				displayText = "Pick a card from the board"
			case statusSell:
				displayText = "Choose goods to sell"
			case statusExchange:
				displayText = "Choose goods to exchange"
			}
		}
	}

	hand := st.hand
	if hand == nil {
		hand = []Good{}
	}
	selected := st.selected
	if selected == nil {
		selected = []bool{}
	}
	return &HandView{Hand: hand, HandIsSelected: selected, DisplayText: displayText}
}
