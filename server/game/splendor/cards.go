package splendor

// Color は宝石の色です。Goldはジョーカーとしてコインにのみ現れます。
type Color string

const (
	White Color = "white"
	Blue  Color = "blue"
	Green Color = "green"
	Red   Color = "red"
	Black Color = "black"
	Gold  Color = "gold"
)

// cardColors はカードとして存在する5色の固定順です。
var cardColors = []Color{White, Blue, Green, Red, Black}

// CardSet は色ごとの枚数（またはコスト）です。
type CardSet struct {
	White int `json:"white"`
	Blue  int `json:"blue"`
	Green int `json:"green"`
	Red   int `json:"red"`
	Black int `json:"black"`
}

func (s *CardSet) Get(c Color) int {
	switch c {
	case White:
		return s.White
	case Blue:
		return s.Blue
	case Green:
		return s.Green
	case Red:
		return s.Red
	case Black:
		return s.Black
	}
	return 0
}

func (s *CardSet) Add(c Color, n int) {
	switch c {
	case White:
		s.White += n
	case Blue:
		s.Blue += n
	case Green:
		s.Green += n
	case Red:
		s.Red += n
	case Black:
		s.Black += n
	}
}

func (s *CardSet) Total() int {
	return s.White + s.Blue + s.Green + s.Red + s.Black
}

// CoinSet はゴールドを含むコインの枚数です。
type CoinSet struct {
	White int `json:"white"`
	Blue  int `json:"blue"`
	Green int `json:"green"`
	Red   int `json:"red"`
	Black int `json:"black"`
	Gold  int `json:"gold"`
}

func (s *CoinSet) Get(c Color) int {
	switch c {
	case White:
		return s.White
	case Blue:
		return s.Blue
	case Green:
		return s.Green
	case Red:
		return s.Red
	case Black:
		return s.Black
	case Gold:
		return s.Gold
	}
	return 0
}

func (s *CoinSet) Add(c Color, n int) {
	switch c {
	case White:
		s.White += n
	case Blue:
		s.Blue += n
	case Green:
		s.Green += n
	case Red:
		s.Red += n
	case Black:
		s.Black += n
	case Gold:
		s.Gold += n
	}
}

func (s *CoinSet) Total() int {
	return s.White + s.Blue + s.Green + s.Red + s.Black + s.Gold
}

// Card は場または手札の発展カードです。Costは共有テーブル由来なので
// 支払い処理で書き換えてはいけません。
type Card struct {
	Color    Color   `json:"color"`
	Prestige int     `json:"prestige"`
	Cost     CardSet `json:"cost"`
	Level    int     `json:"level"`
}

// NobleCost は貴族タイルの要求（色と必要カード枚数）です。
type NobleCost struct {
	Color Color `json:"color"`
	Count int   `json:"count"`
}

type Noble struct {
	Cost       []NobleCost `json:"cost"`
	Prestige   int         `json:"prestige"`
	NobleIndex int         `json:"nobleIndex"`
}

const noblePrestige = 3

// 各行は [white, blue, green, red, black, prestige] です。
var level1Rows = []struct {
	color Color
	rows  [][6]int
}{
	{White, [][6]int{
		{0, 3, 0, 0, 0, 0},
		{0, 0, 0, 2, 1, 0},
		{0, 1, 1, 1, 1, 0},
		{0, 2, 0, 0, 2, 0},
		{0, 0, 4, 0, 0, 1},
		{0, 1, 2, 1, 1, 0},
		{0, 2, 2, 0, 1, 0},
		{3, 1, 0, 0, 1, 0},
	}},
	{Blue, [][6]int{
		{1, 0, 0, 0, 2, 0},
		{0, 0, 0, 0, 3, 0},
		{1, 0, 1, 1, 1, 0},
		{0, 0, 2, 0, 2, 0},
		{0, 0, 0, 4, 0, 1},
		{1, 0, 1, 2, 1, 0},
		{1, 0, 2, 2, 0, 0},
		{0, 1, 3, 1, 0, 0},
	}},
	{Green, [][6]int{
		{2, 1, 0, 0, 0, 0},
		{0, 0, 0, 3, 0, 0},
		{1, 1, 0, 1, 1, 0},
		{0, 2, 0, 2, 0, 0},
		{0, 0, 0, 0, 4, 1},
		{1, 1, 0, 1, 2, 0},
		{0, 1, 0, 2, 2, 0},
		{1, 3, 1, 0, 0, 0},
	}},
	{Red, [][6]int{
		{0, 2, 1, 0, 0, 0},
		{3, 0, 0, 0, 0, 0},
		{1, 1, 1, 0, 1, 0},
		{2, 0, 0, 2, 0, 0},
		{4, 0, 0, 0, 0, 1},
		{2, 1, 1, 0, 1, 0},
		{2, 0, 1, 0, 2, 0},
		{1, 0, 0, 1, 3, 0},
	}},
	{Black, [][6]int{
		{0, 0, 2, 1, 0, 0},
		{0, 0, 3, 0, 0, 0},
		{1, 1, 1, 1, 0, 0},
		{2, 0, 2, 0, 0, 0},
		{0, 4, 0, 0, 0, 1},
		{1, 2, 1, 1, 0, 0},
		{2, 2, 0, 1, 0, 0},
		{0, 0, 1, 3, 1, 0},
	}},
}

var level2Rows = []struct {
	color Color
	rows  [][6]int
}{
	{White, [][6]int{
		{0, 0, 0, 5, 0, 2},
		{6, 0, 0, 0, 0, 3},
		{0, 0, 3, 2, 2, 1},
		{0, 0, 1, 4, 2, 2},
		{2, 3, 0, 3, 0, 1},
		{0, 0, 0, 5, 3, 2},
	}},
	{Blue, [][6]int{
		{0, 0, 5, 0, 0, 2},
		{0, 0, 6, 0, 0, 3},
		{2, 3, 0, 0, 2, 1},
		{3, 0, 2, 3, 0, 1},
		{4, 2, 0, 0, 1, 2},
		{0, 5, 3, 0, 0, 2},
	}},
	{Green, [][6]int{
		{0, 0, 5, 0, 0, 2},
		{0, 0, 6, 0, 0, 3},
		{2, 3, 0, 0, 2, 1},
		{3, 0, 2, 3, 0, 1},
		{4, 2, 0, 0, 1, 2},
		{0, 5, 3, 0, 0, 2},
	}},
	{Red, [][6]int{
		{0, 0, 0, 0, 5, 2},
		{0, 0, 0, 6, 0, 3},
		{2, 0, 0, 2, 3, 1},
		{1, 4, 2, 0, 0, 2},
		{0, 3, 0, 2, 3, 1},
		{3, 0, 0, 0, 5, 2},
	}},
	{Black, [][6]int{
		{0, 0, 0, 0, 5, 2},
		{0, 0, 0, 0, 6, 3},
		{3, 2, 2, 0, 0, 1},
		{0, 1, 4, 2, 0, 2},
		{3, 0, 3, 0, 2, 1},
		{0, 0, 5, 3, 0, 2},
	}},
}

var level3Rows = []struct {
	color Color
	rows  [][6]int
}{
	{White, [][6]int{
		{0, 0, 0, 0, 7, 4},
		{3, 0, 0, 0, 7, 5},
		{3, 0, 0, 3, 6, 4},
		{0, 3, 3, 5, 3, 3},
	}},
	{Blue, [][6]int{
		{7, 0, 0, 0, 0, 4},
		{7, 3, 0, 0, 0, 5},
		{6, 3, 0, 0, 3, 4},
		{3, 0, 3, 3, 5, 3},
	}},
	{Green, [][6]int{
		{0, 7, 0, 0, 0, 4},
		{0, 7, 3, 0, 0, 5},
		{3, 6, 3, 0, 0, 4},
		{3, 5, 3, 0, 3, 3},
	}},
	{Red, [][6]int{
		{0, 0, 7, 0, 0, 4},
		{0, 0, 7, 3, 0, 5},
		{0, 3, 6, 3, 0, 4},
		{3, 5, 3, 0, 3, 3},
	}},
	{Black, [][6]int{
		{0, 0, 0, 7, 0, 4},
		{0, 0, 0, 7, 3, 5},
		{0, 0, 3, 6, 3, 4},
		{3, 3, 5, 3, 0, 3},
	}},
}

// 各行は [white, blue, green, red, black, nobleIndex] です。
var nobleRows = [][6]int{
	{3, 3, 0, 0, 3, 2},
	{0, 3, 3, 3, 0, 1},
	{3, 0, 0, 3, 3, 7},
	{0, 0, 4, 4, 0, 10},
	{0, 4, 4, 0, 0, 5},
	{0, 0, 0, 4, 4, 9},
	{4, 0, 0, 0, 4, 3},
	{3, 3, 3, 0, 0, 6},
	{0, 0, 3, 3, 3, 8},
	{4, 4, 0, 0, 0, 4},
}

func buildDeck(level int, groups []struct {
	color Color
	rows  [][6]int
}) []Card {
	var cards []Card
	for _, g := range groups {
		for _, row := range g.rows {
			cards = append(cards, Card{
				Color:    g.color,
				Prestige: row[5],
				Cost: CardSet{
					White: row[0],
					Blue:  row[1],
					Green: row[2],
					Red:   row[3],
					Black: row[4],
				},
				Level: level,
			})
		}
	}
	return cards
}

func buildNobles() []Noble {
	var nobles []Noble
	for _, row := range nobleRows {
		var cost []NobleCost
		for i, c := range cardColors {
			if row[i] != 0 {
				cost = append(cost, NobleCost{Color: c, Count: row[i]})
			}
		}
		nobles = append(nobles, Noble{Cost: cost, Prestige: noblePrestige, NobleIndex: row[5]})
	}
	return nobles
}

var (
	level1Cards = buildDeck(1, level1Rows)
	level2Cards = buildDeck(2, level2Rows)
	level3Cards = buildDeck(3, level3Rows)
	allNobles   = buildNobles()
)
