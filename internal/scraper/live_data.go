package scraper

import "encoding/json"

// Messages of the lichess TV feed, one JSON object per line.

type PlayerInfo struct {
	Color string `json:"color"`
	User  struct {
		Name  string `json:"name"`
		Id    string `json:"id"`
		Title string `json:"title"`
	} `json:"user"`
	Rating int `json:"rating"`
}

type GameStart struct {
	Id          string       `json:"id"`
	Orientation string       `json:"orientation"`
	Players     []PlayerInfo `json:"players"`
	Fen         string       `json:"fen"`
}

// GameTurn carries only piece placement and side to move.
type GameTurn struct {
	Fen             string `json:"fen"`
	TurnUciNotation string `json:"lm"`
	WhiteClock      int    `json:"wc"`
	BlackClock      int    `json:"bc"`
}

type LiveMessage struct {
	Action string          `json:"t"`
	Data   json.RawMessage `json:"d"`
}
