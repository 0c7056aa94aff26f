package api

import (
	"time"

	"github.com/modelarena/holdem/internal/game"
	"github.com/modelarena/holdem/poker"
)

// GameView is the spectator-safe projection of a game document: no
// deck state and no live hole cards. Completed hands already carry
// their board and actions in the history.
type GameView struct {
	ID           string                     `json:"id"`
	Status       game.Status                `json:"status"`
	IsDev        bool                       `json:"isDevGame"`
	Config       game.Config                `json:"config"`
	Seats        []SeatView                 `json:"seats"`
	Table        game.Table                 `json:"tableState"`
	Stats        map[string]*game.SeatStats `json:"perPlayerStats"`
	ActionLog    []game.LogEntry            `json:"actionLog"`
	HandHistory  []game.HandSummary         `json:"handHistory"`
	ThinkingSeat int                        `json:"thinkingSeat"`
	CurrentHand  int                        `json:"currentHand"`
	TotalAICost  float64                    `json:"totalAICost"`
	TotalTokens  int64                      `json:"totalTokens"`
	Results      []game.Result              `json:"results,omitempty"`
	CreatedAt    time.Time                  `json:"createdAt"`
	CompletedAt  *time.Time                 `json:"completedAt,omitempty"`
}

// SeatView is a seat without its hole cards.
type SeatView struct {
	ModelID          string `json:"modelId"`
	SeatIndex        int    `json:"seatIndex"`
	Chips            int    `json:"chips"`
	HoleCardCount    int    `json:"holeCardCount"`
	CurrentBet       int    `json:"currentBet"`
	TotalBetThisHand int    `json:"totalBetThisHand"`
	Folded           bool   `json:"folded"`
	AllIn            bool   `json:"isAllIn"`
	HasActed         bool   `json:"hasActed"`
}

// NewGameView projects a game document for spectators.
func NewGameView(g *game.Game) *GameView {
	v := &GameView{
		ID:           g.ID,
		Status:       g.Status,
		IsDev:        g.IsDev,
		Config:       g.Config,
		Table:        g.Table,
		Stats:        g.Stats,
		ActionLog:    g.ActionLog,
		HandHistory:  g.HandHistory,
		ThinkingSeat: g.ThinkingSeat,
		CurrentHand:  g.CurrentHand,
		TotalAICost:  g.TotalAICost,
		TotalTokens:  g.TotalTokens,
		Results:      g.Results,
		CreatedAt:    g.CreatedAt,
		CompletedAt:  g.CompletedAt,
	}
	// Copy the board so view marshalling never aliases live state.
	v.Table.Community = append([]poker.Card(nil), g.Table.Community...)
	for _, s := range g.Seats {
		v.Seats = append(v.Seats, SeatView{
			ModelID:          s.ModelID,
			SeatIndex:        s.SeatIndex,
			Chips:            s.Chips,
			HoleCardCount:    len(s.HoleCards),
			CurrentBet:       s.CurrentBet,
			TotalBetThisHand: s.TotalBetThisHand,
			Folded:           s.Folded,
			AllIn:            s.AllIn,
			HasActed:         s.HasActed,
		})
	}
	return v
}
