package game

import (
	"time"

	"github.com/modelarena/holdem/poker"
)

// Phase represents the betting street of the current hand.
type Phase string

const (
	Preflop  Phase = "preflop"
	Flop     Phase = "flop"
	Turn     Phase = "turn"
	River    Phase = "river"
	Showdown Phase = "showdown"
)

// next returns the phase that follows s in the hand loop.
func (p Phase) next() Phase {
	switch p {
	case Preflop:
		return Flop
	case Flop:
		return Turn
	case Turn:
		return River
	default:
		return Showdown
	}
}

// order gives phases a total order for run-out comparisons.
func (p Phase) order() int {
	switch p {
	case Preflop:
		return 0
	case Flop:
		return 1
	case Turn:
		return 2
	case River:
		return 3
	case Showdown:
		return 4
	default:
		return -1
	}
}

// Status is the lifecycle state of a game.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Action is a betting decision.
type Action string

const (
	Fold  Action = "fold"
	Check Action = "check"
	Call  Action = "call"
	Raise Action = "raise"
	AllIn Action = "allin"
)

// WinCondition records how a hand ended.
type WinCondition string

const (
	WinShowdown  WinCondition = "showdown"
	WinAllFolded WinCondition = "all_folded"
)

// Config is the per-game configuration, fixed at creation.
type Config struct {
	BuyIn         int           `json:"buyIn"`
	SmallBlind    int           `json:"smallBlind"`
	BigBlind      int           `json:"bigBlind"`
	MaxHands      int           `json:"maxHands"`
	TurnTimeout   time.Duration `json:"turnTimeoutMs"`
	InterHandWait time.Duration `json:"interHandWaitMs"`
}

// Seat is a player's state within one game. Seating is fixed for the
// game's duration; chips carry across hands, the rest resets per hand
// or per street.
type Seat struct {
	ModelID          string       `json:"modelId"`
	SeatIndex        int          `json:"seatIndex"`
	Chips            int          `json:"chips"`
	HoleCards        []poker.Card `json:"holeCards,omitempty"`
	CurrentBet       int          `json:"currentBet"`
	TotalBetThisHand int          `json:"totalBetThisHand"`
	Folded           bool         `json:"folded"`
	AllIn            bool         `json:"isAllIn"`
	HasActed         bool         `json:"hasActed"`
}

// CanAct reports whether the seat can still make a betting decision.
func (s *Seat) CanAct() bool {
	return !s.Folded && !s.AllIn
}

// Table is the mutable per-hand table state.
type Table struct {
	Phase           Phase        `json:"phase"`
	Pot             int          `json:"pot"`
	Community       []poker.Card `json:"communityCards"`
	DealerIndex     int          `json:"dealerIndex"`
	CurrentPlayer   int          `json:"currentPlayerIndex"`
	CurrentBet      int          `json:"currentBet"`
	MinRaise        int          `json:"minRaise"`
	LastRaiseAmount int          `json:"lastRaiseAmount"`
	LastAggressor   int          `json:"lastAggressor"`
	TurnNumber      int64        `json:"turnNumber"`
}

// DeckState is the persisted deck: full order, cursor, and burns, so a
// restarted process resumes a hand with the same run-out.
type DeckState struct {
	Cards  []poker.Card `json:"cards"`
	Cursor int          `json:"cursor"`
	Burned []poker.Card `json:"burned"`
}

func deckStateOf(d *poker.Deck) *DeckState {
	return &DeckState{Cards: d.Cards(), Cursor: d.Cursor(), Burned: d.Burned()}
}

func (ds *DeckState) deck() *poker.Deck {
	return poker.Restore(ds.Cards, ds.Cursor, ds.Burned)
}

// HandAction is one betting decision within a hand, kept for the current
// hand's prompt context and the completed hand's history entry.
type HandAction struct {
	SeatIndex int       `json:"seatIndex"`
	ModelID   string    `json:"modelId"`
	Phase     Phase     `json:"phase"`
	Action    Action    `json:"action"`
	Amount    int       `json:"amount,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// HandSummary is one completed hand.
type HandSummary struct {
	HandNumber   int          `json:"handNumber"`
	Pot          int          `json:"pot"`
	Board        []poker.Card `json:"board"`
	WinnerIDs    []string     `json:"winnerIds"`
	WinCondition WinCondition `json:"winCondition"`
	Actions      []HandAction `json:"actions"`
	CompletedAt  time.Time    `json:"completedAt"`
}

// Result is a seat's final standing, persisted on completion.
type Result struct {
	ModelID string `json:"modelId"`
	Chips   int    `json:"chips"`
	Profit  int    `json:"profit"`
	Rank    int    `json:"rank"`
}

// NoSeat marks "no seat" for DealerIndex, CurrentPlayer, LastAggressor
// and ThinkingSeat.
const NoSeat = -1

// Game is the persisted root record and single source of truth for one
// table. All engine mutations go through the transactional store.
type Game struct {
	ID           string                `json:"id"`
	Status       Status                `json:"status"`
	IsDev        bool                  `json:"isDevGame"`
	Config       Config                `json:"config"`
	Seats        []*Seat               `json:"seats"`
	Table        Table                 `json:"tableState"`
	Deck         *DeckState            `json:"deck,omitempty"`
	Stats        map[string]*SeatStats `json:"perPlayerStats"`
	ActionLog    []LogEntry            `json:"actionLog"`
	HandHistory  []HandSummary         `json:"handHistory"`
	HandActions  []HandAction          `json:"handActions"`
	ThinkingSeat int                   `json:"thinkingSeat"`
	CurrentHand  int                   `json:"currentHand"`
	TotalAICost  float64               `json:"totalAICost"`
	TotalTokens  int64                 `json:"totalTokens"`
	Results      []Result              `json:"results,omitempty"`
	CreatedAt    time.Time             `json:"createdAt"`
	CompletedAt  *time.Time            `json:"completedAt,omitempty"`
}

// New creates a game in the waiting state with one seat per roster model.
func New(id string, cfg Config, modelIDs []string, now time.Time) *Game {
	g := &Game{
		ID:           id,
		Status:       StatusWaiting,
		Config:       cfg,
		Stats:        make(map[string]*SeatStats, len(modelIDs)),
		ThinkingSeat: NoSeat,
		CreatedAt:    now,
	}
	g.Table.DealerIndex = NoSeat
	g.Table.CurrentPlayer = NoSeat
	g.Table.LastAggressor = NoSeat
	for i, modelID := range modelIDs {
		g.Seats = append(g.Seats, &Seat{
			ModelID:   modelID,
			SeatIndex: i,
			Chips:     cfg.BuyIn,
		})
		g.Stats[modelID] = &SeatStats{}
	}
	return g
}

// Seat returns the seat at index, or nil when out of range.
func (g *Game) Seat(i int) *Seat {
	if i < 0 || i >= len(g.Seats) {
		return nil
	}
	return g.Seats[i]
}

// NonFolded counts seats still contesting the current hand.
func (g *Game) NonFolded() int {
	n := 0
	for _, s := range g.Seats {
		if !s.Folded {
			n++
		}
	}
	return n
}

// Actionable counts seats that can still make betting decisions.
func (g *Game) Actionable() int {
	n := 0
	for _, s := range g.Seats {
		if s.CanAct() {
			n++
		}
	}
	return n
}

// FundedSeats counts seats with chips or chips in the current pot.
func (g *Game) FundedSeats() int {
	n := 0
	for _, s := range g.Seats {
		if s.Chips > 0 || s.TotalBetThisHand > 0 {
			n++
		}
	}
	return n
}

// NextSeat scans clockwise from `from` (inclusive) for a seat satisfying
// keep, returning NoSeat when none does.
func (g *Game) NextSeat(from int, keep func(*Seat) bool) int {
	n := len(g.Seats)
	for i := 0; i < n; i++ {
		idx := ((from+i)%n + n) % n
		if keep(g.Seats[idx]) {
			return idx
		}
	}
	return NoSeat
}

// recountPot refreshes the convenience pot total.
func (g *Game) recountPot() {
	total := 0
	for _, s := range g.Seats {
		total += s.TotalBetThisHand
	}
	g.Table.Pot = total
}
