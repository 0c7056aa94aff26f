package game

// SeatStats are the running in-game counters for one model, merged into
// the durable player record at settlement.
type SeatStats struct {
	HandsDealt       int `json:"handsDealt"`
	HandsPlayed      int `json:"handsPlayed"` // voluntarily put chips in
	HandsWon         int `json:"handsWon"`
	PreflopRaises    int `json:"preflopRaises"`
	PreflopCalls     int `json:"preflopCalls"`
	PreflopFolds     int `json:"preflopFolds"`
	Folds            int `json:"folds"`
	Checks           int `json:"checks"`
	Calls            int `json:"calls"`
	Raises           int `json:"raises"`
	AllIns           int `json:"allIns"`
	TotalWagered     int `json:"totalWagered"`
	ShowdownsReached int `json:"showdownsReached"`
	ShowdownsWon     int `json:"showdownsWon"`
	Timeouts         int `json:"timeouts"`
	InvalidActions   int `json:"invalidActions"`

	TokensUsed int64   `json:"tokensUsed"`
	CostUSD    float64 `json:"costUsd"`

	// LastPlayedHand deduplicates HandsPlayed within one hand.
	LastPlayedHand int `json:"lastPlayedHand,omitempty"`
}

// recordAction updates per-model counters for an applied action. chips is
// the amount the action moved into the pot; wagered marks it voluntary.
func (g *Game) recordAction(seat *Seat, action Action, wagered bool, chips int) {
	st := g.Stats[seat.ModelID]
	if st == nil {
		st = &SeatStats{}
		g.Stats[seat.ModelID] = st
	}

	switch action {
	case Fold:
		st.Folds++
		if g.Table.Phase == Preflop {
			st.PreflopFolds++
		}
	case Check:
		st.Checks++
	case Call:
		st.Calls++
		if g.Table.Phase == Preflop {
			st.PreflopCalls++
		}
	case Raise:
		st.Raises++
		if g.Table.Phase == Preflop {
			st.PreflopRaises++
		}
	case AllIn:
		st.AllIns++
		if g.Table.Phase == Preflop {
			st.PreflopRaises++
		}
	}

	if wagered {
		// Blinds are forced, so only voluntary chips count toward VPIP.
		if st.LastPlayedHand != g.CurrentHand {
			st.LastPlayedHand = g.CurrentHand
			st.HandsPlayed++
		}
		st.TotalWagered += chips
	}
}

// RecordTimeout bumps the timeout counter for the model in the seat.
func (g *Game) RecordTimeout(seat *Seat) {
	if st := g.Stats[seat.ModelID]; st != nil {
		st.Timeouts++
	}
}

// RecordInvalidAction bumps the invalid-action counter for the model.
func (g *Game) RecordInvalidAction(seat *Seat) {
	if st := g.Stats[seat.ModelID]; st != nil {
		st.InvalidActions++
	}
}
