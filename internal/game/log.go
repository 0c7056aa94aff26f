package game

import (
	"encoding/json"
	"time"
)

// maxLogEntries bounds the persisted action log to the most recent entries.
const maxLogEntries = 30

// LogKind discriminates action-log entries.
type LogKind string

const (
	LogAction LogKind = "action"
	LogPhase  LogKind = "phase"
	LogSystem LogKind = "system"
)

// ActionRecord logs one betting decision.
type ActionRecord struct {
	SeatIndex int    `json:"seatIndex"`
	Action    Action `json:"action"`
	Amount    int    `json:"amount,omitempty"`
	Reasoning string `json:"reasoning,omitempty"`
}

// PhaseRecord logs a street transition.
type PhaseRecord struct {
	Phase Phase `json:"phase"`
}

// SystemRecord logs engine events such as hand results.
type SystemRecord struct {
	Content string `json:"content"`
}

// LogEntry is a tagged union of the three record kinds. Exactly one of
// Action, Phase, System is set, matching Kind.
type LogEntry struct {
	Kind       LogKind       `json:"kind"`
	HandNumber int           `json:"handNumber"`
	Timestamp  time.Time     `json:"timestamp"`
	Action     *ActionRecord `json:"actionRecord,omitempty"`
	Phase      *PhaseRecord  `json:"phaseRecord,omitempty"`
	System     *SystemRecord `json:"systemRecord,omitempty"`
}

// legacyLogEntry mirrors rows written before the discriminator existed:
// a flat object with many optional fields and no kind tag.
type legacyLogEntry struct {
	Kind       LogKind   `json:"kind"`
	HandNumber int       `json:"handNumber"`
	Timestamp  time.Time `json:"timestamp"`

	SeatIndex *int   `json:"seatIndex,omitempty"`
	Action    Action `json:"action,omitempty"`
	Amount    int    `json:"amount,omitempty"`
	Reasoning string `json:"reasoning,omitempty"`
	Phase     Phase  `json:"phase,omitempty"`
	Content   string `json:"content,omitempty"`

	ActionRecord *ActionRecord `json:"actionRecord,omitempty"`
	PhaseRecord  *PhaseRecord  `json:"phaseRecord,omitempty"`
	SystemRecord *SystemRecord `json:"systemRecord,omitempty"`
}

// UnmarshalJSON accepts both tagged rows and legacy untagged rows. A
// legacy row becomes an ActionRecord when an action is present, else a
// SystemRecord.
func (e *LogEntry) UnmarshalJSON(data []byte) error {
	var raw legacyLogEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	e.Kind = raw.Kind
	e.HandNumber = raw.HandNumber
	e.Timestamp = raw.Timestamp
	e.Action = raw.ActionRecord
	e.Phase = raw.PhaseRecord
	e.System = raw.SystemRecord

	if e.Kind != "" && (e.Action != nil || e.Phase != nil || e.System != nil) {
		return nil
	}

	switch {
	case raw.Action != "":
		e.Kind = LogAction
		seat := NoSeat
		if raw.SeatIndex != nil {
			seat = *raw.SeatIndex
		}
		e.Action = &ActionRecord{
			SeatIndex: seat,
			Action:    raw.Action,
			Amount:    raw.Amount,
			Reasoning: raw.Reasoning,
		}
	case raw.Kind == LogPhase || raw.Phase != "":
		e.Kind = LogPhase
		e.Phase = &PhaseRecord{Phase: raw.Phase}
	default:
		e.Kind = LogSystem
		e.System = &SystemRecord{Content: raw.Content}
	}
	return nil
}

// appendLog adds an entry and drops the oldest beyond the bound.
func (g *Game) appendLog(e LogEntry) {
	g.ActionLog = append(g.ActionLog, e)
	if len(g.ActionLog) > maxLogEntries {
		g.ActionLog = g.ActionLog[len(g.ActionLog)-maxLogEntries:]
	}
}

// LogActionEntry records a betting decision in the action log.
func (g *Game) LogActionEntry(seat int, action Action, amount int, reasoning string, now time.Time) {
	g.appendLog(LogEntry{
		Kind:       LogAction,
		HandNumber: g.CurrentHand,
		Timestamp:  now,
		Action: &ActionRecord{
			SeatIndex: seat,
			Action:    action,
			Amount:    amount,
			Reasoning: reasoning,
		},
	})
}

// LogPhaseEntry records a street transition in the action log.
func (g *Game) LogPhaseEntry(phase Phase, now time.Time) {
	g.appendLog(LogEntry{
		Kind:       LogPhase,
		HandNumber: g.CurrentHand,
		Timestamp:  now,
		Phase:      &PhaseRecord{Phase: phase},
	})
}

// LogSystemEntry records an engine event in the action log.
func (g *Game) LogSystemEntry(content string, now time.Time) {
	g.appendLog(LogEntry{
		Kind:       LogSystem,
		HandNumber: g.CurrentHand,
		Timestamp:  now,
		System:     &SystemRecord{Content: content},
	})
}
