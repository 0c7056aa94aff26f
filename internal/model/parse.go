package model

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/modelarena/holdem/internal/game"
)

// Replies are free-text reasoning followed by an action keyword. The
// reasoning routinely mentions actions it rejected, so the parse takes
// the last matching line and, within it, the last match.
var actionRe = regexp.MustCompile(
	`(?i)\b(?:(FOLD)|(CHECK)|(ALL[\s-]?IN)|RAISE(?:\s+TO)?\s*\$?\s*(\d+)|(CALL))\b`)

// ParseReply extracts the betting decision from a model's reply. ok is
// false when no action keyword appears anywhere.
func ParseReply(text string) (action game.Action, amount int, ok bool) {
	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		matches := actionRe.FindAllStringSubmatch(lines[i], -1)
		if len(matches) == 0 {
			continue
		}
		m := matches[len(matches)-1]
		switch {
		case m[1] != "":
			return game.Fold, 0, true
		case m[2] != "":
			return game.Check, 0, true
		case m[3] != "":
			return game.AllIn, 0, true
		case m[4] != "":
			n, err := strconv.Atoi(m[4])
			if err != nil {
				return "", 0, false
			}
			return game.Raise, n, true
		case m[5] != "":
			return game.Call, 0, true
		}
	}
	return "", 0, false
}
