// Package interpreter delegates query understanding to an external reasoning
// service and applies the deterministic reply-shaping rules the service itself
// is not trusted to enforce.
package interpreter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shoplocal-backend/internal/models"
)

// ErrInterpretation is returned when the reasoning service produces no usable
// content or a malformed structure. This is a contract violation to surface,
// not to guess around.
var ErrInterpretation = errors.New("query interpretation failed")

// NoMatchReply is the fixed copy used when the directory produced no matches.
const NoMatchReply = "I couldn't find any businesses matching your request. " +
	"Could you try describing what you're looking for differently? " +
	"For example, what type of service or help do you need?"

// Result is the outcome of interpreting one user utterance.
type Result struct {
	Reply     string
	Matches   []models.BusinessMatch
	IsClosing bool
}

// Interpreter is the capability interface over the external reasoning service.
// Tests substitute a scripted implementation.
type Interpreter interface {
	Interpret(ctx context.Context, utterance string, directory []models.BusinessRecord, prior []models.Message) (*Result, error)
}

// Finalize applies the deterministic post-processing rules to an interpreted
// result, in place:
//   - zero matches: the reply becomes the fixed no-match copy
//   - exactly one match: the reply stands alone
//   - two or more matches without closing intent: the reply must carry a
//     disambiguating follow-up question; one is appended if missing
//   - closing intent: no follow-up question regardless of match count
func Finalize(res *Result) {
	switch {
	case len(res.Matches) == 0:
		res.Reply = NoMatchReply
	case len(res.Matches) >= 2 && !res.IsClosing:
		if !strings.Contains(res.Reply, "?") {
			res.Reply = strings.TrimSpace(res.Reply)
			if res.Reply != "" {
				res.Reply += " "
			}
			res.Reply += refinementQuestion(res.Matches)
		}
	}
}

// refinementQuestion builds a disambiguating follow-up from the match names.
// Only the top few names are listed to keep the question readable.
func refinementQuestion(matches []models.BusinessMatch) string {
	const maxListed = 5

	names := make([]string, 0, maxListed)
	for _, m := range matches {
		if len(names) == maxListed {
			break
		}
		names = append(names, m.Name)
	}

	switch len(names) {
	case 0:
		return "Which type of business are you looking for?"
	case 1:
		return fmt.Sprintf("Were you looking for %s?", names[0])
	default:
		last := names[len(names)-1]
		return fmt.Sprintf("Which of these sounds closest to what you need: %s or %s?",
			strings.Join(names[:len(names)-1], ", "), last)
	}
}
