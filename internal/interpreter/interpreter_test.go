package interpreter

import (
	"strings"
	"testing"

	"shoplocal-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func match(name string) models.BusinessMatch {
	return models.BusinessMatch{Name: name}
}

func TestFinalizeNoMatches(t *testing.T) {
	res := &Result{Reply: "model text that should be replaced"}
	Finalize(res)

	assert.Equal(t, NoMatchReply, res.Reply)
	assert.Empty(t, res.Matches)
}

func TestFinalizeSingleMatchStandsAlone(t *testing.T) {
	res := &Result{
		Reply:   "Ace Plumbing handles residential plumbing and emergency calls.",
		Matches: []models.BusinessMatch{match("Ace Plumbing")},
	}
	Finalize(res)

	assert.Equal(t, "Ace Plumbing handles residential plumbing and emergency calls.", res.Reply)
	assert.NotContains(t, res.Reply, "Which of these")
}

func TestFinalizeMultipleMatchesAppendsQuestion(t *testing.T) {
	res := &Result{
		Reply:   "I found a few options for you.",
		Matches: []models.BusinessMatch{match("Ace Plumbing"), match("Bright Electric"), match("City Roofing")},
	}
	Finalize(res)

	assert.Contains(t, res.Reply, "?")
	assert.Contains(t, res.Reply, "Ace Plumbing")
	assert.Contains(t, res.Reply, "City Roofing")
}

func TestFinalizeMultipleMatchesKeepsExistingQuestion(t *testing.T) {
	reply := "A few businesses could help. Do you need residential or commercial work?"
	res := &Result{
		Reply:   reply,
		Matches: []models.BusinessMatch{match("Ace Plumbing"), match("Bright Electric")},
	}
	Finalize(res)

	assert.Equal(t, reply, res.Reply, "a reply that already asks a question is left alone")
}

func TestFinalizeClosingNeverAppendsQuestion(t *testing.T) {
	res := &Result{
		Reply:     "Glad I could help. Have a great day!",
		Matches:   []models.BusinessMatch{match("Ace Plumbing"), match("Bright Electric"), match("City Roofing")},
		IsClosing: true,
	}
	Finalize(res)

	assert.NotContains(t, res.Reply, "?")
}

func TestRefinementQuestionListsAtMostFiveNames(t *testing.T) {
	matches := make([]models.BusinessMatch, 7)
	for i := range matches {
		matches[i] = match(strings.Repeat("x", i+1))
	}

	question := refinementQuestion(matches)
	assert.NotContains(t, question, "xxxxxx", "only the top five names are listed")
	assert.True(t, strings.HasSuffix(question, "?"))
}

func TestParseInterpretationResolvesMatches(t *testing.T) {
	dir := []models.BusinessRecord{
		{CompanyName: "Ace Plumbing", PrimaryServices: "Plumbing", Category1: "Plumber", Phone: "555-0101"},
		{CompanyName: "Bright Electric", PrimaryServices: "Electrical"},
	}

	res, err := parseInterpretation(`{"reply": "Ace Plumbing can help.", "matches": ["ace plumbing"], "is_closing": false}`, dir)
	require.NoError(t, err)

	assert.Equal(t, "Ace Plumbing can help.", res.Reply)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "Ace Plumbing", res.Matches[0].Name)
	assert.Equal(t, "555-0101", res.Matches[0].Phone)
	assert.False(t, res.IsClosing)
}

func TestParseInterpretationDropsUnknownNames(t *testing.T) {
	dir := []models.BusinessRecord{{CompanyName: "Ace Plumbing"}}

	res, err := parseInterpretation(`{"reply": "ok", "matches": ["Ace Plumbing", "Imaginary LLC"], "is_closing": false}`, dir)
	require.NoError(t, err)
	assert.Len(t, res.Matches, 1)
}

func TestParseInterpretationMissingReply(t *testing.T) {
	_, err := parseInterpretation(`{"matches": [], "is_closing": false}`, nil)
	assert.ErrorIs(t, err, ErrInterpretation)
}

func TestParseInterpretationMalformedJSON(t *testing.T) {
	_, err := parseInterpretation(`not json at all`, nil)
	assert.ErrorIs(t, err, ErrInterpretation)
}

func TestParseInterpretationWrongShape(t *testing.T) {
	_, err := parseInterpretation(`{"reply": "hi", "matches": "oops", "is_closing": false}`, nil)
	assert.ErrorIs(t, err, ErrInterpretation)
}

func TestParseInterpretationClosingFlag(t *testing.T) {
	res, err := parseInterpretation(`{"reply": "Bye!", "matches": [], "is_closing": true}`, nil)
	require.NoError(t, err)
	assert.True(t, res.IsClosing)
}
