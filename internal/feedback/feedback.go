package feedback

import (
	"encoding/json"
	"time"
)

// Category classifies a feedback observation.
type Category int

const (
	Pacing Category = iota
	Filler
	Confidence
	Relevance
)

var categoryNames = map[Category]string{
	Pacing:     "pacing",
	Filler:     "filler",
	Confidence: "confidence",
	Relevance:  "relevance",
}

type Severity int

const (
	Low Severity = iota
	Medium
	High
)

var severityNames = map[Severity]string{
	Low:    "LOW",
	Medium: "MEDIUM",
	High:   "HIGH",
}

// categoryCycle and severityCycle fix the emission order. The counter
// indexes both independently (mod 4 and mod 3), so a full pass over all
// twelve combinations takes twelve ticks.
var categoryCycle = [...]Category{Pacing, Filler, Confidence, Relevance}

var severityCycle = [...]Severity{Low, Medium, High}

// messages maps every (category, severity) pair to its coaching text.
// An explicit table rather than positional arrays: adding a category or
// severity is a localized change here and in the cycles above.
var messages = map[Category]map[Severity]string{
	Pacing: {
		Low:    "Your pacing is steady, keep this rhythm going.",
		Medium: "You are speeding up slightly, take a breath between points.",
		High:   "You are rushing through your answer, slow down considerably.",
	},
	Filler: {
		Low:    "Very few filler words so far, well done.",
		Medium: "A few 'um's and 'like's are creeping in, pause instead.",
		High:   "Filler words are dominating your answer, pause and reset.",
	},
	Confidence: {
		Low:    "You sound composed and assured.",
		Medium: "Your tone is wavering a little, ground your statements.",
		High:   "You sound unsure of this answer, commit to your reasoning.",
	},
	Relevance: {
		Low:    "Your answer is on topic and well scoped.",
		Medium: "You are drifting from the question, tie back to what was asked.",
		High:   "This answer has left the question behind, restate it and start over.",
	},
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "unknown"
}

func (c Category) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Event is a single feedback observation, produced and transmitted
// immediately, never stored.
type Event struct {
	Category  Category  `json:"type"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ForCount derives the event for the given emission ordinal. Purely
// counter-driven so the sequence for a monitoring loop is reproducible
// without any dependence on wall-clock jitter or randomness.
func ForCount(count int, ts time.Time) Event {
	category := categoryCycle[count%len(categoryCycle)]
	severity := severityCycle[count%len(severityCycle)]
	return Event{
		Category:  category,
		Severity:  severity,
		Message:   messages[category][severity],
		Timestamp: ts,
	}
}
