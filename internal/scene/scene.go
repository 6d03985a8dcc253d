// Package scene defines the dialogue data model shared across the pipeline,
// and the normalizer that repairs raw research output into it.
//
// A Scenario is built fresh for every submission: the research orchestrator
// produces one and the media stage enriches it with portraits and audio.
// Nothing in this package persists across submissions.
package scene

// Gender selects which voice set a character draws from.
type Gender string

const (
	Male   Gender = "male"
	Female Gender = "female"
)

// Voice sets accepted by the speech service, keyed by gender. The sets are
// disjoint, so a cross-gender voice collision cannot occur.
var (
	MaleVoices   = []string{"Puck", "Fenrir", "Charon", "Zephyr"}
	FemaleVoices = []string{"Kore", "Aoede"}
)

// VoicesFor returns the voice set for g.
func VoicesFor(g Gender) []string {
	if g == Female {
		return FemaleVoices
	}
	return MaleVoices
}

// Character is one of the two speakers in a Scenario.
type Character struct {
	// Name is the display name, unique within the Scenario.
	Name string `json:"name"`
	// Gender is always male or female after normalization.
	Gender Gender `json:"gender"`
	// Voice is a member of the gender's voice set, distinct from the other
	// character's voice.
	Voice string `json:"voice"`
	// VisualDescription and Bio drive portrait generation and display.
	VisualDescription string `json:"visualDescription,omitempty"`
	Bio               string `json:"bio,omitempty"`
	// AvatarURL is a data URI set after image synthesis. It stays empty when
	// portrait generation is skipped or fails.
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Annotation explains a phrase appearing in its line's text.
type Annotation struct {
	Phrase      string `json:"phrase"`
	Explanation string `json:"explanation"`
}

// DialogueLine is one utterance of the script.
type DialogueLine struct {
	// Speaker equals one of the two character names after normalization.
	Speaker string `json:"speaker"`
	// Text is the line in the period language; Translation is its English
	// rendering.
	Text        string       `json:"text"`
	Translation string       `json:"translation"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

// Source is a web citation backing the researched scene. Sources are keyed
// by URI; the first occurrence wins.
type Source struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// Scenario is the full normalized result of one research request.
type Scenario struct {
	// Context is a narrative description of the setting and time.
	Context string `json:"context"`
	// AccentProfile describes speech styling. Advisory only downstream.
	AccentProfile string         `json:"accentProfile,omitempty"`
	Characters    []Character    `json:"characters"`
	Script        []DialogueLine `json:"script"`
	Sources       []Source       `json:"sources,omitempty"`
}
