package scene

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"sort"
	"strings"
)

// unknownSpeaker is assigned to script lines that arrive without a speaker.
const unknownSpeaker = "Unknown"

// Normalize repairs a raw research payload into a Scenario satisfying the
// structural invariants: exactly two characters with distinct names and
// legal voices, and every script line attributed to one of them. It is
// total: any payload shape, including nil, yields a valid Scenario.
func Normalize(raw map[string]any) Scenario {
	sc := Scenario{
		Context:       strings.TrimSpace(str(raw["context"])),
		AccentProfile: strings.TrimSpace(str(raw["accentProfile"])),
	}
	sc.Characters = normalizeCharacters(list(raw["characters"]))
	sc.Script = normalizeScript(list(raw["script"]), sc.Characters)
	return sc
}

// normalizeCharacters coerces the raw character list to exactly two entries
// with valid names, genders, and voices.
func normalizeCharacters(raw []any) []Character {
	chars := make([]Character, 0, 2)
	for _, entry := range raw {
		if len(chars) == 2 {
			break
		}
		m := object(entry)
		if m == nil {
			continue
		}
		chars = append(chars, Character{
			Name:              strings.TrimSpace(str(m["name"])),
			Gender:            coerceGender(str(m["gender"])),
			Voice:             strings.TrimSpace(str(m["voice"])),
			VisualDescription: strings.TrimSpace(str(m["visualDescription"])),
			Bio:               strings.TrimSpace(str(m["bio"])),
		})
	}
	for len(chars) < 2 {
		chars = append(chars, syntheticCharacter(len(chars)))
	}

	for i := range chars {
		if chars[i].Name == "" {
			chars[i].Name = fmt.Sprintf("Speaker %d", i+1)
		}
	}
	if chars[0].Name == chars[1].Name {
		chars[0].Name += " (1)"
		chars[1].Name += " (2)"
	}

	chars[0].Voice = resolveVoice(chars[0].Gender, chars[0].Voice, "")
	chars[1].Voice = resolveVoice(chars[1].Gender, chars[1].Voice, chars[0].Voice)
	return chars
}

// syntheticCharacter fills a missing slot: alternating gender starting male,
// with generic description fields.
func syntheticCharacter(i int) Character {
	g := Male
	if i%2 == 1 {
		g = Female
	}
	return Character{
		Name:              fmt.Sprintf("Speaker %d", i+1),
		Gender:            g,
		Voice:             VoicesFor(g)[0],
		Bio:               "A local voice from the period.",
		VisualDescription: "A person in period-appropriate dress.",
	}
}

// coerceGender maps anything but the two literal gender strings to male.
func coerceGender(s string) Gender {
	switch Gender(strings.TrimSpace(s)) {
	case Male:
		return Male
	case Female:
		return Female
	}
	return Male
}

// resolveVoice keeps a stated voice that is legal for the gender and not
// already taken, otherwise draws a random substitute from the remaining set.
// With every voice taken the draw falls back to the full set and accepts a
// collision; the current disjoint sets never reach that branch.
func resolveVoice(g Gender, stated, taken string) string {
	set := VoicesFor(g)
	if stated != "" && slices.Contains(set, stated) && stated != taken {
		return stated
	}
	free := make([]string, 0, len(set))
	for _, v := range set {
		if v != taken {
			free = append(free, v)
		}
	}
	if len(free) == 0 {
		free = set
	}
	return free[rand.IntN(len(free))]
}

// normalizeScript coerces the raw script list and rewrites every speaker to
// one of the two character names.
func normalizeScript(raw []any, chars []Character) []DialogueLine {
	lines := make([]DialogueLine, 0, len(raw))
	for _, entry := range raw {
		m := object(entry)
		if m == nil {
			continue
		}
		line := DialogueLine{
			Speaker:     strings.TrimSpace(str(m["speaker"])),
			Text:        str(m["text"]),
			Translation: str(m["translation"]),
		}
		if line.Speaker == "" {
			line.Speaker = unknownSpeaker
		}
		line.Annotations = normalizeAnnotations(list(m["annotations"]), line.Text)
		lines = append(lines, line)
	}

	mapping := speakerMapping(lines, chars)
	for i := range lines {
		name, ok := mapping[lines[i].Speaker]
		if !ok {
			name = chars[0].Name
		}
		lines[i].Speaker = name
	}
	return lines
}

// normalizeAnnotations keeps annotations whose phrase actually appears in the
// line text, case insensitively.
func normalizeAnnotations(raw []any, text string) []Annotation {
	var anns []Annotation
	lower := strings.ToLower(text)
	for _, entry := range raw {
		m := object(entry)
		if m == nil {
			continue
		}
		a := Annotation{
			Phrase:      strings.TrimSpace(str(m["phrase"])),
			Explanation: strings.TrimSpace(str(m["explanation"])),
		}
		if a.Phrase == "" || !strings.Contains(lower, strings.ToLower(a.Phrase)) {
			continue
		}
		anns = append(anns, a)
	}
	return anns
}

// speakerMapping resolves raw speaker strings to character names. Distinct
// raw speakers are processed in descending frequency order (ties keep
// first-seen order): the most frequent speakers carry the strongest signal.
// Matching is containment in either direction, case insensitive, against
// character one first. Unmatched speakers then backfill whichever character
// still has no lines, so both characters end up represented whenever the
// script offers at least two distinct speakers; the rest default to
// character one.
func speakerMapping(lines []DialogueLine, chars []Character) map[string]string {
	counts := make(map[string]int)
	order := make([]string, 0, 4)
	for _, l := range lines {
		if counts[l.Speaker] == 0 {
			order = append(order, l.Speaker)
		}
		counts[l.Speaker]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	mapping := make(map[string]string, len(order))
	assigned := map[string]int{chars[0].Name: 0, chars[1].Name: 0}
	unmatched := make([]string, 0, len(order))
	for _, raw := range order {
		switch {
		case looseMatch(raw, chars[0].Name):
			mapping[raw] = chars[0].Name
		case looseMatch(raw, chars[1].Name):
			mapping[raw] = chars[1].Name
		default:
			unmatched = append(unmatched, raw)
			continue
		}
		assigned[mapping[raw]] += counts[raw]
	}
	for _, raw := range unmatched {
		switch {
		case assigned[chars[0].Name] == 0:
			mapping[raw] = chars[0].Name
		case assigned[chars[1].Name] == 0:
			mapping[raw] = chars[1].Name
		default:
			mapping[raw] = chars[0].Name
		}
		assigned[mapping[raw]] += counts[raw]
	}
	return mapping
}

// looseMatch reports whether a and b contain each other case insensitively,
// in either direction.
func looseMatch(a, b string) bool {
	la := strings.ToLower(a)
	lb := strings.ToLower(b)
	return strings.Contains(la, lb) || strings.Contains(lb, la)
}

// str renders a loosely-typed value as a string. Non-string scalars are
// formatted; nil becomes empty.
func str(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	case map[string]any, []any:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}

// list coerces v to a slice, or nil.
func list(v any) []any {
	l, _ := v.([]any)
	return l
}

// object coerces v to a map, or nil.
func object(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}
