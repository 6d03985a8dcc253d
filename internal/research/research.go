// Package research turns a location and a date into a normalized dialogue
// scene by way of a grounded generative research call.
package research

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/avendel/chronovox/internal/extract"
	"github.com/avendel/chronovox/internal/fault"
	"github.com/avendel/chronovox/internal/retry"
	"github.com/avendel/chronovox/internal/scene"
)

// Citation is one grounding chunk attached to a research response. URI may
// be empty for chunks that do not reference the web.
type Citation struct {
	Title string
	URI   string
}

// Finding is the raw outcome of one research call.
type Finding struct {
	// Text is the model's full text output, expected to contain one JSON
	// payload.
	Text string
	// Citations lists the grounding chunks in response order.
	Citations []Citation
	// FinishReason is the service's completion flag for the candidate.
	FinishReason string
	// BlockReason is set when the prompt itself was refused.
	BlockReason string
}

// Blocked reports whether the service refused the request on policy grounds.
func (f *Finding) Blocked() bool {
	return f.BlockReason != "" || strings.EqualFold(f.FinishReason, "SAFETY")
}

// Backend performs the remote research call.
type Backend interface {
	Research(ctx context.Context, prompt string) (*Finding, error)
}

// Orchestrator drives one research request end to end: prompt construction,
// the retried remote call, safety checks, citation dedup, JSON extraction,
// and normalization.
type Orchestrator struct {
	backend Backend
	policy  retry.Policy
}

// New creates an Orchestrator calling backend under the given retry policy.
func New(backend Backend, policy retry.Policy) *Orchestrator {
	return &Orchestrator{backend: backend, policy: policy}
}

// Scene researches location on date and returns the normalized result with
// its deduplicated sources attached.
func (o *Orchestrator) Scene(ctx context.Context, location, date string) (*scene.Scenario, error) {
	prompt := buildPrompt(location, date)

	var finding *Finding
	err := retry.Do(ctx, o.policy, "research", func(ctx context.Context) error {
		f, err := o.backend.Research(ctx, prompt)
		if err != nil {
			return err
		}
		finding = f
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}

	if finding.Blocked() {
		return nil, fault.New(fault.ContentBlocked, "research request blocked by safety policy")
	}

	sources := dedupSources(finding.Citations)

	obj, err := extract.Object(finding.Text)
	if err != nil {
		return nil, err
	}
	if len(obj) == 0 {
		return nil, fault.New(fault.MalformedResponse, "research returned an empty payload")
	}

	sc := scene.Normalize(obj)
	sc.Sources = sources
	slog.Debug("research normalized",
		"location", location, "lines", len(sc.Script), "sources", len(sc.Sources))
	return &sc, nil
}

// classify maps transport failures to the surfaced taxonomy: quota
// signatures become ServiceBusy, everything else keeps its message under
// ResearchFailed.
func classify(err error) error {
	if retry.IsQuota(err) {
		return fault.Wrap(fault.ServiceBusy, err)
	}
	return fault.Wrap(fault.ResearchFailed, err)
}

// dedupSources keeps citations carrying a web URI, first seen wins, falling
// back to the URI host when a chunk has no title.
func dedupSources(cites []Citation) []scene.Source {
	seen := make(map[string]bool, len(cites))
	var out []scene.Source
	for _, c := range cites {
		uri := strings.TrimSpace(c.URI)
		if uri == "" || seen[uri] {
			continue
		}
		seen[uri] = true
		title := strings.TrimSpace(c.Title)
		if title == "" {
			title = hostOf(uri)
		}
		out = append(out, scene.Source{Title: title, URI: uri})
	}
	return out
}

// hostOf extracts the host from uri, or returns uri unchanged when it does
// not parse.
func hostOf(uri string) string {
	if u, err := url.Parse(uri); err == nil && u.Host != "" {
		return u.Host
	}
	return uri
}

// buildPrompt asks for a researched two-character scene in a fixed JSON
// shape, with voices drawn from the published sets.
func buildPrompt(location, date string) string {
	return fmt.Sprintf(`Research everyday life in %s on %s using web search, then write a short imagined dialogue between two people who could plausibly have met there that day.

Respond with a single JSON object and nothing else:
{
  "context": "one paragraph describing the setting and moment",
  "accentProfile": "how the speakers would sound",
  "characters": [
    {
      "name": "display name",
      "gender": "male or female",
      "voice": "one voice name from the matching set below",
      "visualDescription": "appearance, for a portrait",
      "bio": "one sentence about who they are"
    }
  ],
  "script": [
    {
      "speaker": "character name",
      "text": "the line in the language actually spoken there at the time",
      "translation": "English translation of the line",
      "annotations": [{"phrase": "term from text", "explanation": "what it means"}]
    }
  ]
}

Rules: exactly two characters. Voices for male characters: %s. Voices for female characters: %s. The two voices must differ. Keep the dialogue to 8-14 lines, grounded in the researched facts.`,
		location, date,
		strings.Join(scene.MaleVoices, ", "),
		strings.Join(scene.FemaleVoices, ", "))
}
