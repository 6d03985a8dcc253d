// Package local implements the research, speech, and avatar service
// contracts without any remote calls.
//
// It exists for development and demos: the pipeline runs end to end on a
// canned scene, a synthesized test tone, and a placeholder portrait, so
// the service stays usable without an API key.
package local

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"strings"

	"github.com/avendel/chronovox/internal/avatar"
	"github.com/avendel/chronovox/internal/research"
	"github.com/avendel/chronovox/internal/speech"
)

// Backend serves canned responses for all three service surfaces.
type Backend struct{}

// New creates a canned Backend.
func New() *Backend { return &Backend{} }

// cannedScene is fenced the way the live service tends to answer, so the
// extraction path is exercised even offline.
const cannedScene = "```json\n" + `{
  "context": "A spice stall in the Granada silk market, late morning. The call of traders mixes with the smell of saffron and leather.",
  "accentProfile": "Andalusi Arabic cadence, unhurried, with rolled consonants",
  "characters": [
    {
      "name": "Amina",
      "gender": "female",
      "voice": "Kore",
      "visualDescription": "A middle-aged spice seller in an indigo headwrap and layered wool robes",
      "bio": "Runs the saffron stall her mother ran before her."
    },
    {
      "name": "Yusuf",
      "gender": "male",
      "voice": "Puck",
      "visualDescription": "A young scribe with ink-stained fingers and a worn leather satchel",
      "bio": "Copies contracts for merchants who cannot write."
    }
  ],
  "script": [
    {"speaker": "Amina", "text": "Sabah al-khayr, ya Yusuf. Za'faran al-yawm tayyib.", "translation": "Good morning, Yusuf. Today's saffron is fine.", "annotations": [{"phrase": "Za'faran", "explanation": "Saffron, the market's most valuable spice"}]},
    {"speaker": "Yusuf", "text": "Sabah an-nur. Bikam al-mithqal?", "translation": "Morning of light. How much per mithqal?", "annotations": [{"phrase": "mithqal", "explanation": "A unit of weight, about 4.25 grams"}]},
    {"speaker": "Amina", "text": "Laka anta, dirhaman.", "translation": "For you, two dirhams."},
    {"speaker": "Yusuf", "text": "Itnayn? Al-barakah, ya Amina.", "translation": "Two? You are generous, Amina."}
  ]
}` + "\n```"

// onePixelPNG is the smallest valid PNG, one transparent pixel.
const onePixelPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mP8z8BQDwAEhQGAhKmMIQAAAABJRU5ErkJggg=="

// Research returns the canned scene with no citations.
func (b *Backend) Research(ctx context.Context, prompt string) (*research.Finding, error) {
	return &research.Finding{Text: cannedScene, FinishReason: "STOP"}, nil
}

// Synthesize returns a 440 Hz tone, one second per transcript line.
func (b *Backend) Synthesize(ctx context.Context, transcript string, voices []speech.ChannelVoice) (*speech.Result, error) {
	lines := strings.Count(transcript, "\n") + 1
	if lines > 8 {
		lines = 8
	}
	samples := speech.SampleRate * lines
	data := make([]byte, 0, samples*2)
	for i := 0; i < samples; i++ {
		v := int16(3000 * math.Sin(2*math.Pi*440*float64(i)/float64(speech.SampleRate)))
		data = append(data, byte(v), byte(v>>8))
	}
	return &speech.Result{
		Audio:        data,
		MIMEType:     "audio/L16;rate=24000",
		FinishReason: "STOP",
	}, nil
}

// Paint returns the placeholder pixel.
func (b *Backend) Paint(ctx context.Context, prompt string) (*avatar.Image, error) {
	data, err := base64.StdEncoding.DecodeString(onePixelPNG)
	if err != nil {
		return nil, fmt.Errorf("decoding placeholder image: %w", err)
	}
	return &avatar.Image{Data: data, MIMEType: "image/png"}, nil
}
