// Package speech renders a scene's script into a transcript and drives
// multi-speaker audio synthesis for it, falling back to the English
// translation when the period language will not synthesize.
package speech

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/avendel/chronovox/internal/fault"
	"github.com/avendel/chronovox/internal/pcm"
	"github.com/avendel/chronovox/internal/retry"
	"github.com/avendel/chronovox/internal/scene"
)

// Output audio format produced by the synthesis service.
const (
	SampleRate = 24000
	Channels   = 1
)

// channelLabels are the fixed speaker channels presented to the synthesis
// service. Character one always maps to the first channel.
var channelLabels = [2]string{"Speaker A", "Speaker B"}

// stageDirections matches asterisk and bracket asides, which read badly
// when spoken aloud.
var stageDirections = regexp.MustCompile(`\*[^*]*\*|\[[^\]]*\]`)

// ChannelVoice binds one transcript channel to a prebuilt voice.
type ChannelVoice struct {
	Channel string
	Voice   string
}

// Result is the raw outcome of one synthesis call.
type Result struct {
	Audio        []byte
	MIMEType     string
	FinishReason string
}

// Synthesizer performs the remote text-to-speech call.
type Synthesizer interface {
	Synthesize(ctx context.Context, transcript string, voices []ChannelVoice) (*Result, error)
}

// Orchestrator turns a normalized scene into playable audio.
type Orchestrator struct {
	synth  Synthesizer
	policy retry.Policy
}

// New creates an Orchestrator calling synth under the given retry policy.
func New(synth Synthesizer, policy retry.Policy) *Orchestrator {
	return &Orchestrator{synth: synth, policy: policy}
}

// Generate synthesizes sc's script in its original language, falling back
// once to the English translation when the native attempt fails. A fallback
// failure is reported as the fallback's own refusal where it has one, and
// as an audio generation failure otherwise.
func (o *Orchestrator) Generate(ctx context.Context, sc *scene.Scenario) (*pcm.Buffer, error) {
	buf, err := o.attempt(ctx, sc, false)
	if err == nil {
		return buf, nil
	}
	slog.Warn("native-language synthesis failed, retrying with translation", "error", err)

	buf, ferr := o.attempt(ctx, sc, true)
	if ferr == nil {
		return buf, nil
	}
	switch fault.KindOf(ferr) {
	case fault.ContentBlocked, fault.EmptyDialogue:
		return nil, ferr
	}
	return nil, fault.Wrap(fault.AudioGenerationFailed, ferr)
}

// attempt runs one synthesis pass over the rendered transcript.
func (o *Orchestrator) attempt(ctx context.Context, sc *scene.Scenario, useTranslation bool) (*pcm.Buffer, error) {
	transcript := renderTranscript(sc, useTranslation)
	if transcript == "" {
		return nil, fault.New(fault.EmptyDialogue, "script has no speakable lines")
	}

	voices := make([]ChannelVoice, 0, len(channelLabels))
	for i, c := range sc.Characters {
		if i >= len(channelLabels) {
			break
		}
		voices = append(voices, ChannelVoice{Channel: channelLabels[i], Voice: c.Voice})
	}

	var res *Result
	err := retry.Do(ctx, o.policy, "synthesize", func(ctx context.Context) error {
		r, err := o.synth.Synthesize(ctx, transcript, voices)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(res.Audio) == 0 {
		reason := res.FinishReason
		if strings.EqualFold(reason, "SAFETY") {
			return nil, fault.New(fault.ContentBlocked, "synthesis blocked by safety policy")
		}
		if reason == "" {
			reason = "unknown"
		}
		return nil, fault.New(fault.NoAudioData, "no audio in response (finish reason %s)", reason)
	}

	buf, err := pcm.Decode(res.Audio, SampleRate, Channels)
	if err != nil {
		return nil, fmt.Errorf("decode synthesis audio: %w", err)
	}
	return buf, nil
}

// renderTranscript flattens the script into channel-labelled lines, one per
// script entry, stripping stage directions. Lines left empty after
// stripping are dropped.
func renderTranscript(sc *scene.Scenario, useTranslation bool) string {
	channel := make(map[string]string, len(sc.Characters))
	for i, c := range sc.Characters {
		if i >= len(channelLabels) {
			break
		}
		channel[c.Name] = channelLabels[i]
	}

	lines := make([]string, 0, len(sc.Script))
	for _, l := range sc.Script {
		text := l.Text
		if useTranslation {
			text = l.Translation
		}
		text = strings.TrimSpace(stageDirections.ReplaceAllString(text, ""))
		if text == "" {
			continue
		}
		label, ok := channel[l.Speaker]
		if !ok {
			label = channelLabels[0]
		}
		lines = append(lines, label+": "+text)
	}
	return strings.Join(lines, "\n")
}
