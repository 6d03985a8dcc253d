package speech

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/avendel/chronovox/internal/fault"
	"github.com/avendel/chronovox/internal/retry"
	"github.com/avendel/chronovox/internal/scene"
)

type fakeSynth struct {
	results     []*Result
	errs        []error
	transcripts []string
	voices      [][]ChannelVoice
}

func (f *fakeSynth) Synthesize(ctx context.Context, transcript string, voices []ChannelVoice) (*Result, error) {
	i := len(f.transcripts)
	f.transcripts = append(f.transcripts, transcript)
	f.voices = append(f.voices, voices)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.results) {
		return f.results[i], nil
	}
	return nil, errors.New("no more results")
}

func testScenario() *scene.Scenario {
	return &scene.Scenario{
		Characters: []scene.Character{
			{Name: "Ana", Gender: scene.Female, Voice: "Kore"},
			{Name: "Luis", Gender: scene.Male, Voice: "Puck"},
		},
		Script: []scene.DialogueLine{
			{Speaker: "Ana", Text: "Buen día *sonríe* Luis", Translation: "Good morning Luis"},
			{Speaker: "Luis", Text: "Buen día, Ana [señala el mercado]", Translation: "Good morning, Ana"},
		},
	}
}

func audioResult() *Result {
	return &Result{Audio: []byte{0x01, 0x00, 0x02, 0x00}, MIMEType: "audio/L16;rate=24000"}
}

func TestGenerateNativeLanguage(t *testing.T) {
	synth := &fakeSynth{results: []*Result{audioResult()}}

	buf, err := New(synth, retry.Default).Generate(context.Background(), testScenario())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if buf == nil || len(buf.PCM.Data) != 2 {
		t.Fatalf("buffer = %+v, want 2 decoded samples", buf)
	}
	if len(synth.transcripts) != 1 {
		t.Fatalf("synth calls = %d, want 1", len(synth.transcripts))
	}

	want := "Speaker A: Buen día  Luis\nSpeaker B: Buen día, Ana"
	if synth.transcripts[0] != want {
		t.Errorf("transcript = %q, want %q", synth.transcripts[0], want)
	}
	if v := synth.voices[0]; len(v) != 2 || v[0].Voice != "Kore" || v[1].Voice != "Puck" {
		t.Errorf("voices = %+v", v)
	}
	if synth.voices[0][0].Channel != "Speaker A" || synth.voices[0][1].Channel != "Speaker B" {
		t.Errorf("channels = %+v", synth.voices[0])
	}
}

func TestGenerateFallsBackToTranslation(t *testing.T) {
	synth := &fakeSynth{
		errs:    []error{errors.New("language not supported")},
		results: []*Result{nil, audioResult()},
	}

	buf, err := New(synth, retry.Default).Generate(context.Background(), testScenario())
	if err != nil {
		t.Fatalf("Generate after fallback: %v", err)
	}
	if buf == nil {
		t.Fatal("buffer is nil after successful fallback")
	}
	if len(synth.transcripts) != 2 {
		t.Fatalf("synth calls = %d, want 2", len(synth.transcripts))
	}
	if !strings.Contains(synth.transcripts[0], "Buen día") {
		t.Errorf("first attempt should use native text: %q", synth.transcripts[0])
	}
	if !strings.Contains(synth.transcripts[1], "Good morning Luis") {
		t.Errorf("fallback should use translation: %q", synth.transcripts[1])
	}
}

func TestGenerateEmptyScript(t *testing.T) {
	synth := &fakeSynth{}
	sc := testScenario()
	sc.Script = nil

	_, err := New(synth, retry.Default).Generate(context.Background(), sc)
	if fault.KindOf(err) != fault.EmptyDialogue {
		t.Fatalf("kind = %v, want empty_dialogue", fault.KindOf(err))
	}
	if len(synth.transcripts) != 0 {
		t.Errorf("synth called %d times for empty script", len(synth.transcripts))
	}
}

func TestGenerateStageDirectionsOnly(t *testing.T) {
	sc := testScenario()
	sc.Script = []scene.DialogueLine{
		{Speaker: "Ana", Text: "*suspira*", Translation: "[sighs]"},
	}

	_, err := New(&fakeSynth{}, retry.Default).Generate(context.Background(), sc)
	if fault.KindOf(err) != fault.EmptyDialogue {
		t.Fatalf("kind = %v, want empty_dialogue", fault.KindOf(err))
	}
}

func TestGenerateNoAudioTwiceIsGenerationFailure(t *testing.T) {
	synth := &fakeSynth{results: []*Result{
		{FinishReason: "STOP"},
		{FinishReason: "STOP"},
	}}

	_, err := New(synth, retry.Default).Generate(context.Background(), testScenario())
	if fault.KindOf(err) != fault.AudioGenerationFailed {
		t.Fatalf("kind = %v, want audio_generation_failed", fault.KindOf(err))
	}
	if !strings.Contains(err.Error(), "STOP") {
		t.Errorf("finish reason lost: %q", err.Error())
	}
}

func TestGenerateSafetyBlock(t *testing.T) {
	synth := &fakeSynth{results: []*Result{
		{FinishReason: "SAFETY"},
		{FinishReason: "SAFETY"},
	}}

	_, err := New(synth, retry.Default).Generate(context.Background(), testScenario())
	if fault.KindOf(err) != fault.ContentBlocked {
		t.Fatalf("kind = %v, want content_blocked", fault.KindOf(err))
	}
}

func TestRenderTranscript(t *testing.T) {
	sc := testScenario()
	sc.Script = append(sc.Script, scene.DialogueLine{Speaker: "Ana", Text: "", Translation: ""})

	native := renderTranscript(sc, false)
	if strings.Contains(native, "sonríe") || strings.Contains(native, "señala") {
		t.Errorf("stage directions survive: %q", native)
	}
	if got := strings.Count(native, "\n"); got != 1 {
		t.Errorf("line breaks = %d, want 1 (empty line dropped)", got)
	}

	translated := renderTranscript(sc, true)
	if !strings.HasPrefix(translated, "Speaker A: Good morning Luis") {
		t.Errorf("translated render = %q", translated)
	}
}
