// Package genai implements the pipeline's research, speech, and avatar
// service contracts against the Gemini generateContent REST API.
//
// Research uses a search-grounded text model, speech synthesis a
// multi-speaker TTS model, and portraits an image generation model. All
// three surfaces share one HTTP client and an optional outbound rate cap.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/avendel/chronovox/internal/avatar"
	"github.com/avendel/chronovox/internal/research"
	"github.com/avendel/chronovox/internal/speech"
)

const (
	defaultBaseURL   = "https://generativelanguage.googleapis.com/v1beta"
	maxResponseBytes = 32 << 20
)

// Models selects the model for each service surface.
type Models struct {
	Research string
	Speech   string
	Image    string
}

// DefaultModels are the models the pipeline is tuned against.
var DefaultModels = Models{
	Research: "gemini-2.5-flash",
	Speech:   "gemini-2.5-flash-preview-tts",
	Image:    "gemini-2.0-flash-preview-image-generation",
}

// Client calls the generative language API.
type Client struct {
	apiKey  string
	baseURL string
	models  Models
	client  *http.Client
	limiter *rate.Limiter
}

// Option customises a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, typically for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithModels overrides the default model selection. Zero-valued fields
// keep their defaults.
func WithModels(m Models) Option {
	return func(c *Client) {
		if m.Research != "" {
			c.models.Research = m.Research
		}
		if m.Speech != "" {
			c.models.Speech = m.Speech
		}
		if m.Image != "" {
			c.models.Image = m.Image
		}
	}
}

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.client = h }
}

// WithRequestsPerMinute caps the outbound request rate across all three
// surfaces. n <= 0 removes the cap.
func WithRequestsPerMinute(n int) Option {
	return func(c *Client) {
		if n <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(float64(n)/60), 1)
	}
}

// New creates a Client authenticating with apiKey.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		models:  DefaultModels,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StatusError is a non-200 response from the API. It keeps the status code
// so quota classification can match on it directly.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("generate failed (status %d): %.512s", e.Code, e.Body)
}

// StatusCode returns the HTTP status code.
func (e *StatusError) StatusCode() int { return e.Code }

// Research implements research.Backend with a search-grounded text call.
func (c *Client) Research(ctx context.Context, prompt string) (*research.Finding, error) {
	resp, err := c.generate(ctx, c.models.Research, generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		Tools:    []tool{{GoogleSearch: &struct{}{}}},
	})
	if err != nil {
		return nil, err
	}

	finding := &research.Finding{}
	if resp.PromptFeedback != nil {
		finding.BlockReason = resp.PromptFeedback.BlockReason
	}
	if len(resp.Candidates) == 0 {
		return finding, nil
	}

	cand := resp.Candidates[0]
	finding.FinishReason = cand.FinishReason
	var sb strings.Builder
	for _, p := range cand.Content.Parts {
		sb.WriteString(p.Text)
	}
	finding.Text = sb.String()
	if cand.GroundingMetadata != nil {
		for _, chunk := range cand.GroundingMetadata.GroundingChunks {
			if chunk.Web == nil {
				continue
			}
			finding.Citations = append(finding.Citations, research.Citation{
				Title: chunk.Web.Title,
				URI:   chunk.Web.URI,
			})
		}
	}

	slog.Debug("research call complete",
		"text_length", len(finding.Text), "citations", len(finding.Citations))
	return finding, nil
}

// Synthesize implements speech.Synthesizer with a multi-speaker TTS call.
func (c *Client) Synthesize(ctx context.Context, transcript string, voices []speech.ChannelVoice) (*speech.Result, error) {
	cfgs := make([]speakerVoiceConfig, 0, len(voices))
	for _, v := range voices {
		cfgs = append(cfgs, speakerVoiceConfig{
			Speaker:     v.Channel,
			VoiceConfig: voiceConfig{PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: v.Voice}},
		})
	}

	resp, err := c.generate(ctx, c.models.Speech, generateRequest{
		Contents: []content{{Parts: []part{{Text: transcript}}}},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &speechConfig{
				MultiSpeakerVoiceConfig: &multiSpeakerVoiceConfig{SpeakerVoiceConfigs: cfgs},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	result := &speech.Result{}
	if len(resp.Candidates) == 0 {
		return result, nil
	}
	cand := resp.Candidates[0]
	result.FinishReason = cand.FinishReason
	for _, p := range cand.Content.Parts {
		if p.InlineData != nil && len(p.InlineData.Data) > 0 {
			result.Audio = p.InlineData.Data
			result.MIMEType = p.InlineData.MIMEType
			break
		}
	}

	slog.Debug("synthesis call complete",
		"audio_bytes", len(result.Audio), "finish_reason", result.FinishReason)
	return result, nil
}

// Paint implements avatar.Painter with an image generation call.
func (c *Client) Paint(ctx context.Context, prompt string) (*avatar.Image, error) {
	resp, err := c.generate(ctx, c.models.Image, generateRequest{
		Contents:         []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{ResponseModalities: []string{"TEXT", "IMAGE"}},
	})
	if err != nil {
		return nil, err
	}

	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			if p.InlineData != nil && strings.HasPrefix(p.InlineData.MIMEType, "image/") {
				return &avatar.Image{Data: p.InlineData.Data, MIMEType: p.InlineData.MIMEType}, nil
			}
		}
	}
	return nil, fmt.Errorf("no image in response")
}

// generate POSTs one request to the model's generateContent endpoint.
func (c *Client) generate(ctx context.Context, model string, reqBody generateRequest) (*generateResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshalling request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generate request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(respBody)}
	}

	var out generateResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &out, nil
}

// --- Wire types ---

type generateRequest struct {
	Contents         []content         `json:"contents"`
	Tools            []tool            `json:"tools,omitempty"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

// inlineData carries base64 payloads; []byte round-trips the encoding.
type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

type tool struct {
	GoogleSearch *struct{} `json:"googleSearch,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	MultiSpeakerVoiceConfig *multiSpeakerVoiceConfig `json:"multiSpeakerVoiceConfig,omitempty"`
}

type multiSpeakerVoiceConfig struct {
	SpeakerVoiceConfigs []speakerVoiceConfig `json:"speakerVoiceConfigs"`
}

type speakerVoiceConfig struct {
	Speaker     string      `json:"speaker"`
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type generateResponse struct {
	Candidates     []candidate     `json:"candidates"`
	PromptFeedback *promptFeedback `json:"promptFeedback"`
}

type candidate struct {
	Content           content            `json:"content"`
	FinishReason      string             `json:"finishReason"`
	GroundingMetadata *groundingMetadata `json:"groundingMetadata"`
}

type groundingMetadata struct {
	GroundingChunks []groundingChunk `json:"groundingChunks"`
}

type groundingChunk struct {
	Web *webSource `json:"web"`
}

type webSource struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

type promptFeedback struct {
	BlockReason string `json:"blockReason"`
}
