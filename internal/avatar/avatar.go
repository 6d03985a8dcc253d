// Package avatar generates character portraits. Portrait generation is
// best-effort throughout: every failure degrades to an absent image.
package avatar

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/avendel/chronovox/internal/retry"
)

// DefaultPolicy uses a smaller retry budget than the rest of the pipeline.
// Portraits are decoration and should not hold a submission hostage.
var DefaultPolicy = retry.Policy{MaxRetries: 2, InitialDelay: 2 * time.Second}

// Image is one inline image payload.
type Image struct {
	Data     []byte
	MIMEType string
}

// Painter performs the remote image generation call.
type Painter interface {
	Paint(ctx context.Context, prompt string) (*Image, error)
}

// Orchestrator generates one portrait per character.
type Orchestrator struct {
	painter Painter
	policy  retry.Policy
}

// New creates an Orchestrator calling painter under the given retry policy.
func New(painter Painter, policy retry.Policy) *Orchestrator {
	return &Orchestrator{painter: painter, policy: policy}
}

// Portrait generates a portrait for one character and returns it as a data
// URI, or "" when generation fails for any reason.
func (o *Orchestrator) Portrait(ctx context.Context, description, setting string) string {
	var img *Image
	err := retry.Do(ctx, o.policy, "portrait", func(ctx context.Context) error {
		i, err := o.painter.Paint(ctx, buildPrompt(description, setting))
		if err != nil {
			return err
		}
		img = i
		return nil
	})
	if err != nil {
		slog.Warn("portrait generation failed, continuing without avatar", "error", err)
		return ""
	}
	if len(img.Data) == 0 {
		slog.Warn("portrait generation returned no image, continuing without avatar")
		return ""
	}
	mime := img.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

func buildPrompt(description, setting string) string {
	return fmt.Sprintf("A painted head-and-shoulders portrait of a historical figure. Appearance: %s. Setting: %s. Realistic period detail, plain background, no text.",
		description, setting)
}
