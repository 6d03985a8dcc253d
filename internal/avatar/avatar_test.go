package avatar

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/avendel/chronovox/internal/retry"
)

type fakePainter struct {
	img     *Image
	err     error
	calls   int
	prompts []string
}

func (f *fakePainter) Paint(ctx context.Context, prompt string) (*Image, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return nil, f.err
	}
	return f.img, nil
}

func TestPortraitReturnsDataURI(t *testing.T) {
	painter := &fakePainter{img: &Image{Data: []byte{0x89, 0x50, 0x4e, 0x47}, MIMEType: "image/png"}}

	got := New(painter, DefaultPolicy).Portrait(context.Background(), "a weathered trader", "Timbuktu, 1324")
	if !strings.HasPrefix(got, "data:image/png;base64,") {
		t.Fatalf("Portrait = %q, want data URI", got)
	}
	if !strings.Contains(painter.prompts[0], "a weathered trader") {
		t.Errorf("prompt missing description: %q", painter.prompts[0])
	}
	if !strings.Contains(painter.prompts[0], "Timbuktu, 1324") {
		t.Errorf("prompt missing setting: %q", painter.prompts[0])
	}
}

func TestPortraitDefaultsMIMEType(t *testing.T) {
	painter := &fakePainter{img: &Image{Data: []byte{0x01}}}

	got := New(painter, DefaultPolicy).Portrait(context.Background(), "desc", "ctx")
	if !strings.HasPrefix(got, "data:image/png;base64,") {
		t.Fatalf("Portrait = %q, want defaulted png data URI", got)
	}
}

func TestPortraitAbsorbsFailure(t *testing.T) {
	painter := &fakePainter{err: errors.New("model overloaded")}

	if got := New(painter, DefaultPolicy).Portrait(context.Background(), "desc", "ctx"); got != "" {
		t.Fatalf("Portrait = %q, want empty on failure", got)
	}
	if painter.calls != 1 {
		t.Errorf("calls = %d, want 1 for non-quota failure", painter.calls)
	}
}

func TestPortraitAbsorbsEmptyImage(t *testing.T) {
	painter := &fakePainter{img: &Image{}}

	if got := New(painter, DefaultPolicy).Portrait(context.Background(), "desc", "ctx"); got != "" {
		t.Fatalf("Portrait = %q, want empty when service returns no image", got)
	}
}

func TestPortraitRetriesQuotaWithinBudget(t *testing.T) {
	painter := &fakePainter{err: errors.New("RESOURCE_EXHAUSTED")}

	got := New(painter, retry.Policy{MaxRetries: 2}).Portrait(context.Background(), "desc", "ctx")
	if got != "" {
		t.Fatalf("Portrait = %q, want empty after exhausting retries", got)
	}
	if painter.calls != 3 {
		t.Errorf("calls = %d, want initial attempt plus 2 retries", painter.calls)
	}
}
