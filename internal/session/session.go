// Package session owns the request lifecycle. Research runs first, audio
// and portrait generation fan out concurrently afterwards, and the merged
// result is published as a single snapshot.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/avendel/chronovox/internal/journal"
	"github.com/avendel/chronovox/internal/pcm"
	"github.com/avendel/chronovox/internal/scene"
)

// State is the coordinator's lifecycle phase.
type State string

const (
	StateIdle            State = "idle"
	StateResearching     State = "researching"
	StateGeneratingMedia State = "generating_media"
)

// Request is one user submission.
type Request struct {
	Location       string
	Date           string
	GenerateImages bool
}

// Snapshot is the published outcome of the latest submission. After a
// failure only Err is set; the partial scenario and audio are discarded.
type Snapshot struct {
	State    State
	Scenario *scene.Scenario
	Audio    *pcm.Buffer
	Err      string
}

// Researcher produces a normalized scenario for a location and date.
type Researcher interface {
	Scene(ctx context.Context, location, date string) (*scene.Scenario, error)
}

// Speaker renders a scenario's script to audio.
type Speaker interface {
	Generate(ctx context.Context, sc *scene.Scenario) (*pcm.Buffer, error)
}

// Portraitist generates one character portrait, returning "" on failure.
type Portraitist interface {
	Portrait(ctx context.Context, description, setting string) string
}

// Recorder persists submission outcomes.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) error
}

// ErrSuperseded reports that a newer submission started while this one was
// still running; its results were discarded.
var ErrSuperseded = errors.New("submission superseded by a newer request")

// Coordinator sequences the pipeline and guards the published snapshot.
type Coordinator struct {
	researcher Researcher
	speaker    Speaker
	portraits  Portraitist
	recorder   Recorder
	clock      func() time.Time

	mu   sync.Mutex
	seq  uint64
	snap Snapshot
}

// New creates a Coordinator. recorder may be nil to disable journalling.
func New(researcher Researcher, speaker Speaker, portraits Portraitist, recorder Recorder) *Coordinator {
	return &Coordinator{
		researcher: researcher,
		speaker:    speaker,
		portraits:  portraits,
		recorder:   recorder,
		clock:      time.Now,
		snap:       Snapshot{State: StateIdle},
	}
}

// Submit runs one request through the full pipeline and returns the final
// snapshot. A submission overtaken by a newer one returns ErrSuperseded.
func (c *Coordinator) Submit(ctx context.Context, req Request) (*Snapshot, error) {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.snap = Snapshot{State: StateResearching}
	c.mu.Unlock()

	id := uuid.NewString()
	logger := slog.With("submission_id", id, "location", req.Location, "date", req.Date)
	logger.Info("submission started", "generate_images", req.GenerateImages)
	start := c.clock()

	sc, audio, runErr := c.run(ctx, seq, req, logger)

	final := Snapshot{State: StateIdle, Scenario: sc, Audio: audio}
	if runErr != nil {
		final = Snapshot{State: StateIdle, Err: runErr.Error()}
	}
	published := c.publish(seq, final)

	entry := journal.Entry{
		ID:         id,
		Location:   req.Location,
		Date:       req.Date,
		DurationMS: c.clock().Sub(start).Milliseconds(),
	}
	switch {
	case !published:
		entry.Status = "superseded"
	case runErr != nil:
		entry.Status = "failed"
		entry.Error = runErr.Error()
	default:
		entry.Status = "completed"
		entry.Sources = len(sc.Sources)
	}
	if c.recorder != nil {
		if err := c.recorder.Record(ctx, entry); err != nil {
			logger.Warn("journal write failed", "error", err)
		}
	}

	if !published {
		logger.Info("submission superseded, discarding results")
		return nil, ErrSuperseded
	}
	if runErr != nil {
		logger.Error("submission failed", "error", runErr, "duration_ms", entry.DurationMS)
		return nil, runErr
	}
	logger.Info("submission complete", "duration_ms", entry.DurationMS,
		"lines", len(sc.Script), "sources", len(sc.Sources), "has_audio", audio != nil)
	return &final, nil
}

// run executes the research stage and then the media fan-out.
func (c *Coordinator) run(ctx context.Context, seq uint64, req Request, logger *slog.Logger) (*scene.Scenario, *pcm.Buffer, error) {
	// Step 1: research the scene. Media generation depends on the
	// finalized script and character list.
	sc, err := c.researcher.Scene(ctx, req.Location, req.Date)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("research complete",
		"characters", len(sc.Characters), "lines", len(sc.Script), "sources", len(sc.Sources))

	c.setState(seq, StateGeneratingMedia)

	// Step 2: synthesize audio and portraits concurrently. Audio failure
	// is fatal; a missing portrait is not.
	var audio *pcm.Buffer
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		buf, err := c.speaker.Generate(gctx, sc)
		if err != nil {
			return err
		}
		audio = buf
		return nil
	})

	if req.GenerateImages && c.portraits != nil {
		for i := range sc.Characters {
			g.Go(func() error {
				url := c.portraits.Portrait(gctx, sc.Characters[i].VisualDescription, sc.Context)
				if url == "" {
					logger.Warn("portrait missing, continuing without avatar",
						"character", sc.Characters[i].Name)
					return nil
				}
				sc.Characters[i].AvatarURL = url
				return nil
			})
		}
	}

	// Step 3: join both branches before anything is published.
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return sc, audio, nil
}

// setState publishes an intermediate state unless a newer submission has
// taken over.
func (c *Coordinator) setState(seq uint64, s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq == c.seq {
		c.snap.State = s
	}
}

// publish installs the final snapshot and reports whether this submission
// was still the latest.
func (c *Coordinator) publish(seq uint64, snap Snapshot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq {
		return false
	}
	c.snap = snap
	return true
}

// Current returns the latest published snapshot.
func (c *Coordinator) Current() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}
