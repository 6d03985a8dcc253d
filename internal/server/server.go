// Package server exposes the dialogue pipeline over a REST API.
//
// Submissions are synchronous: POST /api/scene runs the full research and
// media pipeline and answers with the finished scene. The latest scene and
// its audio stay readable until the next submission replaces them.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/avendel/chronovox/internal/fault"
	"github.com/avendel/chronovox/internal/journal"
	"github.com/avendel/chronovox/internal/scene"
	"github.com/avendel/chronovox/internal/session"
)

// Pipeline runs submissions and reports the latest published snapshot.
type Pipeline interface {
	Submit(ctx context.Context, req session.Request) (*session.Snapshot, error)
	Current() session.Snapshot
}

// History lists recorded submission outcomes.
type History interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
}

// Server handles the REST API.
type Server struct {
	port     int
	pipeline Pipeline
	history  History
	validate *validator.Validate
	server   *http.Server
}

// New creates a Server on the given port. history may be nil, which leaves
// the history endpoint serving an empty list.
func New(port int, pipeline Pipeline, history History) *Server {
	return &Server{
		port:     port,
		pipeline: pipeline,
		history:  history,
		validate: validator.New(),
	}
}

// submitRequest is the POST /api/scene body.
type submitRequest struct {
	Location       string `json:"location" validate:"required,min=1,max=200" example:"Timbuktu"`
	Date           string `json:"date" validate:"required,datetime=2006-01-02" example:"1324-10-15"`
	GenerateImages *bool  `json:"generateImages,omitempty"`
}

// sceneResponse wraps the published snapshot for API clients.
type sceneResponse struct {
	State    session.State   `json:"state"`
	Scenario *scene.Scenario `json:"scenario,omitempty"`
	AudioURL string          `json:"audioUrl,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// errorResponse is the JSON error body.
type errorResponse struct {
	Error string     `json:"error"`
	Kind  fault.Kind `json:"kind,omitempty"`
}

// Listen starts the API server and blocks until ctx is cancelled.
func (s *Server) Listen(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("api server listening", "port", s.port)

	go func() {
		<-ctx.Done()
		slog.Info("api server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("api listen: %w", err)
	}
	return nil
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/scene", s.handleSubmit)
	mux.HandleFunc("GET /api/scene", s.handleScene)
	mux.HandleFunc("GET /api/scene/audio", s.handleAudio)
	mux.HandleFunc("GET /api/history", s.handleHistory)

	// Swagger UI for the generated OpenAPI docs.
	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return mux
}

// handleSubmit processes a POST /api/scene request.
//
// @Summary     Generate a historical dialogue scene
// @Description Researches the location and date with web grounding, writes a two-character
// @Description dialogue in the period language, then synthesizes multi-speaker audio and,
// @Description unless disabled, character portraits. The call is synchronous and replaces
// @Description the current scene.
// @Tags        scene
// @Accept      json
// @Produce     json
// @Param       request  body      submitRequest  true  "Location and date to research"
// @Success     200  {object}  sceneResponse  "Generated scene with audio reference"
// @Failure     400  {object}  errorResponse  "Invalid request body"
// @Failure     409  {object}  errorResponse  "Superseded by a newer submission"
// @Failure     422  {object}  errorResponse  "Content blocked or dialogue empty"
// @Failure     502  {object}  errorResponse  "Upstream generation failed"
// @Failure     503  {object}  errorResponse  "Upstream quota exhausted"
// @Router      /scene [post]
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "", "invalid json: "+err.Error())
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "", "invalid request: "+err.Error())
		return
	}

	generateImages := true
	if req.GenerateImages != nil {
		generateImages = *req.GenerateImages
	}

	snap, err := s.pipeline.Submit(r.Context(), session.Request{
		Location:       req.Location,
		Date:           req.Date,
		GenerateImages: generateImages,
	})
	if err != nil {
		status := statusFor(err)
		if status == http.StatusServiceUnavailable {
			w.Header().Set("Retry-After", "30")
		}
		slog.Error("submission failed", "error", err, "status", status)
		writeError(w, status, fault.KindOf(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, renderSnapshot(*snap))
}

// handleScene returns the current snapshot.
//
// @Summary     Current scene
// @Description Returns the latest published snapshot, including the pipeline state while
// @Description a submission is in flight.
// @Tags        scene
// @Produce     json
// @Success     200  {object}  sceneResponse
// @Router      /scene [get]
func (s *Server) handleScene(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, renderSnapshot(s.pipeline.Current()))
}

// handleAudio streams the current scene's audio.
//
// @Summary     Current scene audio
// @Description Returns the synthesized dialogue as a WAV file, 24 kHz mono.
// @Tags        scene
// @Produce     audio/wav
// @Success     200  {file}    file           "WAV audio"
// @Failure     404  {object}  errorResponse  "No audio available"
// @Router      /scene/audio [get]
func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	snap := s.pipeline.Current()
	if snap.Audio == nil {
		writeError(w, http.StatusNotFound, "", "no audio for the current scene")
		return
	}
	wav := snap.Audio.WAV()
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", strconv.Itoa(len(wav)))
	_, _ = w.Write(wav)
}

// handleHistory lists recent submission outcomes.
//
// @Summary     Submission history
// @Description Lists recent submission outcomes, newest first.
// @Tags        history
// @Produce     json
// @Param       limit  query     int  false  "Maximum entries to return"  default(20)  maximum(200)
// @Success     200  {array}   journal.Entry
// @Failure     400  {object}  errorResponse
// @Router      /history [get]
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusOK, []journal.Entry{})
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 200 {
			writeError(w, http.StatusBadRequest, "", "limit must be an integer between 1 and 200")
			return
		}
		limit = n
	}

	entries, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		slog.Error("history query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "", "history query failed")
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// statusFor maps pipeline failures onto HTTP status codes.
func statusFor(err error) int {
	if errors.Is(err, session.ErrSuperseded) {
		return http.StatusConflict
	}
	switch fault.KindOf(err) {
	case fault.ServiceBusy:
		return http.StatusServiceUnavailable
	case fault.ContentBlocked, fault.EmptyDialogue:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func renderSnapshot(snap session.Snapshot) sceneResponse {
	resp := sceneResponse{State: snap.State, Scenario: snap.Scenario, Error: snap.Err}
	if snap.Audio != nil {
		resp.AudioURL = "/api/scene/audio"
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind fault.Kind, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Kind: kind})
}
