package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/avendel/chronovox/internal/fault"
	"github.com/avendel/chronovox/internal/journal"
	"github.com/avendel/chronovox/internal/pcm"
	"github.com/avendel/chronovox/internal/scene"
	"github.com/avendel/chronovox/internal/session"
)

type fakePipeline struct {
	snap    session.Snapshot
	err     error
	lastReq session.Request
	calls   int
}

func (f *fakePipeline) Submit(ctx context.Context, req session.Request) (*session.Snapshot, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &f.snap, nil
}

func (f *fakePipeline) Current() session.Snapshot { return f.snap }

type fakeHistory struct {
	entries []journal.Entry
	err     error
}

func (f *fakeHistory) Recent(ctx context.Context, limit int) ([]journal.Entry, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.entries) {
		return f.entries[:limit], nil
	}
	return f.entries, nil
}

func newTestServer(t *testing.T, p Pipeline, h History) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(New(0, p, h).routes())
	t.Cleanup(srv.Close)
	return srv
}

func postScene(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/scene", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/scene: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, srv *httptest.Server, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func idleSnapshot(t *testing.T) session.Snapshot {
	t.Helper()
	buf, err := pcm.Decode([]byte{0x01, 0x00, 0x02, 0x00}, 24000, 1)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return session.Snapshot{
		State: session.StateIdle,
		Scenario: &scene.Scenario{
			Context: "A market morning.",
			Characters: []scene.Character{
				{Name: "Ana", Gender: scene.Female, Voice: "Kore"},
				{Name: "Luis", Gender: scene.Male, Voice: "Puck"},
			},
			Script: []scene.DialogueLine{{Speaker: "Ana", Text: "Salaam", Translation: "Peace"}},
		},
		Audio: buf,
	}
}

func TestSubmitReturnsScene(t *testing.T) {
	p := &fakePipeline{snap: idleSnapshot(t)}
	srv := newTestServer(t, p, nil)

	resp := postScene(t, srv, `{"location": "Timbuktu", "date": "1324-10-15"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var got sceneResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if got.State != session.StateIdle {
		t.Errorf("state = %q", got.State)
	}
	if got.AudioURL != "/api/scene/audio" {
		t.Errorf("audioUrl = %q", got.AudioURL)
	}
	if got.Scenario == nil || len(got.Scenario.Characters) != 2 {
		t.Errorf("scenario = %+v", got.Scenario)
	}
	if p.lastReq.Location != "Timbuktu" || p.lastReq.Date != "1324-10-15" {
		t.Errorf("pipeline request = %+v", p.lastReq)
	}
	if !p.lastReq.GenerateImages {
		t.Error("GenerateImages should default to true")
	}
}

func TestSubmitImagesOptOut(t *testing.T) {
	p := &fakePipeline{snap: idleSnapshot(t)}
	srv := newTestServer(t, p, nil)

	resp := postScene(t, srv, `{"location": "Timbuktu", "date": "1324-10-15", "generateImages": false}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if p.lastReq.GenerateImages {
		t.Error("GenerateImages not propagated as false")
	}
}

func TestSubmitValidatesBody(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"empty object", `{}`},
		{"blank location", `{"location": "", "date": "1324-10-15"}`},
		{"missing date", `{"location": "Timbuktu"}`},
		{"prose date", `{"location": "Timbuktu", "date": "October 15, 1324"}`},
		{"impossible date", `{"location": "Timbuktu", "date": "1324-15-45"}`},
		{"oversized location", `{"location": "` + strings.Repeat("x", 201) + `", "date": "1324-10-15"}`},
		{"not json", `colonial dates please`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &fakePipeline{snap: idleSnapshot(t)}
			srv := newTestServer(t, p, nil)

			resp := postScene(t, srv, tc.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
			if p.calls != 0 {
				t.Errorf("pipeline called %d times for invalid input", p.calls)
			}
		})
	}
}

func TestSubmitErrorStatuses(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		kind   fault.Kind
	}{
		{"quota", fault.New(fault.ServiceBusy, "quota exhausted"), http.StatusServiceUnavailable, fault.ServiceBusy},
		{"blocked", fault.New(fault.ContentBlocked, "blocked by safety policy"), http.StatusUnprocessableEntity, fault.ContentBlocked},
		{"empty dialogue", fault.New(fault.EmptyDialogue, "script has no speakable lines"), http.StatusUnprocessableEntity, fault.EmptyDialogue},
		{"malformed", fault.New(fault.MalformedResponse, "no JSON object in response"), http.StatusBadGateway, fault.MalformedResponse},
		{"research failed", fault.New(fault.ResearchFailed, "connection reset"), http.StatusBadGateway, fault.ResearchFailed},
		{"no audio", fault.New(fault.NoAudioData, "no audio in response"), http.StatusBadGateway, fault.NoAudioData},
		{"audio failed", fault.New(fault.AudioGenerationFailed, "fallback failed"), http.StatusBadGateway, fault.AudioGenerationFailed},
		{"superseded", session.ErrSuperseded, http.StatusConflict, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t, &fakePipeline{err: tc.err}, nil)

			resp := postScene(t, srv, `{"location": "Timbuktu", "date": "1324-10-15"}`)
			if resp.StatusCode != tc.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tc.status)
			}
			var body errorResponse
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decoding error body: %v", err)
			}
			if body.Kind != tc.kind {
				t.Errorf("kind = %q, want %q", body.Kind, tc.kind)
			}
			if body.Error == "" {
				t.Error("error message missing")
			}
			if tc.status == http.StatusServiceUnavailable && resp.Header.Get("Retry-After") == "" {
				t.Error("Retry-After header missing")
			}
		})
	}
}

func TestCurrentScene(t *testing.T) {
	srv := newTestServer(t, &fakePipeline{snap: idleSnapshot(t)}, nil)

	resp := get(t, srv, "/api/scene")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var got sceneResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if got.State != session.StateIdle || got.AudioURL == "" {
		t.Errorf("response = %+v", got)
	}
}

func TestAudioEndpointServesWAV(t *testing.T) {
	srv := newTestServer(t, &fakePipeline{snap: idleSnapshot(t)}, nil)

	resp := get(t, srv, "/api/scene/audio")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "audio/wav" {
		t.Errorf("Content-Type = %q", ct)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	if len(body) < 44 || string(body[:4]) != "RIFF" {
		t.Errorf("body is not a WAV file: % x", body[:min(len(body), 8)])
	}
}

func TestAudioEndpointWithoutAudio(t *testing.T) {
	srv := newTestServer(t, &fakePipeline{snap: session.Snapshot{State: session.StateIdle}}, nil)

	resp := get(t, srv, "/api/scene/audio")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	h := &fakeHistory{entries: []journal.Entry{
		{ID: "b", Status: "completed"},
		{ID: "a", Status: "failed"},
	}}
	srv := newTestServer(t, &fakePipeline{}, h)

	resp := get(t, srv, "/api/history")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var entries []journal.Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != "b" {
		t.Errorf("entries = %+v", entries)
	}

	resp = get(t, srv, "/api/history?limit=1")
	entries = nil
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatalf("decoding limited response: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("limited entries = %d, want 1", len(entries))
	}

	if resp := get(t, srv, "/api/history?limit=bogus"); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bogus limit status = %d, want 400", resp.StatusCode)
	}
}

func TestHistoryEndpointWithoutJournal(t *testing.T) {
	srv := newTestServer(t, &fakePipeline{}, nil)

	resp := get(t, srv, "/api/history")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var entries []journal.Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries = %d, want 0", len(entries))
	}
}
