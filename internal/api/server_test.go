package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/ace/internal/catalog"
	"github.com/pbaille/ace/internal/dictation"
	"github.com/pbaille/ace/internal/domain"
	"github.com/pbaille/ace/internal/fetcher"
	"github.com/pbaille/ace/internal/importer"
	"github.com/pbaille/ace/internal/progress"
	"github.com/pbaille/ace/internal/speech"
	"github.com/pbaille/ace/internal/store"
)

type captureEngine struct {
	mu   sync.Mutex
	said []speech.Utterance
}

func (e *captureEngine) Say(_ context.Context, u speech.Utterance) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.said = append(e.said, u)
	return nil
}

func (e *captureEngine) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.said)
}

type stubFetcher struct{}

func (stubFetcher) Fetch(_ context.Context, rawURL string) (*fetcher.Page, error) {
	return &fetcher.Page{URL: rawURL, Title: "Imported", Paragraphs: []string{"One.", "Two."}}, nil
}

type env struct {
	srv      *httptest.Server
	progress *progress.Store
	port     *progress.MemoryPort
	engine   *captureEngine
	player   *stubPlayer
}

func newEnv(t *testing.T) *env {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cat, err := catalog.Default()
	require.NoError(t, err)

	st, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	port := progress.NewMemoryPort()
	prog := progress.NewStore(port, logger)
	eng := &captureEngine{}
	sp := speech.NewSpeaker(eng, speech.NewCycler(0.9, 0.6), "", logger)
	player := &stubPlayer{}

	s := New(Deps{
		Catalog:  cat,
		Progress: prog,
		Store:    st,
		Speaker:  sp,
		Importer: importer.New(stubFetcher{}, nil, st, logger),
		Capture:  stubDevice{},
		Player:   player,
		Logger:   logger,
	}, Options{AdvanceDelay: 20 * time.Millisecond, MaxRecording: time.Hour})

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		srv.Close()
		s.sessions.closeAll()
		s.readers.closeAll()
	})
	return &env{srv: srv, progress: prog, port: port, engine: eng, player: player}
}

func (e *env) do(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	require.NoError(t, err)
	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp, out
}

func wordIDs(t *testing.T, body map[string]any) []string {
	t.Helper()
	words, ok := body["words"].([]any)
	require.True(t, ok, "words is a list: %v", body)
	ids := make([]string, 0, len(words))
	for _, w := range words {
		ids = append(ids, w.(map[string]any)["id"].(string))
	}
	return ids
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	resp, body := e.do(t, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestWords_Filters(t *testing.T) {
	e := newEnv(t)

	resp, body := e.do(t, "GET", "/words?group=g3", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"w9", "w10", "w11", "w12", "w2"}, wordIDs(t, body))

	_, body = e.do(t, "GET", "/words?group=nope", nil)
	assert.Empty(t, wordIDs(t, body), "unknown group is empty, not an error")

	_, body = e.do(t, "GET", "/words?category="+"%E7%A7%91%E6%8A%80", nil)
	assert.Contains(t, wordIDs(t, body), "w4")

	e.progress.Add(progress.Reinforced, "w5")
	e.progress.Add(progress.Reinforced, "w1")
	_, body = e.do(t, "GET", "/words?set=reinforced", nil)
	assert.Equal(t, []string{"w1", "w5"}, wordIDs(t, body), "catalog order")

	resp, _ = e.do(t, "GET", "/words", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = e.do(t, "GET", "/words?set=favorites", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWord(t *testing.T) {
	e := newEnv(t)
	e.progress.Add(progress.Missed, "w1")

	resp, body := e.do(t, "GET", "/words/w1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "abandon", body["text"])
	assert.Equal(t, true, body["missed"])
	assert.Equal(t, false, body["reinforced"])

	resp, body = e.do(t, "GET", "/words/zzz", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "word not found", body["error"])
}

func TestGroupsAndCategories(t *testing.T) {
	e := newEnv(t)

	_, body := e.do(t, "GET", "/groups", nil)
	assert.Len(t, body["groups"], 3)

	_, body = e.do(t, "GET", "/categories", nil)
	cats := body["categories"].([]any)
	require.Len(t, cats, 10)
	assert.Equal(t, "CET-4", cats[0].(map[string]any)["tag"])
}

func TestProgressRoutes(t *testing.T) {
	e := newEnv(t)

	resp, body := e.do(t, "PUT", "/progress/reinforced/w2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["member"])
	e.do(t, "PUT", "/progress/reinforced/w2", nil)

	_, body = e.do(t, "GET", "/progress/reinforced", nil)
	assert.Equal(t, []any{"w2"}, body["ids"])

	_, body = e.do(t, "POST", "/progress/reinforced/w2/toggle", nil)
	assert.Equal(t, false, body["member"])
	_, body = e.do(t, "POST", "/progress/reinforced/w2/toggle", nil)
	assert.Equal(t, true, body["member"])

	_, body = e.do(t, "DELETE", "/progress/reinforced/w2", nil)
	assert.Equal(t, false, body["member"])
	assert.False(t, e.progress.Contains(progress.Reinforced, "w2"))

	e.progress.Add(progress.Missed, "w7")
	resp, _ = e.do(t, "DELETE", "/progress/missed", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Zero(t, e.progress.Len(progress.Missed))

	resp, _ = e.do(t, "GET", "/progress/starred", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProgress_ReloadPicksUpExternalWrites(t *testing.T) {
	e := newEnv(t)
	e.do(t, "PUT", "/progress/missed/w1", nil)

	require.NoError(t, e.port.Set(progress.Missed.Key(), `["w1","w4"]`))
	_, body := e.do(t, "GET", "/progress/missed", nil)
	assert.Equal(t, []any{"w1"}, body["ids"], "served from cache")

	resp, _ := e.do(t, "POST", "/progress/reload", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	_, body = e.do(t, "GET", "/progress/missed", nil)
	assert.Equal(t, []any{"w1", "w4"}, body["ids"])
}

func TestDictation_EmptyListIsConflict(t *testing.T) {
	e := newEnv(t)
	resp, body := e.do(t, "POST", "/dictation", map[string]string{"set": "missed"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "no words", body["error"])
}

func snapshotOf(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	snap, ok := body["snapshot"].(map[string]any)
	require.True(t, ok, "snapshot in %v", body)
	return snap
}

func TestDictation_Flow(t *testing.T) {
	e := newEnv(t)

	resp, body := e.do(t, "POST", "/dictation", map[string]string{"group": "g1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := body["id"].(string)
	snap := snapshotOf(t, body)
	assert.Equal(t, float64(4), snap["total"])
	assert.Equal(t, "w1", snap["word_id"])
	assert.Nil(t, snap["answer"], "answer hidden before judging")

	_, body = e.do(t, "POST", "/dictation/"+id+"/input", map[string]string{"input": "abandn"})
	assert.Equal(t, "abandn", snapshotOf(t, body)["input"])

	_, body = e.do(t, "POST", "/dictation/"+id+"/submit", nil)
	assert.Equal(t, true, body["accepted"])
	snap = snapshotOf(t, body)
	assert.Equal(t, "incorrect", snap["feedback"])
	assert.Equal(t, "abandon", snap["answer"])
	assert.True(t, e.progress.Contains(progress.Missed, "w1"))

	_, body = e.do(t, "POST", "/dictation/"+id+"/submit", map[string]string{"input": "abandon"})
	assert.Equal(t, false, body["accepted"], "a judged word cannot be resubmitted")

	_, body = e.do(t, "POST", "/dictation/"+id+"/advance", nil)
	snap = snapshotOf(t, body)
	assert.Equal(t, float64(1), snap["position"])
	assert.Equal(t, "", snap["input"])

	_, body = e.do(t, "POST", "/dictation/"+id+"/hint", nil)
	assert.Equal(t, "好处；利益", snapshotOf(t, body)["hint"])

	_, body = e.do(t, "POST", "/dictation/"+id+"/submit", map[string]string{"input": " Benefit "})
	assert.Equal(t, "correct", snapshotOf(t, body)["feedback"])

	assert.Eventually(t, func() bool {
		_, body := e.do(t, "GET", "/dictation/"+id, nil)
		return snapshotOf(t, body)["position"] == float64(2)
	}, 2*time.Second, 10*time.Millisecond, "correct answers auto-advance")

	resp, _ = e.do(t, "DELETE", "/dictation/"+id, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = e.do(t, "GET", "/dictation/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDictation_Events(t *testing.T) {
	e := newEnv(t)
	_, body := e.do(t, "POST", "/dictation", map[string]string{"group": "g2"})
	id := body["id"].(string)

	wsURL := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/dictation/" + id + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var snap dictation.Snapshot
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, "w5", snap.WordID)

	e.do(t, "POST", "/dictation/"+id+"/hint", nil)
	require.NoError(t, conn.ReadJSON(&snap))
	assert.True(t, snap.HintShown)

	e.do(t, "DELETE", "/dictation/"+id, nil)
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestSpeech(t *testing.T) {
	e := newEnv(t)

	resp, body := e.do(t, "POST", "/speech", map[string]any{"text": "hello"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, 0.9, body["rate"])

	resp, body = e.do(t, "POST", "/speech", map[string]any{"text": "hello", "rate": 1.4})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, 1.4, body["rate"])

	_, body = e.do(t, "POST", "/speech", map[string]any{"text": "again"})
	assert.Equal(t, 0.6, body["rate"], "explicit rate left the cycler alone")

	resp, _ = e.do(t, "POST", "/speech", map[string]any{"text": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = e.do(t, "POST", "/speech/stop", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	assert.Eventually(t, func() bool { return e.engine.count() >= 1 }, time.Second, 5*time.Millisecond)
}

func TestArticles(t *testing.T) {
	e := newEnv(t)

	_, body := e.do(t, "GET", "/articles?category=Tech", nil)
	builtin := body["articles"].([]any)
	require.Len(t, builtin, 1)
	assert.Equal(t, "a3", builtin[0].(map[string]any)["id"])

	resp, _ := e.do(t, "GET", "/articles?category=Sports", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = e.do(t, "POST", "/articles/import", map[string]string{"url": "https://example.com/x", "category": string(domain.ArticleTech)})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := body["id"].(string)
	assert.Equal(t, true, body["imported"])

	_, body = e.do(t, "GET", "/articles?category=Tech", nil)
	assert.Len(t, body["articles"], 2)

	resp, body = e.do(t, "GET", "/articles/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Imported", body["title"])
	assert.Equal(t, "https://example.com/x", body["source_url"])

	resp, _ = e.do(t, "GET", "/articles/a1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = e.do(t, "DELETE", "/articles/"+id, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = e.do(t, "GET", "/articles/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = e.do(t, "POST", "/articles/import", map[string]string{"url": "not a url"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	e := newEnv(t)
	req, err := http.NewRequest("OPTIONS", e.srv.URL+"/words", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")

	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
