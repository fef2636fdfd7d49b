package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coralpages/reef/internal/artifact"
	"github.com/coralpages/reef/internal/compiler"
	"github.com/coralpages/reef/internal/config"
	"github.com/coralpages/reef/internal/logging"
)

func newTestServer(t *testing.T) (*PreviewServer, string) {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Templates.ScanPaths = []string{dir}

	comp := compiler.New(compiler.Options{Logger: logging.NewNop()})
	return New(cfg, comp, logging.NewNop()), dir
}

func writeTemplate(t *testing.T, dir, name, source string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))
	return path
}

func TestLoadTemplates_CompilesAllFound(t *testing.T) {
	s, dir := newTestServer(t)
	writeTemplate(t, dir, "home.reef", `<Card><Text value="hello"/></Card>`)
	writeTemplate(t, dir, "counter.reef", `<Var name="n" value="0"/><Button label="+"><OnClick><Increment target="n"/></OnClick></Button>`)

	require.NoError(t, s.LoadTemplates(context.Background()))

	assert.Equal(t, []string{"counter", "home"}, s.TemplateNames())

	tpl, ok := s.Template("home")
	require.True(t, ok)
	assert.Contains(t, tpl.Skeleton, "hello")
}

func TestLoadTemplates_BrokenTemplateDoesNotBlockOthers(t *testing.T) {
	s, dir := newTestServer(t)
	writeTemplate(t, dir, "good.reef", `<Text value="fine"/>`)
	writeTemplate(t, dir, "bad.reef", `<Sparklephone/>`)

	require.NoError(t, s.LoadTemplates(context.Background()))

	_, ok := s.Template("good")
	assert.True(t, ok)
	_, ok = s.Template("bad")
	assert.False(t, ok, "broken template has no artifact")
	assert.Contains(t, s.TemplateNames(), "bad", "broken template still listed for the overlay")
}

func TestHandlePreview_ServesSkeletonWithArtifactPayload(t *testing.T) {
	s, dir := newTestServer(t)
	writeTemplate(t, dir, "home.reef", `<Card><Text value="hello"/></Card>`)
	require.NoError(t, s.LoadTemplates(context.Background()))

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/preview/home")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	page := string(body)
	assert.Contains(t, page, "hello")
	assert.Contains(t, page, `id="reef-artifact"`, "artifact payload embedded for the runtime")
	assert.Contains(t, page, "new WebSocket", "live reload script injected")
}

func TestHandlePreview_LiveReloadCanBeDisabled(t *testing.T) {
	s, dir := newTestServer(t)
	s.config.Development.LiveReload = false
	writeTemplate(t, dir, "home.reef", `<Text value="hi"/>`)
	require.NoError(t, s.LoadTemplates(context.Background()))

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/preview/home")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "new WebSocket")
}

func TestHandlePreview_BrokenTemplateShowsOverlay(t *testing.T) {
	s, dir := newTestServer(t)
	writeTemplate(t, dir, "bad.reef", `<Card><Sparklephone/><Text value={count +}/></Card>`)
	require.NoError(t, s.LoadTemplates(context.Background()))

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/preview/bad")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	page := string(body)
	assert.Contains(t, page, "failed to compile")
	assert.Contains(t, page, "Sparklephone", "overlay names the unknown component")
	assert.Contains(t, page, "ERR_BAD_EXPRESSION", "overlay shows every batched error")
}

func TestHandleArtifact_ReturnsJSON(t *testing.T) {
	s, dir := newTestServer(t)
	writeTemplate(t, dir, "home.reef", `<Var name="n" value="1"/><Text value={n}/>`)
	require.NoError(t, s.LoadTemplates(context.Background()))

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/artifact/home.json")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	tpl, err := artifact.DecodeJSON(body)
	require.NoError(t, err)
	assert.Equal(t, artifact.FormatVersion, tpl.Version)
	assert.Len(t, tpl.Islands, 1)
}

func TestHandleArtifact_UnknownTemplate404s(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/artifact/nope.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIndex_ListsTemplates(t *testing.T) {
	s, dir := newTestServer(t)
	writeTemplate(t, dir, "alpha.reef", `<Text value="a"/>`)
	writeTemplate(t, dir, "beta.reef", `<Text value="b"/>`)
	require.NoError(t, s.LoadTemplates(context.Background()))

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "/preview/alpha")
	assert.Contains(t, string(body), "/preview/beta")
}

func TestWebSocket_ReceivesReloadBroadcast(t *testing.T) {
	s, dir := newTestServer(t)
	path := writeTemplate(t, dir, "home.reef", `<Text value="v1"/>`)
	require.NoError(t, s.LoadTemplates(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go s.hub.run(ctx)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{"Origin": []string{ts.URL}},
	})
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Give the hub a beat to register the client before broadcasting.
	time.Sleep(50 * time.Millisecond)

	writeTemplate(t, dir, "home.reef", `<Text value="v2"/>`)
	s.NotifyChanged(ctx, []string{path})

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var msg struct {
		Type      string   `json:"type"`
		Templates []string `json:"templates"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "reload", msg.Type)
	assert.Equal(t, []string{"home"}, msg.Templates)

	tpl, ok := s.Template("home")
	require.True(t, ok)
	assert.Contains(t, tpl.Skeleton, "v2", "broadcast follows recompilation")
}

func TestOriginAllowed(t *testing.T) {
	s, _ := newTestServer(t)
	s.config.Server.AllowedOrigins = []string{"preview.example.com"}

	tests := []struct {
		origin string
		want   bool
	}{
		{"http://localhost:8120", true},
		{"http://127.0.0.1:9999", true},
		{"https://preview.example.com", true},
		{"http://evil.example.com", false},
		{"ftp://localhost", false},
		{"", false},
	}

	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		assert.Equal(t, tt.want, s.originAllowed(r), "origin %q", tt.origin)
	}
}

func TestHandleRendered_HydratesWithMockBindings(t *testing.T) {
	s, dir := newTestServer(t)
	writeTemplate(t, dir, "profile.reef", `<Card><Heading value="Profile"/><Text value={user.handle}/></Card>`)
	require.NoError(t, s.LoadTemplates(context.Background()))

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/rendered/profile")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	page := string(body)
	assert.Contains(t, page, "coraline", "island rendered with the mock session user")
	assert.Contains(t, page, "Profile", "static skeleton content preserved")
}

func TestHandleRendered_CounterStartsAtInitialValue(t *testing.T) {
	s, dir := newTestServer(t)
	writeTemplate(t, dir, "counter.reef", `<Var name="n" value="41"/><Button label="+"><OnClick><Increment target="n"/></OnClick></Button><Text value={n}/>`)
	require.NoError(t, s.LoadTemplates(context.Background()))

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/rendered/counter")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "41")
}
