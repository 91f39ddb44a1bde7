package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ziadkadry99/echo-agent/internal/auth/authtest"
	"github.com/ziadkadry99/echo-agent/internal/config"
	"github.com/ziadkadry99/echo-agent/internal/storage"
	"github.com/ziadkadry99/echo-agent/internal/transcript"
)

const testClientID = "app-1"

func testConfig(t *testing.T, issuer *authtest.Issuer) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.ClientID = testClientID
	cfg.OpenIDMetadata = issuer.MetadataURL()
	return cfg
}

func postMessage(srv http.Handler, payload, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func TestServerWiring(t *testing.T) {
	issuer := authtest.NewIssuer(t)
	srv := newServer(testConfig(t, issuer), storage.NewMemoryStorage(), nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"agent_type":"TeamsHandler"`) {
		t.Errorf("healthz body %s", w.Body.String())
	}

	payload := `{
		"type": "message",
		"id": "activity-1",
		"text": "hello",
		"deliveryMode": "expectReplies",
		"from": {"id": "user-1"},
		"recipient": {"id": "bot-1"},
		"conversation": {"id": "conv-1"},
		"channelId": "msteams"
	}`
	w = postMessage(srv.Handler(), payload, "Bearer "+issuer.Token(t, testClientID, ""))
	if w.Code != http.StatusOK {
		t.Fatalf("messages: expected 200, got %d", w.Code)
	}

	var resp struct {
		Activities []struct {
			Text string `json:"text"`
		} `json:"activities"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Activities) != 1 || resp.Activities[0].Text != "you said: hello" {
		t.Errorf("unexpected replies %+v", resp.Activities)
	}
}

func TestServerWiringDiagnostics(t *testing.T) {
	issuer := authtest.NewIssuer(t)
	cfg := testConfig(t, issuer)
	cfg.DiagnosticCommands = true
	srv := newServer(cfg, storage.NewMemoryStorage(), nil)

	payload := `{"type":"message","id":"a1","text":"/runtime","deliveryMode":"expectReplies","conversation":{"id":"c1"},"channelId":"msteams"}`
	w := postMessage(srv.Handler(), payload, "Bearer "+issuer.Token(t, testClientID, ""))

	if !strings.Contains(w.Body.String(), `agent_type`) {
		t.Errorf("expected runtime info, got %s", w.Body.String())
	}
}

// recordingServer counts requests and remembers their Authorization headers.
func recordingServer(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var mu sync.Mutex
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Get("Authorization"))
		mu.Unlock()
		w.Write([]byte(`{"id":"reply-1"}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestManagedIdentityTokenStaysWithChannelService(t *testing.T) {
	identity := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"MI-SECRET","expires_in":"3600","token_type":"Bearer"}`))
	}))
	defer identity.Close()
	foreign, foreignSeen := recordingServer(t)
	channel, channelSeen := recordingServer(t)

	issuer := authtest.NewIssuer(t)
	cfg := testConfig(t, issuer)
	cfg.IdentityEndpoint = identity.URL
	srv := newServer(cfg, storage.NewMemoryStorage(), nil)

	payload := func(serviceURL string) string {
		return fmt.Sprintf(`{"type":"message","id":"a1","text":"hello","serviceUrl":%q,"from":{"id":"u1"},"recipient":{"id":"b1"},"conversation":{"id":"c1"},"channelId":"msteams"}`, serviceURL)
	}

	rejected := []struct {
		name          string
		authorization string
	}{
		{"no token", ""},
		{"token for another service url", "Bearer " + issuer.Token(t, testClientID, channel.URL)},
		{"token for another app", "Bearer " + issuer.Token(t, "other-app", foreign.URL)},
	}
	for _, tt := range rejected {
		if w := postMessage(srv.Handler(), payload(foreign.URL), tt.authorization); w.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", tt.name, w.Code)
		}
	}
	if len(*foreignSeen) != 0 {
		t.Fatalf("foreign service url received %d requests: %v", len(*foreignSeen), *foreignSeen)
	}

	w := postMessage(srv.Handler(), payload(channel.URL), "Bearer "+issuer.Token(t, testClientID, channel.URL))
	if w.Code != http.StatusAccepted {
		t.Fatalf("verified activity: expected 202, got %d", w.Code)
	}
	if len(*channelSeen) != 1 || (*channelSeen)[0] != "Bearer MI-SECRET" {
		t.Errorf("channel service saw %v", *channelSeen)
	}
}

func TestChatChannelDisabledByDefault(t *testing.T) {
	issuer := authtest.NewIssuer(t)
	cfg := testConfig(t, issuer)

	req := httptest.NewRequest(http.MethodGet, "/api/chat/ws", nil)
	w := httptest.NewRecorder()
	newServer(cfg, storage.NewMemoryStorage(), nil).Handler().ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 without CHAT_CHANNEL, got %d", w.Code)
	}

	cfg.ChatChannel = true
	w = httptest.NewRecorder()
	newServer(cfg, storage.NewMemoryStorage(), nil).Handler().ServeHTTP(w, req)
	if w.Code == http.StatusNotFound {
		t.Error("expected the chat route with CHAT_CHANNEL")
	}
}

func TestRunAgentReturnsWhenCancelledBeforeStart(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Port = 0

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- runAgent(ctx, cfg) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("runAgent: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runAgent still running after cancellation")
	}
}

func TestOpenStorageMemory(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Transcript = true

	state, transcripts, closeDB, err := openStorage(cfg)
	if err != nil {
		t.Fatalf("openStorage: %v", err)
	}
	defer closeDB()

	if _, ok := state.(*storage.MemoryStorage); !ok {
		t.Errorf("expected memory storage, got %T", state)
	}
	if transcripts != nil {
		t.Error("transcript needs a storage path")
	}
}

func TestOpenStorageSQLite(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.StoragePath = filepath.Join(t.TempDir(), "state", "agent.db")
	cfg.Transcript = true

	state, transcripts, closeDB, err := openStorage(cfg)
	if err != nil {
		t.Fatalf("openStorage: %v", err)
	}
	defer closeDB()

	if _, ok := state.(*storage.SQLiteStorage); !ok {
		t.Errorf("expected sqlite storage, got %T", state)
	}
	if transcripts == nil {
		t.Fatal("expected transcript store")
	}

	ctx := context.Background()
	if err := state.Write(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := transcripts.Log(ctx, transcript.Entry{ConversationID: "c1", Direction: transcript.DirectionInbound}); err != nil {
		t.Fatalf("Log: %v", err)
	}
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if got := buf.String(); got != "echo-agent "+Version+"\n" {
		t.Errorf("unexpected output %q", got)
	}
}

func TestConfigCommand(t *testing.T) {
	t.Setenv("TENANT_ID", "tenant-1")
	t.Setenv("CLIENT_ID", "client-1")
	t.Setenv("PORT", "8080")

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"config"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("config: %v", err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal(buf.Bytes(), &cfg); err != nil {
		t.Fatalf("output is not YAML: %v", err)
	}
	if cfg.TenantID != "tenant-1" || cfg.ClientID != "client-1" || cfg.Port != 8080 {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.AuthType != config.AuthTypeUserManagedIdentity {
		t.Errorf("auth type %q", cfg.AuthType)
	}
	if cfg.AgentType != "TeamsHandler" {
		t.Errorf("agent type %q", cfg.AgentType)
	}
}
