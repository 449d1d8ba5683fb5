package e2e_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/worldgate/internal/api"
	"github.com/mcoot/worldgate/internal/factory"
	"github.com/mcoot/worldgate/internal/model"
	"github.com/mcoot/worldgate/internal/protocol"
	"github.com/mcoot/worldgate/internal/server"
	"github.com/mcoot/worldgate/internal/services/auth"
	"github.com/mcoot/worldgate/internal/transport/ws"
)

// cliRunner manages CLI binary execution
type cliRunner struct {
	binaryPath string
	serverURL  string
	tokenFile  string
	dataDir    string
}

func newCLIRunner(t *testing.T, serverURL, dataDir string) *cliRunner {
	t.Helper()

	// Find project root (where go.mod is)
	projectRoot := findProjectRoot(t)

	// Build the CLI binary
	binaryPath := filepath.Join(t.TempDir(), "worldctl-test")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/worldctl")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build CLI: %s", string(output))

	return &cliRunner{
		binaryPath: binaryPath,
		serverURL:  serverURL,
		tokenFile:  filepath.Join(t.TempDir(), "token"),
		dataDir:    dataDir,
	}
}

func (r *cliRunner) run(args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--token-file", r.tokenFile,
		"--data-dir", r.dataDir,
		"--output", "json",
	}, args...)

	cmd := exec.Command(r.binaryPath, fullArgs...)
	cmd.Env = append(os.Environ(), "USER=e2e")
	output, err := cmd.CombinedOutput()
	return string(output), err
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// testServer manages a real HTTP server and tick loop for e2e tests
type testServer struct {
	app      *factory.App
	addr     string
	shutdown func()
}

func startTestServer(t *testing.T, mode auth.Mode, dataDir string) *testServer {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	authCfg := auth.DefaultConfig()
	authCfg.Mode = mode
	serverCfg := server.DefaultConfig()
	serverCfg.TickRate = 10 * time.Millisecond

	// Create application
	app, err := factory.New(factory.Config{
		AuthConfig:   authCfg,
		ServerConfig: serverCfg,
		LedgerDir:    dataDir,
		Logger:       logger,
	})
	require.NoError(t, err)

	router := api.NewRouter(api.RouterConfig{
		Logger:      logger,
		Clock:       app.Clock,
		AuthService: app.AuthService,
		Server:      app.Server,
		Metrics:     app.Metrics,
		WSConfig:    ws.DefaultConfig(),
	})

	httpServer := api.NewServer(router, api.DefaultServerConfig(), logger)

	ctx, cancel := context.WithCancel(context.Background())
	tickDone := make(chan struct{})
	go func() {
		defer close(tickDone)
		app.Server.Run(ctx)
	}()

	// Start server
	go func() {
		if err := httpServer.Serve(listener); err != nil {
			t.Logf("server error: %v", err)
		}
	}()

	// Wait for server to be ready
	serverURL := "http://" + listener.Addr().String()
	waitForServer(t, serverURL+"/api/v1/health")

	return &testServer{
		app:  app,
		addr: serverURL,
		shutdown: func() {
			cancel()
			<-tickDone
			_ = httpServer.Shutdown(context.Background())
		},
	}
}

func waitForServer(t *testing.T, url string) {
	t.Helper()

	client := &http.Client{Timeout: 100 * time.Millisecond}
	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatal("server did not become ready in time")
}

// login connects a game client over the websocket and registers with
// credential, returning the first register result
func login(t *testing.T, serverURL, credential string) model.RegisterResult {
	t.Helper()

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(serverURL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer func() {
		_ = conn.Close()
		_ = resp.Body.Close()
	}()

	for _, msg := range []model.ClientMsg{
		model.TypeMsg{ClientType: model.ClientType{Kind: model.KindGame}},
		model.RegisterMsg{TokenOrUsername: credential},
	} {
		frame, err := protocol.EncodeClient(msg)
		require.NoError(t, err)
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, frame, err := conn.ReadMessage()
		require.NoError(t, err)
		msg, err := protocol.DecodeServer(frame)
		require.NoError(t, err)
		if result, ok := msg.(model.RegisterResult); ok {
			return result
		}
	}
}

// Response types for JSON parsing
type accountResponse struct {
	UUID     string `json:"uuid"`
	Username string `json:"username"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type rosterResponse struct {
	Players []struct {
		Uid        uint64 `json:"uid"`
		ClientType string `json:"client_type"`
		Alias      string `json:"alias"`
	} `json:"players"`
	Sessions int `json:"sessions"`
}

type historyResponse struct {
	Entries []struct {
		Kind        string `json:"kind"`
		UUID        string `json:"uuid"`
		IP          string `json:"ip"`
		Username    string `json:"username"`
		Detail      string `json:"detail"`
		PerformedBy string `json:"performed_by"`
	} `json:"entries"`
}

type healthResponse struct {
	Status string `json:"status"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Tests

func TestCLI_HealthCheck(t *testing.T) {
	ts := startTestServer(t, auth.ModeToken, "")
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr, t.TempDir())

	output, err := cli.run("health")
	require.NoError(t, err, "output: %s", output)

	var resp healthResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestCLI_AccountAndTokenLogin(t *testing.T) {
	ts := startTestServer(t, auth.ModeToken, "")
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr, t.TempDir())

	// Register account
	output, err := cli.run("account", "register", "--user", "alice", "--pass", "secret123")
	require.NoError(t, err, "output: %s", output)

	var account accountResponse
	require.NoError(t, json.Unmarshal([]byte(output), &account))
	assert.Equal(t, "alice", account.Username)
	assert.NotEmpty(t, account.UUID)

	// Registering again fails
	output, err = cli.run("account", "register", "--user", "alice", "--pass", "secret123")
	require.Error(t, err, "output: %s", output)

	// Issue token (saved to the token file)
	output, err = cli.run("token", "issue", "--user", "alice", "--pass", "secret123")
	require.NoError(t, err, "output: %s", output)

	var token tokenResponse
	require.NoError(t, json.Unmarshal([]byte(output), &token))
	require.NotEmpty(t, token.Token)

	saved, err := os.ReadFile(cli.tokenFile)
	require.NoError(t, err)
	assert.Equal(t, token.Token, string(saved))

	// Log in over the websocket with the token
	result := login(t, ts.addr, token.Token)
	assert.True(t, result.OK())

	// Revoke the token; it no longer logs in
	output, err = cli.run("token", "revoke", token.Token)
	require.NoError(t, err, "output: %s", output)

	var msg messageResponse
	require.NoError(t, json.Unmarshal([]byte(output), &msg))
	assert.Equal(t, "Token revoked", msg.Message)

	result = login(t, ts.addr, token.Token)
	require.False(t, result.OK())
	assert.ErrorIs(t, result.Err, model.ErrAuth)
}

func TestCLI_Roster(t *testing.T) {
	ts := startTestServer(t, auth.ModeInsecure, "")
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr, t.TempDir())

	output, err := cli.run("roster")
	require.NoError(t, err, "output: %s", output)

	var roster rosterResponse
	require.NoError(t, json.Unmarshal([]byte(output), &roster))
	assert.Empty(t, roster.Players)

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.addr, "http")+"/ws", nil)
	require.NoError(t, err)
	defer func() {
		_ = conn.Close()
		_ = resp.Body.Close()
	}()
	for _, msg := range []model.ClientMsg{
		model.TypeMsg{ClientType: model.ClientType{Kind: model.KindGame}},
		model.RegisterMsg{TokenOrUsername: "bob"},
	} {
		frame, err := protocol.EncodeClient(msg)
		require.NoError(t, err)
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
	}

	require.Eventually(t, func() bool {
		output, err = cli.run("roster")
		if err != nil {
			return false
		}
		roster = rosterResponse{}
		return json.Unmarshal([]byte(output), &roster) == nil && len(roster.Players) == 1
	}, 10*time.Second, 100*time.Millisecond)

	assert.Equal(t, "bob", roster.Players[0].Alias)
	assert.Equal(t, string(model.KindGame), roster.Players[0].ClientType)
	assert.Equal(t, 1, roster.Sessions)
}

func TestCLI_LedgerBanTakesEffectOnRestart(t *testing.T) {
	dataDir := t.TempDir()
	cli := newCLIRunner(t, "http://127.0.0.1:1", dataDir)

	// Ban mallory while the server is down
	output, err := cli.run("ledger", "ban", "--user", "mallory", "--reason", "griefing")
	require.NoError(t, err, "output: %s", output)

	output, err = cli.run("ledger", "whitelist", "add", "--user", "alice")
	require.NoError(t, err, "output: %s", output)

	output, err = cli.run("ledger", "history")
	require.NoError(t, err, "output: %s", output)

	var history historyResponse
	require.NoError(t, json.Unmarshal([]byte(output), &history))
	require.Len(t, history.Entries, 2)
	assert.Equal(t, "ban", history.Entries[0].Kind)
	assert.Equal(t, auth.InsecureAccountUUID("mallory").String(), history.Entries[0].UUID)
	assert.Equal(t, "griefing", history.Entries[0].Detail)
	assert.Equal(t, "e2e", history.Entries[0].PerformedBy)
	assert.Equal(t, "whitelist_add", history.Entries[1].Kind)

	ts := startTestServer(t, auth.ModeInsecure, dataDir)
	defer ts.shutdown()

	result := login(t, ts.addr, "mallory")
	require.False(t, result.OK())
	assert.ErrorIs(t, result.Err, model.ErrBanned)

	// bob is not on the non-empty whitelist
	result = login(t, ts.addr, "bob")
	require.False(t, result.OK())
	assert.ErrorIs(t, result.Err, model.ErrNotOnWhitelist)

	result = login(t, ts.addr, "alice")
	assert.True(t, result.OK())
}

func TestCLI_LedgerRejectsUnknownEntries(t *testing.T) {
	cli := newCLIRunner(t, "http://127.0.0.1:1", t.TempDir())

	output, err := cli.run("ledger", "unban", "--user", "nobody")
	require.Error(t, err)
	assert.Contains(t, output, "is not banned")

	output, err = cli.run("ledger", "admin", "--user", "alice", "--role", "owner")
	require.Error(t, err)
	assert.Contains(t, output, "--role must be")

	output, err = cli.run("ledger", "ban")
	require.Error(t, err)
	assert.Contains(t, output, "--uuid or --user is required")
}
