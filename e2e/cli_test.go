package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/iq180/internal/api"
	"github.com/mcoot/iq180/internal/api/response"
	"github.com/mcoot/iq180/internal/factory"
	"github.com/mcoot/iq180/internal/model"
	"github.com/mcoot/iq180/internal/testutil"
)

// cliRunner manages CLI binary execution
type cliRunner struct {
	binaryPath string
	serverURL  string
}

func newCLIRunner(t *testing.T, serverURL string) *cliRunner {
	t.Helper()

	projectRoot := findProjectRoot(t)

	binaryPath := filepath.Join(t.TempDir(), "iq180")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/iq180")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build CLI: %s", string(output))

	return &cliRunner{
		binaryPath: binaryPath,
		serverURL:  serverURL,
	}
}

func (r *cliRunner) command(args ...string) *exec.Cmd {
	fullArgs := append([]string{"--server", r.serverURL, "--output", "json"}, args...)
	return exec.Command(r.binaryPath, fullArgs...)
}

func (r *cliRunner) run(args ...string) (string, error) {
	output, err := r.command(args...).CombinedOutput()
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

// testServer runs the real application on a loopback port
type testServer struct {
	app *factory.App
	url string
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	app := factory.New(factory.Config{Logger: testutil.NopLogger()})
	app.Start(context.Background())

	server := api.NewServer(app.Router, api.DefaultServerConfig(), testutil.NopLogger())
	go func() {
		if err := server.Serve(listener); err != nil {
			t.Logf("server error: %v", err)
		}
	}()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
		app.Close()
	})

	serverURL := "http://" + listener.Addr().String()
	waitForServer(t, serverURL+"/api/v1/health")
	return &testServer{app: app, url: serverURL}
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
	t.Fatal("server did not become ready")
}

// syncBuffer is a bytes.Buffer safe for a writing process and a polling test
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestCLI_HealthCheck(t *testing.T) {
	ts := startTestServer(t)
	cli := newCLIRunner(t, ts.url)

	output, err := cli.run("health")
	require.NoError(t, err, output)

	var result response.HealthResponse
	require.NoError(t, json.Unmarshal([]byte(output), &result))
	assert.Equal(t, "ok", result.Status)
}

func TestCLI_PlayersAndGame(t *testing.T) {
	ts := startTestServer(t)
	cli := newCLIRunner(t, ts.url)

	_, err := ts.app.Registry.Join("conn-test", model.Profile{Nickname: "alice"})
	require.NoError(t, err)

	output, err := cli.run("players", "list")
	require.NoError(t, err, output)
	var players response.PlayerList
	require.NoError(t, json.Unmarshal([]byte(output), &players))
	require.Len(t, players.Players, 1)
	assert.Equal(t, "alice", players.Players[0].Nickname)

	output, err = cli.run("players", "get", players.Players[0].ID)
	require.NoError(t, err, output)

	output, err = cli.run("game", "get")
	require.NoError(t, err, output)
	var state response.GameState
	require.NoError(t, json.Unmarshal([]byte(output), &state))
	assert.Equal(t, "IDLE", state.Phase)
}

func TestCLI_PlaySession(t *testing.T) {
	ts := startTestServer(t)
	cli := newCLIRunner(t, ts.url)

	cmd := cli.command("play", "--nickname", "alice")
	stdin, err := cmd.StdinPipe()
	require.NoError(t, err)
	var stdout syncBuffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stdout
	require.NoError(t, cmd.Start())

	require.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), `"PLAYER_INFO"`)
	}, 5*time.Second, 20*time.Millisecond, stdout.String())

	_, err = io.WriteString(stdin, "say hello\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), `"text":"hello"`)
	}, 5*time.Second, 20*time.Millisecond, stdout.String())

	_, err = io.WriteString(stdin, "quit\n")
	require.NoError(t, err)
	require.NoError(t, cmd.Wait(), stdout.String())

	assert.Eventually(t, func() bool {
		return len(ts.app.Registry.Online()) == 0
	}, 5*time.Second, 20*time.Millisecond)
}

func TestCLI_ErrorHandling(t *testing.T) {
	ts := startTestServer(t)
	cli := newCLIRunner(t, ts.url)

	t.Run("abort without a game", func(t *testing.T) {
		output, err := cli.run("game", "abort")
		assert.Error(t, err)
		assert.Contains(t, output, "NO_GAME_IN_PROGRESS")
	})

	t.Run("unknown player", func(t *testing.T) {
		output, err := cli.run("players", "get", "nobody")
		assert.Error(t, err)
		assert.Contains(t, output, "PLAYER_NOT_FOUND")
	})

	t.Run("unknown output format", func(t *testing.T) {
		output, err := cli.run("--output", "yaml", "health")
		assert.Error(t, err)
		assert.Contains(t, output, "unknown output format")
	})
}
