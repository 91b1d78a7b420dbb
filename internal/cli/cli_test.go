package cli

import (
	"bytes"
	"context"
	"flag"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/subcommands"
	"github.com/stretchr/testify/assert"
	trequire "github.com/stretchr/testify/require"

	"github.com/mmynk/payshare/internal/config"
	"github.com/mmynk/payshare/pkg/logging"
)

type testCLI struct {
	app *App
	out *bytes.Buffer
}

func newTestCLI(t *testing.T, jwtSecret string) *testCLI {
	t.Helper()

	cfg := &config.Config{}
	cfg.DB.Driver = "sqlite"
	cfg.DB.DSN = filepath.Join(t.TempDir(), "cli.db")
	cfg.Auth.BcryptCost = 4
	cfg.Auth.JWTSecret = jwtSecret
	cfg.Auth.SessionTTL = time.Hour
	cfg.Ledger.DefaultCurrency = "EUR"
	trequire.NoError(t, cfg.Validate())

	out := &bytes.Buffer{}
	return &testCLI{app: NewApp(cfg, logging.Discard(), out), out: out}
}

// run executes one command line and returns its output.
func (c *testCLI) run(t *testing.T, args ...string) (string, subcommands.ExitStatus) {
	t.Helper()
	c.out.Reset()

	fs := flag.NewFlagSet("payshare", flag.ContinueOnError)
	commander := subcommands.NewCommander(fs, "payshare")
	c.app.Register(commander)
	trequire.NoError(t, fs.Parse(args))

	status := commander.Execute(context.Background())
	return c.out.String(), status
}

// mustRun executes a command that must succeed and returns the value after
// prefix on the first matching output line.
func (c *testCLI) mustRun(t *testing.T, prefix string, args ...string) string {
	t.Helper()
	out, status := c.run(t, args...)
	trequire.Equal(t, subcommands.ExitSuccess, status, "output: %s", out)
	if prefix == "" {
		return out
	}
	for _, line := range strings.Split(out, "\n") {
		if rest, ok := strings.CutPrefix(line, prefix); ok {
			return strings.TrimSpace(rest)
		}
	}
	t.Fatalf("no %q line in output %q", prefix, out)
	return ""
}

func TestCLI_LedgerFlow(t *testing.T) {
	c := newTestCLI(t, "")

	collective := c.mustRun(t, "collective ", "create-collective", "-name", "Flat 3B", "-password", "pw")
	alice := c.mustRun(t, "user ", "create-user", "-username", "alice")
	bob := c.mustRun(t, "user ", "create-user", "-username", "bob")

	assert.Contains(t, c.mustRun(t, "", "add-member", "-collective", collective, "-user", alice), "member added")
	c.mustRun(t, "", "add-member", "-collective", collective, "-user", bob)
	assert.Contains(t, c.mustRun(t, "", "add-member", "-collective", collective, "-user", bob), "already a member")
	assert.Equal(t, "true", strings.TrimSpace(c.mustRun(t, "", "is-member", "-collective", collective, "-user", bob)))

	purchase := c.mustRun(t, "purchase ", "add-purchase",
		"-collective", collective, "-buyer", alice, "-name", "lunch", "-price", "100.00")

	out := c.mustRun(t, "", "stats", "-collective", collective)
	assert.Contains(t, out, "100.00")
	assert.Contains(t, out, "-€50.00")

	settle := c.mustRun(t, "", "settle", "-collective", collective)
	assert.Contains(t, settle, bob+" pays €50.00 to "+alice)

	c.mustRun(t, "liquidation ", "add-liquidation",
		"-collective", collective, "-debtor", bob, "-creditor", alice, "-name", "payback", "-amount", "50")
	assert.Contains(t, c.mustRun(t, "", "settle", "-collective", collective), "all settled")

	entries := c.mustRun(t, "", "entries", "-collective", collective)
	assert.Contains(t, entries, "liquidation")
	assert.Contains(t, entries, purchase)

	assert.Contains(t, c.mustRun(t, "", "delete", "-id", purchase), "purchase "+purchase+" deleted")
	assert.Contains(t, c.mustRun(t, "", "delete", "-id", purchase), "already deleted")
	assert.NotContains(t, c.mustRun(t, "", "entries", "-collective", collective), purchase)
	assert.Contains(t, c.mustRun(t, "", "entries", "-collective", collective, "-all", "-buyer", alice), purchase)

	byDebtor := c.mustRun(t, "", "entries", "-collective", collective, "-debtor", bob)
	assert.Contains(t, byDebtor, "payback")
	assert.NotContains(t, byDebtor, "lunch")
}

func TestCLI_Rejections(t *testing.T) {
	c := newTestCLI(t, "")

	collective := c.mustRun(t, "collective ", "create-collective", "-name", "Flat", "-password", "pw")
	mallory := c.mustRun(t, "user ", "create-user", "-username", "mallory")

	out, status := c.run(t, "add-purchase", "-collective", collective, "-buyer", mallory, "-name", "x", "-price", "1")
	assert.Equal(t, subcommands.ExitFailure, status)
	assert.Contains(t, out, "is not a member")

	out, status = c.run(t, "add-purchase", "-collective", collective, "-buyer", mallory, "-name", "x", "-price", "1.001")
	assert.Equal(t, subcommands.ExitFailure, status)
	assert.Contains(t, out, "fractional digits")

	out, status = c.run(t, "stats")
	assert.Equal(t, subcommands.ExitUsageError, status)
	assert.Contains(t, out, "-collective")

	out, status = c.run(t, "login", "-key", "k", "-password", "p")
	assert.Equal(t, subcommands.ExitFailure, status)
	assert.Contains(t, out, "sessions are not configured")
}

func TestCLI_Credentials(t *testing.T) {
	c := newTestCLI(t, "cli-test-secret")

	out := c.mustRun(t, "", "create-collective", "-name", "Flat", "-password", "pw", "-currency", "usd")
	assert.Contains(t, out, "currency   USD ($)")

	var collective, key, token string
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		switch fields[0] {
		case "collective":
			collective = fields[1]
		case "key":
			key = fields[1]
		case "token":
			token = fields[1]
		}
	}
	trequire.NotEmpty(t, collective)

	session := strings.TrimSpace(c.mustRun(t, "", "login", "-key", key, "-password", "pw"))
	assert.Contains(t, c.mustRun(t, "", "whoami", "-session", session), collective)
	assert.Contains(t, c.mustRun(t, "", "whoami", "-token", token), collective)

	assert.Contains(t, c.mustRun(t, "", "set-password", "-collective", collective, "-password", "pw"), "password unchanged")
	newToken := c.mustRun(t, "token ", "set-password", "-collective", collective, "-password", "pw2")
	assert.NotEqual(t, token, newToken)

	_, status := c.run(t, "whoami", "-session", session)
	assert.Equal(t, subcommands.ExitFailure, status, "session must be revoked after rotation")
	_, status = c.run(t, "whoami", "-token", token)
	assert.Equal(t, subcommands.ExitFailure, status, "old token must be rejected")

	assert.Equal(t, "false", strings.TrimSpace(c.mustRun(t, "", "check-password", "-collective", collective, "-password", "pw")))
	assert.Equal(t, "true", strings.TrimSpace(c.mustRun(t, "", "check-password", "-collective", collective, "-password", "pw2")))
}

func TestCLI_MetricsHandler(t *testing.T) {
	c := newTestCLI(t, "")

	collective := c.mustRun(t, "collective ", "create-collective", "-name", "Flat", "-password", "pw")
	alice := c.mustRun(t, "user ", "create-user", "-username", "alice")
	c.mustRun(t, "", "add-member", "-collective", collective, "-user", alice)
	c.mustRun(t, "purchase ", "add-purchase", "-collective", collective, "-buyer", alice, "-name", "x", "-price", "3")

	rec := httptest.NewRecorder()
	c.app.MetricsHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	assert.Contains(t, body, "payshare_purchases_created_total 1")
	assert.Contains(t, body, "go_goroutines")
}

func TestCLI_PushesLedgerMetrics(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []string
		paths  []string
	)
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(body))
		paths = append(paths, r.Method+" "+r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer gateway.Close()

	c := newTestCLI(t, "")
	c.app.cfg.Metrics.PushgatewayURL = gateway.URL
	c.app.cfg.Metrics.PushJob = "payshare-test"

	collective := c.mustRun(t, "collective ", "create-collective", "-name", "Flat", "-password", "pw")
	alice := c.mustRun(t, "user ", "create-user", "-username", "alice")
	c.mustRun(t, "", "add-member", "-collective", collective, "-user", alice)
	c.mustRun(t, "purchase ", "add-purchase", "-collective", collective, "-buyer", alice, "-name", "x", "-price", "3")

	mu.Lock()
	defer mu.Unlock()
	trequire.Len(t, paths, 4, "one push per command")
	assert.Equal(t, "POST /metrics/job/payshare-test", paths[3])
	assert.Contains(t, bodies[3], "payshare_purchases_created_total")
	assert.NotContains(t, bodies[3], "go_goroutines")
}

func TestCLI_PushFailureKeepsExitStatus(t *testing.T) {
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer gateway.Close()

	c := newTestCLI(t, "")
	c.app.cfg.Metrics.PushgatewayURL = gateway.URL

	_, status := c.run(t, "create-user", "-username", "alice")
	assert.Equal(t, subcommands.ExitSuccess, status)
}
