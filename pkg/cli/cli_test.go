package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/supamocka/pkg/cliconfig"
	"github.com/getmockd/supamocka/pkg/supabase"
)

// ─── Test infrastructure ────────────────────────────────────────────────────

// syncBuffer is written by the logger and the notifier from different
// goroutines.
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

// fakeProject serves the admin and REST endpoints the CLI talks to.
type fakeProject struct {
	mu       sync.Mutex
	users    []supabase.User
	created  []supabase.CreateUserParams
	apiKeys  []string
	bearers  []string
	restKeys []string
	lists    int
}

func (p *fakeProject) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == supabase.AdminUsersPath && r.Method == http.MethodPost:
		p.apiKeys = append(p.apiKeys, r.Header.Get("apikey"))
		p.bearers = append(p.bearers, r.Header.Get("Authorization"))

		var params supabase.CreateUserParams
		_ = json.NewDecoder(r.Body).Decode(&params)
		p.created = append(p.created, params)
		for _, u := range p.users {
			if u.Email == params.Email {
				w.WriteHeader(http.StatusUnprocessableEntity)
				_, _ = w.Write([]byte(`{"code":422,"error_code":"email_exists","msg":"A user with this email address has already been registered"}`))
				return
			}
		}
		user := supabase.User{ID: uuid.NewString(), Email: params.Email, Role: "authenticated"}
		p.users = append(p.users, user)
		_ = json.NewEncoder(w).Encode(user)

	case r.URL.Path == supabase.AdminUsersPath && r.Method == http.MethodGet:
		p.lists++
		_ = json.NewEncoder(w).Encode(map[string]any{"users": p.users})

	case r.URL.Path == "/rest/v1/":
		_, _ = w.Write([]byte(`{
			"swagger": "2.0",
			"info": {"title": "PostgREST API", "version": "12"},
			"paths": {
				"/": {"get": {"summary": "OpenAPI description"}},
				"/todos": {"get": {"summary": "todos"}, "post": {}}
			}
		}`))

	case r.URL.Path == "/rest/v1/ping":
		p.restKeys = append(p.restKeys, r.Header.Get("apikey"))
		_, _ = w.Write([]byte(`[]`))

	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"not found"}`))
	}
}

func (p *fakeProject) listCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lists
}

func (p *fakeProject) snapshot() (users []supabase.User, created []supabase.CreateUserParams) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]supabase.User(nil), p.users...), append([]supabase.CreateUserParams(nil), p.created...)
}

type testEnv struct {
	t       *testing.T
	dataDir string
	project *fakeProject
	server  *httptest.Server
}

// newTestEnv isolates config lookup and gives every run the same data dir.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(home, ".local", "share"))
	for _, env := range []string{
		cliconfig.EnvStore, cliconfig.EnvDataDir, cliconfig.EnvLogLevel, cliconfig.EnvLogFormat,
		cliconfig.EnvTimeout, cliconfig.EnvDiagnostics, cliconfig.EnvVerbose, cliconfig.EnvJSON, cliconfig.EnvConfig,
	} {
		t.Setenv(env, "")
	}
	t.Chdir(t.TempDir())

	project := &fakeProject{}
	server := httptest.NewServer(project)
	t.Cleanup(server.Close)

	return &testEnv{t: t, dataDir: t.TempDir(), project: project, server: server}
}

type result struct {
	stdout string
	stderr string
	err    error
}

func (e *testEnv) run(args ...string) result {
	e.t.Helper()
	var out, errOut syncBuffer
	err := Run(context.Background(),
		append([]string{"--data-dir", e.dataDir}, args...),
		WithOutput(&out, &errOut),
		WithInput(strings.NewReader("")),
	)
	return result{stdout: out.String(), stderr: errOut.String(), err: err}
}

func (e *testEnv) mustRun(args ...string) result {
	e.t.Helper()
	res := e.run(args...)
	require.NoError(e.t, res.err, "stderr: %s", res.stderr)
	return res
}

func (e *testEnv) connect(publicKey, secretKey string) {
	e.t.Helper()
	e.mustRun("settings", "set", "--url", e.server.URL, "--public-key", publicKey, "--secret-key", secretKey)
}

func signedKey(t *testing.T, role string) string {
	t.Helper()
	key, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"role": role}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return key
}

func decodeJSON[T any](t *testing.T, data string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(data), &v), "stdout: %s", data)
	return v
}

// ─── settings ───────────────────────────────────────────────────────────────

func TestSettings_SetAndShow(t *testing.T) {
	env := newTestEnv(t)
	env.project.users = []supabase.User{{ID: "1", Email: "a@example.com"}, {ID: "2", Email: "b@example.com"}}
	anon, service := signedKey(t, "anon"), signedKey(t, "service_role")

	res := env.mustRun("settings", "set", "--url", env.server.URL, "--public-key", anon, "--secret-key", service)
	assert.Contains(t, res.stderr, "Settings saved. 2 users cached.")
	assert.NotContains(t, res.stdout, service, "secret key must never be printed")

	res = env.mustRun("--json", "settings", "show")
	got := decodeJSON[SettingsOutput](t, res.stdout)
	assert.Equal(t, env.server.URL, got.URL)
	assert.Equal(t, anon, got.PublicKey)
	assert.Equal(t, "****"+service[len(service)-4:], got.SecretKey)
	assert.Equal(t, "anon", got.PublicKeyRole)
	assert.Equal(t, "service_role", got.SecretKeyRole)
	assert.Empty(t, got.Warnings)
}

func TestSettings_SetChangesOnlyGivenFields(t *testing.T) {
	env := newTestEnv(t)
	env.connect("anon-key", "service-key")

	env.mustRun("settings", "set", "--public-key", "anon-2")

	got := decodeJSON[SettingsOutput](t, env.mustRun("--json", "settings", "show").stdout)
	assert.Equal(t, env.server.URL, got.URL)
	assert.Equal(t, "anon-2", got.PublicKey)
	assert.Equal(t, "****-key", got.SecretKey)
}

func TestSettings_WarnsAboutSwappedKeys(t *testing.T) {
	env := newTestEnv(t)
	env.connect(signedKey(t, "service_role"), signedKey(t, "anon"))

	res := env.mustRun("settings", "show")
	assert.Contains(t, res.stdout, "(anon)")
	assert.Contains(t, res.stderr, "Warning: the public key is a service_role key")
	assert.Contains(t, res.stderr, `Warning: the secret key has role "anon"`)
}

func TestSettings_Reset(t *testing.T) {
	env := newTestEnv(t)
	env.connect("anon", "service")
	env.mustRun("sections", "open", "users")

	env.mustRun("settings", "reset", "--yes")

	status := decodeJSON[StatusOutput](t, env.mustRun("--json", "status").stdout)
	assert.Empty(t, status.URL)
	assert.False(t, status.SecretKeySet)
	assert.Equal(t, []string{"settings"}, status.OpenSections)
}

// ─── users ──────────────────────────────────────────────────────────────────

func TestUsersCreate(t *testing.T) {
	env := newTestEnv(t)
	env.connect("anon", "service")

	res := env.mustRun("users", "create", "--email", "new@example.com", "--confirm")
	assert.Contains(t, res.stdout, "Created new@example.com")
	assert.Contains(t, res.stderr, "Creating user")
	assert.Contains(t, res.stderr, "User created")

	_, created := env.project.snapshot()
	require.Len(t, created, 1)
	assert.Equal(t, supabase.CreateUserParams{Email: "new@example.com", Password: "TestPassword1", EmailConfirm: true}, created[0])

	env.project.mu.Lock()
	defer env.project.mu.Unlock()
	assert.Equal(t, []string{"service"}, env.project.apiKeys)
	assert.Equal(t, []string{"Bearer service"}, env.project.bearers)
}

func TestUsersCreate_Rejected(t *testing.T) {
	env := newTestEnv(t)
	env.project.users = []supabase.User{{ID: "1", Email: "taken@example.com"}}
	env.connect("anon", "service")

	res := env.run("users", "create", "--email", "taken@example.com")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "already been registered")
	assert.Contains(t, res.stderr, "Error creating user. Check the logs for more details.")
	assert.Contains(t, res.stderr, "level=ERROR", "failures are logged")
}

func TestUsersCreate_Random(t *testing.T) {
	env := newTestEnv(t)
	env.connect("anon", "service")

	res := env.mustRun("--json", "users", "create", "--random")
	user := decodeJSON[supabase.User](t, res.stdout)
	assert.Regexp(t, `^test-[0-9a-f]{8}@example\.com$`, user.Email)
}

func TestUsersCreate_EmailAndRandomConflict(t *testing.T) {
	env := newTestEnv(t)
	res := env.run("users", "create", "--email", "a@example.com", "--random")
	assert.EqualError(t, res.err, "--email and --random cannot be combined")
}

func TestUsersList_Match(t *testing.T) {
	env := newTestEnv(t)
	env.project.users = []supabase.User{
		{ID: "1", Email: "test-aaaa1111@example.com"},
		{ID: "2", Email: "alice@corp.test"},
		{ID: "3", Email: "test-bbbb2222@example.com"},
	}
	env.connect("anon", "service")

	users := decodeJSON[[]supabase.User](t, env.mustRun("--json", "users", "list", "--match", "test-*@example.com").stdout)
	require.Len(t, users, 2)
	assert.Equal(t, "1", users[0].ID)
	assert.Equal(t, "3", users[1].ID)

	res := env.mustRun("users", "list")
	assert.Contains(t, res.stdout, "alice@corp.test")
	assert.Contains(t, res.stdout, "ID")

	res = env.run("users", "list", "--match", "[")
	assert.Error(t, res.err)
}

func TestUsersList_EmptyIsJSONArray(t *testing.T) {
	env := newTestEnv(t)
	res := env.mustRun("--json", "users", "list")
	assert.JSONEq(t, `[]`, res.stdout)
}

func TestUsersSync(t *testing.T) {
	env := newTestEnv(t)
	env.connect("anon", "service")
	env.project.mu.Lock()
	env.project.users = []supabase.User{{ID: "9", Email: "late@example.com"}}
	env.project.mu.Unlock()

	require.Equal(t, 1, env.project.listCalls(), "settings set syncs its new client once")

	res := env.mustRun("users", "sync")
	assert.Contains(t, res.stdout, "1 users cached.")
	assert.Contains(t, res.stderr, "Users synced")
	assert.Equal(t, 2, env.project.listCalls(), "users sync lists users exactly once")

	users := decodeJSON[[]supabase.User](t, env.mustRun("--json", "users", "list").stdout)
	require.Len(t, users, 1)
	assert.Equal(t, "late@example.com", users[0].Email)
	assert.Equal(t, 2, env.project.listCalls(), "a plain list reads the cache")

	env.mustRun("users", "list", "--refresh")
	assert.Equal(t, 3, env.project.listCalls(), "list --refresh lists users exactly once")
}

// ─── poll ───────────────────────────────────────────────────────────────────

func TestPoll_Count(t *testing.T) {
	env := newTestEnv(t)
	env.connect("anon", "service")

	res := env.mustRun("poll", "--interval", "20ms", "--endpoint", "/ping", "--count", "2")
	assert.Contains(t, res.stdout, "2 probes, 0 failed.")
	assert.GreaterOrEqual(t, strings.Count(res.stderr, "GET: /ping 200"), 2)

	env.project.mu.Lock()
	assert.Contains(t, env.project.restKeys, "anon")
	env.project.mu.Unlock()

	cfg := decodeJSON[PollConfigOutput](t, env.mustRun("--json", "poll", "config").stdout)
	assert.Equal(t, int64(20), cfg.IntervalMs, "poll flags are saved")
	assert.Equal(t, "/ping", cfg.Endpoint)
}

func TestPoll_ExpectationFailure(t *testing.T) {
	env := newTestEnv(t)
	env.connect("anon", "service")

	res := env.run("--json", "poll", "--interval", "20ms", "--endpoint", "/missing", "--count", "1", "--expect", "status < 400")
	require.Error(t, res.err)
	assert.Equal(t, "1 of 1 probes failed", res.err.Error())
	assert.Contains(t, res.stderr, "GET: /missing 404 (expected status < 400)")

	summary := decodeJSON[PollSummary](t, res.stdout)
	assert.Equal(t, PollSummary{Ticks: 1, Failures: 1}, summary)
}

func TestPoll_RejectsBadInput(t *testing.T) {
	env := newTestEnv(t)

	res := env.run("poll", "--expect", "status +")
	assert.ErrorContains(t, res.err, "invalid expectation")

	res = env.run("poll", "--interval", "0s", "--count", "1")
	assert.ErrorContains(t, res.err, "interval must be at least 1ms")

	res = env.run("poll", "config", "--interval", "500us")
	assert.ErrorContains(t, res.err, "interval must be at least 1ms, got 500µs")
	cfg := decodeJSON[PollConfigOutput](t, env.mustRun("--json", "poll", "config").stdout)
	assert.Equal(t, int64(1000), cfg.IntervalMs, "a rejected interval is not saved")
}

func TestPollConfig(t *testing.T) {
	env := newTestEnv(t)
	env.connect("anon", "service")

	cfg := decodeJSON[PollConfigOutput](t, env.mustRun("--json", "poll", "config").stdout)
	assert.Equal(t, PollConfigOutput{IntervalMs: 1000, Endpoint: "/test", URL: env.server.URL + "/rest/v1/test"}, cfg)

	env.mustRun("poll", "config", "--interval", "250ms", "--endpoint", "/todos")
	status := decodeJSON[StatusOutput](t, env.mustRun("--json", "status").stdout)
	assert.Equal(t, int64(250), status.IntervalMs)
	assert.Equal(t, "/todos", status.Endpoint)
}

// ─── endpoints ──────────────────────────────────────────────────────────────

func TestEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.connect("anon", "service")

	endpoints := decodeJSON[[]supabase.Endpoint](t, env.mustRun("--json", "endpoints").stdout)
	require.Len(t, endpoints, 2)
	assert.Equal(t, supabase.Endpoint{Path: "/todos", Methods: []string{"GET", "POST"}, Summary: "todos"}, endpoints[1])

	res := env.mustRun("endpoints")
	assert.Contains(t, res.stdout, "GET,POST")
}

func TestEndpoints_NoURL(t *testing.T) {
	env := newTestEnv(t)
	res := env.run("endpoints")
	assert.ErrorIs(t, res.err, ErrNoProjectURL)
}

// ─── sections and status ────────────────────────────────────────────────────

func TestSections(t *testing.T) {
	env := newTestEnv(t)

	rows := decodeJSON[[]SectionOutput](t, env.mustRun("--json", "sections").stdout)
	require.Len(t, rows, 4)
	assert.Equal(t, SectionOutput{ID: "settings", Open: true}, rows[0])

	env.mustRun("sections", "open", "users", "polling")
	env.mustRun("sections", "close", "settings")

	status := decodeJSON[StatusOutput](t, env.mustRun("--json", "status").stdout)
	assert.Equal(t, []string{"users", "polling"}, status.OpenSections)

	res := env.run("sections", "open", "nope")
	assert.ErrorContains(t, res.err, `unknown section "nope"`)
}

func TestStatus_MemoryStoreForgets(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("--store", "memory", "settings", "set", "--url", env.server.URL)

	status := decodeJSON[StatusOutput](t, env.mustRun("--store", "memory", "--json", "status").stdout)
	assert.Empty(t, status.URL)
	assert.False(t, status.Persistent)
}

func TestStatus_SQLiteStore(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("--store", "sqlite", "settings", "set", "--url", env.server.URL)

	status := decodeJSON[StatusOutput](t, env.mustRun("--store", "sqlite", "--json", "status").stdout)
	assert.Equal(t, env.server.URL, status.URL)
	assert.Equal(t, "sqlite", status.Store)
	assert.True(t, status.Persistent)
}

// ─── config and version ─────────────────────────────────────────────────────

func TestConfig_ShowsSources(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv(cliconfig.EnvTimeout, "5s")

	values := decodeJSON[[]ConfigValue](t, env.mustRun("--json", "--store", "memory", "config").stdout)
	byKey := map[string]ConfigValue{}
	for _, v := range values {
		byKey[v.Key] = v
	}
	assert.Equal(t, "memory", byKey["store"].Value)
	assert.Equal(t, cliconfig.SourceFlag, byKey["store"].Source)
	assert.Equal(t, "5s", byKey["timeout"].Value)
	assert.Equal(t, cliconfig.SourceEnv, byKey["timeout"].Source)
	assert.Equal(t, cliconfig.SourceDefault, byKey["logLevel"].Source)
}

func TestConfig_InvalidStore(t *testing.T) {
	env := newTestEnv(t)
	res := env.run("--store", "redis", "status")
	assert.ErrorContains(t, res.err, `store "redis" is not supported`)
}

func TestDiagnosticsLog(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv(cliconfig.EnvDiagnostics, "true")
	env.connect("anon", "service")

	env.mustRun("users", "create", "--email", "diag@example.com")

	res := env.mustRun("config")
	assert.Contains(t, res.stdout, "diagnostics")
	assert.FileExists(t, filepath.Join(env.dataDir, "diagnostics.log"))
}

func TestVersion_JSON(t *testing.T) {
	env := newTestEnv(t)
	got := decodeJSON[VersionOutput](t, env.mustRun("--json", "version").stdout)
	assert.NotEmpty(t, got.Version)
	assert.NotEmpty(t, got.Go)
}
