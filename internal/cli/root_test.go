package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notionclone/client/internal/api"
	"notionclone/client/internal/history"
	"notionclone/client/internal/session"
)

func init() {
	color.NoColor = true
}

type fakeAPI struct {
	*httptest.Server
	mux *http.ServeMux

	mu    sync.Mutex
	calls []string
	puts  []api.UpdatePageRequest
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{mux: http.NewServeMux()}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls = append(f.calls, r.Method+" "+r.URL.Path)
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		f.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeAPI) json(pattern, body string) {
	f.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	})
}

func (f *fakeAPI) called(call string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == call {
			return true
		}
	}
	return false
}

// setup points the CLI at the fake API with a file token store in a temp
// dir. It returns the token file path.
func setup(t *testing.T, apiURL string) string {
	t.Helper()
	dir := t.TempDir()
	tokenFile := filepath.Join(dir, "token.json")
	t.Setenv("NOTION_API_URL", apiURL)
	t.Setenv("NOTION_TOKEN_STORE", "file")
	t.Setenv("NOTION_TOKEN_FILE", tokenFile)
	t.Setenv("NOTION_TOKEN_PASSPHRASE", "")
	t.Setenv("NOTION_HISTORY_DIR", filepath.Join(dir, "history"))
	t.Setenv("NOTION_PROFILE", "default")
	return tokenFile
}

func loggedIn(t *testing.T, tokenFile string) {
	t.Helper()
	store := session.NewFileStore(tokenFile, "")
	require.NoError(t, store.Save(context.Background(), session.State{
		Token: "tok",
		User:  session.User{ID: "7", Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace"},
	}))
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	a := &App{in: strings.NewReader(stdin)}
	root := newRoot(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	require.NoError(t, a.Close())
	return out.String(), err
}

func TestLoginThenWhoami(t *testing.T) {
	srv := newFakeAPI(t)
	srv.mux.HandleFunc("POST /users/login", func(w http.ResponseWriter, r *http.Request) {
		var body api.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Invalid credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"message":"ok","data":{"token":"jwt-1","userDto":{"id":7,"firstName":"Ada","lastName":"Lovelace","email":"ada@example.com","role":"USER"}}}`))
	})
	tokenFile := setup(t, srv.URL)

	out, err := runCLI(t, "secret\n", "login", "--email", "ada@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as Ada Lovelace (ada@example.com)")

	st, err := session.NewFileStore(tokenFile, "").Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "jwt-1", st.Token)

	out, err = runCLI(t, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Ada Lovelace <ada@example.com>")
}

func TestLoginFailureLeavesNoSession(t *testing.T) {
	srv := newFakeAPI(t)
	srv.mux.HandleFunc("POST /users/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Invalid email or password"}`))
	})
	setup(t, srv.URL)

	_, err := runCLI(t, "wrong\n", "login", "--email", "ada@example.com")
	require.Error(t, err)
	assert.Equal(t, "Invalid email or password", errorText(err))

	out, err := runCLI(t, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in.")
}

func TestProtectedCommandNeedsLogin(t *testing.T) {
	srv := newFakeAPI(t)
	setup(t, srv.URL)

	_, err := runCLI(t, "", "workspace", "list")
	require.ErrorIs(t, err, api.ErrNotAuthenticated)
	assert.Empty(t, srv.calls)
}

func TestPageTreeFetchesEveryLevel(t *testing.T) {
	srv := newFakeAPI(t)
	srv.mux.HandleFunc("GET /workspaces/w1/pages", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("parentId") {
		case "":
			_, _ = w.Write([]byte(`[{"id":"a","title":"Alpha"},{"id":"b","title":"Beta","favorite":true}]`))
		case "a":
			_, _ = w.Write([]byte(`[{"id":"c","title":"Child"}]`))
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	})
	loggedIn(t, setup(t, srv.URL))

	out, err := runCLI(t, "", "page", "tree", "--workspace", "w1")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Alpha  a", lines[0])
	assert.Equal(t, "  Child  c", lines[1])
	assert.Equal(t, "Beta *  b", lines[2])
}

func TestPageListPrintsTable(t *testing.T) {
	srv := newFakeAPI(t)
	srv.json("GET /workspaces/w1/pages", `[{"id":"a","title":"Alpha","updatedAt":"2024-05-01T10:00:00"}]`)
	loggedIn(t, setup(t, srv.URL))

	out, err := runCLI(t, "", "page", "list", "-w", "w1")
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "Alpha")
}

func editAPI(t *testing.T, role string) *fakeAPI {
	t.Helper()
	srv := newFakeAPI(t)
	srv.json("GET /pages/p1", `{"id":"p1","title":"Notes","content":"{\"type\":\"doc\",\"content\":[]}","wsUid":"w1"}`)
	srv.json("GET /workspaces/w1/members", `[{"userId":7,"email":"ada@example.com","role":"`+role+`"}]`)
	srv.mux.HandleFunc("PUT /pages/p1", func(w http.ResponseWriter, r *http.Request) {
		var body api.UpdatePageRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		srv.mu.Lock()
		srv.puts = append(srv.puts, body)
		srv.mu.Unlock()
		_, _ = w.Write([]byte(`{"id":"p1","title":"Notes"}`))
	})
	return srv
}

func TestPageEditSavesOnQuitAndJournals(t *testing.T) {
	srv := editAPI(t, "MEMBER")
	loggedIn(t, setup(t, srv.URL))

	out, err := runCLI(t, "type hello\nquit\n", "page", "edit", "p1")
	require.NoError(t, err)
	assert.NotContains(t, out, "read-only")

	require.Len(t, srv.puts, 1)
	assert.Equal(t, "Notes", srv.puts[0].Title)
	assert.Equal(t, "hello", srv.puts[0].ActualContent)
	assert.Contains(t, srv.puts[0].Content, `"text":"hello"`)

	entries, err := history.New(os.Getenv("NOTION_HISTORY_DIR"), "").History("p1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Ada Lovelace", entries[0].Author)

	out, err = runCLI(t, "", "page", "history", "p1")
	require.NoError(t, err)
	assert.Contains(t, out, entries[0].Hash)
	assert.Contains(t, out, "autosave #1")
}

func TestPageEditViewerIsReadOnly(t *testing.T) {
	srv := editAPI(t, "VIEWER")
	loggedIn(t, setup(t, srv.URL))

	out, err := runCLI(t, "type hello\nquit\n", "page", "edit", "p1")
	require.NoError(t, err)
	assert.Contains(t, out, "Opened read-only.")
	assert.Contains(t, out, "This page is read-only.")
	assert.Empty(t, srv.puts)
}

func TestWorkspaceDeleteNeedsOwner(t *testing.T) {
	srv := newFakeAPI(t)
	srv.json("GET /workspaces/w1/members", `[{"userId":7,"email":"ada@example.com","role":"ADMIN"}]`)
	srv.mux.HandleFunc("DELETE /workspaces/w1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	loggedIn(t, setup(t, srv.URL))

	_, err := runCLI(t, "", "workspace", "delete", "w1")
	require.ErrorIs(t, err, errForbidden)
	assert.False(t, srv.called("DELETE /workspaces/w1"))
}

func TestPageImportUsesFirstHeading(t *testing.T) {
	srv := newFakeAPI(t)
	var created api.CreatePageRequest
	srv.mux.HandleFunc("POST /workspaces/w1/pages", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&created)
		_, _ = w.Write([]byte(`{"id":"n1","title":"` + created.Title + `"}`))
	})
	loggedIn(t, setup(t, srv.URL))

	file := filepath.Join(t.TempDir(), "trip.md")
	require.NoError(t, os.WriteFile(file, []byte("# Trip\n\nPack **bags**\n"), 0o644))

	out, err := runCLI(t, "", "page", "import", file, "-w", "w1")
	require.NoError(t, err)
	assert.Contains(t, out, `Imported "Trip" (n1)`)
	assert.Equal(t, "Trip", created.Title)
	assert.Contains(t, created.Content, `"bold"`)
}

func TestPageExportMarkdownToStdout(t *testing.T) {
	srv := newFakeAPI(t)
	srv.json("GET /pages/p1", `{"id":"p1","title":"Notes","content":"{\"type\":\"doc\",\"content\":[{\"type\":\"paragraph\",\"content\":[{\"type\":\"text\",\"text\":\"hi\"}]}]}"}`)
	loggedIn(t, setup(t, srv.URL))

	out, err := runCLI(t, "", "page", "export", "p1", "--format", "md", "--out", "-")
	require.NoError(t, err)
	assert.Equal(t, "# Notes\n\nhi\n", out)
}

func TestChatAskPrintsAnswer(t *testing.T) {
	srv := newFakeAPI(t)
	srv.mux.HandleFunc("POST /chat", func(w http.ResponseWriter, r *http.Request) {
		var body api.ChatRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Question != "what is due" || body.SourceID != "p1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"answer":"The **report**."}`))
	})
	loggedIn(t, setup(t, srv.URL))

	out, err := runCLI(t, "", "chat", "ask", "--page", "p1", "what", "is", "due")
	require.NoError(t, err)
	assert.Equal(t, "The **report**.\n", out)

	out, err = runCLI(t, "", "chat", "ask", "--page", "p1", "--html", "what is due")
	require.NoError(t, err)
	assert.Contains(t, out, "<strong>report</strong>")
}

func TestInteractiveChatContinuesAfterFailure(t *testing.T) {
	srv := newFakeAPI(t)
	srv.mux.HandleFunc("POST /chat", func(w http.ResponseWriter, r *http.Request) {
		var body api.ChatRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Question == "boom" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`"fine"`))
	})
	loggedIn(t, setup(t, srv.URL))

	out, err := runCLI(t, "boom\nhello\n/quit\n", "chat", "ask")
	require.NoError(t, err)
	assert.Contains(t, out, "Server error. Please try again later.")
	assert.Contains(t, out, "fine")
}

func TestExecuteReportsUnknownCommand(t *testing.T) {
	assert.Equal(t, 1, Execute(context.Background(), "test", []string{"no-such-command"}))
}

func TestErrorText(t *testing.T) {
	assert.Equal(t, "Please log in first.", errorText(api.ErrNotAuthenticated))
	assert.Equal(t, "bad flag", errorText(errors.New("bad flag")))
	assert.Equal(t, "Page not found", errorText(&api.APIError{Status: 404, Message: "Page not found"}))
}

func TestProfileFile(t *testing.T) {
	assert.Equal(t, "/x/token.json", profileFile("/x/token.json", "default"))
	assert.Equal(t, "/x/token-work.json", profileFile("/x/token.json", "work"))
}

func TestReadSecretUsesTerminalWithoutEcho(t *testing.T) {
	oldRead, oldTerm := readPassword, isTerminal
	t.Cleanup(func() { readPassword, isTerminal = oldRead, oldTerm })
	isTerminal = func(int) bool { return true }
	readPassword = func(int) ([]byte, error) { return []byte("hunter22"), nil }

	var out bytes.Buffer
	got, err := (&App{}).readSecret("Password: ", &out)
	require.NoError(t, err)
	assert.Equal(t, "hunter22", got)
	assert.Equal(t, "Password: \n", out.String())

	readPassword = func(int) ([]byte, error) { return nil, errors.New("no tty") }
	_, err = (&App{}).readSecret("Password: ", &out)
	assert.Error(t, err)
}
