package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const testLoginPage = `<html><body><form method="post">
<input type="hidden" name="lt" value="LT-42-abc" />
</form></body></html>`

const testLoginResponse = `<script>
var response_url = 'https://connect.garmin.com/post-auth/login?ticket=ST-42-abc-cas';
</script>`

// fakeConnect serves the sign-in handshake and the upload API for command
// tests. It accepts runner@example.com / hunter2.
type fakeConnect struct {
	t *testing.T

	mu       sync.Mutex
	uploads  map[string]int64
	nextID   int64
	failCode int
	requests int
}

func newFakeConnect(t *testing.T) (*fakeConnect, *httptest.Server) {
	t.Helper()

	f := &fakeConnect{t: t, uploads: make(map[string]int64), nextID: 5000}

	mux := http.NewServeMux()
	mux.HandleFunc("/gauth/hostname", func(w http.ResponseWriter, _ *http.Request) {
		f.count()
		_, _ = io.WriteString(w, `{"host":"https://connect.garmin.com"}`)
	})
	mux.HandleFunc("/sso/login", f.handleLogin)
	mux.HandleFunc("/post-auth/login", func(w http.ResponseWriter, _ *http.Request) {
		f.count()
		http.SetCookie(w, &http.Cookie{Name: "SESSIONID", Value: "s1", Path: "/"})
	})
	mux.HandleFunc("/user/username", func(w http.ResponseWriter, _ *http.Request) {
		f.count()
		_, _ = io.WriteString(w, `{"username":"runner"}`)
	})
	mux.HandleFunc("/proxy/upload-service-1.1/json/upload/", f.handleUpload)
	mux.HandleFunc("/proxy/activity-service-1.0/json/name/", func(w http.ResponseWriter, r *http.Request) {
		f.count()
		require.NoError(t, r.ParseForm())
		fmt.Fprintf(w, `{"display":{"value":%q}}`, r.PostForm.Get("value"))
	})
	mux.HandleFunc("/proxy/activity-service-1.2/json/type/", func(w http.ResponseWriter, r *http.Request) {
		f.count()
		require.NoError(t, r.ParseForm())
		fmt.Fprintf(w, `{"activityType":{"key":%q}}`, r.PostForm.Get("value"))
	})
	mux.HandleFunc("/proxy/activity-service-1.2/json/activity_types", func(w http.ResponseWriter, _ *http.Request) {
		f.count()
		_, _ = io.WriteString(w, `{"dictionary":[
			{"key":"running","display":"Running"},
			{"key":"cycling","display":"Cycling"},
			{"key":"lap_swimming","display":"Pool Swimming"}]}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return f, srv
}

func (f *fakeConnect) count() {
	f.mu.Lock()
	f.requests++
	f.mu.Unlock()
}

func (f *fakeConnect) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.requests
}

func (f *fakeConnect) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.uploads)
}

func (f *fakeConnect) handleLogin(w http.ResponseWriter, r *http.Request) {
	f.count()

	if r.Method == http.MethodGet {
		_, _ = io.WriteString(w, testLoginPage)
		return
	}

	require.NoError(f.t, r.ParseForm())

	if r.PostForm.Get("lt") != "LT-42-abc" ||
		r.PostForm.Get("username") != "runner@example.com" || r.PostForm.Get("password") != "hunter2" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	http.SetCookie(w, &http.Cookie{Name: "CASTGC", Value: "TGT-42", Path: "/"})
	_, _ = io.WriteString(w, testLoginResponse)
}

func (f *fakeConnect) handleUpload(w http.ResponseWriter, r *http.Request) {
	f.count()

	file, _, err := r.FormFile("data")
	require.NoError(f.t, err)
	defer file.Close()

	content, err := io.ReadAll(file)
	require.NoError(f.t, err)

	sum := sha256.Sum256(content)
	key := hex.EncodeToString(sum[:])

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failCode != 0 {
		fmt.Fprintf(w, `{"detailedImportResult":{"successes":[],"failures":[{"messages":[{"code":%d,"content":"corrupt file"}]}]}}`,
			f.failCode)

		return
	}

	if id, ok := f.uploads[key]; ok {
		fmt.Fprintf(w, `{"detailedImportResult":{"successes":[],"failures":[{"internalId":%d,"messages":[{"code":202,"content":"Duplicate Activity."}]}]}}`, id)
		return
	}

	f.nextID++
	f.uploads[key] = f.nextID
	fmt.Fprintf(w, `{"detailedImportResult":{"successes":[{"internalId":%d}],"failures":[]}}`, f.nextID)
}

// isolate points every implicit config, data and lock location at temp
// directories and clears credential variables.
func isolate(t *testing.T) string {
	t.Helper()

	home := t.TempDir()

	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(home, ".local", "share"))
	t.Setenv("GUPLOAD_CONFIG", "")
	t.Setenv("GUPLOAD_USERNAME", "")
	t.Setenv("GUPLOAD_PASSWORD", "")
	t.Chdir(t.TempDir())

	return home
}

// writeServiceConfig writes a config file that targets srv without throttling.
func writeServiceConfig(t *testing.T, srv *httptest.Server, extra string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	body := fmt.Sprintf(`[credentials]
username = "runner@example.com"
password = "hunter2"

[service]
connect_url = %q
sso_url = %q

[upload]
throttle_interval = "0s"

[logging]
log_level = "error"
%s`, srv.URL, srv.URL, extra)

	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

// writeActivity creates an activity file with distinct content.
func writeActivity(t *testing.T, dir, name string, seed int) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("activity-"+strconv.Itoa(seed)), 0o600))

	return path
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var out, errOut bytes.Buffer

	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)

	err := cmd.ExecuteContext(context.Background())

	return out.String(), errOut.String(), err
}
