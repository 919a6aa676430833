package connect

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeConnect is an in-process stand-in for both the SSO and the Connect
// hosts. Zero-valued knobs give the happy path.
type fakeConnect struct {
	t *testing.T

	hostnameStatus  int
	hostnameBody    string
	loginPageStatus int
	loginPage       []byte
	postStatus      int
	postBody        []byte
	skipCookie      bool
	redeemStatus    int
	redeemRedirect  bool
	identityBody    string

	username string
	password string

	mu         sync.Mutex
	gotForm    map[string]string
	gotHosts   map[string]string
	gotWebhost string
	uploads    map[string]int64
	uploadName []string
	nextID     int64
	failCode   int
	names      map[int64]string
	types      map[int64]string
	echoName   string
	typeList   string
}

func newFakeConnect(t *testing.T) *fakeConnect {
	t.Helper()

	return &fakeConnect{
		t:         t,
		loginPage: readFixture(t, "login_page.html"),
		postBody:  readFixture(t, "login_response.html"),
		username:  "runner@example.com",
		password:  "hunter2",
		gotHosts:  make(map[string]string),
		uploads:   make(map[string]int64),
		names:     make(map[int64]string),
		types:     make(map[int64]string),
		nextID:    1000,
	}
}

func (f *fakeConnect) start() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/gauth/hostname", f.handleHostname)
	mux.HandleFunc("/sso/login", f.handleLogin)
	mux.HandleFunc("/post-auth/login", f.handleRedeem)
	mux.HandleFunc("/modern/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/user/username", f.handleIdentity)
	mux.HandleFunc(pathUpload, f.handleUpload)
	mux.HandleFunc(pathFormName, f.handleFormName)
	mux.HandleFunc(pathFormType, f.handleFormType)
	mux.HandleFunc(pathJSONActivity, f.handleJSONActivity)
	mux.HandleFunc(pathActivityTypes, f.handleTypes)

	srv := httptest.NewServer(mux)
	f.t.Cleanup(srv.Close)

	return srv
}

func (f *fakeConnect) client(srv *httptest.Server, opts Options) *Client {
	f.t.Helper()

	opts.ConnectURL = srv.URL
	opts.SSOURL = srv.URL

	c, err := NewClient(opts, nil)
	require.NoError(f.t, err)

	return c
}

func statusOr(status, fallback int) int {
	if status == 0 {
		return fallback
	}

	return status
}

func (f *fakeConnect) handleHostname(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(statusOr(f.hostnameStatus, http.StatusOK))

	body := f.hostnameBody
	if body == "" {
		body = `{"host":"https://connect.garmin.com"}`
	}

	_, _ = io.WriteString(w, body)
}

func (f *fakeConnect) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		f.mu.Lock()
		f.gotWebhost = r.URL.Query().Get("webhost")
		f.mu.Unlock()

		w.WriteHeader(statusOr(f.loginPageStatus, http.StatusOK))
		_, _ = w.Write(f.loginPage)

		return
	}

	require.NoError(f.t, r.ParseForm())

	f.mu.Lock()
	f.gotHosts["login"] = r.Host
	f.gotForm = map[string]string{}
	for k := range r.PostForm {
		f.gotForm[k] = r.PostForm.Get(k)
	}
	f.mu.Unlock()

	if r.PostForm.Get("username") != f.username || r.PostForm.Get("password") != f.password {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write(readFixture(f.t, "login_response_failed.html"))

		return
	}

	if !f.skipCookie {
		http.SetCookie(w, &http.Cookie{Name: ssoSessionCookie, Value: "TGT-1-abc", Path: "/"})
	}

	w.WriteHeader(statusOr(f.postStatus, http.StatusOK))
	_, _ = w.Write(f.postBody)
}

func (f *fakeConnect) handleRedeem(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.gotHosts["redeem"] = r.Host
	f.mu.Unlock()

	if r.URL.Query().Get("ticket") == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if f.redeemRedirect {
		http.SetCookie(w, &http.Cookie{Name: "SESSIONID", Value: "connect-session", Path: "/"})
		http.Redirect(w, r, "/modern/", http.StatusFound)

		return
	}

	if f.redeemStatus == 0 {
		http.SetCookie(w, &http.Cookie{Name: "SESSIONID", Value: "connect-session", Path: "/"})
	}

	w.WriteHeader(statusOr(f.redeemStatus, http.StatusOK))
}

func (f *fakeConnect) authenticated(r *http.Request) bool {
	ck, err := r.Cookie("SESSIONID")
	return err == nil && ck.Value == "connect-session"
}

func (f *fakeConnect) handleIdentity(w http.ResponseWriter, r *http.Request) {
	if !f.authenticated(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	body := f.identityBody
	if body == "" {
		body = `{"username":"runner"}`
	}

	_, _ = io.WriteString(w, body)
}

func (f *fakeConnect) handleUpload(w http.ResponseWriter, r *http.Request) {
	if !f.authenticated(r) {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	file, header, err := r.FormFile("data")
	require.NoError(f.t, err)
	defer file.Close()

	content, err := io.ReadAll(file)
	require.NoError(f.t, err)

	sum := sha256.Sum256(content)
	key := hex.EncodeToString(sum[:])

	f.mu.Lock()
	defer f.mu.Unlock()

	f.uploadName = append(f.uploadName, header.Filename+"@"+strings.TrimPrefix(r.URL.Path, pathUpload))

	w.Header().Set("Content-Type", "application/json")

	if f.failCode != 0 {
		_, _ = fmt.Fprintf(w, `{"detailedImportResult":{"successes":[],"failures":[{"internalId":null,"messages":[{"code":%d,"content":"bad file"}]}]}}`, f.failCode)
		return
	}

	if id, ok := f.uploads[key]; ok {
		w.WriteHeader(http.StatusConflict)
		_, _ = fmt.Fprintf(w, `{"detailedImportResult":{"successes":[],"failures":[{"internalId":%d,"messages":[{"code":202,"content":"Duplicate Activity."}]}]}}`, id)

		return
	}

	f.nextID++
	f.uploads[key] = f.nextID

	_, _ = fmt.Fprintf(w, `{"detailedImportResult":{"successes":[{"internalId":%d}],"failures":[]}}`, f.nextID)
}

func activityIDFromPath(t *testing.T, path, prefix string) int64 {
	t.Helper()

	id, err := strconv.ParseInt(strings.TrimPrefix(path, prefix), 10, 64)
	require.NoError(t, err)

	return id
}

func (f *fakeConnect) handleFormName(w http.ResponseWriter, r *http.Request) {
	require.NoError(f.t, r.ParseForm())
	id := activityIDFromPath(f.t, r.URL.Path, pathFormName)

	f.mu.Lock()
	f.names[id] = r.PostForm.Get("value")
	echo := f.names[id]
	if f.echoName != "" {
		echo = f.echoName
	}
	f.mu.Unlock()

	_ = json.NewEncoder(w).Encode(map[string]any{"display": map[string]string{"value": echo}})
}

func (f *fakeConnect) handleFormType(w http.ResponseWriter, r *http.Request) {
	require.NoError(f.t, r.ParseForm())
	id := activityIDFromPath(f.t, r.URL.Path, pathFormType)

	f.mu.Lock()
	f.types[id] = r.PostForm.Get("value")
	f.mu.Unlock()

	_ = json.NewEncoder(w).Encode(map[string]any{"activityType": map[string]string{"key": r.PostForm.Get("value")}})
}

func (f *fakeConnect) handleJSONActivity(w http.ResponseWriter, r *http.Request) {
	var in jsonActivity
	require.NoError(f.t, json.NewDecoder(r.Body).Decode(&in))
	require.Equal(f.t, activityIDFromPath(f.t, r.URL.Path, pathJSONActivity), in.ActivityID)

	_ = json.NewEncoder(w).Encode(in)
}

func (f *fakeConnect) handleTypes(w http.ResponseWriter, _ *http.Request) {
	body := f.typeList
	if body == "" {
		body = `{"dictionary":[
			{"key":"running","display":"Running"},
			{"key":"track_cycling","display":"Track Cycling"},
			{"key":"all","display":"All Activities"}]}`
	}

	_, _ = io.WriteString(w, body)
}
