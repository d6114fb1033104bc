// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for the handler
// tests. Handlers run against the in-memory store and the real templates;
// sessions, the page cache and image storage are replaced by fakes.
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"folio/internal/apperr"
	"folio/internal/article"
	"folio/internal/category"
	"folio/internal/identity"
	"folio/internal/middleware"
	"folio/internal/models"
	"folio/internal/render"
	"folio/internal/session"
	"folio/internal/store/memory"
)

const testPassword = "correct-horse-battery"

// testEnv wires the handler dependencies for one test.
type testEnv struct {
	db         *memory.DB
	renderer   *render.Renderer
	categories *category.Manager
	articles   *article.Service
	provider   *identity.Local
	sessions   *fakeSessions
	images     *fakeImages
	pages      *fakePages
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()

	rn, err := render.New()
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}
	db := memory.New()
	return &testEnv{
		db:         db,
		renderer:   rn,
		categories: category.NewManager(db.Categories(), nil),
		articles:   article.NewService(db.Articles(), db.Categories(), nil),
		provider:   identity.NewLocal(db.Users()),
		sessions:   &fakeSessions{},
		images:     &fakeImages{},
		pages:      newFakePages(),
	}
}

// author registers a user and returns the session it would log in with.
func (e *testEnv) author(t *testing.T, email, name string) *session.Data {
	t.Helper()
	u, err := e.provider.Register(context.Background(), email, testPassword, name)
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return session.FromUser(u)
}

func (e *testEnv) category(t *testing.T, who *session.Data, name string, parent *uuid.UUID) *models.Category {
	t.Helper()
	c, err := e.categories.Create(context.Background(), who.Identity(), category.Input{Name: name, ParentID: parent})
	if err != nil {
		t.Fatalf("create category %q: %v", name, err)
	}
	return c
}

func (e *testEnv) article(t *testing.T, who *session.Data, in article.Input) *models.Article {
	t.Helper()
	if in.Content == "" {
		in.Content = "<p>Body of " + in.Title + "</p>"
	}
	a, err := e.articles.Create(context.Background(), who.Identity(), in)
	if err != nil {
		t.Fatalf("create article %q: %v", in.Title, err)
	}
	return a
}

// newRequest builds a request carrying sess (which may be nil) and the
// given chi URL parameters ("id", "slug").
func newRequest(method, target string, body io.Reader, sess *session.Data, params map[string]string) *http.Request {
	r := httptest.NewRequest(method, target, body)
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	if sess != nil {
		ctx = middleware.WithSession(ctx, sess)
	}
	return r.WithContext(ctx)
}

func formRequest(target string, values url.Values, sess *session.Data, params map[string]string) *http.Request {
	r := newRequest(http.MethodPost, target, strings.NewReader(values.Encode()), sess, params)
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func serve(h http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h(w, r)
	return w
}

// flashOf returns the flash message set on the response.
func flashOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "folio_flash" && c.MaxAge > 0 {
			raw, err := url.QueryUnescape(c.Value)
			if err != nil {
				t.Fatalf("decode flash: %v", err)
			}
			_, msg, _ := strings.Cut(raw, ":")
			return msg
		}
	}
	return ""
}

func assertStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status: got %d, want %d\nbody: %s", w.Code, want, w.Body.String())
	}
}

func assertRedirect(t *testing.T, w *httptest.ResponseRecorder, want string) {
	t.Helper()
	assertStatus(t, w, http.StatusSeeOther)
	if got := w.Header().Get("Location"); got != want {
		t.Errorf("Location: got %q, want %q", got, want)
	}
}

func assertBodyContains(t *testing.T, w *httptest.ResponseRecorder, parts ...string) {
	t.Helper()
	body := w.Body.String()
	for _, p := range parts {
		if !strings.Contains(body, p) {
			t.Errorf("body does not contain %q", p)
		}
	}
}

// fakeSessions records created sessions instead of talking to Valkey.
type fakeSessions struct {
	created   []*session.Data
	destroyed int
	err       error
}

func (f *fakeSessions) Create(_ context.Context, w http.ResponseWriter, data *session.Data) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.created = append(f.created, data)
	http.SetCookie(w, &http.Cookie{Name: "folio_session", Value: "test", Path: "/"})
	return "test", nil
}

func (f *fakeSessions) Destroy(_ context.Context, _ http.ResponseWriter, _ *http.Request) error {
	f.destroyed++
	return f.err
}

// fakeImages stores uploads in memory.
type fakeImages struct {
	uploads []string
	removed []string
	err     error
}

func (f *fakeImages) UploadImage(_ context.Context, r io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", apperr.Invalid("featured_image", "The uploaded file is empty.")
	}
	u := "https://cdn.folio.test/articles/" + uuid.NewString() + ".png"
	f.uploads = append(f.uploads, u)
	return u, nil
}

func (f *fakeImages) RemoveImage(_ context.Context, rawURL string) error {
	f.removed = append(f.removed, rawURL)
	return nil
}

// fakePages is a map-backed page cache.
type fakePages struct {
	mu    sync.Mutex
	pages map[string][]byte
}

func newFakePages() *fakePages {
	return &fakePages{pages: make(map[string][]byte)}
}

func (f *fakePages) Get(_ context.Context, key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	html, ok := f.pages[key]
	return html, ok
}

func (f *fakePages) Set(_ context.Context, key string, html []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[key] = html
}

func TestFormFailure(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantField  string
		wantOK     bool
	}{
		{"validation", apperr.Invalid("name", "Name is required."), http.StatusUnprocessableEntity, "name", true},
		{"missing parent", apperr.NotFound("parent category", uuid.New()), http.StatusNotFound, "parent_id", true},
		{"storage", apperr.Storage("create category", errors.New("connection refused")), http.StatusInternalServerError, "", true},
		{"missing record", apperr.NotFound("category", uuid.New()), 0, "", false},
		{"forbidden", apperr.Forbidden("not yours"), 0, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, fields, general, ok := formFailure(tt.err)
			if ok != tt.wantOK {
				t.Fatalf("ok: got %v, want %v", ok, tt.wantOK)
			}
			if status != tt.wantStatus {
				t.Errorf("status: got %d, want %d", status, tt.wantStatus)
			}
			if tt.wantField != "" && fields[tt.wantField] == "" {
				t.Errorf("expected a message for %q, got %v", tt.wantField, fields)
			}
			if tt.wantStatus == http.StatusInternalServerError && general != msgTryAgain {
				t.Errorf("general: got %q, want %q", general, msgTryAgain)
			}
		})
	}
}

func TestRespondError(t *testing.T) {
	env := newEnv(t)
	sess := &session.Data{UserID: uuid.New(), Email: "ada@folio.local", DisplayName: "Ada"}

	tests := []struct {
		name       string
		err        error
		sess       *session.Data
		wantStatus int
		wantBody   string
	}{
		{"not found", apperr.NotFound("article", uuid.New()), nil, http.StatusNotFound, "does not exist"},
		{"forbidden", apperr.Forbidden("only the author can delete this article"), sess, http.StatusForbidden, "Only the author can delete this article."},
		{"forbidden other reason", apperr.Forbidden("categories are read-only"), sess, http.StatusForbidden, "Categories are read-only."},
		{"internal", errors.New("boom"), nil, http.StatusInternalServerError, msgTryAgain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRequest(http.MethodGet, "/articles/x", nil, tt.sess, nil)
			w := httptest.NewRecorder()
			respondError(env.renderer, w, r, "test", tt.err)
			assertStatus(t, w, tt.wantStatus)
			assertBodyContains(t, w, tt.wantBody)
		})
	}

	t.Run("unauthenticated", func(t *testing.T) {
		r := newRequest(http.MethodGet, "/articles/new", nil, nil, nil)
		w := httptest.NewRecorder()
		respondError(env.renderer, w, r, "test", apperr.Unauthenticated())
		assertRedirect(t, w, "/login?redirectTo=%2Farticles%2Fnew")
	})
}

func TestForbiddenMessage(t *testing.T) {
	tests := []struct {
		reason string
		want   string
	}{
		{"only the author can edit this article", "Only the author can edit this article."},
		{"Already a sentence.", "Already a sentence."},
		{"  ", "You are not allowed to do that."},
		{"élan required", "Élan required."},
	}
	for _, tt := range tests {
		if got := forbiddenMessage(apperr.Forbidden(tt.reason)); got != tt.want {
			t.Errorf("forbiddenMessage(%q) = %q, want %q", tt.reason, got, tt.want)
		}
	}
}

func TestNotFoundHandler(t *testing.T) {
	env := newEnv(t)
	w := serve(NotFound(env.renderer), newRequest(http.MethodGet, "/nowhere", nil, nil, nil))
	assertStatus(t, w, http.StatusNotFound)
	assertBodyContains(t, w, "Not found")
}
