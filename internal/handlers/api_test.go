package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"folio/internal/article"
	"folio/internal/models"
	"folio/internal/session"
)

func jsonRequest(method, target, body string, sess *session.Data, params map[string]string) *http.Request {
	r := newRequest(method, target, strings.NewReader(body), sess, params)
	r.Header.Set("Content-Type", "application/json")
	return r
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestAPICreateArticle(t *testing.T) {
	env := newEnv(t)
	ada := env.author(t, "ada@folio.local", "Ada")
	api := NewAPI(env.articles, env.categories)

	t.Run("created", func(t *testing.T) {
		w := serve(api.CreateArticle, jsonRequest(http.MethodPost, "/api/articles",
			`{"title":"From the API","content":"<p>Hello</p>","is_published":true}`, ada, nil))
		assertStatus(t, w, http.StatusCreated)

		var got models.Article
		decodeBody(t, w, &got)
		if got.Slug != "from-the-api" || !got.IsPublished || got.PublishedAt == nil {
			t.Errorf("article: got slug %q, published %v at %v", got.Slug, got.IsPublished, got.PublishedAt)
		}
		if got.AuthorID != ada.UserID {
			t.Errorf("author: got %s, want %s", got.AuthorID, ada.UserID)
		}
		if loc := w.Header().Get("Location"); loc != "/api/articles/"+got.ID.String() {
			t.Errorf("Location: got %q", loc)
		}
	})

	t.Run("validation", func(t *testing.T) {
		w := serve(api.CreateArticle, jsonRequest(http.MethodPost, "/api/articles", `{"title":""}`, ada, nil))
		assertStatus(t, w, http.StatusUnprocessableEntity)

		var got struct {
			Error  string            `json:"error"`
			Fields map[string]string `json:"fields"`
		}
		decodeBody(t, w, &got)
		want := map[string]string{"title": "Title is required.", "content": "Content is required."}
		if diff := cmp.Diff(want, got.Fields); diff != "" {
			t.Errorf("fields mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("unknown field", func(t *testing.T) {
		w := serve(api.CreateArticle, jsonRequest(http.MethodPost, "/api/articles", `{"title":"x","author_id":"me"}`, ada, nil))
		assertStatus(t, w, http.StatusBadRequest)
	})

	t.Run("anonymous", func(t *testing.T) {
		w := serve(api.CreateArticle, jsonRequest(http.MethodPost, "/api/articles", `{"title":"x","content":"y"}`, nil, nil))
		assertStatus(t, w, http.StatusUnauthorized)
	})
}

func TestAPIReadUpdateDelete(t *testing.T) {
	env := newEnv(t)
	ada := env.author(t, "ada@folio.local", "Ada")
	bob := env.author(t, "bob@folio.local", "Bob")
	draft := env.article(t, ada, article.Input{Title: "Draft"})
	api := NewAPI(env.articles, env.categories)
	params := map[string]string{"id": draft.ID.String()}

	t.Run("list", func(t *testing.T) {
		env.article(t, bob, article.Input{Title: "Bob public", IsPublished: true})

		var got struct {
			Articles []models.Article `json:"articles"`
		}
		w := serve(api.ListArticles, newRequest(http.MethodGet, "/api/articles", nil, nil, nil))
		assertStatus(t, w, http.StatusOK)
		decodeBody(t, w, &got)
		if len(got.Articles) != 1 || got.Articles[0].Title != "Bob public" {
			t.Errorf("anonymous list: got %v", got.Articles)
		}
	})

	t.Run("get", func(t *testing.T) {
		assertStatus(t, serve(api.GetArticle, newRequest(http.MethodGet, "/api/articles/x", nil, bob, params)), http.StatusNotFound)
		assertStatus(t, serve(api.GetArticle, newRequest(http.MethodGet, "/api/articles/x", nil, ada, params)), http.StatusOK)
		assertStatus(t, serve(api.GetArticle, newRequest(http.MethodGet, "/api/articles/x", nil, ada, map[string]string{"id": "draft"})), http.StatusOK)
	})

	t.Run("update", func(t *testing.T) {
		body := `{"title":"Draft v2","content":"<p>more</p>"}`
		assertStatus(t, serve(api.UpdateArticle, jsonRequest(http.MethodPut, "/api/articles/x", body, bob, params)), http.StatusForbidden)

		w := serve(api.UpdateArticle, jsonRequest(http.MethodPut, "/api/articles/x", body, ada, params))
		assertStatus(t, w, http.StatusOK)
		var got models.Article
		decodeBody(t, w, &got)
		if got.Title != "Draft v2" {
			t.Errorf("title: got %q", got.Title)
		}

		w = serve(api.UpdateArticle, jsonRequest(http.MethodPut, "/api/articles/x", body, ada, map[string]string{"id": "bogus"}))
		assertStatus(t, w, http.StatusNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		assertStatus(t, serve(api.DeleteArticle, newRequest(http.MethodDelete, "/api/articles/x", nil, bob, params)), http.StatusForbidden)
		assertStatus(t, serve(api.DeleteArticle, newRequest(http.MethodDelete, "/api/articles/x", nil, ada, params)), http.StatusNoContent)
		assertStatus(t, serve(api.DeleteArticle, newRequest(http.MethodDelete, "/api/articles/x", nil, ada, params)), http.StatusNotFound)
		assertStatus(t, serve(api.DeleteArticle, newRequest(http.MethodDelete, "/api/articles/x", nil, ada, map[string]string{"id": uuid.NewString()})), http.StatusNotFound)
	})
}

func TestAPICategoryTree(t *testing.T) {
	env := newEnv(t)
	ada := env.author(t, "ada@folio.local", "Ada")
	tech := env.category(t, ada, "Technology", nil)
	env.category(t, ada, "Web", &tech.ID)
	api := NewAPI(env.articles, env.categories)

	w := serve(api.CategoryTree, newRequest(http.MethodGet, "/api/categories", nil, nil, nil))
	assertStatus(t, w, http.StatusOK)

	var got struct {
		Categories []struct {
			Name     string `json:"name"`
			Depth    int    `json:"depth"`
			Children []struct {
				Name  string `json:"name"`
				Depth int    `json:"depth"`
			} `json:"children"`
		} `json:"categories"`
	}
	decodeBody(t, w, &got)
	if len(got.Categories) != 1 || got.Categories[0].Name != "Technology" {
		t.Fatalf("roots: got %+v", got.Categories)
	}
	if c := got.Categories[0].Children; len(c) != 1 || c[0].Name != "Web" || c[0].Depth != 1 {
		t.Errorf("children: got %+v", c)
	}
}
