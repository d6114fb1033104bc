package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"
	"testing"

	"github.com/google/uuid"

	"folio/internal/article"
	"folio/internal/session"
)

// multipartRequest builds an article form submission, optionally with an
// uploaded featured image.
func multipartRequest(t *testing.T, target string, fields url.Values, image []byte, sess *session.Data, params map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, vs := range fields {
		for _, v := range vs {
			if err := mw.WriteField(k, v); err != nil {
				t.Fatal(err)
			}
		}
	}
	if image != nil {
		fw, err := mw.CreateFormFile("featured_image_file", "cover.png")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(image)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	r := newRequest(http.MethodPost, target, &buf, sess, params)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestArticlesCreate(t *testing.T) {
	env := newEnv(t)
	sess := env.author(t, "ada@folio.local", "Ada")
	h := NewArticles(env.renderer, env.articles, env.categories, env.images, env.pages)

	t.Run("anonymous", func(t *testing.T) {
		w := serve(h.Create, formRequest("/articles", url.Values{"title": {"Hi"}, "content": {"x"}}, nil, nil))
		assertRedirect(t, w, "/login?redirectTo=%2Farticles")
	})

	tests := []struct {
		name     string
		form     url.Values
		wantBody []string
	}{
		{"missing fields", url.Values{"title": {""}, "content": {""}}, []string{"Title is required.", "Content is required."}},
		{"malformed category", url.Values{"title": {"Hi"}, "content": {"x"}, "category_id": {"nope"}}, []string{"Choose a valid category."}},
		{"unknown category", url.Values{"title": {"Hi"}, "content": {"x"}, "category_id": {uuid.NewString()}}, []string{"Selected category does not exist."}},
		{"bad image url", url.Values{"title": {"Hi"}, "content": {"x"}, "featured_image": {"javascript:alert(1)"}}, []string{"Featured image must be an absolute http(s) URL."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(h.Create, formRequest("/articles", tt.form, sess, nil))
			assertStatus(t, w, http.StatusUnprocessableEntity)
			assertBodyContains(t, w, tt.wantBody...)
		})
	}

	t.Run("success with upload", func(t *testing.T) {
		tech := env.category(t, sess, "Technology", nil)
		form := url.Values{
			"title":        {"Hello World"},
			"content":      {"<p>First post</p><script>alert(1)</script>"},
			"category_id":  {tech.ID.String()},
			"is_published": {"true"},
		}
		w := serve(h.Create, multipartRequest(t, "/articles", form, pngBytes, sess, nil))
		assertStatus(t, w, http.StatusSeeOther)
		if got, want := flashOf(t, w), "Article “Hello World” created."; got != want {
			t.Errorf("flash: got %q, want %q", got, want)
		}

		a, err := env.articles.GetBySlug(t.Context(), nil, "hello-world")
		if err != nil {
			t.Fatalf("published article not visible: %v", err)
		}
		if w.Header().Get("Location") != "/articles/"+a.ID.String() {
			t.Errorf("Location: got %q", w.Header().Get("Location"))
		}
		if len(env.images.uploads) != 1 || a.FeaturedImage == nil || *a.FeaturedImage != env.images.uploads[0] {
			t.Errorf("featured image: got %v, uploads %v", a.FeaturedImage, env.images.uploads)
		}
		if strings.Contains(a.Content, "<script") {
			t.Errorf("content not sanitised: %q", a.Content)
		}
	})

	t.Run("upload removed when validation fails", func(t *testing.T) {
		before := len(env.images.uploads)
		w := serve(h.Create, multipartRequest(t, "/articles", url.Values{"title": {"No body"}}, pngBytes, sess, nil))
		assertStatus(t, w, http.StatusUnprocessableEntity)
		if len(env.images.uploads) != before+1 {
			t.Fatal("expected an upload")
		}
		last := env.images.uploads[len(env.images.uploads)-1]
		if !slices.Contains(env.images.removed, last) {
			t.Errorf("orphaned upload %s was not removed", last)
		}
	})

	t.Run("empty upload", func(t *testing.T) {
		w := serve(h.Create, multipartRequest(t, "/articles", url.Values{"title": {"Hi"}, "content": {"x"}}, []byte{}, sess, nil))
		assertStatus(t, w, http.StatusUnprocessableEntity)
		assertBodyContains(t, w, "The uploaded file is empty.")
	})
}

func TestArticlesShow(t *testing.T) {
	env := newEnv(t)
	ada := env.author(t, "ada@folio.local", "Ada")
	bob := env.author(t, "bob@folio.local", "Bob")
	draft := env.article(t, ada, article.Input{Title: "Secret plans"})
	published := env.article(t, ada, article.Input{Title: "Launch day", IsPublished: true})
	h := NewArticles(env.renderer, env.articles, env.categories, env.images, env.pages)

	show := func(ref string, sess *session.Data) *httptest.ResponseRecorder {
		return serve(h.Show, newRequest(http.MethodGet, "/articles/"+ref, nil, sess, map[string]string{"id": ref}))
	}

	t.Run("draft hidden from others", func(t *testing.T) {
		assertStatus(t, show(draft.ID.String(), nil), http.StatusNotFound)
		assertStatus(t, show(draft.ID.String(), bob), http.StatusNotFound)
	})

	t.Run("draft visible to author", func(t *testing.T) {
		w := show(draft.ID.String(), ada)
		assertStatus(t, w, http.StatusOK)
		assertBodyContains(t, w, "Secret plans", "/articles/"+draft.ID.String()+"/edit")
	})

	t.Run("published by slug is cached for anonymous readers", func(t *testing.T) {
		w := show("launch-day", nil)
		assertStatus(t, w, http.StatusOK)
		assertBodyContains(t, w, "Launch day", "By Ada")
		if got := w.Header().Get("X-Cache"); got != "MISS" {
			t.Errorf("first X-Cache: got %q, want MISS", got)
		}
		if strings.Contains(w.Body.String(), "/edit") {
			t.Error("anonymous page must not offer editing")
		}

		w = show("launch-day", nil)
		if got := w.Header().Get("X-Cache"); got != "HIT" {
			t.Errorf("second X-Cache: got %q, want HIT", got)
		}
		assertBodyContains(t, w, "Launch day")
	})

	t.Run("signed-in readers bypass the cache", func(t *testing.T) {
		w := show(published.ID.String(), bob)
		assertStatus(t, w, http.StatusOK)
		if got := w.Header().Get("X-Cache"); got != "" {
			t.Errorf("X-Cache: got %q, want none", got)
		}
		if strings.Contains(w.Body.String(), "/articles/"+published.ID.String()+"/edit") {
			t.Error("non-author must not be offered editing")
		}
	})
}

func TestArticlesList(t *testing.T) {
	env := newEnv(t)
	ada := env.author(t, "ada@folio.local", "Ada")
	bob := env.author(t, "bob@folio.local", "Bob")
	env.article(t, ada, article.Input{Title: "Ada draft"})
	env.article(t, ada, article.Input{Title: "Ada published", IsPublished: true})
	env.article(t, bob, article.Input{Title: "Bob draft"})
	h := NewArticles(env.renderer, env.articles, env.categories, nil, nil)

	w := serve(h.List, newRequest(http.MethodGet, "/articles", nil, ada, nil))
	assertStatus(t, w, http.StatusOK)
	assertBodyContains(t, w, "Ada draft", "Ada published", "New article")
	if strings.Contains(w.Body.String(), "Bob draft") {
		t.Error("another author's draft is listed")
	}

	w = serve(h.List, newRequest(http.MethodGet, "/articles", nil, nil, nil))
	if strings.Contains(w.Body.String(), "Ada draft") {
		t.Error("drafts are listed for anonymous readers")
	}
}

func TestArticlesEditAndUpdate(t *testing.T) {
	env := newEnv(t)
	ada := env.author(t, "ada@folio.local", "Ada")
	bob := env.author(t, "bob@folio.local", "Bob")
	oldImage := "https://cdn.folio.test/articles/old.png"
	a := env.article(t, ada, article.Input{Title: "Original", FeaturedImage: oldImage})
	h := NewArticles(env.renderer, env.articles, env.categories, env.images, env.pages)
	params := map[string]string{"id": a.ID.String()}

	t.Run("edit form for author", func(t *testing.T) {
		w := serve(h.Edit, newRequest(http.MethodGet, "/articles/x/edit", nil, ada, params))
		assertStatus(t, w, http.StatusOK)
		assertBodyContains(t, w, `value="Original"`, `enctype="multipart/form-data"`, "featured_image_file")
	})

	t.Run("edit form forbidden for others", func(t *testing.T) {
		w := serve(h.Edit, newRequest(http.MethodGet, "/articles/x/edit", nil, bob, params))
		assertStatus(t, w, http.StatusForbidden)
		assertBodyContains(t, w, "Only the author can edit this article.")
	})

	t.Run("update forbidden for others", func(t *testing.T) {
		form := url.Values{"title": {"Hijacked"}, "content": {"x"}}
		w := serve(h.Update, multipartRequest(t, "/articles/x", form, pngBytes, bob, params))
		assertStatus(t, w, http.StatusForbidden)
		if len(env.images.uploads) != 0 {
			t.Error("nothing may be uploaded for a forbidden update")
		}
	})

	t.Run("new upload replaces old image", func(t *testing.T) {
		form := url.Values{"title": {"Revised"}, "content": {"<p>Updated</p>"}, "featured_image": {oldImage}}
		w := serve(h.Update, multipartRequest(t, "/articles/x", form, pngBytes, ada, params))
		assertRedirect(t, w, "/articles/"+a.ID.String())

		got, err := env.articles.Get(t.Context(), ada.Identity(), a.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Title != "Revised" {
			t.Errorf("title: got %q", got.Title)
		}
		if got.FeaturedImage == nil || *got.FeaturedImage != env.images.uploads[0] {
			t.Errorf("featured image: got %v", got.FeaturedImage)
		}
		if !slices.Contains(env.images.removed, oldImage) {
			t.Errorf("old image not removed: %v", env.images.removed)
		}
	})
}

func TestArticlesDelete(t *testing.T) {
	env := newEnv(t)
	ada := env.author(t, "ada@folio.local", "Ada")
	bob := env.author(t, "bob@folio.local", "Bob")
	image := "https://cdn.folio.test/articles/cover.png"
	a := env.article(t, ada, article.Input{Title: "Doomed", FeaturedImage: image})
	h := NewArticles(env.renderer, env.articles, env.categories, env.images, env.pages)
	params := map[string]string{"id": a.ID.String()}

	w := serve(h.Delete, formRequest("/articles/x/delete", url.Values{}, bob, params))
	assertStatus(t, w, http.StatusForbidden)

	w = serve(h.Delete, formRequest("/articles/x/delete", url.Values{}, ada, params))
	assertRedirect(t, w, "/articles")
	if got, want := flashOf(t, w), "Article “Doomed” deleted."; got != want {
		t.Errorf("flash: got %q, want %q", got, want)
	}
	if !slices.Contains(env.images.removed, image) {
		t.Errorf("featured image not removed: %v", env.images.removed)
	}

	w = serve(h.Delete, formRequest("/articles/x/delete", url.Values{}, ada, params))
	assertStatus(t, w, http.StatusNotFound)
}
