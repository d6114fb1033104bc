package handlers

import (
	"net/http"
	"strings"
	"testing"

	"folio/internal/article"
)

func TestHome(t *testing.T) {
	env := newEnv(t)
	ada := env.author(t, "ada@folio.local", "Ada")
	tech := env.category(t, ada, "Technology", nil)
	env.article(t, ada, article.Input{Title: "Public post", IsPublished: true, CategoryID: &tech.ID})
	env.article(t, ada, article.Input{Title: "Private draft"})
	h := NewPublic(env.renderer, env.articles, env.categories, env.pages)

	w := serve(h.Home, newRequest(http.MethodGet, "/", nil, nil, nil))
	assertStatus(t, w, http.StatusOK)
	assertBodyContains(t, w, "Public post", "/topics/technology")
	if strings.Contains(w.Body.String(), "Private draft") {
		t.Error("drafts must not appear on the home page")
	}
	if _, ok := env.pages.Get(t.Context(), "home"); !ok {
		t.Error("anonymous home page was not cached")
	}

	// A later request is answered from the cache even after new content.
	env.article(t, ada, article.Input{Title: "Fresh post", IsPublished: true})
	w = serve(h.Home, newRequest(http.MethodGet, "/", nil, nil, nil))
	if got := w.Header().Get("X-Cache"); got != "HIT" {
		t.Errorf("X-Cache: got %q, want HIT", got)
	}

	// Signed-in users always see fresh content.
	w = serve(h.Home, newRequest(http.MethodGet, "/", nil, ada, nil))
	assertBodyContains(t, w, "Fresh post")
}

func TestHomeSkipsCacheForFlashAndHTMX(t *testing.T) {
	env := newEnv(t)
	h := NewPublic(env.renderer, env.articles, env.categories, env.pages)

	r := newRequest(http.MethodGet, "/", nil, nil, nil)
	r.AddCookie(&http.Cookie{Name: "folio_flash", Value: "success%3AWelcome"})
	w := serve(h.Home, r)
	assertBodyContains(t, w, "Welcome")
	if _, ok := env.pages.Get(t.Context(), "home"); ok {
		t.Error("page with a flash message was cached")
	}

	r = newRequest(http.MethodGet, "/", nil, nil, nil)
	r.Header.Set("HX-Request", "true")
	w = serve(h.Home, r)
	assertStatus(t, w, http.StatusOK)
	if strings.Contains(w.Body.String(), "<html") {
		t.Error("HTMX request should get a fragment")
	}
	if _, ok := env.pages.Get(t.Context(), "home"); ok {
		t.Error("HTMX fragment was cached")
	}
}

func TestTopic(t *testing.T) {
	env := newEnv(t)
	ada := env.author(t, "ada@folio.local", "Ada")
	tech := env.category(t, ada, "Technology", nil)
	web := env.category(t, ada, "Web", &tech.ID)
	css := env.category(t, ada, "CSS", &web.ID)
	design := env.category(t, ada, "Design", nil)
	env.article(t, ada, article.Input{Title: "Tech news", IsPublished: true, CategoryID: &tech.ID})
	env.article(t, ada, article.Input{Title: "Grid layouts", IsPublished: true, CategoryID: &css.ID})
	env.article(t, ada, article.Input{Title: "Colour theory", IsPublished: true, CategoryID: &design.ID})
	env.article(t, ada, article.Input{Title: "Unfinished CSS", CategoryID: &css.ID})
	h := NewPublic(env.renderer, env.articles, env.categories, nil)

	topic := func(slug string) *http.Request {
		return newRequest(http.MethodGet, "/topics/"+slug, nil, nil, map[string]string{"slug": slug})
	}

	t.Run("includes descendants", func(t *testing.T) {
		w := serve(h.Topic, topic("technology"))
		assertStatus(t, w, http.StatusOK)
		assertBodyContains(t, w, "Tech news", "Grid layouts", "Subtopics", "/topics/web")
		for _, absent := range []string{"Colour theory", "Unfinished CSS"} {
			if strings.Contains(w.Body.String(), absent) {
				t.Errorf("topic lists %q", absent)
			}
		}
	})

	t.Run("breadcrumb", func(t *testing.T) {
		w := serve(h.Topic, topic("CSS"))
		assertStatus(t, w, http.StatusOK)
		assertBodyContains(t, w, `<a href="/topics/technology">Technology</a>`, `<a href="/topics/web">Web</a>`, "Grid layouts")
		if strings.Contains(w.Body.String(), "Tech news") {
			t.Error("ancestor articles must not be listed")
		}
	})

	t.Run("unknown topic", func(t *testing.T) {
		assertStatus(t, serve(h.Topic, topic("nope")), http.StatusNotFound)
	})
}

func TestCacheable(t *testing.T) {
	pages := newFakePages()

	if cacheable(newRequest(http.MethodGet, "/", nil, nil, nil), nil) {
		t.Error("nil cache must never be used")
	}
	if !cacheable(newRequest(http.MethodGet, "/", nil, nil, nil), pages) {
		t.Error("anonymous full page should be cacheable")
	}
}
