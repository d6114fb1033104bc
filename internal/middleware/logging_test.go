package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func TestLogger(t *testing.T) {
	tests := []struct {
		name  string
		inner http.HandlerFunc
		want  int
	}{
		{"explicit status", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) }, http.StatusNotFound},
		{"implicit 200 on write", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("hello")) }, http.StatusOK},
		{"server error", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) }, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			Logger(tt.inner).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
			if rr.Code != tt.want {
				t.Errorf("status: got %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestResponseWriterKeepsFirstStatus(t *testing.T) {
	rw := wrap(httptest.NewRecorder())
	rw.WriteHeader(http.StatusCreated)
	rw.WriteHeader(http.StatusTeapot)
	if rw.statusCode != http.StatusCreated {
		t.Errorf("status: got %d, want %d", rw.statusCode, http.StatusCreated)
	}
}

type recordedRequest struct {
	method, route string
	status        int
}

type fakeObserver struct{ got []recordedRequest }

func (f *fakeObserver) ObserveRequest(method, route string, status int, _ time.Duration) {
	f.got = append(f.got, recordedRequest{method, route, status})
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	obs := &fakeObserver{}
	r := chi.NewRouter()
	r.Use(Metrics(obs))
	r.Get("/articles/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/articles/abc", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	want := []recordedRequest{
		{http.MethodGet, "/articles/{id}", http.StatusNoContent},
		{http.MethodGet, "unmatched", http.StatusNotFound},
	}
	if len(obs.got) != len(want) {
		t.Fatalf("got %d observations, want %d", len(obs.got), len(want))
	}
	for i := range want {
		if obs.got[i] != want[i] {
			t.Errorf("observation %d: got %+v, want %+v", i, obs.got[i], want[i])
		}
	}
}
