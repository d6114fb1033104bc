package handlers

import (
	"testing"

	"github.com/google/uuid"
)

func TestSafeRedirect(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "/"},
		{"/categories", "/categories"},
		{"/articles/new?draft=1", "/articles/new?draft=1"},
		{"https://evil.example.com", "/"},
		{"//evil.example.com", "/"},
		{`/\evil.example.com`, "/"},
		{"categories", "/"},
		{"/x\r\nSet-Cookie: a=b", "/"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := safeRedirect(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOptionalUUID(t *testing.T) {
	id := uuid.New()

	if got, ok := optionalUUID(""); !ok || got != nil {
		t.Errorf("empty: got (%v, %v), want (nil, true)", got, ok)
	}
	if got, ok := optionalUUID(" " + id.String() + " "); !ok || got == nil || *got != id {
		t.Errorf("valid: got (%v, %v)", got, ok)
	}
	if _, ok := optionalUUID("not-a-uuid"); ok {
		t.Error("malformed id should be rejected")
	}
}

func TestFormBool(t *testing.T) {
	for _, v := range []string{"true", "on", "1", "YES"} {
		if !formBool(v) {
			t.Errorf("%q should be true", v)
		}
	}
	for _, v := range []string{"", "false", "off", "0"} {
		if formBool(v) {
			t.Errorf("%q should be false", v)
		}
	}
}
