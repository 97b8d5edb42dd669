package translate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/detect", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"language":"fr","confidence":0.92}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	lang, err := c.Detect(context.Background(), "bonjour")
	assert.NoError(t, err)
	assert.Equal(t, "fr", lang)
}

func TestTranslate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/translate", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"translatedText":"bonjour"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	out, err := c.Translate(context.Background(), "hello", "en", "fr")
	assert.NoError(t, err)
	assert.Equal(t, "bonjour", out)
}

func TestTranslateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.Translate(context.Background(), "hello", "en", "fr")
	assert.ErrorIs(t, err, ErrUnavailable)
}
