package marketplace

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"candybowl/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSearchDecodesProducts(t *testing.T) {
	var gotKey string
	var gotVars map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("API-KEY")
		var body struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotVars = body.Variables
		_, _ = w.Write([]byte(`{"data":{"amazonProductSearchResults":{"productResults":{"results":[
			{"asin":"B01","price":{"value":12.5,"currency":"USD"},"rating":4.6,"title":"Sour Worms 5lb","url":"https://a.example/B01","optimizedDescription":"tangy"},
			{"asin":"B02","price":null,"rating":null,"title":"Mystery Mix","url":"https://a.example/B02","optimizedDescription":""}
		]}}}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key-123", nil)
	got, err := c.Search(context.Background(), "sour worms", 3)
	require.NoError(t, err)

	assert.Equal(t, "key-123", gotKey)
	assert.Equal(t, "sour worms", gotVars["searchTerm"])
	assert.Equal(t, float64(3), gotVars["limit"])
	require.Len(t, got, 2)
	assert.Equal(t, Product{ID: "B01", Name: "Sour Worms 5lb", Description: "tangy", PriceUSD: 12.5, URL: "https://a.example/B01", Rating: 4.6}, got[0])
	assert.Equal(t, 0.0, got[1].PriceUSD)
}

func TestClientSearchErrors(t *testing.T) {
	t.Run("http status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusUnauthorized)
		}))
		defer srv.Close()
		_, err := NewClient(srv.URL, "bad", nil).Search(context.Background(), "gum", 0)
		require.Error(t, err)
		assert.ErrorIs(t, err, apperr.Transport)
		assert.Contains(t, err.Error(), "401")
	})

	t.Run("graphql errors", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"errors":[{"message":"quota exceeded"}]}`))
		}))
		defer srv.Close()
		_, err := NewClient(srv.URL, "k", nil).Search(context.Background(), "gum", 0)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "quota exceeded")
	})

	t.Run("empty keywords", func(t *testing.T) {
		_, err := NewClient("http://unused.invalid", "k", nil).Search(context.Background(), "  ", 0)
		assert.ErrorIs(t, err, apperr.Validation)
	})
}
