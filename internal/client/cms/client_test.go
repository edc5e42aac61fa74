package cms

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"confeed/internal/config"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(config.CMSConfig{
		BaseURL:        srv.URL,
		Locale:         "sk",
		RequestTimeout: 5 * time.Second,
		ConnectTimeout: 5 * time.Second,
		MaxConnections: 4,
	})
}

func TestGetDecodesDocument(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sk/jsonapi/taxonomy_term/rocnik" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Accept"); got != "application/vnd.api+json" {
			t.Errorf("accept header = %q", got)
		}
		w.Write([]byte(`{"data":[{"attributes":{"drupal_internal__tid":12}}]}`))
	})
	var doc struct {
		Data []struct {
			Attributes struct {
				TID int `json:"drupal_internal__tid"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := client.Get(context.Background(), "edition", "/taxonomy_term/rocnik", nil, &doc); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(doc.Data) != 1 || doc.Data[0].Attributes.TID != 12 {
		t.Fatalf("decoded %+v", doc)
	}
}

func TestGetNonSuccessStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	})
	var doc struct{}
	err := client.Get(context.Background(), "rooms", "/taxonomy_term/miestnosti", nil, &doc)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Resource != "rooms" || apiErr.Status != http.StatusBadGateway {
		t.Fatalf("apiErr = %+v", apiErr)
	}
}

func TestGetMalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":`))
	})
	var doc struct{}
	err := client.Get(context.Background(), "lines", "/taxonomy_term/anotacie", nil, &doc)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError for malformed body", err)
	}
	if apiErr.Resource != "lines" {
		t.Fatalf("apiErr = %+v", apiErr)
	}
}
