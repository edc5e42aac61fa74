package schedule

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"confeed/internal/client/cms"
	"confeed/internal/config"
)

func testClient(t *testing.T, h http.Handler) (*cms.Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	client := cms.New(config.CMSConfig{
		BaseURL:        srv.URL,
		Locale:         "sk",
		RequestTimeout: 5 * time.Second,
		ConnectTimeout: 5 * time.Second,
		MaxConnections: 4,
	})
	return client, srv
}

const editionDoc = `{"data":[{"attributes":{"drupal_internal__tid":12}}]}`

const programDoc = `{"data":[
  {"attributes":{
    "drupal_internal__nid":1,"title":"Talk",
    "field_start":"2025-01-01T10:00:00+00:00","field_dlzka":30,
    "body":{"processed":"<p>Y</p>","summary":""},
    "field_highlight":true,
    "changed":"2025-01-01T09:00:00+00:00",
    "metatag":[{"tag":"meta","attributes":{"name":"description","content":"X"}}]},
   "relationships":{
    "field_guest":{"data":[{"type":"user--user","id":"u1","meta":{"drupal_internal__target_id":1}}]},
    "field_type":{"data":[{"type":"taxonomy_term--typ","id":"t1","meta":{"drupal_internal__target_id":5}}]},
    "field_category":{"data":[{"type":"taxonomy_term--anotacie","id":"c1","meta":{"drupal_internal__target_id":9}}]},
    "field_miestnost":{"data":{"type":"taxonomy_term--miestnosti","id":"m1","meta":{"drupal_internal__target_id":5}}}}},
  {"attributes":{
    "drupal_internal__nid":2,"title":"Unscheduled","field_start":"","field_dlzka":0,
    "body":{"processed":"body","summary":""},
    "changed":"2025-01-02T00:00:00+00:00","metatag":[]},
   "relationships":{
    "field_guest":{"data":null},
    "field_type":{"data":[]},
    "field_category":{"data":null},
    "field_miestnost":{"data":null}}}
]}`

func TestEditionID(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sk/jsonapi/taxonomy_term/rocnik" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("filter[name]"); got != "2025" {
			t.Errorf("filter[name] = %q", got)
		}
		w.Write([]byte(editionDoc))
	}))
	loader := &Loader{CMS: client}
	id, err := loader.EditionID(context.Background(), 2025)
	if err != nil {
		t.Fatalf("EditionID: %v", err)
	}
	if id != 12 {
		t.Fatalf("edition id = %d, want 12", id)
	}
}

func TestEditionNotFound(t *testing.T) {
	var fetches int32
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fetches, 1)
		w.Write([]byte(`{"data":[]}`))
	}))
	loader := &Loader{CMS: client}
	_, err := loader.Load(context.Background(), 1999, true)
	if !errors.Is(err, ErrEditionNotFound) {
		t.Fatalf("err = %v, want ErrEditionNotFound", err)
	}
	// The unknown year must fail before any schedule or reference fetch.
	if n := atomic.LoadInt32(&fetches); n != 1 {
		t.Fatalf("outbound fetches = %d, want 1", n)
	}
}

func TestPrimaryDerivationAndFilter(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(programDoc))
	}))
	loader := &Loader{CMS: client}
	programs, err := loader.Primary(context.Background(), 2025)
	if err != nil {
		t.Fatalf("Primary: %v", err)
	}
	if len(programs) != 1 {
		t.Fatalf("expected the unscheduled record to be filtered, got %d records", len(programs))
	}
	p := programs[0]
	if p.StartTime != "2025-01-01T10:00:00.000Z" {
		t.Fatalf("start time = %q", p.StartTime)
	}
	if p.EndTime != "2025-01-01T10:30:00.000Z" {
		t.Fatalf("end time = %q", p.EndTime)
	}
	if p.Changed != "2025-01-01T09:00:00.000Z" {
		t.Fatalf("changed = %q", p.Changed)
	}
	if p.Summary != "X" {
		t.Fatalf("summary = %q, want metatag fallback", p.Summary)
	}
	if p.Location != 5 {
		t.Fatalf("location = %d", p.Location)
	}
	if len(p.Types) != 1 || p.Types[0] != TypeTalk {
		t.Fatalf("types = %v", p.Types)
	}
	if len(p.Authors) != 1 || p.Authors[0] != 1 {
		t.Fatalf("authors = %v", p.Authors)
	}
	if !p.Highlight {
		t.Fatalf("highlight not carried over")
	}
}

func TestExtraKeepsUntimedRecords(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(programDoc))
	}))
	loader := &Loader{CMS: client}
	programs, err := loader.Extra(context.Background(), 2025)
	if err != nil {
		t.Fatalf("Extra: %v", err)
	}
	if len(programs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(programs))
	}
	if programs[1].StartTime != "" || programs[1].EndTime != "" {
		t.Fatalf("untimed record times = %q / %q, want empty", programs[1].StartTime, programs[1].EndTime)
	}
}

func TestSummaryFallbackTiers(t *testing.T) {
	tests := []struct {
		name    string
		summary string
		metatag string
		want    string
	}{
		{"explicit summary wins", "S", `[{"tag":"meta","attributes":{"name":"description","content":"X"}}]`, "S"},
		{"metatag when summary empty", "", `[{"tag":"meta","attributes":{"name":"description","content":"X"}}]`, "X"},
		{"annotation when both missing", "", `[{"tag":"meta","attributes":{"name":"keywords","content":"k"}}]`, "Y"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := `{"data":[{"attributes":{
				"drupal_internal__nid":1,"title":"Talk","field_start":"","field_dlzka":0,
				"body":{"processed":"Y","summary":"` + tt.summary + `"},
				"changed":"2025-01-01T00:00:00+00:00",
				"metatag":` + tt.metatag + `},
				"relationships":{"field_guest":{"data":null},"field_type":{"data":[]},"field_category":{"data":null},"field_miestnost":{"data":null}}}]}`
			client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(doc))
			}))
			loader := &Loader{CMS: client}
			programs, err := loader.Extra(context.Background(), 2025)
			if err != nil {
				t.Fatalf("Extra: %v", err)
			}
			if got := programs[0].Summary; got != tt.want {
				t.Fatalf("summary = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoaderUpstreamError(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	loader := &Loader{CMS: client}
	_, err := loader.Rooms(context.Background(), 12)
	var apiErr *cms.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *cms.APIError", err)
	}
	if apiErr.Resource != "rooms" || apiErr.Status != http.StatusInternalServerError {
		t.Fatalf("apiErr = %+v", apiErr)
	}
}

func TestLoadBuildsLookupsLastWins(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/sk/jsonapi/taxonomy_term/rocnik", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(editionDoc))
	})
	mux.HandleFunc("/sk/jsonapi/views/program/program_page", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(programDoc))
	})
	mux.HandleFunc("/sk/jsonapi/views/program/extra_program", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	})
	mux.HandleFunc("/sk/jsonapi/views/users/guests_page", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[
			{"attributes":{"drupal_internal__uid":1,"field_displayname":"","field_meno":"Alica Malá"}},
			{"attributes":{"drupal_internal__uid":1,"field_displayname":"Alica","field_meno":"Alica Malá"}}]}`))
	})
	mux.HandleFunc("/sk/jsonapi/taxonomy_term/miestnosti", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("filter[field_rocnik.meta.drupal_internal__target_id]"); got != "12" {
			t.Errorf("rooms edition filter = %q", got)
		}
		w.Write([]byte(`{"data":[{"attributes":{"drupal_internal__tid":5,"name":"Hall A","description":null,"weight":1}}]}`))
	})
	mux.HandleFunc("/sk/jsonapi/taxonomy_term/anotacie", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"attributes":{"drupal_internal__tid":9,"name":"Main Track","field_color":{"color":"#fff","opacity":null},"weight":0,"field_extra_program":false}}]}`))
	})
	client, _ := testClient(t, mux)
	loader := &Loader{CMS: client}
	bundle, err := loader.Load(context.Background(), 2025, true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	// Duplicate author uid: the later record overwrites the earlier one.
	if got := bundle.Authors[1].Name; got != "Alica" {
		t.Fatalf("author name = %q, want last-wins %q", got, "Alica")
	}
	if bundle.Rooms[5].Name != "Hall A" {
		t.Fatalf("rooms lookup missing Hall A")
	}
	if bundle.Lines[9].Color != "#fff" {
		t.Fatalf("lines lookup missing color")
	}
	if len(bundle.Primary) != 1 || len(bundle.Extra) != 0 {
		t.Fatalf("bundle records = %d primary / %d extra", len(bundle.Primary), len(bundle.Extra))
	}
}

func TestAuthorDisplayNameFallback(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"attributes":{"drupal_internal__uid":7,"field_displayname":"","field_meno":"Boris Veľký"}}]}`))
	}))
	loader := &Loader{CMS: client}
	authors, err := loader.Authors(context.Background(), 2025)
	if err != nil {
		t.Fatalf("Authors: %v", err)
	}
	if authors[0].Name != "Boris Veľký" {
		t.Fatalf("author name = %q, want field_meno fallback", authors[0].Name)
	}
}
