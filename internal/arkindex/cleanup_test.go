package arkindex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

const (
	classif1 = "c1000000-0000-4000-8000-000000000000"
	classif2 = "c2000000-0000-4000-8000-000000000000"
	meta1    = "8a000000-0000-4000-8000-000000000000"
	meta2    = "8b000000-0000-4000-8000-000000000000"
)

// cleanupServer answers the listing calls of a cleanup and records every
// DELETE and PUT.
func cleanupServer(t *testing.T) (*Client, func() []string) {
	var (
		mu     sync.Mutex
		writes []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/v1/")
		if r.Method == http.MethodDelete || r.Method == http.MethodPut {
			mu.Lock()
			entry := r.Method + " " + path
			if r.URL.RawQuery != "" {
				entry += "?" + r.URL.RawQuery
			}
			writes = append(writes, entry)
			mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
			return
		}

		var out any
		switch path {
		case "elements/" + volumeID + "/children/":
			out = results(
				map[string]any{"id": page1, "type": "page", "name": "1"},
				map[string]any{"id": page2, "type": "page", "name": "2"},
			)
		case "element/" + page1 + "/transcriptions/":
			out = results(map[string]any{"id": trans1, "text": "Miserere mei",
				"element": map[string]any{"id": page1, "type": "page", "name": "1"}})
		case "element/" + page2 + "/transcriptions/":
			http.Error(w, `{"detail":"boom"}`, http.StatusInternalServerError)
			return
		case "corpus/" + corpusID + "/elements/":
			if r.URL.Query().Get("with_classes") != "true" || r.URL.Query().Get("type") != TypeTextLine {
				t.Errorf("unexpected element listing %s", r.URL.RawQuery)
			}
			out = results(
				map[string]any{"id": line1, "type": "text_line", "name": "1", "classes": []any{
					map[string]any{"id": classif1, "ml_class": map[string]any{"id": classPs, "name": psName}, "state": "pending"},
					map[string]any{"id": classif2, "ml_class": map[string]any{"id": classBeg, "name": "Beginning"}, "state": "rejected"},
				}},
				map[string]any{"id": line2, "type": "text_line", "name": "2"},
			)
		case "element/" + line1 + "/metadata/":
			out = []any{
				map[string]any{"id": meta1, "type": "text", "name": "Entity", "value": psName},
				map[string]any{"id": meta2, "type": "text", "name": "Language", "value": "la"},
			}
		case "element/" + line2 + "/metadata/":
			out = []any{}
		case "corpus/" + corpusID + "/entities/":
			out = results(map[string]any{"id": entityPs, "name": psName, "type": "misc"})
		default:
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, "")
	if err != nil {
		t.Fatal(err)
	}
	return c, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), writes...)
	}
}

func TestCleanVolume(t *testing.T) {
	client, writes := cleanupServer(t)
	c := &Cleaner{Client: client, Corpus: corpusID}

	st, err := c.CleanVolume(context.Background(), volumeID)
	if err != nil {
		t.Fatalf("CleanVolume() error = %v", err)
	}
	if st.Transcriptions != 1 || st.Failures != 1 {
		t.Errorf("CleanVolume() = %+v, want 1 transcription and 1 failure", st)
	}
	got := writes()
	if len(got) != 1 || got[0] != "DELETE transcription/"+trans1+"/" {
		t.Errorf("writes = %v", got)
	}
}

func TestCleanCorpus(t *testing.T) {
	tests := []struct {
		name     string
		entities bool
		want     []string
	}{
		{
			name: "keep entities",
			want: []string{
				"PUT classifications/" + classif1 + "/reject/",
				"DELETE corpus/" + corpusID + "/elements/?type=text_segment",
				"DELETE metadata/" + meta1 + "/",
			},
		},
		{
			name:     "with entities",
			entities: true,
			want: []string{
				"PUT classifications/" + classif1 + "/reject/",
				"DELETE corpus/" + corpusID + "/elements/?type=text_segment",
				"DELETE metadata/" + meta1 + "/",
				"DELETE entity/" + entityPs + "/",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, writes := cleanupServer(t)
			c := &Cleaner{Client: client, Corpus: corpusID, Entities: tt.entities}

			st, err := c.CleanCorpus(context.Background())
			if err != nil {
				t.Fatalf("CleanCorpus() error = %v", err)
			}
			if st.Classifications != 1 || st.Metadata != 1 || !st.Segments || st.Failures != 0 {
				t.Errorf("CleanCorpus() = %+v", st)
			}
			if tt.entities && st.Entities != 1 {
				t.Errorf("Entities = %d, want 1", st.Entities)
			}
			got := writes()
			if strings.Join(got, "\n") != strings.Join(tt.want, "\n") {
				t.Errorf("writes =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(tt.want, "\n"))
			}
		})
	}
}

func TestCleanCorpusRejectsBadCorpus(t *testing.T) {
	c := &Cleaner{Client: &Client{}, Corpus: "not-a-uuid"}
	if _, err := c.CleanCorpus(context.Background()); err == nil {
		t.Error("CleanCorpus() accepted a bad corpus id")
	}
}

func TestDestroyElementsNeedsType(t *testing.T) {
	client, writes := cleanupServer(t)
	if err := client.DestroyElements(context.Background(), corpusID, ""); err == nil {
		t.Error("DestroyElements() without a type should fail")
	}
	if len(writes()) != 0 {
		t.Error("DestroyElements() without a type reached the server")
	}
}
