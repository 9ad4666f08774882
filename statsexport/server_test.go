package statsexport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tlsfgo/tlsfgo/pkg/tlsf"
)

type fakeSnapshotter struct {
	stats tlsf.Stats
	err   error
}

func (f fakeSnapshotter) Stats() tlsf.Stats { return f.stats }
func (f fakeSnapshotter) Check() error      { return f.err }

func TestHandleStatsHealthy(t *testing.T) {
	s := New("127.0.0.1:0", nil, fakeSnapshotter{stats: tlsf.Stats{UsedSize: 10, PoolCount: 1}})

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()

	s.handleStats(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var doc Document
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !doc.Healthy || doc.Stats.UsedSize != 10 {
		t.Fatalf("doc = %+v", doc)
	}
}

func TestHandleStatsUnhealthy(t *testing.T) {
	s := New("127.0.0.1:0", nil, fakeSnapshotter{err: &tlsf.CheckError{Problems: []string{"boom"}}})

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()

	s.handleStats(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}

	var doc Document
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if doc.Healthy || doc.Problem == "" {
		t.Fatalf("doc = %+v", doc)
	}
}
