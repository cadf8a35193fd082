package api_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/waymarkhq/waymark/internal/api"
	"github.com/waymarkhq/waymark/internal/models"
	"github.com/waymarkhq/waymark/internal/service"
)

func traceRouter(ingestor *mockTraceIngestor, timeline *mockTimelineRepo, refs *mockReferenceRepo) *gin.Engine {
	r := newTestRouter()
	h := api.NewTraceHandler(ingestor, timeline, refs, testLogger())

	r.POST("/traces", h.Ingest)
	r.GET("/traces/timeline", h.Timeline)
	r.GET("/mirrors/:id/references", h.MirrorReferences)

	return r
}

func TestTraceIngest(t *testing.T) {
	t.Parallel()

	ingestor := &mockTraceIngestor{
		ingestFn: func(userID string, req service.IngestTraceRequest) (*models.Resource, error) {
			if userID != testUserID {
				t.Errorf("wrong user: %q", userID)
			}

			return &models.Resource{ID: "trace-1", Kind: models.KindTrace, Content: req.Content}, nil
		},
	}

	w := doRequest(t, traceRouter(ingestor, nil, nil), http.MethodPost, "/traces",
		`{"content":"met Alice","journal_id":"journal-1"}`)
	wantStatus(t, w, http.StatusCreated)
}

func TestTraceIngest_Validation(t *testing.T) {
	t.Parallel()

	r := traceRouter(&mockTraceIngestor{}, nil, nil)

	for _, body := range []string{
		`{"journal_id":"journal-1"}`,
		`{"content":"text"}`,
	} {
		w := doRequest(t, r, http.MethodPost, "/traces", body)
		wantStatus(t, w, http.StatusBadRequest)
	}
}

func TestTraceIngest_MissingJournal(t *testing.T) {
	t.Parallel()

	ingestor := &mockTraceIngestor{
		ingestFn: func(string, service.IngestTraceRequest) (*models.Resource, error) {
			return nil, models.ErrResourceNotFound
		},
	}

	w := doRequest(t, traceRouter(ingestor, nil, nil), http.MethodPost, "/traces",
		`{"content":"text","journal_id":"missing"}`)
	wantStatus(t, w, http.StatusNotFound)
}

func TestTimeline(t *testing.T) {
	t.Parallel()

	timeline := &mockTimelineRepo{
		betweenFn: func(userID string, from, to time.Time) ([]models.Resource, error) {
			if userID != testUserID {
				t.Errorf("wrong user: %q", userID)
			}

			if !from.Before(to) {
				t.Errorf("bounds not threaded: %v .. %v", from, to)
			}

			return []models.Resource{{ID: "trace-1", Kind: models.KindTrace}}, nil
		},
	}

	w := doRequest(t, traceRouter(nil, timeline, nil), http.MethodGet,
		"/traces/timeline?from=2026-08-01T00:00:00Z&to=2026-09-01T00:00:00Z", "")
	wantStatus(t, w, http.StatusOK)

	var got struct {
		Traces []models.Resource `json:"traces"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	if len(got.Traces) != 1 {
		t.Errorf("unexpected timeline: %+v", got)
	}
}

func TestTimeline_BadBounds(t *testing.T) {
	t.Parallel()

	r := traceRouter(nil, &mockTimelineRepo{}, nil)

	tests := []struct {
		name string
		path string
	}{
		{"missing from", "/traces/timeline?to=2026-09-01T00:00:00Z"},
		{"unparseable from", "/traces/timeline?from=yesterday&to=2026-09-01T00:00:00Z"},
		{"inverted range", "/traces/timeline?from=2026-09-01T00:00:00Z&to=2026-08-01T00:00:00Z"},
		{"equal bounds", "/traces/timeline?from=2026-09-01T00:00:00Z&to=2026-09-01T00:00:00Z"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := doRequest(t, r, http.MethodGet, tt.path, "")
			wantStatus(t, w, http.StatusBadRequest)
		})
	}
}

func TestMirrorReferences(t *testing.T) {
	t.Parallel()

	landmarkID := "landmark-1"
	refs := &mockReferenceRepo{
		forMirrorFn: func(traceMirrorID string) ([]models.Reference, error) {
			if traceMirrorID != "mirror-1" {
				t.Errorf("wrong mirror: %q", traceMirrorID)
			}

			return []models.Reference{{TagID: "ref-1", TraceMirrorID: traceMirrorID, LandmarkID: &landmarkID, Mention: "Alice"}}, nil
		},
	}

	w := doRequest(t, traceRouter(nil, nil, refs), http.MethodGet, "/mirrors/mirror-1/references", "")
	wantStatus(t, w, http.StatusOK)

	var got struct {
		References []models.Reference `json:"references"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	if len(got.References) != 1 || got.References[0].Mention != "Alice" {
		t.Errorf("unexpected references: %+v", got)
	}
}
