package api_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/waymarkhq/waymark/internal/api"
	"github.com/waymarkhq/waymark/internal/models"
)

func resourceRouter(repo *mockResourceRepo) *gin.Engine {
	r := newTestRouter()
	h := api.NewResourceHandler(repo, testLogger())

	r.GET("/resources", h.List)
	r.POST("/resources", h.Create)
	r.GET("/resources/:id", h.Get)
	r.PUT("/resources/:id", h.Update)
	r.DELETE("/resources/:id", h.Delete)

	return r
}

func TestResourceCreate(t *testing.T) {
	t.Parallel()

	repo := &mockResourceRepo{
		createFn: func(req models.CreateResourceRequest) (*models.Resource, error) {
			return &models.Resource{ID: req.ID, Kind: req.Kind, Title: req.Title}, nil
		},
	}

	w := doRequest(t, resourceRouter(repo), http.MethodPost, "/resources",
		`{"kind":"trace","title":"Monday entry"}`)
	wantStatus(t, w, http.StatusCreated)

	var got models.Resource
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	if got.Kind != models.KindTrace || got.Title != "Monday entry" || got.ID == "" {
		t.Errorf("unexpected resource: %+v", got)
	}
}

func TestResourceCreate_ValidationErrors(t *testing.T) {
	t.Parallel()

	repo := &mockResourceRepo{}
	r := resourceRouter(repo)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{`},
		{"missing title", `{"kind":"trace"}`},
		{"unknown kind", `{"kind":"widget","title":"t"}`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := doRequest(t, r, http.MethodPost, "/resources", tt.body)
			wantStatus(t, w, http.StatusBadRequest)
		})
	}
}

func TestResourceCreate_DuplicateID(t *testing.T) {
	t.Parallel()

	repo := &mockResourceRepo{
		createFn: func(models.CreateResourceRequest) (*models.Resource, error) {
			return nil, models.ErrDuplicateKey
		},
	}

	w := doRequest(t, resourceRouter(repo), http.MethodPost, "/resources",
		`{"id":"dup","kind":"trace","title":"t"}`)
	wantStatus(t, w, http.StatusConflict)
}

func TestResourceGet_NotFound(t *testing.T) {
	t.Parallel()

	repo := &mockResourceRepo{
		getFn: func(string) (*models.Resource, error) {
			return nil, models.ErrResourceNotFound
		},
	}

	w := doRequest(t, resourceRouter(repo), http.MethodGet, "/resources/missing", "")
	wantStatus(t, w, http.StatusNotFound)
}

func TestResourceList(t *testing.T) {
	t.Parallel()

	repo := &mockResourceRepo{
		listFn: func(kind models.ResourceKind, limit, offset int) ([]models.Resource, bool, error) {
			if kind != models.KindJournal || limit != 10 || offset != 5 {
				t.Errorf("query params not threaded: kind=%q limit=%d offset=%d", kind, limit, offset)
			}

			return []models.Resource{{ID: "j1", Kind: kind}}, true, nil
		},
	}

	w := doRequest(t, resourceRouter(repo), http.MethodGet, "/resources?kind=journal&limit=10&offset=5", "")
	wantStatus(t, w, http.StatusOK)

	var got struct {
		Resources []models.Resource `json:"resources"`
		HasMore   bool              `json:"has_more"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	if len(got.Resources) != 1 || !got.HasMore {
		t.Errorf("unexpected list: %+v", got)
	}
}

func TestResourceList_RequiresKnownKind(t *testing.T) {
	t.Parallel()

	w := doRequest(t, resourceRouter(&mockResourceRepo{}), http.MethodGet, "/resources?kind=widget", "")
	wantStatus(t, w, http.StatusBadRequest)
}

func TestResourceDelete_Referenced(t *testing.T) {
	t.Parallel()

	repo := &mockResourceRepo{
		deleteFn: func(string) (*models.Resource, error) {
			return nil, models.ErrResourceReferenced
		},
	}

	w := doRequest(t, resourceRouter(repo), http.MethodDelete, "/resources/r1", "")
	wantStatus(t, w, http.StatusConflict)
}

func TestResourceUpdate(t *testing.T) {
	t.Parallel()

	repo := &mockResourceRepo{
		updateFn: func(id string, req models.UpdateResourceRequest) (*models.Resource, error) {
			return &models.Resource{ID: id, Kind: models.KindTrace, Title: *req.Title}, nil
		},
	}

	w := doRequest(t, resourceRouter(repo), http.MethodPut, "/resources/r1", `{"title":"renamed"}`)
	wantStatus(t, w, http.StatusOK)

	var got models.Resource
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	if got.Title != "renamed" {
		t.Errorf("unexpected resource: %+v", got)
	}
}
