package api_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/waymarkhq/waymark/internal/api"
	"github.com/waymarkhq/waymark/internal/models"
)

func relationRouter(repo *mockRelationRepo) *gin.Engine {
	r := newTestRouter()
	h := api.NewRelationHandler(repo, testLogger())

	r.GET("/relations", h.List)
	r.POST("/relations", h.Create)
	r.DELETE("/relations/:id", h.Delete)

	return r
}

func TestRelationCreate_AttributedToCaller(t *testing.T) {
	t.Parallel()

	repo := &mockRelationRepo{
		createFn: func(req models.CreateRelationRequest) (*models.Relation, error) {
			if req.UserID != testUserID {
				t.Errorf("relation not attributed to the caller: %q", req.UserID)
			}

			return &models.Relation{ID: "rel-1", OriginID: req.OriginID, TargetID: req.TargetID, Type: req.Type, UserID: req.UserID}, nil
		},
	}

	// A user_id in the payload is ignored in favor of the caller.
	w := doRequest(t, relationRouter(repo), http.MethodPost, "/relations",
		`{"origin_id":"a","target_id":"b","relation_type":"ownr","user_id":"someone-else"}`)
	wantStatus(t, w, http.StatusCreated)
}

func TestRelationCreate_UnknownCode(t *testing.T) {
	t.Parallel()

	w := doRequest(t, relationRouter(&mockRelationRepo{}), http.MethodPost, "/relations",
		`{"origin_id":"a","target_id":"b","relation_type":"frnd"}`)
	wantStatus(t, w, http.StatusBadRequest)
}

func TestRelationCreate_MissingEndpoint(t *testing.T) {
	t.Parallel()

	repo := &mockRelationRepo{
		createFn: func(models.CreateRelationRequest) (*models.Relation, error) {
			return nil, models.ErrResourceNotFound
		},
	}

	w := doRequest(t, relationRouter(repo), http.MethodPost, "/relations",
		`{"origin_id":"a","target_id":"missing","relation_type":"ownr"}`)
	wantStatus(t, w, http.StatusNotFound)
}

func TestRelationCreate_Duplicate(t *testing.T) {
	t.Parallel()

	repo := &mockRelationRepo{
		createFn: func(models.CreateRelationRequest) (*models.Relation, error) {
			return nil, models.ErrDuplicateKey
		},
	}

	w := doRequest(t, relationRouter(repo), http.MethodPost, "/relations",
		`{"origin_id":"a","target_id":"b","relation_type":"ownr"}`)
	wantStatus(t, w, http.StatusConflict)
}

func TestRelationList_RequiresExactlyOneEndpoint(t *testing.T) {
	t.Parallel()

	r := relationRouter(&mockRelationRepo{})

	for _, path := range []string{"/relations", "/relations?origin=a&target=b"} {
		w := doRequest(t, r, http.MethodGet, path, "")
		wantStatus(t, w, http.StatusBadRequest)
	}
}

func TestRelationList_ByOrigin(t *testing.T) {
	t.Parallel()

	repo := &mockRelationRepo{
		fromFn: func(originID string, typeFilter models.RelationType) ([]models.Relation, error) {
			if originID != "a" || typeFilter != models.RelationElement {
				t.Errorf("query not threaded: origin=%q type=%q", originID, typeFilter)
			}

			return []models.Relation{{ID: "rel-1", OriginID: originID}}, nil
		},
	}

	w := doRequest(t, relationRouter(repo), http.MethodGet, "/relations?origin=a&type=elmt", "")
	wantStatus(t, w, http.StatusOK)

	var got struct {
		Relations []models.Relation `json:"relations"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	if len(got.Relations) != 1 {
		t.Errorf("unexpected list: %+v", got)
	}
}

func TestRelationDelete(t *testing.T) {
	t.Parallel()

	repo := &mockRelationRepo{
		deleteFn: func(relationID string) error {
			if relationID != "rel-1" {
				t.Errorf("unexpected id %q", relationID)
			}

			return nil
		},
	}

	w := doRequest(t, relationRouter(repo), http.MethodDelete, "/relations/rel-1", "")
	wantStatus(t, w, http.StatusNoContent)
}

func TestRelationDelete_NotFound(t *testing.T) {
	t.Parallel()

	repo := &mockRelationRepo{
		deleteFn: func(string) error { return models.ErrRelationNotFound },
	}

	w := doRequest(t, relationRouter(repo), http.MethodDelete, "/relations/missing", "")
	wantStatus(t, w, http.StatusNotFound)
}
