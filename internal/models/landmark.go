package models

import "fmt"

// LandmarkType classifies what a landmark denotes.
type LandmarkType string

// Landmark types.
const (
	LandmarkResource         LandmarkType = "resource"
	LandmarkPerson           LandmarkType = "person"
	LandmarkProject          LandmarkType = "project"
	LandmarkHighLevelProject LandmarkType = "high_level_project"
)

var validLandmarkTypes = map[LandmarkType]bool{
	LandmarkResource:         true,
	LandmarkPerson:           true,
	LandmarkProject:          true,
	LandmarkHighLevelProject: true,
}

// Valid reports whether t is a known landmark type.
func (t LandmarkType) Valid() bool { return validLandmarkTypes[t] }

// IdentityState tracks whether a landmark's identity has been confirmed by
// the user or is still a tentative machine guess.
type IdentityState string

// Identity states.
const (
	IdentityTentative IdentityState = "tentative"
	IdentityConfirmed IdentityState = "confirmed"
)

// Landmark property keys inside Resource.Properties.
const (
	propLandmarkType  = "landmark_type"
	propIdentityState = "identity_state"
	propParentID      = "parent_id"
)

// Landmark is the typed view of a Resource with kind "landmark". ParentID
// points at the landmark this one was forked from, forming a version chain.
type Landmark struct {
	Resource

	LandmarkType  LandmarkType  `json:"landmark_type"`
	IdentityState IdentityState `json:"identity_state"`
	ParentID      string        `json:"parent_id,omitempty"`
}

// LandmarkFromResource projects a generic resource into its landmark view.
func LandmarkFromResource(r *Resource) (*Landmark, error) {
	if r.Kind != KindLandmark {
		return nil, fmt.Errorf("%w: resource %s has kind %q", ErrKindMismatch, r.ID, r.Kind)
	}

	l := &Landmark{
		Resource:      *r,
		LandmarkType:  LandmarkResource,
		IdentityState: IdentityTentative,
	}

	if v, ok := r.Properties[propLandmarkType].(string); ok && v != "" {
		l.LandmarkType = LandmarkType(v)
	}

	if v, ok := r.Properties[propIdentityState].(string); ok && v != "" {
		l.IdentityState = IdentityState(v)
	}

	if v, ok := r.Properties[propParentID].(string); ok {
		l.ParentID = v
	}

	if !l.LandmarkType.Valid() {
		return nil, fmt.Errorf("landmark %s: unknown landmark_type %q", r.ID, l.LandmarkType)
	}

	return l, nil
}

// LandmarkProperties builds the properties payload stored on a landmark
// resource. An empty parentID is omitted.
func LandmarkProperties(lt LandmarkType, is IdentityState, parentID string) map[string]any {
	props := map[string]any{
		propLandmarkType:  string(lt),
		propIdentityState: string(is),
	}

	if parentID != "" {
		props[propParentID] = parentID
	}

	return props
}
