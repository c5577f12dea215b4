package scene

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// AnnotationTree is the haptic annotation export.
type AnnotationTree struct {
	Summary                 string                   `json:"summary,omitempty"`
	NodeAnnotations         []NodeAnnotation         `json:"nodeAnnotations"`
	HighEngagementOrder     []string                 `json:"highEngagementOrder,omitempty"`
	MediumEngagementOrder   []string                 `json:"mediumEngagementOrder,omitempty"`
	LowEngagementOrder      []string                 `json:"lowEngagementOrder,omitempty"`
	RelationshipAnnotations []RelationshipAnnotation `json:"relationshipAnnotations,omitempty"`
}

// NodeAnnotation describes one annotated virtual object.
type NodeAnnotation struct {
	ObjectName        string          `json:"objectName"`
	InvolvementType   InvolvementType `json:"involvementType"`
	EngagementLevel   *int            `json:"engagementLevel,omitempty"` // nil => -1
	IsDirectContacted *bool           `json:"isDirectContacted,omitempty"`
	Description       string          `json:"description,omitempty"`
	SnapshotPath      string          `json:"snapshotPath,omitempty"`
}

// RelationshipAnnotation declares that a contact object acts on a substrate object.
type RelationshipAnnotation struct {
	ContactObject   string `json:"contactObject"`
	SubstrateObject string `json:"substrateObject"`
	AnnotationText  string `json:"annotationText,omitempty"`
}

// EngagementRanking returns the combined high, medium, low ranking.
func (t *AnnotationTree) EngagementRanking() []string {
	ranking := make([]string, 0, len(t.HighEngagementOrder)+len(t.MediumEngagementOrder)+len(t.LowEngagementOrder))
	ranking = append(ranking, t.HighEngagementOrder...)
	ranking = append(ranking, t.MediumEngagementOrder...)
	ranking = append(ranking, t.LowEngagementOrder...)
	return ranking
}

// PhysicalRecord is one detection in the physical object database.
type PhysicalRecord struct {
	ObjectID *int            `json:"object_id,omitempty"` // nil => -1
	Object   string          `json:"object"`
	Position json.RawMessage `json:"position,omitempty"`
	ImageID  *int            `json:"image_id,omitempty"` // nil => taken from the image key
}

// ImageDetections groups the detections of one environment photo.
type ImageDetections struct {
	ImageKey string
	Objects  []PhysicalRecord
}

// PhysicalDatabase maps image ids to their detections, preserving document order.
type PhysicalDatabase []ImageDetections

// UnmarshalJSON decodes the image-id keyed object while keeping key order,
// which fixes the physical roster's index assignment.
func (db *PhysicalDatabase) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("physical object database must be a JSON object keyed by image id")
	}

	var out PhysicalDatabase
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v in physical object database", tok)
		}
		var objects []PhysicalRecord
		if err := dec.Decode(&objects); err != nil {
			return fmt.Errorf("image %q: %w", key, err)
		}
		out = append(out, ImageDetections{ImageKey: key, Objects: objects})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*db = out
	return nil
}

// ProxyRating is a scored candidate pairing of a virtual object with a physical object.
type ProxyRating struct {
	VirtualObject string   `json:"virtualObject"`
	ObjectID      *int     `json:"object_id"`
	ImageID       *int     `json:"image_id"`
	RatingScore   *float64 `json:"rating_score"`
}

// RelationshipRating scores a contact/substrate pair of physical objects.
type RelationshipRating struct {
	ContactObjectID    *int     `json:"contactObject_id"`
	ContactImageID     *int     `json:"contactImage_id"`
	SubstrateObjectID  *int     `json:"substrateObject_id"`
	SubstrateImageID   *int     `json:"substrateImage_id"`
	HarmonyRating      *float64 `json:"harmony_rating"`
	ExpressivityRating *float64 `json:"expressivity_rating"`
	RealismRating      *float64 `json:"realism_rating"`
}

// Documents bundles the four decoded upstream inputs.
type Documents struct {
	Annotation          AnnotationTree
	Physical            PhysicalDatabase
	ProxyRatings        []ProxyRating
	RelationshipRatings []RelationshipRating
}
