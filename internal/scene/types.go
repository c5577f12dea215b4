// Package scene turns the upstream annotation and rating documents into the
// optimizer's data model: a roster of virtual objects, a roster of physical
// candidate objects, and three dense score matrices.
//
// Loading is strict about documents and lenient about records. A missing or
// malformed document aborts with a *LoadError; a single record that refers to
// an unknown virtual object or physical identity key is skipped, logged, and
// reported in Diagnostics.
package scene

import "fmt"

// InvolvementType describes how a virtual object takes part in the interaction.
type InvolvementType string

const (
	InvolvementGrasp     InvolvementType = "grasp"
	InvolvementContact   InvolvementType = "contact"
	InvolvementSubstrate InvolvementType = "substrate"
)

// Valid reports whether t is one of the involvement types the optimizer assigns proxies for.
func (t InvolvementType) Valid() bool {
	switch t {
	case InvolvementGrasp, InvolvementContact, InvolvementSubstrate:
		return true
	}
	return false
}

// VirtualObject is a VR scene object that needs a physical proxy.
type VirtualObject struct {
	Name               string
	Index              int // position in the roster
	EngagementPriority int // higher = more important; 0 when unranked
	Involvement        InvolvementType

	// EngagementLevel is the annotator's coarse level (0 low, 1 medium, 2 high), -1 when absent.
	// Carried for audit only; EngagementPriority drives the loss.
	EngagementLevel int
}

// PhysicalKey identifies a detected physical object. ObjectID is unique only within an image.
type PhysicalKey struct {
	ObjectID int
	ImageID  int
}

func (k PhysicalKey) String() string {
	return fmt.Sprintf("(object %d, image %d)", k.ObjectID, k.ImageID)
}

// PhysicalObject is a real-world object detected in an environment photo.
type PhysicalObject struct {
	Key   PhysicalKey
	Name  string
	Index int // position in the roster
}
