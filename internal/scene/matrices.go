package scene

import (
	"fmt"
	"math"

	"proxeek/internal/logging"
)

// SkippedRecord is an input record that was dropped during loading.
type SkippedRecord struct {
	Document string `json:"document"`
	Index    int    `json:"index"`
	Reason   string `json:"reason"`
}

// Diagnostics collects record-level problems. They never abort loading.
type Diagnostics struct {
	Skipped []SkippedRecord `json:"skipped,omitempty"`
}

// Count returns the number of skipped records.
func (d *Diagnostics) Count() int {
	if d == nil {
		return 0
	}
	return len(d.Skipped)
}

// CountFor returns the number of skipped records from one document.
func (d *Diagnostics) CountFor(document string) int {
	if d == nil {
		return 0
	}
	n := 0
	for _, s := range d.Skipped {
		if s.Document == document {
			n++
		}
	}
	return n
}

func (d *Diagnostics) skip(document string, index int, format string, args ...interface{}) {
	reason := fmt.Sprintf(format, args...)
	logging.LoaderWarn("skipping %s record %d: %s", document, index, reason)
	if d != nil {
		d.Skipped = append(d.Skipped, SkippedRecord{Document: document, Index: index, Reason: reason})
	}
}

// BuildRealismMatrix writes each candidate rating into [virtual][physical].
// Records that cannot be resolved are skipped; the last record for a cell wins.
func BuildRealismMatrix(ratings []ProxyRating, virtual []VirtualObject, physical []PhysicalObject, diag *Diagnostics) *Matrix {
	m := NewMatrix(len(virtual), len(physical))
	vIdx := virtualIndex(virtual)
	pIdx := physicalIndex(physical)

	for n, r := range ratings {
		i, ok := vIdx[r.VirtualObject]
		if !ok {
			diag.skip(DocProxyRatings, n, "unknown virtual object %q", r.VirtualObject)
			continue
		}
		if r.ObjectID == nil || r.ImageID == nil {
			diag.skip(DocProxyRatings, n, "missing object_id or image_id")
			continue
		}
		key := PhysicalKey{ObjectID: *r.ObjectID, ImageID: *r.ImageID}
		j, ok := pIdx[key]
		if !ok {
			diag.skip(DocProxyRatings, n, "unknown physical object %s", key)
			continue
		}
		if r.RatingScore == nil {
			diag.skip(DocProxyRatings, n, "missing rating_score")
			continue
		}
		score := *r.RatingScore
		if math.IsNaN(score) || math.IsInf(score, 0) || score < 0 {
			diag.skip(DocProxyRatings, n, "rating_score %v is not a finite non-negative number", score)
			continue
		}
		m.Set(i, j, score)
	}
	return m
}

// BuildInteractionMatrices marks annotated contact→substrate pairs in the
// [virtual][virtual] exists matrix and stores the mean of each relationship
// rating's three sub-ratings at [contact][substrate] in the [physical][physical] rating matrix.
func BuildInteractionMatrices(tree *AnnotationTree, ratings []RelationshipRating, virtual []VirtualObject, physical []PhysicalObject, diag *Diagnostics) (exists, rating *Matrix) {
	exists = NewMatrix(len(virtual), len(virtual))
	rating = NewMatrix(len(physical), len(physical))

	vIdx := virtualIndex(virtual)
	for n, rel := range tree.RelationshipAnnotations {
		c, okC := vIdx[rel.ContactObject]
		s, okS := vIdx[rel.SubstrateObject]
		if !okC || !okS {
			diag.skip(DocAnnotation, n, "relationship %q -> %q references an object outside the roster", rel.ContactObject, rel.SubstrateObject)
			continue
		}
		exists.Set(c, s, 1)
	}

	pIdx := physicalIndex(physical)
	for n, r := range ratings {
		if r.ContactObjectID == nil || r.ContactImageID == nil || r.SubstrateObjectID == nil || r.SubstrateImageID == nil {
			diag.skip(DocRelationshipRatings, n, "missing contact or substrate identity")
			continue
		}
		contact := PhysicalKey{ObjectID: *r.ContactObjectID, ImageID: *r.ContactImageID}
		substrate := PhysicalKey{ObjectID: *r.SubstrateObjectID, ImageID: *r.SubstrateImageID}
		j, okC := pIdx[contact]
		k, okS := pIdx[substrate]
		if !okC || !okS {
			diag.skip(DocRelationshipRatings, n, "unknown physical pair %s -> %s", contact, substrate)
			continue
		}
		if r.HarmonyRating == nil || r.ExpressivityRating == nil || r.RealismRating == nil {
			diag.skip(DocRelationshipRatings, n, "missing harmony, expressivity or realism rating")
			continue
		}
		mean := (*r.HarmonyRating + *r.ExpressivityRating + *r.RealismRating) / 3.0
		if math.IsNaN(mean) || math.IsInf(mean, 0) {
			diag.skip(DocRelationshipRatings, n, "non-finite rating")
			continue
		}
		rating.Set(j, k, mean)
	}
	return exists, rating
}
