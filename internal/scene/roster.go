package scene

import (
	"strconv"

	"proxeek/internal/logging"
)

// BuildVirtualRoster keeps the annotated objects whose involvement type is
// grasp, contact or substrate, in declaration order.
//
// EngagementPriority is len(ranking) - position in the combined
// high→medium→low ranking, or 0 when the name is not ranked.
func BuildVirtualRoster(tree *AnnotationTree) []VirtualObject {
	ranking := tree.EngagementRanking()
	rank := make(map[string]int, len(ranking))
	for i, name := range ranking {
		if _, seen := rank[name]; !seen {
			rank[name] = i
		}
	}

	log := logging.Get(logging.CategoryLoader)
	roster := make([]VirtualObject, 0, len(tree.NodeAnnotations))
	for _, node := range tree.NodeAnnotations {
		if !node.InvolvementType.Valid() {
			log.Debug("virtual object %q has involvement %q; not assigned a proxy", node.ObjectName, node.InvolvementType)
			continue
		}

		priority := 0
		if pos, ok := rank[node.ObjectName]; ok {
			priority = len(ranking) - pos
		}

		level := -1
		if node.EngagementLevel != nil {
			level = *node.EngagementLevel
		}

		roster = append(roster, VirtualObject{
			Name:               node.ObjectName,
			Index:              len(roster),
			EngagementPriority: priority,
			Involvement:        node.InvolvementType,
			EngagementLevel:    level,
		})
	}
	return roster
}

// BuildPhysicalRoster flattens the per-image detection lists into one
// densely indexed roster. A record without image_id takes it from its image
// key; a record without object_id gets -1. Records whose image id cannot be
// determined are skipped.
func BuildPhysicalRoster(db PhysicalDatabase, diag *Diagnostics) []PhysicalObject {
	var roster []PhysicalObject
	for _, image := range db {
		keyID, keyErr := strconv.Atoi(image.ImageKey)
		for n, rec := range image.Objects {
			imageID := keyID
			if rec.ImageID != nil {
				imageID = *rec.ImageID
			} else if keyErr != nil {
				diag.skip(DocPhysicalDatabase, n, "image %q: no image_id and key is not an integer", image.ImageKey)
				continue
			}

			objectID := -1
			if rec.ObjectID != nil {
				objectID = *rec.ObjectID
			}

			roster = append(roster, PhysicalObject{
				Key:   PhysicalKey{ObjectID: objectID, ImageID: imageID},
				Name:  rec.Object,
				Index: len(roster),
			})
		}
	}
	return roster
}

// virtualIndex maps names to roster indices. Duplicate names resolve to the last occurrence.
func virtualIndex(roster []VirtualObject) map[string]int {
	idx := make(map[string]int, len(roster))
	for _, v := range roster {
		if prev, dup := idx[v.Name]; dup {
			logging.LoaderWarn("duplicate virtual object name %q (indices %d and %d); ratings resolve to %d", v.Name, prev, v.Index, v.Index)
		}
		idx[v.Name] = v.Index
	}
	return idx
}

// physicalIndex maps identity keys to roster indices. Duplicate keys resolve to the last occurrence.
func physicalIndex(roster []PhysicalObject) map[PhysicalKey]int {
	idx := make(map[PhysicalKey]int, len(roster))
	for _, p := range roster {
		if prev, dup := idx[p.Key]; dup {
			logging.LoaderWarn("duplicate physical identity %s (indices %d and %d); ratings resolve to %d", p.Key, prev, p.Index, p.Index)
		}
		idx[p.Key] = p.Index
	}
	return idx
}
