// Package report turns a search result into the persisted result document
// and its human-readable renderings.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"proxeek/internal/logging"
	"proxeek/internal/loss"
	"proxeek/internal/scene"
	"proxeek/internal/search"

	"github.com/google/uuid"
)

// Document is the optimization_results.json layout.
type Document struct {
	RunID       string                `json:"run_id"`
	CreatedAt   time.Time             `json:"created_at"`
	Summary     Summary               `json:"optimization_summary"`
	Assignments []Assignment          `json:"assignments"`
	Skipped     []scene.SkippedRecord `json:"skipped_records,omitempty"`
}

// Summary is the scalar part of a Document.
type Summary struct {
	TotalLoss      float64        `json:"total_loss"`
	LossComponents loss.Breakdown `json:"loss_components"`
	NumVirtual     int            `json:"num_virtual_objects"`
	NumPhysical    int            `json:"num_physical_objects"`
	Exclusivity    bool           `json:"exclusivity_enabled"`
	Weights        WeightsUsed    `json:"loss_weights"`

	Strategy        string  `json:"strategy"`
	Exact           bool    `json:"exact"`
	Truncated       bool    `json:"truncated"`
	Candidates      int64   `json:"candidates_evaluated"`
	TotalCandidates int64   `json:"total_candidates"`
	ElapsedSeconds  float64 `json:"elapsed_seconds"`
}

// WeightsUsed mirrors loss.Weights with the result file's key names.
type WeightsUsed struct {
	Realism     float64 `json:"w_realism"`
	Priority    float64 `json:"w_priority"`
	Interaction float64 `json:"w_interaction"`
}

// Assignment is one virtual object and the proxy it received.
type Assignment struct {
	Virtual      VirtualEntry  `json:"virtual_object"`
	Physical     PhysicalEntry `json:"physical_object"`
	RealismScore float64       `json:"realism_score"`
	MatrixRow    []float64     `json:"assignment_matrix_row"`
}

type VirtualEntry struct {
	Name            string  `json:"name"`
	Index           int     `json:"index"`
	EngagementLevel int     `json:"engagement_level"` // the ranking-derived priority
	InvolvementType string  `json:"involvement_type"`
	PriorityWeight  float64 `json:"priority_weight"`
	// AnnotatedLevel is the annotation's own 0-2 engagementLevel, when present.
	AnnotatedLevel *int `json:"annotated_engagement_level,omitempty"`
}

type PhysicalEntry struct {
	Name     string `json:"name"`
	ObjectID int    `json:"object_id"`
	ImageID  int    `json:"image_id"`
	Index    int    `json:"index"`
}

// New builds the document for res. diag may be nil.
func New(p *scene.Problem, diag *scene.Diagnostics, w loss.Weights, exclusive bool, res *search.Result) *Document {
	doc := &Document{
		RunID:     uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Summary: Summary{
			TotalLoss:      res.Breakdown.Total,
			LossComponents: res.Breakdown,
			NumVirtual:     p.NumVirtual(),
			NumPhysical:    p.NumPhysical(),
			Exclusivity:    exclusive,
			Weights: WeightsUsed{
				Realism:     w.Realism,
				Priority:    w.Priority,
				Interaction: w.Interaction,
			},
			Strategy:        string(res.Strategy),
			Exact:           res.Exact,
			Truncated:       res.Truncated,
			Candidates:      res.Candidates,
			TotalCandidates: res.TotalCandidates,
			ElapsedSeconds:  res.Elapsed.Seconds(),
		},
		Assignments: make([]Assignment, 0, len(res.Choice)),
	}
	if diag != nil {
		doc.Skipped = diag.Skipped
	}

	for i, j := range res.Choice {
		v := p.Virtual[i]
		ph := p.Physical[j]

		entry := Assignment{
			Virtual: VirtualEntry{
				Name:            v.Name,
				Index:           v.Index,
				EngagementLevel: v.EngagementPriority,
				InvolvementType: string(v.Involvement),
				PriorityWeight:  float64(v.EngagementPriority),
			},
			Physical: PhysicalEntry{
				Name:     ph.Name,
				ObjectID: ph.Key.ObjectID,
				ImageID:  ph.Key.ImageID,
				Index:    ph.Index,
			},
			RealismScore: p.Realism.At(i, j),
			MatrixRow:    append([]float64(nil), res.Matrix.Row(i)...),
		}
		if v.EngagementLevel >= 0 {
			level := v.EngagementLevel
			entry.Virtual.AnnotatedLevel = &level
		}
		doc.Assignments = append(doc.Assignments, entry)
	}
	return doc
}

// Marshal encodes doc as indented JSON.
func (d *Document) Marshal() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// Unmarshal decodes a document produced by Marshal.
func Unmarshal(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode result document: %w", err)
	}
	return &doc, nil
}

// WriteJSON writes doc to path, creating parent directories.
func WriteJSON(path string, doc *Document) error {
	data, err := doc.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode result document: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write result document: %w", err)
	}
	logging.Get(logging.CategoryReport).Info("Results saved to: %s", path)
	return nil
}

// ReadJSON reads a document written by WriteJSON.
func ReadJSON(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read result document: %w", err)
	}
	return Unmarshal(data)
}
