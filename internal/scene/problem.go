package scene

import "fmt"

// Problem is everything the optimizer needs: both rosters and the three score matrices.
// A Problem is immutable once built.
type Problem struct {
	Virtual  []VirtualObject
	Physical []PhysicalObject

	Realism     *Matrix // [virtual][physical]
	Exists      *Matrix // [virtual][virtual], 1 where contact i acts on substrate k
	Interaction *Matrix // [physical][physical], contact j with substrate m
}

// NewProblem validates matrix shapes against the rosters.
// Nil matrices are replaced by zero matrices of the right shape.
func NewProblem(virtual []VirtualObject, physical []PhysicalObject, realism, exists, interaction *Matrix) (*Problem, error) {
	nv, np := len(virtual), len(physical)
	if realism == nil {
		realism = NewMatrix(nv, np)
	}
	if exists == nil {
		exists = NewMatrix(nv, nv)
	}
	if interaction == nil {
		interaction = NewMatrix(np, np)
	}

	checks := []struct {
		name       string
		m          *Matrix
		rows, cols int
	}{
		{"realism", realism, nv, np},
		{"interaction exists", exists, nv, nv},
		{"interaction rating", interaction, np, np},
	}
	for _, c := range checks {
		if c.m.Rows() != c.rows || c.m.Cols() != c.cols {
			return nil, fmt.Errorf("%w: %s matrix is %dx%d, want %dx%d", ErrShape, c.name, c.m.Rows(), c.m.Cols(), c.rows, c.cols)
		}
	}

	return &Problem{
		Virtual:     virtual,
		Physical:    physical,
		Realism:     realism,
		Exists:      exists,
		Interaction: interaction,
	}, nil
}

// Build runs the whole loader over decoded documents.
func Build(docs *Documents) (*Problem, *Diagnostics) {
	diag := &Diagnostics{}

	virtual := BuildVirtualRoster(&docs.Annotation)
	physical := BuildPhysicalRoster(docs.Physical, diag)
	realism := BuildRealismMatrix(docs.ProxyRatings, virtual, physical, diag)
	exists, interaction := BuildInteractionMatrices(&docs.Annotation, docs.RelationshipRatings, virtual, physical, diag)

	// Shapes are correct by construction.
	return &Problem{
		Virtual:     virtual,
		Physical:    physical,
		Realism:     realism,
		Exists:      exists,
		Interaction: interaction,
	}, diag
}

func (p *Problem) NumVirtual() int  { return len(p.Virtual) }
func (p *Problem) NumPhysical() int { return len(p.Physical) }

// HasInteractions reports whether any virtual pair is annotated as interacting.
func (p *Problem) HasInteractions() bool {
	return !p.Exists.IsZero()
}

// Priorities returns each virtual object's engagement priority as a float.
func (p *Problem) Priorities() []float64 {
	out := make([]float64, len(p.Virtual))
	for i, v := range p.Virtual {
		out[i] = float64(v.EngagementPriority)
	}
	return out
}
