package scene

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"proxeek/internal/logging"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func kitchenPaths() Paths {
	dir := filepath.Join("testdata", "kitchen")
	return Paths{
		Annotation:          filepath.Join(dir, "export"),
		PhysicalDatabase:    filepath.Join(dir, "physical_object_database.json"),
		ProxyRatings:        filepath.Join(dir, "proxy_matching_results.json"),
		RelationshipRatings: filepath.Join(dir, "relationship_rating_results.json"),
	}
}

func intp(v int) *int { return &v }
func floatp(v float64) *float64 { return &v }

func TestLoad_Kitchen(t *testing.T) {
	p, diag, err := Load(context.Background(), kitchenPaths())
	require.NoError(t, err)

	wantVirtual := []VirtualObject{
		{Name: "Knife", Index: 0, EngagementPriority: 4, Involvement: InvolvementGrasp, EngagementLevel: 2},
		{Name: "Cutting Board", Index: 1, EngagementPriority: 2, Involvement: InvolvementSubstrate, EngagementLevel: 0},
		{Name: "Cup", Index: 2, EngagementPriority: 3, Involvement: InvolvementGrasp, EngagementLevel: 1},
	}
	if diff := cmp.Diff(wantVirtual, p.Virtual); diff != "" {
		t.Errorf("virtual roster mismatch (-want +got):\n%s", diff)
	}

	wantPhysical := []PhysicalObject{
		{Key: PhysicalKey{ObjectID: 0, ImageID: 0}, Name: "pen", Index: 0},
		{Key: PhysicalKey{ObjectID: 1, ImageID: 0}, Name: "notebook", Index: 1},
		{Key: PhysicalKey{ObjectID: 0, ImageID: 1}, Name: "mug", Index: 2},
		{Key: PhysicalKey{ObjectID: 1, ImageID: 1}, Name: "ruler", Index: 3},
	}
	if diff := cmp.Diff(wantPhysical, p.Physical); diff != "" {
		t.Errorf("physical roster mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, [][]float64{
		{4, 0, 1, 6.5},
		{0, 7, 0, 2},
		{1.5, 0, 8, 0},
	}, p.Realism.ToRows())

	assert.Equal(t, [][]float64{
		{0, 1, 0},
		{0, 0, 0},
		{0, 0, 0},
	}, p.Exists.ToRows())

	assert.Equal(t, 6.0, p.Interaction.At(3, 1))
	assert.Equal(t, 3.0, p.Interaction.At(0, 1))
	assert.Equal(t, 0.0, p.Interaction.At(1, 3), "interaction ratings are directional")

	assert.Equal(t, 5, diag.Count())
	assert.Equal(t, 3, diag.CountFor(DocProxyRatings))
	assert.Equal(t, 1, diag.CountFor(DocAnnotation))
	assert.Equal(t, 1, diag.CountFor(DocRelationshipRatings))
	assert.True(t, p.HasInteractions())
}

func TestResolveAnnotationPath_PicksLatestExport(t *testing.T) {
	got, err := ResolveAnnotationPath(filepath.Join("testdata", "kitchen", "export"))
	require.NoError(t, err)
	assert.Equal(t, "haptic_annotation_20250612_143000.json", filepath.Base(got))

	file := filepath.Join("testdata", "kitchen", "physical_object_database.json")
	got, err = ResolveAnnotationPath(file)
	require.NoError(t, err)
	assert.Equal(t, file, got)
}

func TestResolveAnnotationPath_EmptyDirectory(t *testing.T) {
	_, err := ResolveAnnotationPath(t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLoad))
	assert.True(t, errors.Is(err, ErrMissingDocument))
}

func TestLoad_MissingDocumentIsLoadError(t *testing.T) {
	paths := kitchenPaths()
	paths.ProxyRatings = filepath.Join(t.TempDir(), "nope.json")

	_, _, err := Load(context.Background(), paths)
	require.Error(t, err)

	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, DocProxyRatings, le.Document)
	assert.True(t, errors.Is(err, ErrMissingDocument))
	assert.True(t, errors.Is(err, ErrLoad))
}

func TestLoad_InvalidJSONIsLoadError(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "physical.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[1, 2, 3]`), 0644))

	paths := kitchenPaths()
	paths.PhysicalDatabase = bad

	_, _, err := Load(context.Background(), paths)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidDocument))
}

func TestReadAnnotationTree_RequiresNodeAnnotations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "haptic_annotation.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"highEngagementOrder": ["A"]}`), 0644))

	_, err := ReadAnnotationTree(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidDocument))
}

func TestLoad_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := Load(ctx, kitchenPaths())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildVirtualRoster_Priorities(t *testing.T) {
	tree := &AnnotationTree{
		NodeAnnotations: []NodeAnnotation{
			{ObjectName: "A", InvolvementType: InvolvementGrasp},
			{ObjectName: "B", InvolvementType: InvolvementContact},
			{ObjectName: "C", InvolvementType: "pointing"},
			{ObjectName: "D", InvolvementType: InvolvementSubstrate},
		},
		HighEngagementOrder:   []string{"B"},
		MediumEngagementOrder: []string{"C"},
		LowEngagementOrder:    []string{"A"},
	}

	roster := BuildVirtualRoster(tree)
	require.Len(t, roster, 3)

	got := map[string][2]int{}
	for _, v := range roster {
		got[v.Name] = [2]int{v.Index, v.EngagementPriority}
	}
	assert.Equal(t, map[string][2]int{
		"A": {0, 1}, // ranking length 3, position 2
		"B": {1, 3},
		"D": {2, 0}, // unranked
	}, got)
	assert.Equal(t, -1, roster[0].EngagementLevel)
}

func TestBuildPhysicalRoster_ImageFallbacks(t *testing.T) {
	db := PhysicalDatabase{
		{ImageKey: "7", Objects: []PhysicalRecord{{ObjectID: intp(2), Object: "box"}, {Object: "unknown id"}}},
		{ImageKey: "cam-a", Objects: []PhysicalRecord{{ObjectID: intp(0), Object: "no image", ImageID: nil}, {ObjectID: intp(1), Object: "tagged", ImageID: intp(3)}}},
	}
	diag := &Diagnostics{}

	roster := BuildPhysicalRoster(db, diag)

	want := []PhysicalObject{
		{Key: PhysicalKey{ObjectID: 2, ImageID: 7}, Name: "box", Index: 0},
		{Key: PhysicalKey{ObjectID: -1, ImageID: 7}, Name: "unknown id", Index: 1},
		{Key: PhysicalKey{ObjectID: 1, ImageID: 3}, Name: "tagged", Index: 2},
	}
	if diff := cmp.Diff(want, roster); diff != "" {
		t.Errorf("roster mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, diag.CountFor(DocPhysicalDatabase))
}

func TestBuildRealismMatrix_LastWriteWinsAndSkipsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	logging.SetBase(zap.New(core))
	t.Cleanup(func() { logging.SetBase(nil) })

	virtual := []VirtualObject{{Name: "A", Index: 0}}
	physical := []PhysicalObject{{Key: PhysicalKey{ObjectID: 1, ImageID: 1}, Index: 0}}
	ratings := []ProxyRating{
		{VirtualObject: "A", ObjectID: intp(1), ImageID: intp(1), RatingScore: floatp(2)},
		{VirtualObject: "A", ObjectID: intp(1), ImageID: intp(1), RatingScore: floatp(5)},
		{VirtualObject: "Z", ObjectID: intp(1), ImageID: intp(1), RatingScore: floatp(9)},
		{VirtualObject: "A", ObjectID: intp(1), ImageID: intp(2), RatingScore: floatp(9)},
		{VirtualObject: "A", ObjectID: intp(1), ImageID: intp(1), RatingScore: floatp(-3)},
	}
	diag := &Diagnostics{}

	m := BuildRealismMatrix(ratings, virtual, physical, diag)

	assert.Equal(t, 5.0, m.At(0, 0))
	assert.Equal(t, 3, diag.Count())
	assert.Equal(t, 3, logs.FilterLoggerName("loader").Len())
}

func TestBuildInteractionMatrices_MeanOfSubRatings(t *testing.T) {
	virtual := []VirtualObject{{Name: "A", Index: 0}, {Name: "B", Index: 1}}
	physical := []PhysicalObject{
		{Key: PhysicalKey{ObjectID: 0, ImageID: 0}, Index: 0},
		{Key: PhysicalKey{ObjectID: 1, ImageID: 0}, Index: 1},
	}
	tree := &AnnotationTree{RelationshipAnnotations: []RelationshipAnnotation{{ContactObject: "A", SubstrateObject: "B"}}}
	ratings := []RelationshipRating{{
		ContactObjectID: intp(1), ContactImageID: intp(0),
		SubstrateObjectID: intp(0), SubstrateImageID: intp(0),
		HarmonyRating: floatp(1), ExpressivityRating: floatp(2), RealismRating: floatp(6),
	}, {
		ContactObjectID: intp(0), ContactImageID: intp(0),
		SubstrateObjectID: intp(1), SubstrateImageID: intp(0),
		HarmonyRating: floatp(1),
	}}
	diag := &Diagnostics{}

	exists, rating := BuildInteractionMatrices(tree, ratings, virtual, physical, diag)

	assert.Equal(t, [][]float64{{0, 1}, {0, 0}}, exists.ToRows())
	assert.Equal(t, [][]float64{{0, 0}, {3, 0}}, rating.ToRows())
	assert.Equal(t, 1, diag.CountFor(DocRelationshipRatings))
}

func TestPhysicalDatabase_PreservesKeyOrder(t *testing.T) {
	var db PhysicalDatabase
	err := db.UnmarshalJSON([]byte(`{"9": [{"object_id": 1, "object": "a"}], "2": [], "10": [{"object_id": 0, "object": "b"}]}`))
	require.NoError(t, err)

	var keys []string
	for _, img := range db {
		keys = append(keys, img.ImageKey)
	}
	assert.Equal(t, []string{"9", "2", "10"}, keys)

	assert.Error(t, db.UnmarshalJSON([]byte(`[]`)))
}

func TestNewProblem_ValidatesShapes(t *testing.T) {
	virtual := []VirtualObject{{Name: "A"}}
	physical := []PhysicalObject{{Name: "P"}, {Name: "Q", Index: 1}}

	p, err := NewProblem(virtual, physical, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Realism.Cols())
	assert.False(t, p.HasInteractions())
	assert.Equal(t, []float64{0}, p.Priorities())

	_, err = NewProblem(virtual, physical, NewMatrix(2, 2), nil, nil)
	assert.ErrorIs(t, err, ErrShape)
}

func TestMatrix_RowHelpers(t *testing.T) {
	m, err := MatrixFromRows([][]float64{{1, 3, 3}, {0, 0, 0}})
	require.NoError(t, err)

	assert.Equal(t, 3.0, m.RowMax(0))
	assert.Equal(t, 1, m.RowArgMax(0), "first maximum wins")
	assert.Equal(t, 0, m.RowArgMax(1))
	assert.False(t, m.IsZero())

	c := m.Clone()
	c.Set(0, 0, 10)
	assert.Equal(t, 1.0, m.At(0, 0))

	_, err = MatrixFromRows([][]float64{{1}, {1, 2}})
	assert.ErrorIs(t, err, ErrShape)

	empty := NewMatrix(1, 0)
	assert.Equal(t, 0.0, empty.RowMax(0))
	assert.Equal(t, -1, empty.RowArgMax(0))
}

func TestMatrix_DotProducts(t *testing.T) {
	r, err := MatrixFromRows([][]float64{{4, 0, 1}, {1.5, 7, 2}})
	require.NoError(t, err)
	x, err := MatrixFromRows([][]float64{{0, 0, 1}, {0, 1, 0}})
	require.NoError(t, err)

	assert.Equal(t, 8.0, r.Dot(x))
	assert.Equal(t, 1.0, r.RowDot(0, x))
	assert.Equal(t, 7.0, r.RowDot(1, x))
	assert.Panics(t, func() { r.Dot(NewMatrix(2, 2)) })
}

func TestMatrix_ZeroSizedShapes(t *testing.T) {
	for _, shape := range [][2]int{{0, 0}, {0, 3}, {3, 0}} {
		m := NewMatrix(shape[0], shape[1])
		assert.Equal(t, shape[0], m.Rows())
		assert.Equal(t, shape[1], m.Cols())
		assert.True(t, m.IsZero())
		assert.Equal(t, 0.0, m.Dot(NewMatrix(shape[0], shape[1])))
		assert.Len(t, m.ToRows(), shape[0])
		assert.Equal(t, shape, [2]int{m.Clone().Rows(), m.Clone().Cols()})
	}

	p, err := NewProblem([]VirtualObject{{Name: "A"}}, nil, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Realism.Cols())
	assert.Equal(t, 0.0, p.Realism.RowMax(0))
}
