package vector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efebarandurmaz/varnet/internal/document"
	"github.com/efebarandurmaz/varnet/internal/scan"
)

type memoryRepo struct {
	points    []Point
	searched  []float32
	topK      int
	upsertErr error
}

func (m *memoryRepo) Upsert(_ context.Context, points []Point) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.points = append(m.points, points...)
	return nil
}

func (m *memoryRepo) Search(_ context.Context, vec []float32, topK int) ([]SearchResult, error) {
	m.searched, m.topK = vec, topK
	return []SearchResult{{ID: "hit", Score: 0.1}}, nil
}

func (m *memoryRepo) Close() error { return nil }

func colorReport() *scan.Report {
	brand := "v-brand"
	return &scan.Report{Variables: []*scan.VariableReport{
		{
			ID: "v-brand", Name: "brand", Type: document.TypeColor, Collection: "Theme",
			Modes:      []string{"Light", "Dark"},
			Values:     map[string]string{"Light": "#FF0000", "Dark": "#00000080"},
			RawValues:  map[string]any{"Light": "#FF0000", "Dark": "#00000080"},
			References: map[string]*string{"Light": nil, "Dark": nil},
		},
		{
			ID: "v-primary", Name: "primary", Type: document.TypeColor, Collection: "Theme",
			Modes:      []string{"Light", "Dark"},
			Values:     map[string]string{"Light": "#FF0000", "Dark": "alias"},
			RawValues:  map[string]any{"Light": "#FF0000", "Dark": "alias"},
			References: map[string]*string{"Light": &brand, "Dark": nil},
		},
		{
			ID: "v-gap", Name: "gap", Type: document.TypeFloat, Collection: "Spacing",
			Modes:     []string{"Default"},
			RawValues: map[string]any{"Default": 8.0},
		},
	}}
}

func TestColorPoints(t *testing.T) {
	points := ColorPoints(colorReport())
	require.Len(t, points, 3, "unresolved alias and FLOAT variable are skipped")

	assert.Equal(t, []float32{1, 0, 0, 1}, points[0].Vector)
	assert.Equal(t, []float32{0, 0, 0, float32(0x80) / 255}, points[1].Vector)
	assert.Equal(t, "Dark", points[1].Metadata["mode"])
	assert.Equal(t, "#00000080", points[1].Metadata["hex"])

	assert.Equal(t, "v-primary", points[2].Metadata["variable_id"])
	assert.Equal(t, "v-brand", points[2].Metadata["alias_of"])
	_, aliased := points[0].Metadata["alias_of"]
	assert.False(t, aliased)
}

func TestPointID_Stable(t *testing.T) {
	a := PointID("v-brand", "Light")
	assert.Equal(t, a, PointID("v-brand", "Light"))
	assert.NotEqual(t, a, PointID("v-brand", "Dark"))
	assert.Len(t, a, 36)
}

func TestParseHex(t *testing.T) {
	tests := []struct {
		in   string
		want []float32
	}{
		{"#FF0000", []float32{1, 0, 0, 1}},
		{"f00", []float32{1, 0, 0, 1}},
		{"#00000000", []float32{0, 0, 0, 0}},
	}
	for _, tt := range tests {
		got, err := ParseHex(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "#12", "#GGGGGG"} {
		_, err := ParseHex(bad)
		assert.Error(t, err, bad)
	}
}

func TestIndexer(t *testing.T) {
	repo := &memoryRepo{}
	ix := NewIndexer(repo)

	n, err := ix.IndexReport(t.Context(), colorReport())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Len(t, repo.points, 3)

	n, err = ix.IndexReport(t.Context(), &scan.Report{})
	require.NoError(t, err)
	assert.Zero(t, n)

	res, err := ix.Nearest(t.Context(), "#FF0000", 0)
	require.NoError(t, err)
	assert.Len(t, res, 1)
	assert.Equal(t, 5, repo.topK)
	assert.Equal(t, []float32{1, 0, 0, 1}, repo.searched)

	_, err = ix.Nearest(t.Context(), "red", 3)
	assert.Error(t, err)
}

func TestIndexer_UpsertError(t *testing.T) {
	boom := errors.New("boom")
	ix := NewIndexer(&memoryRepo{upsertErr: boom})
	_, err := ix.IndexReport(t.Context(), colorReport())
	assert.ErrorIs(t, err, boom)
}
