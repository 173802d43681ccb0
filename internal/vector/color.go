package vector

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/efebarandurmaz/varnet/internal/document"
	"github.com/efebarandurmaz/varnet/internal/scan"
)

// Dimensions of a colour embedding: r, g, b, a in [0,1].
const Dimensions = 4

var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://varnet/colors"))

// PointID derives a stable point id for one mode of a variable, so repeated
// indexing overwrites instead of duplicating.
func PointID(variableID, mode string) string {
	return uuid.NewSHA1(pointNamespace, []byte(variableID+"\x00"+mode)).String()
}

// ColorPoints builds one point per resolved colour slot of the COLOR
// variables in r. Placeholder slots ("alias", "N/A") are skipped.
func ColorPoints(r *scan.Report) []Point {
	if r == nil {
		return nil
	}
	var points []Point
	for _, v := range r.Variables {
		if v.Type != document.TypeColor {
			continue
		}
		for _, mode := range v.Modes {
			hex, ok := v.RawValues[mode].(string)
			if !ok {
				continue
			}
			vec, err := ParseHex(hex)
			if err != nil {
				continue
			}
			meta := map[string]string{
				"variable_id": v.ID,
				"name":        v.Name,
				"collection":  v.Collection,
				"mode":        mode,
				"hex":         hex,
			}
			if ref := v.References[mode]; ref != nil {
				meta["alias_of"] = *ref
			}
			points = append(points, Point{ID: PointID(v.ID, mode), Vector: vec, Metadata: meta})
		}
	}
	return points
}

// ParseHex converts #RGB, #RRGGBB or #RRGGBBAA into an embedding.
func ParseHex(s string) ([]float32, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 && len(h) != 8 {
		return nil, fmt.Errorf("invalid hex colour %q", s)
	}
	vec := []float32{0, 0, 0, 1}
	for i := 0; i < len(h)/2; i++ {
		n, err := strconv.ParseUint(h[2*i:2*i+2], 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid hex colour %q: %w", s, err)
		}
		vec[i] = float32(n) / 255
	}
	return vec, nil
}

// Indexer writes report colours into a repository and answers nearest-colour
// queries.
type Indexer struct {
	repo Repository
}

// NewIndexer creates an Indexer.
func NewIndexer(repo Repository) *Indexer {
	return &Indexer{repo: repo}
}

// IndexReport upserts the colour points of r and returns how many were written.
func (ix *Indexer) IndexReport(ctx context.Context, r *scan.Report) (int, error) {
	points := ColorPoints(r)
	if len(points) == 0 {
		return 0, nil
	}
	if err := ix.repo.Upsert(ctx, points); err != nil {
		return 0, fmt.Errorf("upsert colours: %w", err)
	}
	return len(points), nil
}

// Nearest returns the topK indexed colour slots closest to hex.
func (ix *Indexer) Nearest(ctx context.Context, hex string, topK int) ([]SearchResult, error) {
	vec, err := ParseHex(hex)
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 5
	}
	return ix.repo.Search(ctx, vec, topK)
}
