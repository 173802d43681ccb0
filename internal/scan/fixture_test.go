package scan

import (
	"context"
	"errors"

	"github.com/efebarandurmaz/varnet/internal/document"
)

var (
	modeLight = document.Mode{ID: "m1", Name: "Light"}
	modeDark  = document.Mode{ID: "m2", Name: "Dark"}
)

func themeCollection() *document.Collection {
	return &document.Collection{ID: "c-theme", Name: "Theme", Modes: []document.Mode{modeLight, modeDark}}
}

func variable(id string, t document.VariableType, light, dark document.Value) *document.Variable {
	return &document.Variable{
		ID:           id,
		Name:         "var/" + id,
		Type:         t,
		CollectionID: "c-theme",
		ValuesByMode: map[string]document.Value{modeLight.ID: light, modeDark.ID: dark},
	}
}

func node(id string, kind document.NodeKind, bindings map[string]document.Binding, children ...*document.Node) *document.Node {
	return &document.Node{ID: id, Kind: kind, Name: "node " + id, Bindings: bindings, Children: children}
}

func page(id string, children ...*document.Node) *document.Node {
	return &document.Node{ID: id, Kind: document.KindPage, Name: "Page " + id, Children: children}
}

// sampleDocument has a primitive colour aliased by a semantic colour, a
// spacing float and a font string, bound across component, instance and
// detached nodes.
//
//	brand   <- primary (both modes)
//	spacing <- muted (Light only, crosses types)
//	ghost aliases a variable that no longer exists
func sampleDocument() *document.Document {
	vars := []*document.Variable{
		variable("brand", document.TypeColor, document.RGB(1, 0, 0), document.RGBA(0, 0, 0, 0.5)),
		variable("primary", document.TypeColor, document.AliasValue("brand"), document.AliasValue("brand")),
		variable("spacing", document.TypeFloat, document.FloatValue(8), document.FloatValue(12.5)),
		variable("font", document.TypeString, document.StringValue("Inter"), document.StringValue("Inter")),
		variable("muted", document.TypeColor, document.AliasValue("spacing"), document.RGB(0.5, 0.5, 0.5)),
		variable("ghost", document.TypeColor, document.AliasValue("deleted"), document.RGB(0, 0, 1)),
	}

	tree := &document.Node{ID: "0:0", Kind: document.KindDocument, Children: []*document.Node{
		page("p1",
			node("button", document.KindComponent, map[string]document.Binding{
				"fills":   document.List("primary", "brand"),
				"padding": document.Single("spacing"),
			},
				node("label", document.KindText, map[string]document.Binding{
					"fills":      document.Single("primary"),
					"fontFamily": document.Single("font"),
				}),
			),
			node("button-1", document.KindInstance, map[string]document.Binding{
				"fills": document.Single("primary"),
			}),
		),
		page("p2",
			node("card", document.KindFrame, map[string]document.Binding{
				"fills":   document.List("brand", "brand"),
				"strokes": document.Single("spacing"),
			}),
			&document.Node{ID: "anon", Kind: document.KindRectangle, Bindings: map[string]document.Binding{
				"fills": document.Single("brand"),
			}},
		),
	}}

	return &document.Document{
		Root:        tree,
		Variables:   vars,
		Collections: []*document.Collection{themeCollection()},
	}
}

var errUnavailable = errors.New("provider unavailable")

// failingProvider fails the operation named by failOn.
type failingProvider struct {
	*document.MemoryProvider
	failOn string
}

func (p *failingProvider) Variables(ctx context.Context) ([]*document.Variable, error) {
	if p.failOn == "variables" {
		return nil, errUnavailable
	}
	return p.MemoryProvider.Variables(ctx)
}

func (p *failingProvider) Collections(ctx context.Context) ([]*document.Collection, error) {
	if p.failOn == "collections" {
		return nil, errUnavailable
	}
	return p.MemoryProvider.Collections(ctx)
}

func (p *failingProvider) Pages(ctx context.Context) ([]*document.Node, error) {
	if p.failOn == "pages" {
		return nil, errUnavailable
	}
	return p.MemoryProvider.Pages(ctx)
}

func (p *failingProvider) VariableByID(ctx context.Context, id string) (*document.Variable, bool, error) {
	if p.failOn == "lookup" {
		return nil, false, errUnavailable
	}
	return p.MemoryProvider.VariableByID(ctx, id)
}
