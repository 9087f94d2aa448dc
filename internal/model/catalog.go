package model

import "constellation/internal/graph"

// Shape of an actor node.
type Shape string

const (
	ShapeRectangle        Shape = "rectangle"
	ShapeCircle           Shape = "circle"
	ShapeRoundedRectangle Shape = "roundedRectangle"
	ShapeEllipse          Shape = "ellipse"
	ShapePill             Shape = "pill"
)

// LineStyle of a relation edge.
type LineStyle string

const (
	LineSolid  LineStyle = "solid"
	LineDashed LineStyle = "dashed"
	LineDotted LineStyle = "dotted"
)

// LabelScope says which elements a label can be attached to.
type LabelScope string

const (
	ScopeActors    LabelScope = "actors"
	ScopeRelations LabelScope = "relations"
	ScopeBoth      LabelScope = "both"
)

// NodeTypeConfig is an actor type in the document catalog.
type NodeTypeConfig struct {
	ID          string `json:"id" validate:"required"`
	Label       string `json:"label" validate:"required"`
	Color       string `json:"color"`
	Shape       Shape  `json:"shape,omitempty" validate:"omitempty,oneof=rectangle circle roundedRectangle ellipse pill"`
	Icon        string `json:"icon,omitempty"`
	Description string `json:"description,omitempty"`
}

// EdgeTypeConfig is a relation type in the document catalog.
type EdgeTypeConfig struct {
	ID                    string               `json:"id" validate:"required"`
	Label                 string               `json:"label" validate:"required"`
	Color                 string               `json:"color"`
	Style                 LineStyle            `json:"style,omitempty" validate:"omitempty,oneof=solid dashed dotted"`
	DefaultDirectionality graph.Directionality `json:"defaultDirectionality,omitempty" validate:"omitempty,oneof=directed bidirectional undirected"`
}

// LabelConfig is a label in the document catalog. Actors and relations
// reference labels by id.
type LabelConfig struct {
	ID          string     `json:"id" validate:"required"`
	Name        string     `json:"name" validate:"required"`
	Color       string     `json:"color"`
	AppliesTo   LabelScope `json:"appliesTo,omitempty" validate:"omitempty,oneof=actors relations both"`
	Description string     `json:"description,omitempty"`
}

// DefaultNodeTypes is the actor catalog of a new document.
func DefaultNodeTypes() []NodeTypeConfig {
	return []NodeTypeConfig{
		{ID: "person", Label: "Person", Color: "#3b82f6", Shape: ShapeCircle, Icon: "Person"},
		{ID: "organization", Label: "Organization", Color: "#10b981", Shape: ShapeRectangle, Icon: "Business"},
		{ID: "system", Label: "System", Color: "#f59e0b", Shape: ShapeRoundedRectangle, Icon: "Computer"},
		{ID: "concept", Label: "Concept", Color: "#8b5cf6", Shape: ShapeEllipse, Icon: "Lightbulb"},
	}
}

// DefaultEdgeTypes is the relation catalog of a new document.
func DefaultEdgeTypes() []EdgeTypeConfig {
	return []EdgeTypeConfig{
		{ID: "collaborates", Label: "Collaborates", Color: "#3b82f6", Style: LineSolid, DefaultDirectionality: graph.Bidirectional},
		{ID: "reports-to", Label: "Reports To", Color: "#10b981", Style: LineSolid, DefaultDirectionality: graph.Directed},
		{ID: "depends-on", Label: "Depends On", Color: "#f59e0b", Style: LineDashed, DefaultDirectionality: graph.Directed},
		{ID: "influences", Label: "Influences", Color: "#8b5cf6", Style: LineDotted, DefaultDirectionality: graph.Directed},
	}
}

// CloneNodeTypes copies a node type catalog. Entries hold no references,
// so a slice copy is a full copy.
func CloneNodeTypes(in []NodeTypeConfig) []NodeTypeConfig {
	if in == nil {
		return nil
	}
	return append([]NodeTypeConfig{}, in...)
}

// CloneEdgeTypes copies an edge type catalog.
func CloneEdgeTypes(in []EdgeTypeConfig) []EdgeTypeConfig {
	if in == nil {
		return nil
	}
	return append([]EdgeTypeConfig{}, in...)
}

// CloneLabels copies a label catalog.
func CloneLabels(in []LabelConfig) []LabelConfig {
	if in == nil {
		return nil
	}
	return append([]LabelConfig{}, in...)
}
