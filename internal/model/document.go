// Package model defines the persisted shapes of a constellation workspace:
// documents with their document-level catalogs, serialized timelines,
// lightweight document metadata and the workspace record.
package model

import (
	"time"
)

// AppName identifies documents written by this application. Documents with
// a different appName are rejected on load.
const AppName = "constellation-analyzer"

// SchemaVersion is the document format version written on save.
const SchemaVersion = "1.0.0"

// DocumentMeta is the metadata block embedded in every document.
type DocumentMeta struct {
	Version    string `json:"version"`
	AppName    string `json:"appName"`
	CreatedAt  string `json:"createdAt"`
	UpdatedAt  string `json:"updatedAt"`
	DocumentID string `json:"documentId"`
	Title      string `json:"title"`
}

// ConstellationDocument is the persisted unit. Catalogs (types, labels,
// tangibles) are document-level; only the actor/relation graph lives in
// timeline states.
type ConstellationDocument struct {
	Metadata     DocumentMeta       `json:"metadata"`
	NodeTypes    []NodeTypeConfig   `json:"nodeTypes"`
	EdgeTypes    []EdgeTypeConfig   `json:"edgeTypes"`
	Labels       []LabelConfig      `json:"labels"`
	Tangibles    []TangibleConfig   `json:"tangibles"`
	Bibliography *Bibliography      `json:"bibliography,omitempty"`
	Timeline     SerializedTimeline `json:"timeline"`
}

// Viewport is the last canvas position and zoom of a document.
type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// DocumentMetadata is the lightweight index record stored next to each
// document so the workspace can list documents without hydrating graphs.
type DocumentMetadata struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	IsDirty      bool      `json:"isDirty"`
	LastModified string    `json:"lastModified"`
	Viewport     *Viewport `json:"viewport,omitempty"`
	FileName     string    `json:"fileName,omitempty"`
}

// Timestamp formats t the way document timestamps are stored.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// NewDocument builds an empty document shell. The caller installs the
// timeline.
func NewDocument(id, title string, now time.Time, nodeTypes []NodeTypeConfig, edgeTypes []EdgeTypeConfig) *ConstellationDocument {
	ts := Timestamp(now)
	return &ConstellationDocument{
		Metadata: DocumentMeta{
			Version:    SchemaVersion,
			AppName:    AppName,
			CreatedAt:  ts,
			UpdatedAt:  ts,
			DocumentID: id,
			Title:      title,
		},
		NodeTypes: CloneNodeTypes(nodeTypes),
		EdgeTypes: CloneEdgeTypes(edgeTypes),
		Labels:    []LabelConfig{},
		Tangibles: []TangibleConfig{},
	}
}

// Normalize replaces nil catalogs with empty ones so the document encodes
// with JSON arrays.
func (d *ConstellationDocument) Normalize() {
	if d.NodeTypes == nil {
		d.NodeTypes = []NodeTypeConfig{}
	}
	if d.EdgeTypes == nil {
		d.EdgeTypes = []EdgeTypeConfig{}
	}
	if d.Labels == nil {
		d.Labels = []LabelConfig{}
	}
	if d.Tangibles == nil {
		d.Tangibles = []TangibleConfig{}
	}
}
