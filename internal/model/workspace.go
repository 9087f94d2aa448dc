package model

// RecentFile is an entry of the recently opened files list.
type RecentFile struct {
	Path       string `json:"path"`
	DocumentID string `json:"documentId,omitempty"`
	OpenedAt   string `json:"openedAt"`
}

// WorkspaceSettings are the persisted workspace preferences.
type WorkspaceSettings struct {
	MaxOpenDocuments int              `json:"maxOpenDocuments"`
	AutoSaveEnabled  bool             `json:"autoSaveEnabled"`
	DefaultNodeTypes []NodeTypeConfig `json:"defaultNodeTypes"`
	DefaultEdgeTypes []EdgeTypeConfig `json:"defaultEdgeTypes"`
	RecentFiles      []RecentFile     `json:"recentFiles"`
}

// WorkspaceRecord is the persisted workspace index. Document contents are
// stored separately under their own keys.
type WorkspaceRecord struct {
	WorkspaceID      string            `json:"workspaceId"`
	WorkspaceName    string            `json:"workspaceName"`
	DocumentOrder    []string          `json:"documentOrder"`
	ActiveDocumentID *string           `json:"activeDocumentId"`
	Settings         WorkspaceSettings `json:"settings"`
}

// MaxRecentFiles bounds the recent files list.
const MaxRecentFiles = 10

// PushRecent moves f to the front of the recent list, dropping any older
// entry with the same path and trimming to MaxRecentFiles.
func (s *WorkspaceSettings) PushRecent(f RecentFile) {
	list := make([]RecentFile, 0, len(s.RecentFiles)+1)
	list = append(list, f)
	for _, r := range s.RecentFiles {
		if r.Path != f.Path {
			list = append(list, r)
		}
	}
	if len(list) > MaxRecentFiles {
		list = list[:MaxRecentFiles]
	}
	s.RecentFiles = list
}
