package loam

// Document types stored in the frontmatter "type" key.
const (
	TypeManifest = "workspace"
	TypeFile     = "file"
	TypeFolder   = "folder"
)

// ManifestID is the document holding the top-level order and the open file.
const ManifestID = "workspace"

// NodeMetadata is the frontmatter of an archived document.
// The body of a file document is the file content.
type NodeMetadata struct {
	ID   string `json:"id" mapstructure:"id"`
	Name string `json:"name" mapstructure:"name"`
	Type string `json:"type" mapstructure:"type"`

	// Children lists child ids in display order. Set on folders and on the manifest.
	Children []string `json:"children,omitempty" mapstructure:"children"`

	// Selected is the open file. Only set on the manifest.
	Selected string `json:"selected,omitempty" mapstructure:"selected"`
}

func docID(nodeID string) string {
	return "node-" + nodeID
}
