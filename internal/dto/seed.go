package dto

// SeedFile is the document shape of a workspace seed (YAML or JSON).
// It uses "mapstructure" tags so both decoders share a single definition.
type SeedFile struct {
	Name     string `json:"name" mapstructure:"name"`
	Selected string `json:"selected" mapstructure:"selected"`
	// Nodes holds the top-level entries. Each entry is either a SeedNode map
	// or a bare string (a file name, or a folder name when it ends with "/").
	Nodes []any `json:"nodes" mapstructure:"nodes"`
}

// SeedNode is the long form of a tree entry.
type SeedNode struct {
	ID       string `json:"id" mapstructure:"id"`
	Name     string `json:"name" mapstructure:"name"`
	Type     string `json:"type" mapstructure:"type"`
	Content  string `json:"content" mapstructure:"content"`
	Children []any  `json:"children" mapstructure:"children"`
}
