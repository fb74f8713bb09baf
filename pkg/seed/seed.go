// Package seed builds initial workspace trees from YAML or JSON documents.
//
// A seed looks like:
//
//	name: demo
//	selected: "2"
//	nodes:
//	  - id: "1"
//	    name: CODE_PROJECTS
//	    type: folder
//	    children:
//	      - id: "2"
//	        name: App.js
//	        content: console.log("hi")
//	      - notes.md
//	      - lib/
//
// Entries may be written in short form: a bare string is an empty file, or an
// empty folder when it ends with "/". Missing ids are filled in by the generator.
package seed

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/codeshell/internal/dto"
	"github.com/aretw0/codeshell/pkg/domain"
	"github.com/aretw0/codeshell/pkg/ports"
	"github.com/aretw0/codeshell/pkg/tree"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultSeed []byte

// Seed is a decoded workspace seed.
type Seed struct {
	Name string
	Tree domain.Tree
	// Selected is the id of the file opened on start ("" for none).
	Selected string
}

// Workspace creates a workspace from the seed, opening the selected file if any.
func (s *Seed) Workspace(id string) *domain.Workspace {
	ws := domain.NewWorkspace(id, s.Tree)
	if s.Selected != "" {
		if n := tree.Find(s.Tree, s.Selected); n.IsFile() {
			ws.Editor = ws.Editor.Open(n)
		}
	}
	return ws
}

// Default returns the built-in sample workspace: a CODE_PROJECTS folder holding App.js.
func Default() *Seed {
	s, err := Parse(defaultSeed, "default.yaml", nil)
	if err != nil {
		panic(fmt.Sprintf("seed: built-in default is invalid: %v", err))
	}
	return s
}

// Load reads a seed file. The format is chosen by extension: .json is JSON, anything else YAML.
func Load(path string, ids ports.IDGenerator) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed: %w", err)
	}
	return Parse(data, filepath.Base(path), ids)
}

// Parse decodes a seed document. ids may be nil when every entry carries an id.
func Parse(data []byte, name string, ids ports.IDGenerator) (*Seed, error) {
	var raw map[string]any
	if strings.EqualFold(filepath.Ext(name), ".json") {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
	}

	var file dto.SeedFile
	if err := mapstructure.WeakDecode(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", name, err)
	}

	b := &builder{ids: ids}
	for _, entry := range file.Nodes {
		if err := b.add(tree.RootID, entry); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	if err := tree.Validate(b.tree); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	if file.Selected != "" && !tree.Find(b.tree, file.Selected).IsFile() {
		return nil, fmt.Errorf("%s: selected %q is not a file in the tree", name, file.Selected)
	}

	return &Seed{Name: file.Name, Tree: b.tree, Selected: file.Selected}, nil
}

type builder struct {
	ids  ports.IDGenerator
	tree domain.Tree
}

func (b *builder) add(parentID string, entry any) error {
	var sn dto.SeedNode

	switch v := entry.(type) {
	case string:
		sn.Name = v
		sn.Type = string(domain.KindFile)
		if strings.HasSuffix(v, "/") {
			sn.Name = strings.TrimSuffix(v, "/")
			sn.Type = string(domain.KindFolder)
		}
	case map[string]any, map[any]any:
		if err := mapstructure.WeakDecode(v, &sn); err != nil {
			return fmt.Errorf("failed to decode node: %w", err)
		}
	default:
		return fmt.Errorf("invalid node definition type: %T", v)
	}

	kind := domain.NodeKind(sn.Type)
	switch {
	case sn.Type == "" && len(sn.Children) > 0:
		kind = domain.KindFolder
	case sn.Type == "":
		kind = domain.KindFile
	case !kind.Valid():
		return fmt.Errorf("node %q: unknown type %q", sn.Name, sn.Type)
	}

	if sn.ID == "" {
		if b.ids == nil {
			return fmt.Errorf("node %q has no id and no generator is configured", sn.Name)
		}
		sn.ID = b.ids.NewID()
	}

	node := tree.NewNode(sn.ID, kind)
	if sn.Name != "" {
		node.Name = sn.Name
	}
	if kind == domain.KindFile {
		node.Content = sn.Content
	} else if sn.Content != "" {
		return fmt.Errorf("folder %q cannot have content", node.Name)
	}
	if kind == domain.KindFile && len(sn.Children) > 0 {
		return fmt.Errorf("file %q cannot have children", node.Name)
	}

	var err error
	b.tree, err = tree.Add(b.tree, parentID, node)
	if err != nil {
		return err
	}
	for _, child := range sn.Children {
		if err := b.add(sn.ID, child); err != nil {
			return err
		}
	}
	return nil
}
