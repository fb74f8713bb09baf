// Package loam stores workspace trees as a directory of Markdown documents managed by Loam.
//
// Every node becomes one document whose frontmatter carries its id, name and type,
// and whose body is the file content. A manifest document records the top-level
// order and the open file, so an archive can be edited by hand and loaded back.
package loam

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/codeshell/pkg/domain"
	"github.com/aretw0/codeshell/pkg/seed"
	"github.com/aretw0/codeshell/pkg/tree"
	"github.com/aretw0/loam"
)

// ErrNoManifest is returned when an archive has no workspace manifest.
var ErrNoManifest = errors.New("archive has no workspace manifest")

// Archive adapts a Loam repository to workspace import and export.
type Archive struct {
	Repo *loam.TypedRepository[NodeMetadata]
}

// New wraps an existing typed repository.
func New(repo *loam.TypedRepository[NodeMetadata]) *Archive {
	return &Archive{Repo: repo}
}

// Open initializes an archive rooted at dir, creating the directory when needed.
// A read-only archive never writes to disk.
func Open(dir string, readOnly bool) (*Archive, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	if !readOnly {
		if err := os.MkdirAll(absPath, 0755); err != nil {
			return nil, fmt.Errorf("failed to create archive dir: %w", err)
		}
	}

	opts := []loam.Option{loam.WithVersioning(false)}
	if readOnly {
		opts = append(opts, loam.WithReadOnly(true))
	}
	repo, err := loam.Init(absPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[NodeMetadata](repo)), nil
}

// Export writes every node of the workspace and the manifest.
// Documents of nodes no longer in the tree are left on disk and ignored by Import.
func (a *Archive) Export(ctx context.Context, ws *domain.Workspace) error {
	var err error
	tree.Walk(ws.Tree, func(n *domain.FileNode, _ []*domain.FileNode) bool {
		meta := NodeMetadata{ID: n.ID, Name: n.Name, Type: string(n.Kind)}
		if n.IsFolder() {
			meta.Children = childIDs(n.Children)
		}
		err = a.Repo.Save(ctx, &loam.DocumentModel[NodeMetadata]{
			ID:      docID(n.ID),
			Content: n.Content,
			Data:    meta,
		})
		if err != nil {
			err = fmt.Errorf("loam save failed for %s: %w", n.ID, err)
			return false
		}
		return true
	})
	if err != nil {
		return err
	}

	manifest := NodeMetadata{
		ID:       ManifestID,
		Name:     ws.ID,
		Type:     TypeManifest,
		Children: childIDs(ws.Tree),
		Selected: ws.Editor.SelectedFileID,
	}
	if err := a.Repo.Save(ctx, &loam.DocumentModel[NodeMetadata]{ID: ManifestID, Data: manifest}); err != nil {
		return fmt.Errorf("loam save failed for manifest: %w", err)
	}
	return nil
}

// Import rebuilds the tree reachable from the manifest.
// Documents are discovered with List and file bodies are read one by one.
func (a *Archive) Import(ctx context.Context) (*seed.Seed, error) {
	docs, err := a.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	var manifest *NodeMetadata
	nodes := make(map[string]NodeMetadata, len(docs))
	contents := make(map[string]string, len(docs))
	for _, doc := range docs {
		meta := doc.Data
		if meta.Type == TypeManifest {
			m := meta
			manifest = &m
			continue
		}
		if meta.ID == "" {
			meta.ID = strings.TrimPrefix(trimExtension(doc.ID), "node-")
		}
		if _, ok := nodes[meta.ID]; ok {
			return nil, fmt.Errorf("collision detected: node %q is defined twice (%s)", meta.ID, doc.ID)
		}
		nodes[meta.ID] = meta
		if meta.Type != TypeFile {
			continue
		}
		// List only carries frontmatter; the body needs a Get.
		full, err := a.Repo.Get(ctx, doc.ID)
		if err != nil {
			return nil, fmt.Errorf("loam get failed for %s: %w", doc.ID, err)
		}
		contents[meta.ID] = full.Content
	}
	if manifest == nil {
		return nil, ErrNoManifest
	}

	b := &importer{nodes: nodes, contents: contents, seen: map[string]bool{}}
	forest, err := b.build(manifest.Children)
	if err != nil {
		return nil, err
	}
	if err := tree.Validate(forest); err != nil {
		return nil, err
	}

	s := &seed.Seed{Name: manifest.Name, Tree: forest}
	if manifest.Selected != "" && tree.Find(forest, manifest.Selected).IsFile() {
		s.Selected = manifest.Selected
	}
	return s, nil
}

// Watch emits the id of every changed document until ctx is done.
func (a *Archive) Watch(ctx context.Context) (<-chan string, error) {
	events, err := a.Repo.Watch(ctx, "**/*.md")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- evt.ID:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}

type importer struct {
	nodes    map[string]NodeMetadata
	contents map[string]string
	seen     map[string]bool
}

func (b *importer) build(ids []string) ([]*domain.FileNode, error) {
	out := make([]*domain.FileNode, 0, len(ids))
	for _, id := range ids {
		meta, ok := b.nodes[id]
		if !ok {
			return nil, fmt.Errorf("import %s: %w", id, domain.ErrNodeNotFound)
		}
		if b.seen[id] {
			return nil, fmt.Errorf("import %s: %w", id, domain.ErrDuplicateID)
		}
		b.seen[id] = true

		kind := domain.NodeKind(meta.Type)
		if !kind.Valid() {
			return nil, fmt.Errorf("import %s: unknown type %q", id, meta.Type)
		}
		n := &domain.FileNode{ID: id, Name: meta.Name, Kind: kind}
		if kind == domain.KindFolder {
			children, err := b.build(meta.Children)
			if err != nil {
				return nil, err
			}
			n.Children = children
		} else {
			n.Content = b.contents[id]
		}
		out = append(out, n)
	}
	return out, nil
}

func childIDs(nodes []*domain.FileNode) []string {
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	return ids
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}
