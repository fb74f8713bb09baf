package tree_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/aretw0/codeshell/pkg/domain"
	"github.com/aretw0/codeshell/pkg/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTree() domain.Tree {
	return domain.Tree{
		{
			ID:   "1",
			Name: "CODE_PROJECTS",
			Kind: domain.KindFolder,
			Children: []*domain.FileNode{
				{ID: "2", Name: "App.js", Kind: domain.KindFile, Content: "greet()"},
				{
					ID:   "3",
					Name: "lib",
					Kind: domain.KindFolder,
					Children: []*domain.FileNode{
						{ID: "4", Name: "util.ts", Kind: domain.KindFile},
					},
				},
			},
		},
		{ID: "5", Name: "README.md", Kind: domain.KindFile, Content: "# hi"},
	}
}

func TestNewNode_Defaults(t *testing.T) {
	f := tree.NewNode("a", domain.KindFile)
	assert.Equal(t, domain.DefaultFileName, f.Name)
	assert.Equal(t, "", f.Content)
	assert.Nil(t, f.Children)

	d := tree.NewNode("b", domain.KindFolder)
	assert.Equal(t, domain.DefaultFolderName, d.Name)
	assert.NotNil(t, d.Children)
	assert.Empty(t, d.Children)
}

func TestAdd(t *testing.T) {
	t.Run("under folder appends in order", func(t *testing.T) {
		orig := sampleTree()
		next, err := tree.Add(orig, "1", tree.NewNode("x", domain.KindFile))
		require.NoError(t, err)

		folder := tree.Find(next, "1")
		require.Len(t, folder.Children, 3)
		assert.Equal(t, "x", folder.Children[2].ID)

		// Previous snapshot is untouched.
		assert.Len(t, tree.Find(orig, "1").Children, 2)
		// Untouched siblings are shared.
		assert.Same(t, orig[1], next[1])
		assert.Same(t, tree.Find(orig, "3"), tree.Find(next, "3"))
	})

	t.Run("at root", func(t *testing.T) {
		orig := sampleTree()
		next, err := tree.Add(orig, tree.RootID, tree.NewNode("r", domain.KindFolder))
		require.NoError(t, err)
		require.Len(t, next, 3)
		assert.Equal(t, "r", next[2].ID)
		assert.Len(t, orig, 2)
	})

	t.Run("nested folder", func(t *testing.T) {
		next, err := tree.Add(sampleTree(), "3", tree.NewNode("y", domain.KindFile))
		require.NoError(t, err)
		assert.Equal(t, "CODE_PROJECTS/lib/new-file.txt", tree.Path(next, "y"))
	})

	t.Run("missing parent leaves tree identical", func(t *testing.T) {
		orig := sampleTree()
		next, err := tree.Add(orig, "nope", tree.NewNode("z", domain.KindFolder))
		assert.ErrorIs(t, err, domain.ErrNodeNotFound)
		assert.Equal(t, tree.Count(orig), tree.Count(next))
		assert.Equal(t, tree.IDs(orig), tree.IDs(next))
		assert.True(t, domain.SameTree(orig, next))
	})

	t.Run("file parent is rejected", func(t *testing.T) {
		orig := sampleTree()
		next, err := tree.Add(orig, "2", tree.NewNode("z", domain.KindFile))
		assert.ErrorIs(t, err, domain.ErrNotAFolder)
		assert.True(t, domain.SameTree(orig, next))
	})

	t.Run("duplicate id is rejected", func(t *testing.T) {
		_, err := tree.Add(sampleTree(), "1", tree.NewNode("4", domain.KindFile))
		assert.ErrorIs(t, err, domain.ErrDuplicateID)
	})
}

func TestRename(t *testing.T) {
	orig := sampleTree()

	next, err := tree.Rename(orig, "4", "helpers.ts")
	require.NoError(t, err)
	assert.Equal(t, "helpers.ts", tree.Find(next, "4").Name)
	assert.Equal(t, "util.ts", tree.Find(orig, "4").Name)

	t.Run("same name is identity", func(t *testing.T) {
		same, err := tree.Rename(orig, "2", "App.js")
		assert.ErrorIs(t, err, domain.ErrInvalidRename)
		assert.True(t, domain.SameTree(orig, same))
	})

	t.Run("blank name is ignored", func(t *testing.T) {
		same, err := tree.Rename(orig, "2", "   ")
		assert.ErrorIs(t, err, domain.ErrInvalidRename)
		assert.True(t, domain.SameTree(orig, same))
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := tree.Rename(orig, "missing", "a")
		assert.ErrorIs(t, err, domain.ErrNodeNotFound)
	})
}

func TestSetContent(t *testing.T) {
	orig := sampleTree()
	const text = "const x: number = 1;\n"

	next, err := tree.SetContent(orig, "4", text)
	require.NoError(t, err)
	assert.Equal(t, text, tree.Find(next, "4").Content)
	assert.Equal(t, "", tree.Find(orig, "4").Content)

	_, err = tree.SetContent(orig, "3", text)
	assert.ErrorIs(t, err, domain.ErrNotAFile)

	_, err = tree.SetContent(orig, "missing", text)
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)
}

func TestDelete(t *testing.T) {
	orig := sampleTree()

	next, removed := tree.Delete(orig, "3")
	require.NotNil(t, removed)
	assert.Equal(t, "3", removed.ID)
	assert.Nil(t, tree.Find(next, "3"))
	assert.Nil(t, tree.Find(next, "4"), "subtree is removed with its parent")
	assert.True(t, tree.Contains(removed, "4"))
	assert.NotNil(t, tree.Find(orig, "4"))

	again, removedAgain := tree.Delete(next, "3")
	assert.Nil(t, removedAgain)
	assert.True(t, domain.SameTree(next, again), "second delete is a no-op")

	top, removedTop := tree.Delete(orig, "5")
	require.NotNil(t, removedTop)
	assert.Len(t, top, 1)
}

func TestQueries(t *testing.T) {
	tr := sampleTree()

	assert.Equal(t, 5, tree.Count(tr))
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, tree.IDs(tr))
	assert.Equal(t, "CODE_PROJECTS/lib/util.ts", tree.Path(tr, "4"))
	assert.Equal(t, "", tree.Path(tr, "missing"))
	assert.Equal(t, "4", tree.FindPath(tr, "/CODE_PROJECTS/lib/util.ts").ID)
	assert.Nil(t, tree.FindPath(tr, "CODE_PROJECTS/nope"))
	assert.Equal(t, "3", tree.Parent(tr, "4").ID)
	assert.Nil(t, tree.Parent(tr, "1"))
	assert.Len(t, tree.Files(tr), 3)
	assert.False(t, tree.Contains(nil, "1"))
	assert.Equal(t, []string{
		"CODE_PROJECTS/",
		"CODE_PROJECTS/App.js",
		"CODE_PROJECTS/lib/",
		"CODE_PROJECTS/lib/util.ts",
		"README.md",
	}, tree.Paths(tr))
	assert.Empty(t, tree.Paths(nil))
}

func TestValidate(t *testing.T) {
	require.NoError(t, tree.Validate(sampleTree()))

	bad := domain.Tree{
		{ID: "1", Name: "a", Kind: domain.KindFile},
		{ID: "1", Name: " ", Kind: "symlink"},
	}
	err := tree.Validate(bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDuplicateID)
	assert.Contains(t, err.Error(), "empty name")
	assert.Contains(t, err.Error(), "unknown kind")
}

// TestRandomOperations_UniqueIDs applies random add/rename/delete/set-content sequences
// and checks the structural invariants after every step.
func TestRandomOperations_UniqueIDs(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		tr := sampleTree()
		next := 100

		for step := 0; step < 60; step++ {
			ids := tree.IDs(tr)
			pick := func() string {
				if len(ids) == 0 || rng.Intn(6) == 0 {
					return fmt.Sprintf("ghost-%d", rng.Intn(3))
				}
				return ids[rng.Intn(len(ids))]
			}

			switch rng.Intn(4) {
			case 0:
				kind := domain.KindFile
				if rng.Intn(2) == 0 {
					kind = domain.KindFolder
				}
				parent := pick()
				if rng.Intn(5) == 0 {
					parent = tree.RootID
				}
				tr, _ = tree.Add(tr, parent, tree.NewNode(fmt.Sprintf("n%d", next), kind))
				next++
			case 1:
				tr, _ = tree.Rename(tr, pick(), fmt.Sprintf("name-%d", rng.Intn(10)))
			case 2:
				tr, _ = tree.Delete(tr, pick())
			case 3:
				tr, _ = tree.SetContent(tr, pick(), "x")
			}

			require.NoError(t, tree.Validate(tr), "round %d step %d", round, step)
		}
	}
}
