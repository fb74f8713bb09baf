/*
Package dsl provides a fluent builder for constructing file trees in Go code.

It is the programmatic counterpart of the YAML seed files and is mostly used
for fixtures and the built-in sample workspace.

Example usage:

	b := dsl.New()

	project := b.Folder("1", "CODE_PROJECTS")
	project.File("2", "App.js").
		Content(`console.log("hi")`)
	project.Folder("3", "lib").
		File("4", "util.ts")

	t, err := b.Build()
*/
package dsl
