/*
Package codeshell is the core of an in-browser style file explorer and code editor.

It keeps a virtual file tree in memory, compiles typed and markup-flavoured script
into plain script, executes the result in an embedded interpreter with a captured
console, and tracks which file is open along with its unsaved buffer.

# Concept

All state lives in a Workspace value: the tree, the editor session and the console.
The tree is persistent (copy-on-write), so earlier snapshots stay valid and can be
read concurrently while new versions are produced. Presentation layers (the bundled
HTTP server, the MCP server, the CLI, or your own UI) call into a Shell, which
serializes the operations on each workspace.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/codeshell"
	)

	func main() {
		ctx := context.Background()
		shell := codeshell.New()

		// The default seed contains CODE_PROJECTS/App.js, already open.
		if _, err := shell.Open(ctx, "demo"); err != nil {
			log.Fatal(err)
		}

		ws, _, err := shell.Run(ctx, "demo")
		if err != nil {
			log.Fatal(err)
		}
		for _, rec := range ws.Console {
			fmt.Println(rec.Level, rec.Text)
		}
	}

# Execution model

Runs are synchronous and use a fresh interpreter each time. Only the ECMAScript
built-ins and an injected console are available; imports are not resolved. Runs are
bounded by the caller's context and a wall-clock timeout (5s by default, see
WithRunTimeout and CODESHELL_RUN_TIMEOUT).
*/
package codeshell
