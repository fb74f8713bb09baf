/*
Package domain contains the core domain models of the code shell.

It defines the virtual file tree entities, the editing session, compiled artifacts and
console records. This package is kept pure and free of external dependencies
like I/O, transpilers or interpreters, following Hexagonal Architecture principles.

# Key Entities

  - FileNode / Tree: the forest of files and folders shown in the explorer.
  - EditorSession: the open file, its unsaved buffer and view toggles.
  - CompiledArtifact: executable script derived from a buffer.
  - ConsoleRecord: one captured log/info/warn/error emission.
  - Workspace: the explicit state object grouping all of the above.
*/
package domain
