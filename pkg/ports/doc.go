/*
Package ports defines the driven ports (interfaces) of the codeshell core.

These interfaces decouple the workspace runtime from concrete implementations,
so the transpiler, the script interpreter and the workspace storage can be
replaced or faked in tests.

# Key Interfaces

  - Transpiler: compiles typed/markup script into plain script.
  - Executor: runs compiled script with a captured console.
  - WorkspaceStore: keeps workspace values between requests.
  - DistributedLocker: serializes access to a workspace across replicas.
  - Clock and IDGenerator: sources of time and identifiers.
*/
package ports
