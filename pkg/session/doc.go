/*
Package session serializes access to workspaces kept in a ports.WorkspaceStore.

The workspace runtime is a pure function of workspace values. When the core is
hosted by a concurrent server (HTTP, MCP), the Manager guarantees that read-modify-write
cycles on the same workspace never interleave, while different workspaces proceed in parallel.
*/
package session
