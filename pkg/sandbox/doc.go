/*
Package sandbox executes compiled script inside an embedded ECMAScript interpreter
and captures everything it writes to the console.

Every run gets a fresh interpreter. The compiled code is wrapped in a function whose
only parameter is `console`, an object with log, info, warn and error methods.
No other host capability (timers, network, file system, module loading) is installed;
only the ECMAScript built-ins are reachable.

Each console call produces exactly one domain.ConsoleRecord. Arguments are rendered
individually and joined by a single space:

  - Error-like values render as their message.
  - Other objects and arrays render as two-space indented JSON, falling back to
    their string form when they cannot be serialized (cycles, functions).
  - Primitives render in their natural string form.

A thrown value, a syntax error in the compiled output or an interrupt always ends the
run with one error-level record. Runs are bounded by the caller's context and by an
optional wall-clock timeout.
*/
package sandbox
