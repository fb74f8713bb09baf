/*
Package runner implements the interactive loop of the codeshell workspace.

It reads commands from a pluggable IOHandler, applies them to a workspace
through a Service and hands the Reply back to the handler for display.

# Key Components

  - Runner: the read, dispatch and reply loop.
  - IOHandler: decouples how commands arrive and how replies leave.
  - TextHandler: a prompt-driven handler for terminals and pipes.
  - JSONHandler: a JSON-Lines handler for scripted clients.

# Usage

	r := runner.New(
		runner.WithHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
		runner.WithWorkspace("default"),
	)

	if err := r.Run(ctx, shell); err != nil {
		log.Fatal(err)
	}
*/
package runner
