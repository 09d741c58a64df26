/*
Package runner implements the interactive execution loop around a gameflow Engine.

It is the bridge between the engine and the outside world: it reads events
through a pluggable IOHandler, steps the instance, persists every committed
state to an optional StateStore and reports each new position back through
the same handler. A reload channel swaps in a recompiled engine without
losing the running instance.

# Key Components

  - Runner: the loop. Run returns when the instance terminates, input ends or
    the context is cancelled.
  - IOHandler: decouples how events are read and frames are shown.
  - TextHandler: interactive lines such as "roll roll=5"; an empty line is a tick.
  - JSONHandler: NDJSON frames out, {"name":...,"payload":{...}} events in.

# Usage

	r := runner.NewRunner(
		runner.WithEngine(engine),
		runner.WithInstanceID("player-1"),
		runner.WithStore(store),
		runner.WithHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)

	state, err := r.Run(ctx)
*/
package runner
