/*
Package gameflow is a deterministic flow-graph engine for game logic: quests,
dialogue, encounters and any other progression a designer wires as a graph.

Designers author a graph of typed nodes (Entry, State, Condition, Action, Exit)
connected through typed ports. The graph is validated and compiled into an
immutable Flow, and the engine advances each running instance one transition
per Step, never mutating the state it is given.

# Concept

The Flow is shared by every instance and never changes. Each instance owns a
FlowState (cursor, variables, bounded history) that the host keeps wherever it
wants: in memory, on disk, in Redis or Badger through pkg/session. Conditions
and actions are named behaviors bound when the engine is created, so a flow
that names a missing behavior fails before any instance starts.

# Usage

	eng, err := gameflow.LoadFile(ctx, "quests/intro.yaml")
	if err != nil {
		log.Fatal(err)
	}

	state, err := eng.Start(ctx, "player-1", map[string]any{"gold": 0})
	if err != nil {
		log.Fatal(err)
	}

	// Hosts feed game events; an empty event is a tick.
	state, err = eng.Step(ctx, state, domain.Event{Name: "talk"})
	if err != nil {
		log.Fatal(err)
	}

Graphs can also be built in code with pkg/dsl and compiled with Compile.
*/
package gameflow
