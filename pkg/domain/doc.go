/*
Package domain contains the core domain models of the storyline engine.

It defines the entities the step-progression state machine works with: the immutable
story steps, the per-session state (cursor and choice log), the outcome of a choice,
and the render instructions handed back to transports. This package is kept pure and
free of I/O or persistence concerns.

# Key Entities

  - Step: one point of the linear story, with two display options.
  - State: the runtime snapshot of a session (Cursor and Choices).
  - Result: what happened when a choice was submitted (next step, stale or completed).
  - Event: a structured inbound request produced by a transport.
  - Render: a structural description of what the transport should show.
*/
package domain
