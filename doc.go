/*
Package storyline is a linear conversational flow engine for chat bots.

A story is a fixed sequence of numbered steps. Each step offers two choices, A and B.
Any choice moves the user to the next step, so every journey has the same length and
ends on the same final step; only the recorded path differs.

# Architecture

The Engine applies a pure state machine (internal/runtime) to sessions held in a
ports.StateStore. Every mutation of a session runs under a per-session lock, so a user
double pressing a button advances exactly once and the second press is reported as
stale. Transports (Telegram, HTTP, MCP, terminal) never talk to the Engine directly:
they turn their wire format into a domain.Event and hand it to pkg/dispatch, which
returns render instructions.

# Usage

	st, err := story.LoadFile("story.json", story.DefaultTotalSteps)
	if err != nil {
		log.Fatal(err)
	}

	eng, err := storyline.New(st)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if _, err := eng.Start(ctx, "user-42"); err != nil {
		log.Fatal(err)
	}

	res, err := eng.Submit(ctx, "user-42", 0, domain.LabelA)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(res.Outcome) // next_step
*/
package storyline
