/*
Package convo is a client SDK for a hosted conversational runtime.

A conversation advances in turns. Each turn sends the current session state and
one user request to the runtime and receives the next state plus an ordered list
of traces: speech, choices, visuals, audio, diagram markers and the end marker.
The SDK owns the local side of that loop: it keeps the state between turns,
decodes the traces into typed values and delivers them, in order, to the
handlers the host registered.

# Usage

	factory, err := convo.New("my-version-id", convo.WithAPIKey(os.Getenv("CONVO_API_KEY")))
	if err != nil {
		log.Fatal(err)
	}

	s, err := factory.FetchSession(ctx)
	if err != nil {
		log.Fatal(err)
	}

	s.OnSpeak(func(ctx context.Context, t domain.SpeakTrace) error {
		fmt.Println(t.Message)
		return nil
	})

	turn, err := s.Start(ctx)
	for err == nil && !turn.IsEnding() {
		turn, err = s.SendText(ctx, readLine())
	}

# Packages

  - pkg/domain: traces, envelope, state and errors.
  - pkg/events: the dispatch table behind the On* methods.
  - pkg/session: the turn controller.
  - pkg/traceproc: one typed callback per trace kind.
  - pkg/adapters: HTTP, in-memory, Redis, Loam replay and MCP adapters.
  - pkg/observability: Prometheus metrics and OpenTelemetry span events as lifecycle hooks.
*/
package convo
