/*
Package domain contains the core types of the conversation client.

It defines the trace model emitted by the runtime, the per-turn envelope,
the opaque conversation state and the errors shared by every other package.
This package performs no I/O.

# Key Entities

  - Trace: A typed runtime event (speak, choice, visual, end, ...). The set of kinds is closed.
  - Envelope: The state, request and ordered traces produced by one turn.
  - State: The opaque dialog state (stack, storage, variables) carried between turns.
  - TurnRequest: What the client sends to the runtime for one turn.
*/
package domain
