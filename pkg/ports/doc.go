/*
Package ports defines the driven ports (interfaces) of the conversation client.

These interfaces decouple the session logic from the way the runtime is reached
and from where the initial state is cached.

# Key Interfaces

  - Transport: Fetches the initial state and exchanges one turn with the runtime (HTTP, replay, scripted).
  - StateCache: Caches the initial state per version so sessions can start without a round trip.
*/
package ports
