/*
Package session implements the turn controller of a conversation.

A Session holds the current turn (state, request and traces), advances it by
exchanging exactly one request with the runtime through a ports.Transport, and
dispatches the resulting traces to subscribed handlers in order:

	before_batch -> every trace (kind handlers, then wildcard handlers) -> after_batch

Only one turn runs at a time. A turn started while another one is running,
including from inside a handler, fails with domain.ErrTurnInProgress.

After a turn, the pull accessor Context exposes the same data synchronously.
*/
package session
