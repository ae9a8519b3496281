/*
Package events implements the dispatch table that routes runtime traces to
subscribed handlers.

Handlers subscribe to a selector: a trace kind, the wildcard "trace", or one of
the batch lifecycle selectors "before_batch" and "after_batch". For every trace
the kind-specific handlers run first in subscription order, then the wildcard
handlers. Each handler is awaited before the next one starts, and the first
failure stops delivery.
*/
package events
