// Package traceproc adapts a set of strongly typed per-kind callbacks into a
// single trace processor that can be subscribed to the wildcard selector.
package traceproc
