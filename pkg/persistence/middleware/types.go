package middleware

import "github.com/aretw0/convo/pkg/ports"

// Middleware allows wrapping a StateCache to add behavior.
type Middleware func(ports.StateCache) ports.StateCache

// Chain wraps cache so that the first middleware is the outermost.
func Chain(cache ports.StateCache, mws ...Middleware) ports.StateCache {
	for i := len(mws) - 1; i >= 0; i-- {
		cache = mws[i](cache)
	}
	return cache
}
