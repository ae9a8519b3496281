// Package middleware decorates a ports.StateCache with AES-GCM encryption and
// key rotation. MaskVariables hides sensitive variables on output paths.
package middleware
