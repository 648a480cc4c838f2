// Package logx is a thin structured-logging layer over zerolog.
//
// It exposes a small Logger value type plus a Service that supports
// hot-swapping sinks and levels at runtime (config reload).
package logx
