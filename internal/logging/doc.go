// Package logging provides structured logging for the netsdr client.
//
// Logging is built on go.uber.org/zap and is silent by default so that
// CLI output stays clean. Set NETSDR_LOG_LEVEL to "debug", "info",
// "warn" or "error" to enable console logging, or call Initialize with
// an explicit level.
//
// Debug level includes hex dumps of control-channel traffic, which is
// the first thing to reach for when a receiver misbehaves.
package logging
