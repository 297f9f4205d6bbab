// Package logging wraps zap for redactd.
//
// A Logger adds correlation fields taken from the context (trace_id,
// span_id, request.id, user.id, note.id) to every entry, supports a Trace
// level below Debug, and writes JSON or console output to stdout and
// optionally to an OpenTelemetry log provider.
//
// Redaction is applied at the encoder: fields named pin, password, secret,
// token, content and similar are replaced with [REDACTED], and string values
// matching a redaction pattern are replaced with [REDACTED:pattern]. Note
// text and PINs should still never be logged; RedactedString logs a length
// instead.
//
//	cfg, err := logging.FromSettings("info", "json")
//	logger, err := logging.NewLogger(cfg, nil)
//	ctx = logging.WithNoteID(ctx, note.ID)
//	logger.Info(ctx, "spans materialized", zap.Int("total", n))
//
// Domain packages take a *zap.Logger; pass Logger.Underlying().
//
// Entries below Error are sampled per second (first 100, then 1 in 10)
// unless the level is Debug or lower. TestLogger records entries through
// zaptest/observer for assertions.
package logging
