package logging

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/redactd/internal/config"
)

const redacted = "[REDACTED]"

type secretMarshaler struct {
	key string
	val config.Secret
}

func (s *secretMarshaler) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString(s.key, "[REDACTED:"+strconv.Itoa(len(s.val.Value()))+"]")
	return nil
}

// Secret creates a field for a config.Secret showing only its length.
func Secret(key string, val config.Secret) zap.Field {
	return zap.Object(key, &secretMarshaler{key: key, val: val})
}

// RedactedString logs the rune length of val instead of val.
func RedactedString(key, val string) zap.Field {
	return zap.String(key, "[REDACTED:"+strconv.Itoa(utf8.RuneCountInString(val))+"]")
}

// redactor holds compiled redaction rules shared by encoders and cores.
type redactor struct {
	fields   map[string]bool
	patterns []*regexp.Regexp
}

func newRedactor(cfg RedactionConfig) (*redactor, error) {
	r := &redactor{fields: make(map[string]bool, len(cfg.Fields))}
	if !cfg.Enabled {
		return r, nil
	}
	for _, f := range cfg.Fields {
		r.fields[strings.ToLower(f)] = true
	}
	for _, p := range cfg.Patterns {
		if len(p) > maxPatternLen {
			return nil, fmt.Errorf("redaction pattern too long (max %d chars): %q", maxPatternLen, p)
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		r.patterns = append(r.patterns, re)
	}
	return r, nil
}

func (r *redactor) key(k string) bool {
	return r.fields[strings.ToLower(k)]
}

func (r *redactor) value(v string) bool {
	for _, re := range r.patterns {
		if re.MatchString(v) {
			return true
		}
	}
	return false
}

// RedactingEncoder wraps an encoder so that sensitive keys and values
// matching a redaction pattern are replaced before encoding.
type RedactingEncoder struct {
	zapcore.Encoder
	r *redactor
}

// NewRedactingEncoder wraps base with the rules in cfg.
func NewRedactingEncoder(base zapcore.Encoder, cfg RedactionConfig) (*RedactingEncoder, error) {
	r, err := newRedactor(cfg)
	if err != nil {
		return nil, err
	}
	return &RedactingEncoder{Encoder: base, r: r}, nil
}

func (e *RedactingEncoder) AddString(key, val string) {
	switch {
	case e.r.key(key):
		e.Encoder.AddString(key, redacted)
	case e.r.value(val):
		e.Encoder.AddString(key, "[REDACTED:pattern]")
	default:
		e.Encoder.AddString(key, val)
	}
}

func (e *RedactingEncoder) AddByteString(key string, val []byte) {
	if e.r.key(key) || e.r.value(string(val)) {
		e.Encoder.AddString(key, redacted)
		return
	}
	e.Encoder.AddByteString(key, val)
}

func (e *RedactingEncoder) AddBinary(key string, val []byte) {
	if e.r.key(key) {
		e.Encoder.AddString(key, redacted)
		return
	}
	e.Encoder.AddBinary(key, val)
}

func (e *RedactingEncoder) AddReflected(key string, val interface{}) error {
	if e.r.key(key) {
		e.Encoder.AddString(key, redacted)
		return nil
	}
	return e.Encoder.AddReflected(key, val)
}

func (e *RedactingEncoder) AddArray(key string, arr zapcore.ArrayMarshaler) error {
	if e.r.key(key) {
		e.Encoder.AddString(key, redacted)
		return nil
	}
	return e.Encoder.AddArray(key, arr)
}

func (e *RedactingEncoder) AddObject(key string, obj zapcore.ObjectMarshaler) error {
	if e.r.key(key) {
		e.Encoder.AddString(key, redacted)
		return nil
	}
	return e.Encoder.AddObject(key, obj)
}

func (e *RedactingEncoder) Clone() zapcore.Encoder {
	return &RedactingEncoder{Encoder: e.Encoder.Clone(), r: e.r}
}

// EncodeEntry redacts the message and the per-entry fields. Fields added
// through With go through the Add* methods above.
func (e *RedactingEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	if e.r.value(ent.Message) {
		ent.Message = "[REDACTED:pattern]"
	}
	return e.Encoder.EncodeEntry(ent, e.r.filter(fields))
}

// filter returns fields with sensitive entries replaced. The input slice is
// not modified.
func (r *redactor) filter(fields []zapcore.Field) []zapcore.Field {
	var out []zapcore.Field
	for i, f := range fields {
		replace := r.key(f.Key) || (f.Type == zapcore.StringType && r.value(f.String))
		if !replace {
			if out != nil {
				out = append(out, f)
			}
			continue
		}
		if out == nil {
			out = make([]zapcore.Field, i, len(fields))
			copy(out, fields[:i])
		}
		out = append(out, zap.String(f.Key, redacted))
	}
	if out == nil {
		return fields
	}
	return out
}

// fieldFilterCore applies redaction to cores that do not use an encoder,
// such as the otel bridge.
type fieldFilterCore struct {
	zapcore.Core
	level zapcore.LevelEnabler
	r     *redactor
}

func newFieldFilterCore(core zapcore.Core, level zapcore.LevelEnabler, cfg RedactionConfig) zapcore.Core {
	r, err := newRedactor(cfg)
	if err != nil {
		// Patterns were validated with the config; fall back to key rules.
		r, _ = newRedactor(RedactionConfig{Enabled: cfg.Enabled, Fields: cfg.Fields})
	}
	return &fieldFilterCore{Core: core, level: level, r: r}
}

func (c *fieldFilterCore) Enabled(l zapcore.Level) bool {
	return c.level.Enabled(l) && c.Core.Enabled(l)
}

func (c *fieldFilterCore) With(fields []zapcore.Field) zapcore.Core {
	return &fieldFilterCore{Core: c.Core.With(c.r.filter(fields)), level: c.level, r: c.r}
}

func (c *fieldFilterCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(e.Level) {
		return ce.AddCore(e, c)
	}
	return ce
}

func (c *fieldFilterCore) Write(e zapcore.Entry, fields []zapcore.Field) error {
	if c.r.value(e.Message) {
		e.Message = "[REDACTED:pattern]"
	}
	return c.Core.Write(e, c.r.filter(fields))
}
