// Package logging provides the slog handler used by the broadside binaries.
package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// JSONLineHandler writes one compact JSON object per line. Keys keep the
// order they were logged in; groups become nested objects.
type JSONLineHandler struct {
	w         io.Writer
	mu        *sync.Mutex
	level     slog.Leveler
	addSource bool

	// pre holds attrs bound with WithAttrs, already nested under groups.
	pre    []field
	groups []string
}

type field struct {
	key   string
	value any
}

// object is an ordered JSON object.
type object []field

func (o object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(f.value)
		if err != nil {
			v, _ = json.Marshal(strconv.Quote(err.Error()))
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func NewJSONLineHandler(w io.Writer, opts *slog.HandlerOptions) slog.Handler {
	var level slog.Leveler = slog.LevelInfo
	addSource := false
	if opts != nil {
		if opts.Level != nil {
			level = opts.Level
		}
		addSource = opts.AddSource
	}
	return &JSONLineHandler{w: w, mu: &sync.Mutex{}, level: level, addSource: addSource}
}

func (h *JSONLineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *JSONLineHandler) Handle(_ context.Context, r slog.Record) error {
	when := r.Time
	if when.IsZero() {
		when = time.Now()
	}
	out := object{
		{"time", when.Format(time.RFC3339Nano)},
		{"level", r.Level.String()},
		{"msg", r.Message},
	}
	if h.addSource {
		if src := sourceFromPC(r.PC); src != "" {
			out = append(out, field{"source", src})
		}
	}

	var recAttrs object
	r.Attrs(func(a slog.Attr) bool {
		recAttrs = appendAttr(recAttrs, a)
		return true
	})
	out = append(out, h.pre...)
	out = mergeUnder(out, h.groups, recAttrs)

	b, err := json.Marshal(out)
	if err != nil {
		b = []byte(`{"time":` + strconv.Quote(when.Format(time.RFC3339Nano)) + `,"level":` + strconv.Quote(r.Level.String()) + `,"msg":` + strconv.Quote(r.Message) + `}`)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.w.Write(append(b, '\n'))
	return err
}

func (h *JSONLineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	var bound object
	for _, a := range attrs {
		bound = appendAttr(bound, a)
	}
	clone := *h
	clone.pre = mergeUnder(append(object(nil), h.pre...), h.groups, bound)
	return &clone
}

func (h *JSONLineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}

// mergeUnder appends fields into the object found by walking groups,
// creating the nested objects it needs.
func mergeUnder(dst object, groups []string, fields object) object {
	if len(fields) == 0 {
		return dst
	}
	if len(groups) == 0 {
		return append(dst, fields...)
	}
	for i := range dst {
		if dst[i].key != groups[0] {
			continue
		}
		if child, ok := dst[i].value.(object); ok {
			dst[i].value = mergeUnder(append(object(nil), child...), groups[1:], fields)
			return dst
		}
	}
	return append(dst, field{groups[0], mergeUnder(nil, groups[1:], fields)})
}

func appendAttr(dst object, a slog.Attr) object {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		var child object
		for _, ga := range v.Group() {
			child = appendAttr(child, ga)
		}
		if len(child) == 0 {
			return dst
		}
		if a.Key == "" {
			return append(dst, child...)
		}
		return append(dst, field{a.Key, child})
	}
	if a.Key == "" {
		return dst
	}
	return append(dst, field{a.Key, valueToAny(v)})
}

func valueToAny(v slog.Value) any {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return v.Int64()
	case slog.KindUint64:
		return v.Uint64()
	case slog.KindFloat64:
		return v.Float64()
	case slog.KindBool:
		return v.Bool()
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339Nano)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return v.Any()
	default:
		return v.String()
	}
}

func sourceFromPC(pc uintptr) string {
	if pc == 0 {
		return ""
	}
	frames := runtime.CallersFrames([]uintptr{pc})
	f, _ := frames.Next()
	if f.File == "" {
		return ""
	}
	file := f.File
	if idx := strings.LastIndexByte(file, '/'); idx >= 0 {
		file = file[idx+1:]
	}
	return file + ":" + strconv.Itoa(f.Line)
}
