package tunnel

import (
	"fmt"
	"sort"
	"strings"
)

// Reserved option keys. They steer the controller and are never emitted as
// generic flags.
const (
	KeyAccessKey   = "key"
	KeyBinaryPath  = "binarypath"
	KeyLogFile     = "logfile"
	KeyOnlyCommand = "onlyCommand"
	KeySource      = "source"
)

// Flag is one named option value. A nil Value means the option is absent.
type Flag struct {
	Key   string
	Value any
}

// Options is an immutable, insertion-ordered set of tunnel options.
// The zero value is an empty set.
type Options struct {
	flags []Flag
}

// NewOptions builds an option set from flags in order. Later duplicates
// overwrite earlier values in place.
func NewOptions(flags ...Flag) Options {
	var out Options
	for _, f := range flags {
		out = out.With(f.Key, f.Value)
	}
	return out
}

// OptionsFromMap converts an unordered map into options sorted by key.
func OptionsFromMap(values map[string]any) Options {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	flags := make([]Flag, 0, len(keys))
	for _, k := range keys {
		flags = append(flags, Flag{Key: k, Value: values[k]})
	}
	return NewOptions(flags...)
}

// ParseOption parses a "key=value" pair. A bare "key" is treated as a
// boolean flag set to true.
func ParseOption(raw string) (Flag, error) {
	key, value, found := strings.Cut(raw, "=")
	key = strings.TrimSpace(key)
	if key == "" {
		return Flag{}, fmt.Errorf("option %q: missing key", raw)
	}
	if !found {
		return Flag{Key: key, Value: true}, nil
	}
	return Flag{Key: key, Value: value}, nil
}

// Len reports the number of options.
func (o Options) Len() int {
	return len(o.flags)
}

// Flags returns a copy of the options in order.
func (o Options) Flags() []Flag {
	out := make([]Flag, len(o.flags))
	copy(out, o.flags)
	return out
}

// Keys returns the option names in order.
func (o Options) Keys() []string {
	keys := make([]string, 0, len(o.flags))
	for _, f := range o.flags {
		keys = append(keys, f.Key)
	}
	return keys
}

// Get returns the value stored for key.
func (o Options) Get(key string) (any, bool) {
	for _, f := range o.flags {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Has reports whether key is present.
func (o Options) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// With returns a copy with key set to value, keeping the key's position if
// it already exists.
func (o Options) With(key string, value any) Options {
	out := Options{flags: make([]Flag, 0, len(o.flags)+1)}
	replaced := false
	for _, f := range o.flags {
		if f.Key == key {
			out.flags = append(out.flags, Flag{Key: key, Value: value})
			replaced = true
			continue
		}
		out.flags = append(out.flags, f)
	}
	if !replaced {
		out.flags = append(out.flags, Flag{Key: key, Value: value})
	}
	return out
}

// Without returns a copy with the named keys removed.
func (o Options) Without(keys ...string) Options {
	out := Options{flags: make([]Flag, 0, len(o.flags))}
	for _, f := range o.flags {
		drop := false
		for _, k := range keys {
			if f.Key == k {
				drop = true
				break
			}
		}
		if !drop {
			out.flags = append(out.flags, f)
		}
	}
	return out
}

// Merge returns o overlaid with other. Keys from other overwrite existing
// values in place; new keys are appended in other's order.
func (o Options) Merge(other Options) Options {
	out := o
	for _, f := range other.flags {
		out = out.With(f.Key, f.Value)
	}
	return out
}

// reserved holds the control keys split out of a merged option set.
type reserved struct {
	accessKey   string
	hasKey      bool
	binaryPath  string
	hasBinary   bool
	logFile     string
	hasLogFile  bool
	onlyCommand bool
}

// splitReserved separates control keys from the flags that reach the binary.
// The returned options never contain a reserved key.
func splitReserved(opts Options) (reserved, Options) {
	var r reserved
	rest := Options{flags: make([]Flag, 0, len(opts.flags))}
	for _, f := range opts.flags {
		switch f.Key {
		case KeyAccessKey:
			r.accessKey, r.hasKey = valueString(f.Value), true
		case KeyBinaryPath:
			r.binaryPath, r.hasBinary = valueString(f.Value), true
		case KeyLogFile:
			r.logFile, r.hasLogFile = valueString(f.Value), true
		case KeyOnlyCommand:
			r.onlyCommand = truthy(f.Value)
		case KeySource:
		default:
			rest.flags = append(rest.flags, f)
		}
	}
	return r, rest
}

func valueString(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// truthy mirrors loose truthiness for option values: false, zero, nil, the
// empty string and the strings "false"/"0" are false.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		s := strings.TrimSpace(val)
		return s != "" && !strings.EqualFold(s, "false") && s != "0"
	case int:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	default:
		return true
	}
}
