package boards

import (
	"fmt"
	"strings"
)

// ConfigOption is a single board configuration entry of an FQBN.
type ConfigOption struct {
	Option string `json:"option"`
	Value  string `json:"value"`
}

// FQBN is a parsed fully qualified board name:
// VENDOR:ARCHITECTURE:BOARD_ID[:OPTION=VALUE,...]
type FQBN struct {
	Vendor       string
	Architecture string
	BoardID      string
	Options      []ConfigOption
}

// ParseFQBN parses s. Options keep their order of appearance; a repeated
// option keeps its first position and takes the last value.
func ParseFQBN(s string) (FQBN, error) {
	segments := strings.SplitN(s, ":", 4)
	if len(segments) < 3 {
		return FQBN{}, fmt.Errorf("invalid fqbn %q: expected VENDOR:ARCH:BOARD_ID", s)
	}
	for i := 0; i < 3; i++ {
		if segments[i] == "" {
			return FQBN{}, fmt.Errorf("invalid fqbn %q: empty segment %d", s, i)
		}
	}

	fqbn := FQBN{
		Vendor:       segments[0],
		Architecture: segments[1],
		BoardID:      segments[2],
	}
	if len(segments) == 3 {
		return fqbn, nil
	}

	for _, pair := range strings.Split(segments[3], ",") {
		option, value, ok := strings.Cut(pair, "=")
		if !ok || option == "" {
			return FQBN{}, fmt.Errorf("invalid fqbn %q: malformed option %q", s, pair)
		}
		fqbn = fqbn.WithConfigOptions(ConfigOption{Option: option, Value: value})
	}
	return fqbn, nil
}

// Sanitize drops the configuration options.
func (f FQBN) Sanitize() FQBN {
	return FQBN{Vendor: f.Vendor, Architecture: f.Architecture, BoardID: f.BoardID}
}

// WithConfigOptions returns a copy of f with the options set or replaced.
func (f FQBN) WithConfigOptions(options ...ConfigOption) FQBN {
	merged := make([]ConfigOption, len(f.Options), len(f.Options)+len(options))
	copy(merged, f.Options)
	for _, opt := range options {
		replaced := false
		for i := range merged {
			if merged[i].Option == opt.Option {
				merged[i].Value = opt.Value
				replaced = true
				break
			}
		}
		if !replaced {
			merged = append(merged, opt)
		}
	}
	f.Options = merged
	return f
}

func (f FQBN) String() string {
	var b strings.Builder
	b.WriteString(f.Vendor)
	b.WriteByte(':')
	b.WriteString(f.Architecture)
	b.WriteByte(':')
	b.WriteString(f.BoardID)
	for i, opt := range f.Options {
		if i == 0 {
			b.WriteByte(':')
		} else {
			b.WriteByte(',')
		}
		b.WriteString(opt.Option)
		b.WriteByte('=')
		b.WriteString(opt.Value)
	}
	return b.String()
}

// SanitizeFQBN strips the configuration options of fqbn. Values that do not
// parse are returned unchanged.
func SanitizeFQBN(fqbn string) string {
	parsed, err := ParseFQBN(fqbn)
	if err != nil {
		return fqbn
	}
	return parsed.Sanitize().String()
}

// Vendor returns the first segment of fqbn.
func Vendor(fqbn string) string {
	vendor, _, _ := strings.Cut(fqbn, ":")
	return vendor
}
