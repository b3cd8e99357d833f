package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// jsonArgList is a repeatable --arg flag whose values are validated and
// decoded as JSON at parse time, rather than deferred to RunE. Each Set
// call appends one decoded value.
type jsonArgList struct {
	raw    []string
	values []any
}

var _ pflag.Value = (*jsonArgList)(nil)

func (l *jsonArgList) String() string {
	return strings.Join(l.raw, ",")
}

func (l *jsonArgList) Set(s string) error {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return fmt.Errorf("parsing --arg %q as JSON: %w", s, err)
	}
	l.raw = append(l.raw, s)
	l.values = append(l.values, v)
	return nil
}

func (l *jsonArgList) Type() string { return "json" }
