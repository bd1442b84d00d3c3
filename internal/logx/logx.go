// Package logx is a thin structured-logging convention on top of the
// standard library's log package, in the style the rest of this codebase's
// ancestry uses (see websocket.logInfo/logError): a level tag, a message,
// and a flat field map, with no external logging dependency.
package logx

import (
	"fmt"
	"log"
	"sort"
	"strings"
)

// Logger tags every line with a component name, e.g. "sender:camera-A".
type Logger struct {
	component string
}

// New returns a Logger for the named component.
func New(component string) *Logger {
	return &Logger{component: component}
}

func (l *Logger) format(level, msg string, fields map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s: %s", level, l.component, msg)
	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" |")
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, fields[k])
		}
	}
	return b.String()
}

func (l *Logger) Debug(msg string, fields map[string]any) { log.Println(l.format("DEBUG", msg, fields)) }
func (l *Logger) Info(msg string, fields map[string]any)  { log.Println(l.format("INFO", msg, fields)) }
func (l *Logger) Warn(msg string, fields map[string]any)  { log.Println(l.format("WARN", msg, fields)) }
func (l *Logger) Error(msg string, err error, fields map[string]any) {
	if fields == nil {
		fields = map[string]any{}
	}
	if err != nil {
		fields["err"] = err
	}
	log.Println(l.format("ERROR", msg, fields))
}
