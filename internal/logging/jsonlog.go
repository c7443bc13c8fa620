package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

type entry struct {
	Level     string         `json:"level"`
	Time      string         `json:"time"`
	Component string         `json:"component,omitempty"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

func log(level, component, msg string, fields map[string]any) {
	e := entry{Level: level, Time: time.Now().UTC().Format(time.RFC3339Nano), Component: component, Message: msg, Fields: fields}
	b, _ := json.Marshal(e)
	fmt.Fprintln(os.Stdout, string(b))
}

func Info(msg string, fields map[string]any)  { log("info", "", msg, fields) }
func Error(msg string, fields map[string]any) { log("error", "", msg, fields) }

// Logger is a component-scoped logger. The zero value logs without a
// component field.
type Logger struct{ component string }

// For returns a logger tagged with the given component name.
func For(component string) Logger { return Logger{component: component} }

func (l Logger) Info(msg string, fields map[string]any)  { log("info", l.component, msg, fields) }
func (l Logger) Error(msg string, fields map[string]any) { log("error", l.component, msg, fields) }
