package emit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// LogEmitter writes events to a writer in one of two formats:
//
//   - text (default): human-readable, one event per line
//     [node_completed] run=run-001 iteration=2 node=analyze meta={"duration_ms":12}
//   - JSON: machine-readable JSONL
//     {"run_id":"run-001","iteration":2,"node":"analyze","msg":"node_completed","meta":{"duration_ms":12}}
//
// Usage:
//
//	emitter := emit.NewLogEmitter(os.Stderr, false)
//	engine := graph.New(registry, graph.WithEmitter(emitter))
type LogEmitter struct {
	mu       sync.Mutex
	writer   io.Writer
	jsonMode bool
}

// NewLogEmitter creates a LogEmitter writing to writer (os.Stdout when nil).
// Set jsonMode for JSONL output instead of text.
func NewLogEmitter(writer io.Writer, jsonMode bool) *LogEmitter {
	if writer == nil {
		writer = os.Stdout
	}
	return &LogEmitter{writer: writer, jsonMode: jsonMode}
}

// Emit writes one line for the event in the configured format.
func (l *LogEmitter) Emit(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.jsonMode {
		l.emitJSON(event)
		return
	}
	l.emitText(event)
}

func (l *LogEmitter) emitJSON(event Event) {
	data, err := json.Marshal(struct {
		RunID     string         `json:"run_id"`
		Iteration int            `json:"iteration"`
		Node      string         `json:"node,omitempty"`
		Msg       string         `json:"msg"`
		Meta      map[string]any `json:"meta,omitempty"`
	}{
		RunID:     event.RunID,
		Iteration: event.Iteration,
		Node:      event.Node,
		Msg:       event.Msg,
		Meta:      event.Meta,
	})
	if err != nil {
		fmt.Fprintf(l.writer, "{\"error\":\"failed to marshal event: %v\"}\n", err)
		return
	}
	fmt.Fprintf(l.writer, "%s\n", data)
}

func (l *LogEmitter) emitText(event Event) {
	fmt.Fprintf(l.writer, "[%s] run=%s iteration=%d", event.Msg, event.RunID, event.Iteration)
	if event.Node != "" {
		fmt.Fprintf(l.writer, " node=%s", event.Node)
	}
	if len(event.Meta) > 0 {
		if metaJSON, err := json.Marshal(event.Meta); err == nil {
			fmt.Fprintf(l.writer, " meta=%s", metaJSON)
		} else {
			fmt.Fprintf(l.writer, " meta=%v", event.Meta)
		}
	}
	fmt.Fprint(l.writer, "\n")
}
