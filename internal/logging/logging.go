// Package logging writes the pdfrag event log. Every line is tagged with the
// pipeline component that produced it and goes to stdout (unless quiet) and
// to an append-only log file.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"
)

// Component tags a log line with the pipeline stage that wrote it.
type Component string

const (
	Ingest   Component = "INGEST"
	Index    Component = "INDEX"
	Embed    Component = "EMBED"
	Gen      Component = "GEN"
	LLM      Component = "LLM"
	Eval     Component = "EVAL"
	Server   Component = "SERVER"
	Chat     Component = "CHAT"
	Services Component = "SERVICES"
	Metrics  Component = "METRICS"
)

// Direction marks a remote exchange as sent or received.
type Direction int

const (
	Outbound Direction = iota
	Inbound
)

func (d Direction) String() string {
	if d == Inbound {
		return "<-"
	}
	return "->"
}

// maxPayloadRunes caps logged payloads; prompts carry whole context blocks.
const maxPayloadRunes = 2000

var (
	mu      sync.Mutex
	logFile *os.File
	quiet   bool
)

// Init sends the standard logger to stdout and the file at logPath.
// An empty logPath logs to stdout only. Re-initialising closes the old file.
func Init(logPath string) error {
	mu.Lock()
	defer mu.Unlock()

	closeFileLocked()

	var writers []io.Writer
	if !quiet {
		writers = append(writers, os.Stdout)
	}
	if logPath != "" {
		f, err := openAppend(logPath)
		if err != nil {
			return fmt.Errorf("open log file %s: %w", logPath, err)
		}
		logFile = f
		writers = append(writers, f)
	}

	switch len(writers) {
	case 0:
		log.SetOutput(io.Discard)
	case 1:
		log.SetOutput(writers[0])
	default:
		log.SetOutput(io.MultiWriter(writers...))
	}
	return nil
}

func openAppend(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

// SetQuiet keeps stdout out of the writers on the next Init. The chat UI
// owns the terminal, so it logs to the file only.
func SetQuiet(q bool) {
	mu.Lock()
	defer mu.Unlock()
	quiet = q
}

// Close closes the log file and points the logger back at stderr.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	log.SetOutput(os.Stderr)
	return closeFileLocked()
}

func closeFileLocked() error {
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

// Logf writes one line tagged with c.
func Logf(c Component, format string, args ...any) {
	log.Printf("[%s] %s", c, fmt.Sprintf(format, args...))
}

// LogExchange records a call to or a reply from a remote model endpoint,
// such as a chat completion or an embedding request.
func LogExchange(c Component, dir Direction, endpoint, model, op string, payload any) {
	log.Print(exchangeLine(c, dir, endpoint, model, op, payload))
}

func exchangeLine(c Component, dir Direction, endpoint, model, op string, payload any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s %s", c, dir, orUnknown(op))
	fmt.Fprintf(&b, " model=%s endpoint=%s", orUnknown(model), orUnknown(endpoint))
	fmt.Fprintf(&b, " payload=%s", renderPayload(payload))
	return b.String()
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "unknown"
	}
	return s
}

func renderPayload(payload any) string {
	var s string
	switch v := payload.(type) {
	case nil:
		return "null"
	case string:
		s = v
	case []byte:
		s = string(v)
	case fmt.Stringer:
		s = v.String()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			s = fmt.Sprintf("%+v", v)
		} else {
			s = string(data)
		}
	}
	if strings.TrimSpace(s) == "" {
		return `""`
	}
	if utf8.RuneCountInString(s) > maxPayloadRunes {
		s = string([]rune(s)[:maxPayloadRunes]) + fmt.Sprintf("...(%d more)", utf8.RuneCountInString(s)-maxPayloadRunes)
	}
	return s
}
