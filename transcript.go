package minijs

import (
	"fmt"
	"strings"
)

// The transcript is the evaluator's only output channel: every print call
// and every uncaught condition lands here, in order, so a harness can diff
// an entire run against an expected sequence of lines.

type EntryKind uint8

const (
	EntryPrint EntryKind = iota
	EntryDiagnostic
)

type Entry struct {
	Kind EntryKind
	Tag  string // fault kind for diagnostics, empty for prints
	Text string
}

func (e Entry) Line() string {
	if e.Kind == EntryDiagnostic {
		return fmt.Sprintf("[%s] %s", e.Tag, e.Text)
	}
	return e.Text
}

type Transcript struct {
	entries []Entry
}

func NewTranscript() *Transcript {
	return &Transcript{}
}

func (t *Transcript) Print(text string) {
	t.entries = append(t.entries, Entry{Kind: EntryPrint, Text: text})
}

func (t *Transcript) Diagnose(tag, text string) {
	t.entries = append(t.entries, Entry{Kind: EntryDiagnostic, Tag: tag, Text: text})
}

func (t *Transcript) Entries() []Entry {
	cp := make([]Entry, len(t.entries))
	copy(cp, t.entries)
	return cp
}

func (t *Transcript) Lines() []string {
	lines := make([]string, len(t.entries))
	for i, e := range t.entries {
		lines[i] = e.Line()
	}
	return lines
}

func (t *Transcript) String() string {
	return strings.Join(t.Lines(), "\n")
}

func (t *Transcript) Reset() {
	t.entries = t.entries[:0]
}
