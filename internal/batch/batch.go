// Package batch generates cards for every entry of a YAML player list.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"cardgen/internal/card"
	u "cardgen/internal/utils"
)

// Generator writes the card for one record and returns its path.
type Generator interface {
	Generate(ctx context.Context, rec card.Record) (string, error)
}

var ErrNotAList = errors.New("batch file must contain a YAML list of players")

// Summary is the outcome of a batch run. Generated counts distinct files
// written; an entry whose card replaced an earlier one of the same run is
// counted as Overwritten instead.
type Summary struct {
	Total       int
	Generated   int
	Skipped     int
	Failed      int
	Overwritten int
	Outputs     []string
	Warnings    []string
}

func (s Summary) String() string {
	out := fmt.Sprintf("%d generated, %d skipped, %d failed", s.Generated, s.Skipped, s.Failed)
	if s.Overwritten > 0 {
		out += fmt.Sprintf(", %d overwritten", s.Overwritten)
	}
	return out
}

// Entry is one player in a batch file.
type Entry struct {
	Name      string `yaml:"name"`
	DOB       any    `yaml:"dob"`
	IssueDate any    `yaml:"issue_date"`
}

// Decode reads the batch document. It must be a sequence; each element is
// returned undecoded so that one bad entry cannot spoil the others.
func Decode(r io.Reader) ([]yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNotAList
		}
		return nil, fmt.Errorf("parse batch file: %w", err)
	}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.SequenceNode {
		return nil, ErrNotAList
	}
	nodes := make([]yaml.Node, len(root.Content))
	for i, n := range root.Content {
		nodes[i] = *n
	}
	return nodes, nil
}

// entry decodes node into an Entry, returning a warning when it must be
// skipped.
func entry(i int, node *yaml.Node) (Entry, string) {
	if node.Kind != yaml.MappingNode {
		return Entry{}, fmt.Sprintf("entry %d (line %d): not a mapping, skipped", i+1, node.Line)
	}
	var e Entry
	if err := node.Decode(&e); err != nil {
		return Entry{}, fmt.Sprintf("entry %d (line %d): %v, skipped", i+1, node.Line, err)
	}
	if strings.TrimSpace(e.Name) == "" || blank(e.DOB) {
		return Entry{}, fmt.Sprintf("entry %d (line %d): missing name or dob, skipped", i+1, node.Line)
	}
	return e, ""
}

func blank(v any) bool {
	s, ok := v.(string)
	return v == nil || ok && strings.TrimSpace(s) == ""
}

// Run generates a card for every valid entry in r. Invalid entries are
// skipped with a warning and failures are counted; only an unreadable or
// non-list document is an error.
func Run(ctx context.Context, gen Generator, r io.Reader, now time.Time) (Summary, error) {
	nodes, err := Decode(r)
	if err != nil {
		return Summary{}, err
	}

	s := Summary{Total: len(nodes)}
	written := make(map[string]int)
	for i := range nodes {
		if err := ctx.Err(); err != nil {
			return s, err
		}

		e, warning := entry(i, &nodes[i])
		if warning != "" {
			u.Warn("Skipping batch entry", "reason", warning)
			s.Skipped++
			s.Warnings = append(s.Warnings, warning)
			continue
		}

		rec, err := card.NewRecord(e.Name, e.DOB, e.IssueDate, now)
		if err != nil {
			u.Error("Invalid batch entry", "entry", i+1, "name", e.Name, "error", err)
			s.Failed++
			continue
		}

		path, err := gen.Generate(ctx, rec)
		if err != nil {
			u.Error("Card generation failed", "entry", i+1, "name", e.Name, "error", err)
			s.Failed++
			continue
		}
		if prev, ok := written[path]; ok {
			warning := fmt.Sprintf("entry %d (line %d): %s replaced the card of entry %d", i+1, nodes[i].Line, path, prev)
			u.Warn("Batch entries share an output file", "path", path, "entry", i+1, "previous", prev)
			s.Overwritten++
			s.Warnings = append(s.Warnings, warning)
			continue
		}
		written[path] = i + 1
		s.Generated++
		s.Outputs = append(s.Outputs, path)
	}

	u.Info("Batch finished", "total", s.Total, "generated", s.Generated, "skipped", s.Skipped,
		"failed", s.Failed, "overwritten", s.Overwritten)
	return s, nil
}

// RunFile runs the batch stored at path.
func RunFile(ctx context.Context, gen Generator, path string, now time.Time) (Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return Summary{}, fmt.Errorf("open batch file: %w", err)
	}
	defer f.Close()
	return Run(ctx, gen, f, now)
}

// Count returns the number of entries in the batch file at path.
func Count(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open batch file: %w", err)
	}
	defer f.Close()
	nodes, err := Decode(f)
	return len(nodes), err
}
