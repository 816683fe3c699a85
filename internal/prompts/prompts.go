// Package prompts loads the summarization prompt templates from prompts.yaml
// and selects the one a job renders.
//
// File layout:
//
//	prompts:
//	  daily:
//	    active: true
//	    template: |
//	      Summarize my day ({date_range}):
//	      {journal_content}
//
// Write "{{" and "}}" for literal braces.
//
// Declaration order is preserved so "first" means first in the file.
package prompts

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hpungsan/diarydigest/internal/errors"
)

// Placeholders substituted by Render.
const (
	JournalContent = "{journal_content}"
	DateRange      = "{date_range}"
)

// FileName is the prompts file inside the base directory.
const FileName = "prompts.yaml"

// DefaultName identifies the built-in template.
const DefaultName = "default"

// DefaultTemplate is used when no prompts.yaml exists.
const DefaultTemplate = `Below are my voice diary entries for {date_range}, in chronological order.
Write a cohesive first-person summary of the period. Group related thoughts,
keep concrete events, decisions and feelings, and drop filler and repetition.

{journal_content}`

// Template is one named prompt.
type Template struct {
	Name     string
	Active   bool   `yaml:"active"`
	Template string `yaml:"template"`
}

// Set is the ordered collection loaded from prompts.yaml.
type Set struct {
	Templates []Template
	// Builtin is true when no file existed and the default template was supplied.
	Builtin bool
}

type file struct {
	Prompts yaml.Node `yaml:"prompts"`
}

// Load reads baseDir/prompts.yaml. A missing file yields the built-in default.
func Load(baseDir string) (*Set, error) {
	return LoadFile(filepath.Join(baseDir, FileName))
}

// LoadFile reads a prompts file from an explicit path.
func LoadFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return &Set{
				Templates: []Template{{Name: DefaultName, Active: true, Template: DefaultTemplate}},
				Builtin:   true,
			}, nil
		}
		return nil, errors.NewConfig(fmt.Sprintf("failed to read %s: %v", path, err))
	}
	return Parse(data)
}

// Parse decodes prompts YAML, keeping declaration order.
func Parse(data []byte) (*Set, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.NewConfig(fmt.Sprintf("invalid prompts file: %v", err))
	}

	node := &f.Prompts
	if node.Kind == 0 {
		return nil, errors.NewConfig("prompts file has no prompts section")
	}
	if node.Kind != yaml.MappingNode {
		return nil, errors.NewConfig("prompts must be a mapping of name to template")
	}

	set := &Set{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		var t Template
		if err := node.Content[i+1].Decode(&t); err != nil {
			return nil, errors.NewConfig(fmt.Sprintf("prompt %q: %v", name, err))
		}
		t.Name = name
		set.Templates = append(set.Templates, t)
	}
	if len(set.Templates) == 0 {
		return nil, errors.NewConfig("prompts file defines no templates")
	}
	return set, nil
}

// Select picks the template for a job:
//   - explicit name when given (unknown name is an error)
//   - the single active template
//   - the first active one when several are active (warns)
//   - the first template when none is active (warns)
//
// The chosen template must contain {journal_content}.
func (s *Set) Select(name string, logger *slog.Logger) (Template, error) {
	if logger == nil {
		logger = slog.Default()
	}

	chosen, err := s.pick(name, logger)
	if err != nil {
		return Template{}, err
	}
	if strings.TrimSpace(chosen.Template) == "" {
		return Template{}, errors.NewConfig(fmt.Sprintf("prompt %q has an empty template", chosen.Name))
	}
	if !strings.Contains(chosen.Template, JournalContent) {
		return Template{}, errors.NewConfig(fmt.Sprintf("prompt %q does not contain %s", chosen.Name, JournalContent))
	}
	logger.Info("using prompt", "name", chosen.Name, "builtin", s.Builtin)
	return chosen, nil
}

func (s *Set) pick(name string, logger *slog.Logger) (Template, error) {
	if name = strings.TrimSpace(name); name != "" {
		for _, t := range s.Templates {
			if t.Name == name {
				return t, nil
			}
		}
		return Template{}, errors.NewConfig(fmt.Sprintf("prompt %q not found", name))
	}

	var active []Template
	for _, t := range s.Templates {
		if t.Active {
			active = append(active, t)
		}
	}

	switch {
	case len(active) == 1:
		return active[0], nil
	case len(active) > 1:
		names := make([]string, len(active))
		for i, t := range active {
			names[i] = t.Name
		}
		logger.Warn("multiple active prompts, using the first", "active", strings.Join(names, ", "), "using", active[0].Name)
		return active[0], nil
	case len(s.Templates) > 0:
		logger.Warn("no active prompt, using the first", "using", s.Templates[0].Name)
		return s.Templates[0], nil
	default:
		return Template{}, errors.NewConfig("no prompt templates available")
	}
}

// Render substitutes the journal text and the range label. Doubled braces
// are escapes: "{{" renders as "{" and "}}" as "}", so "{{date_range}}"
// yields the literal "{date_range}". Unknown single-brace names are left
// as written. Substitution is a single pass, so placeholders appearing
// inside the journal text stay literal.
func (t Template) Render(journal, dateRange string) string {
	r := strings.NewReplacer(
		"{{", "{",
		"}}", "}",
		JournalContent, journal,
		DateRange, dateRange,
	)
	return r.Replace(t.Template)
}
