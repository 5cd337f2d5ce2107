// ABOUTME: Stage message template set loaded from YAML
// ABOUTME: Ships an embedded default set and validates stage coverage on load
package templates

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_templates.yaml
var defaultTemplatesYAML []byte

// StageTemplate holds the keywords and phrases expected in a stage's message.
type StageTemplate struct {
	Stage    int      `yaml:"stage" json:"stage"`
	Name     string   `yaml:"name" json:"name"`
	Keywords []string `yaml:"keywords" json:"keywords"`
	Phrases  []string `yaml:"phrases" json:"phrases"`
}

// TemplateSet is an immutable collection of stage templates ordered by stage.
// Build one with ParseTemplateSet, LoadTemplateSet or DefaultTemplateSet.
type TemplateSet struct {
	stages []StageTemplate
	byID   map[int]int
}

type templateFile struct {
	Stages []StageTemplate `yaml:"stages"`
}

// ParseTemplateSet decodes a YAML template document.
func ParseTemplateSet(data []byte) (*TemplateSet, error) {
	var f templateFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	if len(f.Stages) == 0 {
		return nil, fmt.Errorf("template file defines no stages")
	}

	set := &TemplateSet{byID: make(map[int]int, len(f.Stages))}
	for _, st := range f.Stages {
		if st.Stage < 0 {
			return nil, fmt.Errorf("invalid stage number %d", st.Stage)
		}
		if _, dup := set.byID[st.Stage]; dup {
			return nil, fmt.Errorf("stage %d defined twice", st.Stage)
		}
		if len(st.Keywords) == 0 && len(st.Phrases) == 0 {
			return nil, fmt.Errorf("stage %d has no keywords or phrases", st.Stage)
		}
		set.stages = append(set.stages, StageTemplate{
			Stage:    st.Stage,
			Name:     st.Name,
			Keywords: lowerAll(st.Keywords),
			Phrases:  lowerAll(st.Phrases),
		})
	}

	sort.Slice(set.stages, func(i, j int) bool { return set.stages[i].Stage < set.stages[j].Stage })
	for i, st := range set.stages {
		set.byID[st.Stage] = i
	}
	return set, nil
}

// LoadTemplateSet reads and parses a template file from disk.
func LoadTemplateSet(path string) (*TemplateSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read templates: %w", err)
	}
	return ParseTemplateSet(data)
}

// DefaultTemplateSet returns the built-in production templates.
func DefaultTemplateSet() *TemplateSet {
	set, err := ParseTemplateSet(defaultTemplatesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded templates are invalid: %v", err))
	}
	return set
}

// Stage returns a copy of the template for stage.
func (s *TemplateSet) Stage(stage int) (StageTemplate, bool) {
	i, ok := s.byID[stage]
	if !ok {
		return StageTemplate{}, false
	}
	st := s.stages[i]
	st.Keywords = append([]string(nil), st.Keywords...)
	st.Phrases = append([]string(nil), st.Phrases...)
	return st, true
}

// Templates returns copies of every stage template in stage order.
func (s *TemplateSet) Templates() []StageTemplate {
	out := make([]StageTemplate, 0, len(s.stages))
	for _, stage := range s.Stages() {
		st, _ := s.Stage(stage)
		out = append(out, st)
	}
	return out
}

// Stages returns the stage numbers in ascending order.
func (s *TemplateSet) Stages() []int {
	out := make([]int, len(s.stages))
	for i, st := range s.stages {
		out[i] = st.Stage
	}
	return out
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
