package assistant

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/p-blackswan/lifeos/internal/models"
)

//go:embed grammar.yaml
var grammarYAML []byte

// Grammar describes the directive syntax the model is taught.
type Grammar struct {
	Marker     string          `yaml:"marker" json:"marker"`
	Rules      []string        `yaml:"rules" json:"rules"`
	Directives []DirectiveSpec `yaml:"directives" json:"directives"`
}

// DirectiveSpec documents one directive type.
type DirectiveSpec struct {
	Type     string              `yaml:"type" json:"type"`
	Summary  string              `yaml:"summary" json:"summary"`
	Required []string            `yaml:"required" json:"required"`
	Optional []string            `yaml:"optional" json:"optional"`
	Enums    map[string][]string `yaml:"enums" json:"enums,omitempty"`
	Notes    string              `yaml:"notes" json:"notes,omitempty"`
	Example  string              `yaml:"example" json:"example"`
}

// LoadGrammar parses the embedded grammar document.
func LoadGrammar() (*Grammar, error) {
	return ParseGrammar(grammarYAML)
}

// ParseGrammar parses a grammar document and checks every example is a JSON object.
func ParseGrammar(data []byte) (*Grammar, error) {
	var g Grammar
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parsing grammar: %w", err)
	}
	if g.Marker == "" || len(g.Directives) == 0 {
		return nil, fmt.Errorf("parsing grammar: marker and directives are required")
	}
	for _, d := range g.Directives {
		var obj map[string]any
		if err := json.Unmarshal([]byte(d.Example), &obj); err != nil {
			return nil, fmt.Errorf("grammar example for %s: %w", d.Type, err)
		}
	}
	return &g, nil
}

// Render writes the grammar as prompt text.
func (g *Grammar) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "To change the user's data, write a marker %s followed by one JSON object.\n", g.Marker)
	for _, r := range g.Rules {
		fmt.Fprintf(&b, "- %s\n", r)
	}
	b.WriteString("\nAvailable actions:\n")
	for _, d := range g.Directives {
		fmt.Fprintf(&b, "\n[ACTION:%s] %s\n", d.Type, d.Summary)
		fmt.Fprintf(&b, "  required: %s\n", joinOrNone(d.Required))
		fmt.Fprintf(&b, "  optional: %s\n", joinOrNone(d.Optional))
		if len(d.Enums) > 0 {
			keys := make([]string, 0, len(d.Enums))
			for k := range d.Enums {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(&b, "  %s: one of %s\n", k, strings.Join(d.Enums[k], ", "))
			}
		}
		if d.Notes != "" {
			fmt.Fprintf(&b, "  note: %s\n", d.Notes)
		}
		fmt.Fprintf(&b, "  example: [ACTION:%s] %s\n", d.Type, d.Example)
	}
	return b.String()
}

func joinOrNone(s []string) string {
	if len(s) == 0 {
		return "none"
	}
	return strings.Join(s, ", ")
}

const preamble = `You are LifeOS, a personal assistant that keeps the user's tasks, projects, notes and scraps.
Answer conversationally. When the user asks you to record or change something, include action markers in your reply.
Only the markers are executed; everything else is shown to the user as your answer.`

// Composer builds the single text prompt for a turn.
type Composer struct {
	grammar string
	now     func() time.Time
}

// ComposerOption configures a Composer.
type ComposerOption func(*Composer)

// WithComposerClock overrides the clock used for today's date.
func WithComposerClock(now func() time.Time) ComposerOption {
	return func(c *Composer) { c.now = now }
}

// NewComposer renders the grammar once and returns a Composer.
func NewComposer(g *Grammar, opts ...ComposerOption) *Composer {
	c := &Composer{grammar: g.Render(), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compose builds the prompt from the snapshot and the verbatim user message.
func (c *Composer) Compose(snap *Snapshot, message string) (string, error) {
	snapJSON, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding snapshot: %w", err)
	}

	now := c.now()
	var b strings.Builder
	b.WriteString(preamble)
	b.WriteString("\n\n")
	b.WriteString(c.grammar)
	fmt.Fprintf(&b, "\nToday is %s (%s).\n", now.Format(models.DateLayout), now.Weekday())
	b.WriteString("\nCurrent data:\n")
	b.Write(snapJSON)
	b.WriteString("\n\nUser message:\n")
	b.WriteString(message)
	return b.String(), nil
}
