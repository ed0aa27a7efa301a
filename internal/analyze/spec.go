package analyze

import (
	"fmt"
	"os"
	"strings"
)

// sectionOrder lists the canonical analysis sections.
var sectionOrder = []string{"layout", "elements", "sequence", "timing", "trigger", "final state"}

// Spec is the structured motion analysis. It is produced once per
// analyzer invocation and never mutated afterwards; it seeds the first
// component generation.
type Spec struct {
	Raw      string
	Sections map[string]string
}

// ParseSpec splits the model reply into the canonical sections. Headers
// the model omitted simply stay absent; Raw always carries the full
// text so nothing is lost to parsing.
func ParseSpec(text string) *Spec {
	spec := &Spec{
		Raw:      strings.TrimSpace(text),
		Sections: make(map[string]string),
	}

	var current string
	var body []string
	flush := func() {
		if current != "" {
			spec.Sections[current] = strings.TrimSpace(strings.Join(body, "\n"))
		}
		body = body[:0]
	}

	for _, line := range strings.Split(spec.Raw, "\n") {
		if name, ok := sectionHeader(line); ok {
			flush()
			current = name
			continue
		}
		if current != "" {
			body = append(body, line)
		}
	}
	flush()

	return spec
}

// sectionHeader matches "## <canonical section>" case-insensitively.
func sectionHeader(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "##") {
		return "", false
	}
	name := strings.ToLower(strings.TrimSpace(strings.TrimLeft(trimmed, "#")))
	for _, s := range sectionOrder {
		if name == s {
			return s, true
		}
	}
	return "", false
}

// Section returns a named section's body, or "".
func (s *Spec) Section(name string) string {
	return s.Sections[strings.ToLower(name)]
}

// Complete reports whether every canonical section is present and
// non-empty. Used to warn when the analysis looks truncated.
func (s *Spec) Complete() bool {
	for _, name := range sectionOrder {
		if strings.TrimSpace(s.Sections[name]) == "" {
			return false
		}
	}
	return true
}

// Save writes the analysis document to path.
func (s *Spec) Save(path string) error {
	if err := os.WriteFile(path, []byte(s.Raw+"\n"), 0o644); err != nil {
		return fmt.Errorf("saving analysis: %w", err)
	}
	return nil
}

// LoadSpec reads a previously saved analysis document.
func LoadSpec(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading analysis: %w", err)
	}
	return ParseSpec(string(data)), nil
}
