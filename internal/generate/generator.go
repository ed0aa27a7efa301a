package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/kalambet/clip2tsx/internal/analyze"
	"github.com/kalambet/clip2tsx/internal/iterate"
)

// DefaultComponentName is used when the caller does not pick one.
const DefaultComponentName = "AnimatedComponent"

// completer is the slice of the inference client the generator needs.
type completer interface {
	Complete(ctx context.Context, system string, blocks []analyze.ContentBlock) (string, error)
}

// Generator turns a motion spec into React component source and
// applies feedback rounds to it. It implements iterate.Reviser.
type Generator struct {
	llm  completer
	name string
}

func New(llm completer, componentName string) *Generator {
	if componentName == "" {
		componentName = DefaultComponentName
	}
	return &Generator{llm: llm, name: componentName}
}

// ComponentName returns the exported React component name drafts use.
func (g *Generator) ComponentName() string { return g.name }

// Generate produces the first draft from the parsed motion spec.
func (g *Generator) Generate(ctx context.Context, spec *analyze.Spec) (string, error) {
	reply, err := g.llm.Complete(ctx, generateSystem, []analyze.ContentBlock{
		analyze.TextBlock(buildGeneratePrompt(g.name, spec)),
	})
	if err != nil {
		return "", fmt.Errorf("generating component: %w", err)
	}
	code, err := extractCode(reply)
	if err != nil {
		return "", fmt.Errorf("generating component: %w", err)
	}
	return code, nil
}

// Revise rewrites the current source per the collected feedback.
func (g *Generator) Revise(ctx context.Context, source string, tags []iterate.AdjustmentTag, detail string) (string, error) {
	reply, err := g.llm.Complete(ctx, generateSystem, []analyze.ContentBlock{
		analyze.TextBlock(buildRevisePrompt(g.name, source, tags, detail)),
	})
	if err != nil {
		return "", fmt.Errorf("revising component: %w", err)
	}
	code, err := extractCode(reply)
	if err != nil {
		return "", fmt.Errorf("revising component: %w", err)
	}
	return code, nil
}

// extractCode pulls the first fenced code block out of a model reply.
// Replies without a fence are rejected rather than guessed at.
func extractCode(reply string) (string, error) {
	start := strings.Index(reply, "```")
	if start == -1 {
		return "", fmt.Errorf("no code block in model reply")
	}
	rest := reply[start+3:]
	// Skip the language tag on the opening fence line.
	if nl := strings.IndexByte(rest, '\n'); nl != -1 {
		rest = rest[nl+1:]
	}
	end := strings.Index(rest, "```")
	if end == -1 {
		return "", fmt.Errorf("unterminated code block in model reply")
	}
	code := strings.TrimRight(rest[:end], "\n")
	if strings.TrimSpace(code) == "" {
		return "", fmt.Errorf("empty code block in model reply")
	}
	return code + "\n", nil
}
