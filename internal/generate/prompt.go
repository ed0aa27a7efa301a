package generate

import (
	"fmt"
	"strings"

	"github.com/kalambet/clip2tsx/internal/analyze"
	"github.com/kalambet/clip2tsx/internal/iterate"
)

const generateSystem = `You are a senior front-end engineer who recreates recorded UI animations as React components. You write TypeScript with inline styles and CSS keyframes injected via a <style> tag, no external animation libraries. Reply with exactly one fenced tsx code block and nothing else.`

func buildGeneratePrompt(name string, spec *analyze.Spec) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Implement the animation described below as a self-contained React component named %s.\n\n", name)
	b.WriteString("Requirements:\n")
	fmt.Fprintf(&b, "- Default-export a function component named %s with no required props.\n", name)
	b.WriteString("- Match layout, colors, element shapes, timing, and easing as described.\n")
	b.WriteString("- Honor the trigger: if the animation plays on mount, start it in an effect; if it needs interaction, wire the handler.\n")
	b.WriteString("- End in the described final state, including whether the animation loops.\n\n")
	b.WriteString("Animation description:\n\n")
	b.WriteString(spec.Raw)
	return b.String()
}

func buildRevisePrompt(name string, source string, tags []iterate.AdjustmentTag, detail string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Revise the React component %s below. Keep everything that was not flagged.\n\n", name)
	if len(tags) > 0 {
		names := make([]string, len(tags))
		for i, t := range tags {
			names[i] = string(t)
		}
		fmt.Fprintf(&b, "Areas to adjust: %s\n", strings.Join(names, ", "))
	}
	if detail != "" {
		fmt.Fprintf(&b, "What is wrong: %s\n", detail)
	}
	b.WriteString("\nCurrent source:\n\n```tsx\n")
	b.WriteString(source)
	if !strings.HasSuffix(source, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("```\n")
	return b.String()
}
