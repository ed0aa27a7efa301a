package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/kalambet/clip2tsx/internal/iterate"
)

// consoleFeedback collects ratings and adjustment detail from the
// terminal. It implements iterate.FeedbackSource; the wait for input
// is unbounded on purpose.
type consoleFeedback struct {
	in *bufio.Reader
}

func newConsoleFeedback(in io.Reader) *consoleFeedback {
	return &consoleFeedback{in: bufio.NewReader(in)}
}

func (c *consoleFeedback) readLine() (string, error) {
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (c *consoleFeedback) Rate(ctx context.Context, st iterate.State) (iterate.Feedback, error) {
	fmt.Println()
	printStatus("Iteration", "%d", st.Iteration)
	fmt.Println("How well does the preview match the original?")
	fmt.Println("  1) perfect        — ship it")
	fmt.Println("  2) minor-tweaks   — close, small adjustments")
	fmt.Println("  3) several-issues — noticeable differences")
	fmt.Println("  4) major-rework   — misses the animation")

	for {
		printPrompt("rating [1-4, or cancel]:")
		line, err := c.readLine()
		if err != nil {
			return iterate.Feedback{}, fmt.Errorf("reading rating: %w", err)
		}
		if iterate.IsCancellation(line) {
			return iterate.Feedback{Cancel: true}, nil
		}
		q, err := iterate.ParseQuality(line)
		if err != nil {
			printWarning("%v", err)
			continue
		}
		return iterate.Feedback{Quality: q}, nil
	}
}

func (c *consoleFeedback) Detail(ctx context.Context, st iterate.State) (iterate.Feedback, error) {
	fmt.Println("What needs adjusting? Tags: timing, colors, motion, layout, easing, content")
	printPrompt("tags [comma-separated, empty for none]:")
	tagLine, err := c.readLine()
	if err != nil {
		return iterate.Feedback{}, fmt.Errorf("reading tags: %w", err)
	}
	if iterate.IsCancellation(tagLine) {
		return iterate.Feedback{Cancel: true}, nil
	}

	printPrompt("describe what is wrong:")
	detail, err := c.readLine()
	if err != nil {
		return iterate.Feedback{}, fmt.Errorf("reading detail: %w", err)
	}
	if iterate.IsCancellation(detail) {
		return iterate.Feedback{Cancel: true}, nil
	}

	return iterate.Feedback{Tags: parseTags(tagLine), Detail: detail}, nil
}

// parseTags splits a comma-separated tag list, dropping empties and
// unknown tags with a warning.
func parseTags(line string) []iterate.AdjustmentTag {
	known := map[string]iterate.AdjustmentTag{
		"timing":  iterate.TagTiming,
		"colors":  iterate.TagColors,
		"motion":  iterate.TagMotion,
		"layout":  iterate.TagLayout,
		"easing":  iterate.TagEasing,
		"content": iterate.TagContent,
	}

	var tags []iterate.AdjustmentTag
	for _, part := range strings.Split(line, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		tag, ok := known[name]
		if !ok {
			printWarning("ignoring unknown tag %q", name)
			continue
		}
		tags = append(tags, tag)
	}
	return tags
}
