package analyze

// analysisSystem frames the model as a motion-design reviewer.
const analysisSystem = `You are a motion designer documenting a UI animation so a ` +
	`frontend engineer can rebuild it exactly. Be precise about timing, easing, ` +
	`and element geometry. Describe only what is visible.`

// analysisPrompt is the fixed instruction sent with every clip. The
// section headers are load-bearing: ParseSpec keys off them.
const analysisPrompt = `Watch this animation and write a complete specification of it
using exactly these markdown sections:

## Layout
Overall canvas, positioning, and dimensions of the animated region.

## Elements
Every visual element involved, with colors, sizes, and shapes.

## Sequence
The ordered steps of the animation from first frame to last.

## Timing
Durations, delays, and easing of each step, in milliseconds.

## Trigger
What starts the animation (load, hover, click, scroll).

## Final State
What the screen looks like once the animation settles.

Do not include any implementation code. Describe the motion faithfully,
including subtle effects like blur, shadow, and opacity changes.`
