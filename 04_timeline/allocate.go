package timeline

import "unicode"

// TimedChunk is one subtitle chunk with its share of the line's audio.
// Start is relative to the scene once the chunk has been sequenced by
// BuildScene; Allocate leaves it at zero.
type TimedChunk struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// End returns Start + Duration.
func (c TimedChunk) End() float64 {
	return c.Start + c.Duration
}

// Allocate spreads total over chunks in proportion to their non-whitespace
// character counts.
//
// When there is more than a second of audio per chunk, any chunk that would
// be shown for less than minChunk is raised to minChunk. The last chunk then
// absorbs whatever is left so the durations always add up to total.
func Allocate(chunks []string, total, minChunk float64) []TimedChunk {
	if len(chunks) == 0 {
		return nil
	}

	weights := make([]int, len(chunks))
	sum := 0
	for i, c := range chunks {
		weights[i] = weight(c)
		sum += weights[i]
	}
	if sum == 0 {
		sum = 1
	}

	floorApplies := float64(len(chunks)) < total

	result := make([]TimedChunk, len(chunks))
	allocated := 0.0
	for i, c := range chunks {
		d := total * float64(weights[i]) / float64(sum)
		if floorApplies && d < minChunk {
			d = minChunk
		}
		result[i] = TimedChunk{Text: c, Duration: d}
		allocated += d
	}

	result[len(result)-1].Duration += total - allocated
	return result
}

func weight(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
