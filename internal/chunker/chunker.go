package chunker

import "github.com/rivo/uniseg"

// Batch is a run of consecutive segments sent to the translation service in
// one request. Indices point into the planner's input and align 1:1 with Texts.
type Batch struct {
	Index   int
	Indices []int
	Texts   []string
}

// Chars returns the batch's size as counted against the character budget.
func (b Batch) Chars() int {
	n := 0
	for _, t := range b.Texts {
		n += Len(t)
	}
	return n
}

// Oversized reports whether the batch is a lone segment that exceeds maxChars on its own.
func (b Batch) Oversized(maxChars int) bool {
	return len(b.Texts) == 1 && b.Chars() > maxChars
}

// Len counts user-perceived characters, so CJK and combining marks weigh the
// same as ASCII letters.
func Len(s string) int {
	return uniseg.GraphemeClusterCount(s)
}

// Plan packs texts greedily, left to right, into batches of at most maxCount
// items whose combined length stays within maxChars. A text longer than
// maxChars on its own gets a singleton batch; nothing is split or dropped.
// Length is measured with Len, in grapheme clusters: text with combining marks
// may exceed maxChars when counted in code points.
func Plan(texts []string, maxChars, maxCount int) []Batch {
	if maxCount < 1 {
		maxCount = 1
	}
	var batches []Batch
	var cur Batch
	running := 0

	flush := func() {
		if len(cur.Texts) == 0 {
			return
		}
		cur.Index = len(batches)
		batches = append(batches, cur)
		cur = Batch{}
		running = 0
	}

	for i, text := range texts {
		n := Len(text)
		if len(cur.Texts) > 0 && (running+n > maxChars || len(cur.Texts) >= maxCount) {
			flush()
		}
		cur.Indices = append(cur.Indices, i)
		cur.Texts = append(cur.Texts, text)
		running += n
	}
	flush()

	return batches
}
