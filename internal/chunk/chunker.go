// Package chunk splits oversized documents into bounded, semantically
// coherent pieces for per-chunk extraction, and merges per-chunk results back
// together. Chunk size is a soft bound: a single structural unit larger than
// the budget is kept whole rather than force-split.
package chunk

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/casewright/casewright/internal/model"
)

// Strategy names accepted by Chunk.
const (
	StrategyAuto      = "auto"
	StrategySection   = "section"
	StrategyParagraph = "paragraph"
	StrategySentence  = "sentence"
	strategySingle    = "single"
)

// DefaultMaxTokens is the per-chunk token budget when none is configured.
const DefaultMaxTokens = 3000

// charsPerToken is the rough chars-to-tokens conversion used throughout.
const charsPerToken = 4

var headerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^#{1,3}\s+.+$`),     // markdown headers
	regexp.MustCompile(`^\d+\.\s+[A-Z].+$`), // numbered section titles
	regexp.MustCompile(`^[A-Z][A-Z\s]+:`),   // ALL CAPS label lines
}

// Chunker splits documents into processable chunks.
type Chunker struct {
	maxTokens int
	maxChars  int
}

// NewChunker creates a chunker with the given tokens-per-chunk budget.
func NewChunker(maxTokens int) *Chunker {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Chunker{
		maxTokens: maxTokens,
		maxChars:  maxTokens * charsPerToken,
	}
}

// Chunk splits text into chunks using the given strategy ("auto" selects one
// from document structure). Text that already fits the budget is returned as
// a single chunk.
func (c *Chunker) Chunk(text string, strategy string) []model.Chunk {
	if len(text) <= c.maxChars {
		return []model.Chunk{c.makeChunk(0, text, strategySingle)}
	}

	if strategy == "" || strategy == StrategyAuto {
		strategy = c.detectStrategy(text)
	}

	switch strategy {
	case StrategySection:
		return c.accumulate(splitSections(text), "\n\n", StrategySection)
	case StrategyParagraph:
		return c.accumulate(splitParagraphs(text), "\n\n", StrategyParagraph)
	default:
		return c.accumulateSentences(SplitSentences(text))
	}
}

// detectStrategy inspects document structure: sections if at least three
// header-like lines, paragraphs if blank-line splitting yields at least five,
// sentences otherwise.
func (c *Chunker) detectStrategy(text string) string {
	headerCount := 0
	for _, line := range strings.Split(text, "\n") {
		for _, re := range headerPatterns {
			if re.MatchString(line) {
				headerCount++
				break
			}
		}
	}
	if headerCount >= 3 {
		return StrategySection
	}

	if len(splitParagraphs(text)) >= 5 {
		return StrategyParagraph
	}
	return StrategySentence
}

// accumulate greedily packs units into chunks, closing a chunk whenever the
// next unit would exceed the char budget and the buffer is non-empty.
func (c *Chunker) accumulate(units []string, sep string, strategy string) []model.Chunk {
	var chunks []model.Chunk
	var current string
	id := 0

	for _, unit := range units {
		candidate := unit
		if current != "" {
			candidate = current + sep + unit
		}
		if len(candidate) > c.maxChars && current != "" {
			chunks = append(chunks, c.makeChunk(id, current, strategy))
			id++
			current = unit
		} else {
			current = candidate
		}
	}
	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, c.makeChunk(id, current, strategy))
	}
	if len(chunks) == 0 {
		chunks = append(chunks, c.makeChunk(0, "", strategy))
	}
	return chunks
}

// accumulateSentences packs sentences like accumulate but seeds each new
// chunk with the last two sentences of the previous one, preserving context
// across chunk boundaries.
func (c *Chunker) accumulateSentences(sentences []string) []model.Chunk {
	var chunks []model.Chunk
	var buffer []string
	bufferLen := 0
	id := 0

	for _, sentence := range sentences {
		added := len(sentence)
		if len(buffer) > 0 {
			added++ // joining space
		}
		if bufferLen+added > c.maxChars && len(buffer) > 0 {
			chunks = append(chunks, c.makeChunk(id, strings.Join(buffer, " "), StrategySentence))
			id++
			// Bounded overlap: carry the last two sentences forward.
			overlap := buffer
			if len(overlap) > 2 {
				overlap = overlap[len(overlap)-2:]
			}
			buffer = append(append([]string{}, overlap...), sentence)
			bufferLen = len(strings.Join(buffer, " "))
		} else {
			buffer = append(buffer, sentence)
			bufferLen += added
		}
	}
	if len(buffer) > 0 {
		chunks = append(chunks, c.makeChunk(id, strings.Join(buffer, " "), StrategySentence))
	}
	if len(chunks) == 0 {
		chunks = append(chunks, c.makeChunk(0, "", StrategySentence))
	}
	return chunks
}

func (c *Chunker) makeChunk(id int, text string, strategy string) model.Chunk {
	text = strings.TrimSpace(text)
	return model.Chunk{
		ID:              id,
		Text:            text,
		CharCount:       len(text),
		EstimatedTokens: len(text) / charsPerToken,
		Strategy:        strategy,
	}
}

// Merge flattens per-chunk candidate lists and removes duplicates by
// case-insensitive, whitespace-trimmed title. First occurrence wins and
// original ordering is preserved.
func Merge(chunkResults [][]model.UseCase) []model.UseCase {
	var merged []model.UseCase
	seen := make(map[string]bool)

	for _, list := range chunkResults {
		for _, uc := range list {
			key := uc.TitleKey()
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, uc)
		}
	}
	return merged
}

// splitSections splits text into units where each header-like line starts a
// new unit. Text before the first header is its own unit. No line is dropped.
func splitSections(text string) []string {
	lines := strings.Split(text, "\n")
	var units []string
	var current []string

	isHeader := func(line string) bool {
		for _, re := range headerPatterns {
			if re.MatchString(line) {
				return true
			}
		}
		return false
	}

	for _, line := range lines {
		if isHeader(line) && len(current) > 0 {
			units = append(units, strings.Join(current, "\n"))
			current = current[:0]
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		units = append(units, strings.Join(current, "\n"))
	}

	// Filter units that are pure whitespace.
	out := units[:0]
	for _, u := range units {
		if strings.TrimSpace(u) != "" {
			out = append(out, u)
		}
	}
	return out
}

// splitParagraphs splits on blank-line-delimited paragraphs.
func splitParagraphs(text string) []string {
	parts := strings.Split(text, "\n\n")
	paragraphs := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			paragraphs = append(paragraphs, s)
		}
	}
	return paragraphs
}

// SplitSentences splits text on sentence-terminal punctuation followed by
// whitespace, keeping the punctuation with its sentence.
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
				if s := strings.TrimSpace(current.String()); s != "" {
					sentences = append(sentences, s)
				}
				current.Reset()
			}
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
