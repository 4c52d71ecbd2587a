// Package chunk splits structured markdown into overlapping, section-aware
// chunks. Adapted from the teacher's internal/service/chunker.go paragraph/
// sentence/overlap segmentation (sha256 hash, word-based token estimate),
// generalized from plain-text chunking to markdown-section-aware chunking
// with an enforced min/max token window (spec.md §4.10).
package chunk

import (
	"context"
	"crypto/sha256"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
)

// Chunk is one markdown fragment ready for embedding.
type Chunk struct {
	ChunkID      string
	Content      string
	ContentHash  string
	TokenCount   int
	Index        int
	DocumentID   string
	SectionTitle string
}

// Chunker splits markdown by section/paragraph, enforcing the configured
// max/min token window per chunk.
type Chunker struct {
	maxTokens  int
	minTokens  int
	overlapPct float64
}

func New(maxTokens, minTokens int, overlapPct float64) *Chunker {
	if maxTokens <= 0 {
		maxTokens = 512
	}
	if minTokens <= 0 || minTokens >= maxTokens {
		minTokens = 40
	}
	if overlapPct <= 0 || overlapPct >= 1 {
		overlapPct = 0.20
	}
	return &Chunker{maxTokens: maxTokens, minTokens: minTokens, overlapPct: overlapPct}
}

// Split divides markdown into chunks for docID. Segments below minTokens
// are merged forward into the next segment rather than kept as a fragment.
func (c *Chunker) Split(ctx context.Context, markdown, docID string) ([]Chunk, error) {
	if strings.TrimSpace(markdown) == "" {
		return nil, fmt.Errorf("chunk.Split: text is empty")
	}

	paragraphs := splitParagraphs(markdown)
	if len(paragraphs) == 0 {
		return nil, fmt.Errorf("chunk.Split: no content after splitting")
	}

	segments := c.buildSegments(paragraphs)
	segments = c.mergeUndersized(segments)
	segments = c.applyOverlap(segments)

	chunks := make([]Chunk, 0, len(segments))
	for _, seg := range segments {
		content := strings.TrimSpace(seg.content)
		if content == "" {
			continue
		}
		chunks = append(chunks, Chunk{
			ChunkID:      uuid.NewString(),
			Content:      content,
			ContentHash:  sha256Hash(content),
			TokenCount:   estimateTokens(content),
			DocumentID:   docID,
			SectionTitle: seg.sectionTitle,
		})
	}
	for i := range chunks {
		chunks[i].Index = i
	}
	return chunks, nil
}

type segment struct {
	content      string
	sectionTitle string
}

func (c *Chunker) buildSegments(paragraphs []string) []segment {
	var segments []segment
	var current strings.Builder
	currentSection := ""

	for _, para := range paragraphs {
		if title := extractSectionTitle(para); title != "" {
			currentSection = title
		}

		paraTokens := estimateTokens(para)
		currentTokens := estimateTokens(current.String())

		if currentTokens > 0 && currentTokens+paraTokens > c.maxTokens {
			segments = append(segments, segment{content: current.String(), sectionTitle: currentSection})
			current.Reset()
		}

		if paraTokens > c.maxTokens {
			if current.Len() > 0 {
				segments = append(segments, segment{content: current.String(), sectionTitle: currentSection})
				current.Reset()
			}
			for _, sub := range splitLargeParagraph(para, c.maxTokens) {
				segments = append(segments, segment{content: sub, sectionTitle: currentSection})
			}
			continue
		}

		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	if current.Len() > 0 {
		segments = append(segments, segment{content: current.String(), sectionTitle: currentSection})
	}
	return segments
}

// mergeUndersized folds any segment below minTokens into the following
// segment, so a lone short paragraph doesn't become its own chunk.
func (c *Chunker) mergeUndersized(segments []segment) []segment {
	if len(segments) <= 1 {
		return segments
	}
	var out []segment
	var pending *segment
	for i := range segments {
		seg := segments[i]
		if pending != nil {
			seg.content = pending.content + "\n\n" + seg.content
			if pending.sectionTitle != "" {
				seg.sectionTitle = pending.sectionTitle
			}
			pending = nil
		}
		if estimateTokens(seg.content) < c.minTokens && i != len(segments)-1 {
			s := seg
			pending = &s
			continue
		}
		out = append(out, seg)
	}
	if pending != nil {
		out = append(out, *pending)
	}
	return out
}

func (c *Chunker) applyOverlap(segments []segment) []segment {
	if len(segments) <= 1 {
		return segments
	}
	result := make([]segment, len(segments))
	result[0] = segments[0]
	for i := 1; i < len(segments); i++ {
		prevContent := segments[i-1].content
		overlapWords := int(math.Ceil(float64(wordCount(prevContent)) * c.overlapPct))
		tail := lastNWords(prevContent, overlapWords)
		if tail != "" {
			result[i] = segment{content: tail + "\n\n" + segments[i].content, sectionTitle: segments[i].sectionTitle}
		} else {
			result[i] = segments[i]
		}
	}
	return result
}

func splitParagraphs(text string) []string {
	raw := strings.Split(text, "\n\n")
	var result []string
	for _, p := range raw {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func splitLargeParagraph(para string, maxTokens int) []string {
	sentences := splitSentences(para)
	var chunks []string
	var current strings.Builder
	for _, sent := range sentences {
		sentTokens := estimateTokens(sent)
		if sentTokens > maxTokens {
			if current.Len() > 0 {
				chunks = append(chunks, current.String())
				current.Reset()
			}
			chunks = append(chunks, splitByWords(sent, maxTokens)...)
			continue
		}
		currentTokens := estimateTokens(current.String())
		if currentTokens > 0 && currentTokens+sentTokens > maxTokens {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sent)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	if len(chunks) == 0 && len(para) > 0 {
		chunks = splitByWords(para, maxTokens)
	}
	return chunks
}

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	for i, r := range text {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(text) && text[i+1] == ' ' {
			sentences = append(sentences, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, strings.TrimSpace(current.String()))
	}
	return sentences
}

func splitByWords(text string, maxTokens int) []string {
	words := strings.Fields(text)
	wordsPerChunk := int(float64(maxTokens) / 1.3)
	if wordsPerChunk <= 0 {
		wordsPerChunk = 1
	}
	var chunks []string
	for i := 0; i < len(words); i += wordsPerChunk {
		end := i + wordsPerChunk
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}
	return chunks
}

// extractSectionTitle detects markdown-style headers (# Title, ## Section).
func extractSectionTitle(para string) string {
	trimmed := strings.TrimSpace(para)
	if strings.HasPrefix(trimmed, "#") {
		if title := strings.TrimLeft(trimmed, "# "); title != "" {
			return title
		}
	}
	return ""
}

func estimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return int(math.Ceil(float64(len(strings.Fields(text))) * 1.3))
}

func wordCount(text string) int { return len(strings.Fields(text)) }

func lastNWords(text string, n int) string {
	words := strings.Fields(text)
	if n >= len(words) {
		return text
	}
	return strings.Join(words[len(words)-n:], " ")
}

func sha256Hash(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", h)
}
