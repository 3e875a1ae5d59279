package document

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

// Splitter breaks document content into chunk texts.
type Splitter interface {
	Split(content string) ([]string, error)
}

// SplitterConfig selects a splitting strategy.
type SplitterConfig struct {
	// Mode is "newline" or "recursive". Default "newline".
	Mode string `koanf:"mode"`

	// ChunkSize and ChunkOverlap apply to recursive mode.
	ChunkSize    int `koanf:"chunk_size"`
	ChunkOverlap int `koanf:"chunk_overlap"`
}

// NewSplitter builds the splitter named by cfg.Mode.
func NewSplitter(cfg SplitterConfig) (Splitter, error) {
	switch cfg.Mode {
	case "", "newline":
		return newlineSplitter{}, nil
	case "recursive":
		size := cfg.ChunkSize
		if size <= 0 {
			size = 512
		}
		overlap := cfg.ChunkOverlap
		if overlap < 0 {
			overlap = 0
		}
		return recursiveSplitter{
			inner: textsplitter.NewRecursiveCharacter(
				textsplitter.WithChunkSize(size),
				textsplitter.WithChunkOverlap(overlap),
			),
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown splitter mode %q", ErrInvalid, cfg.Mode)
	}
}

// newlineSplitter yields one chunk per non-blank line.
type newlineSplitter struct{}

func (newlineSplitter) Split(content string) ([]string, error) {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return out, nil
}

// recursiveSplitter delegates to langchaingo's recursive character
// splitter for size-bounded chunks.
type recursiveSplitter struct {
	inner textsplitter.RecursiveCharacter
}

func (s recursiveSplitter) Split(content string) ([]string, error) {
	chunks, err := s.inner.SplitText(content)
	if err != nil {
		return nil, fmt.Errorf("splitting text: %w", err)
	}
	return chunks, nil
}
