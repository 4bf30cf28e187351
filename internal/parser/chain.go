package parser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"

	"docquery/internal/provider"
)

// ErrExtractionFailed means every extractor in the chain failed. The
// document must be marked failed by the caller; ingestion never retries on
// its own.
var ErrExtractionFailed = errors.New("extraction failed")

const recoveryInputLimit = 16000

// Chain tries native format parsers first and, when they all fail, asks a
// model to salvage plain text from whatever printable content the file has.
// First success wins.
type Chain struct {
	router        *provider.Router
	recoveryModel string
}

func NewChain(router *provider.Router, recoveryModel string) *Chain {
	return &Chain{router: router, recoveryModel: recoveryModel}
}

func (c *Chain) Extract(ctx context.Context, filePath string) ([]Page, error) {
	pages, err := ExtractFile(filePath)
	if err == nil && len(pages) > 0 {
		return pages, nil
	}
	if err != nil {
		log.Warn().Err(err).Str("file", filePath).Msg("native extraction failed")
	}

	if c.router == nil || c.recoveryModel == "" {
		return nil, fmt.Errorf("%w: %s", ErrExtractionFailed, filePath)
	}

	pages, rerr := c.recover(ctx, filePath)
	if rerr != nil {
		log.Warn().Err(rerr).Str("file", filePath).Msg("recovery extraction failed")
		return nil, fmt.Errorf("%w: %s", ErrExtractionFailed, filePath)
	}
	return pages, nil
}

func (c *Chain) recover(ctx context.Context, filePath string) ([]Page, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	printable := printableRuns(string(raw))
	if len(printable) == 0 {
		return nil, fmt.Errorf("no printable content in %s", filePath)
	}
	if len(printable) > recoveryInputLimit {
		printable = printable[:recoveryInputLimit]
	}

	resp, err := c.router.Invoke(ctx, c.recoveryModel, []provider.Message{
		{Role: provider.RoleSystem, Content: "You reconstruct readable plain text from corrupted document fragments. Output only the recovered text, nothing else."},
		{Role: provider.RoleUser, Content: printable},
	}, nil, 0)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.Answer) == "" {
		return nil, fmt.Errorf("recovery produced empty text for %s", filePath)
	}

	return []Page{{Number: 1, Text: resp.Answer, Confidence: confRecovery, Method: "llm-recovery"}}, nil
}

// printableRuns keeps runs of printable characters and collapses the rest
// into single spaces.
func printableRuns(s string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range s {
		if unicode.IsPrint(r) && r != unicode.ReplacementChar {
			b.WriteRune(r)
			lastSpace = false
		} else if !lastSpace {
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}
