package document

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

var (
	// ErrNoBlock means the document has no complete readerspec block.
	ErrNoBlock = errors.New("no structured block found")

	// ErrBlockSyntax means the block is present but not valid JSON.
	ErrBlockSyntax = errors.New("JSON parse error")
)

// Parsed is the result of extracting the structured block.
type Parsed struct {
	Content string
	// Block is the generically decoded block. Nil whenever Errors is
	// non-empty.
	Block  any
	Errors []string

	err error
}

// Err returns the parse failure as an error wrapping ErrNoBlock or
// ErrBlockSyntax, or nil.
func (p Parsed) Err() error {
	return p.err
}

// ExtractBlock returns the text between the first open marker and the next
// close fence.
func ExtractBlock(content string) (string, bool) {
	var (
		inBlock  bool
		captured []string
	)
	for _, line := range lines(content) {
		if !inBlock {
			if isOpen(line) {
				inBlock = true
			}
			continue
		}
		if isClose(line) {
			return strings.TrimSpace(strings.Join(captured, "\n")), true
		}
		captured = append(captured, line)
	}
	return "", false
}

// Parse extracts and decodes the structured block of content. It never
// touches section text and never fails: problems are reported in Errors.
func Parse(content string) Parsed {
	text, ok := ExtractBlock(content)
	if !ok {
		return Parsed{
			Content: content,
			Errors:  []string{ErrNoBlock.Error()},
			err:     ErrNoBlock,
		}
	}

	var block any
	if err := json.Unmarshal([]byte(text), &block); err != nil {
		return Parsed{
			Content: content,
			Errors:  []string{fmt.Sprintf("%s: %s", ErrBlockSyntax, err)},
			err:     fmt.Errorf("%w: %v", ErrBlockSyntax, err),
		}
	}

	return Parsed{Content: content, Block: block}
}
