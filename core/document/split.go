// Package document reads and rewrites spec documents: markdown prose split
// into "## " sections, plus one fenced readerspec block holding the
// resource description.
//
// Everything here is pure. Callers do their own I/O.
package document

import "strings"

// Document format markers.
const (
	// OpenMarker starts the structured block. Only whitespace may follow
	// it on the line.
	OpenMarker = "```readerspec"

	// Fence closes the structured block. The line must hold nothing else.
	Fence = "```"

	// HeadingPrefix starts a prose section.
	HeadingPrefix = "## "

	// Extension is the file suffix of spec documents.
	Extension = ".readerspec.md"
)

// Section is one heading-delimited prose region.
type Section struct {
	Type    SectionType
	Title   string
	Content string
}

// Parts is the result of splitting a document.
type Parts struct {
	Sections []Section
	// Block is the raw text between the markers, without the marker lines.
	Block string
	// HasBlock is true when a complete block was found, even if empty.
	HasBlock bool
}

func isOpen(line string) bool {
	return strings.TrimSpace(line) == OpenMarker
}

func isClose(line string) bool {
	return strings.TrimSpace(line) == Fence
}

// lines splits content on "\n", dropping any "\r" line endings.
func lines(content string) []string {
	ls := strings.Split(content, "\n")
	for i, l := range ls {
		ls[i] = strings.TrimSuffix(l, "\r")
	}
	return ls
}

// Split scans content line by line and returns its sections and block.
//
// The scanner has two states. In the default state a heading line starts a
// new section and any other non-blank line is appended to the current
// section. The first open marker switches to block capture, which lasts
// until a close fence. A block that is never closed is discarded. Once a
// block has been captured, later open markers are plain section content.
// Lines before the first heading belong to no section and are dropped.
func Split(content string) Parts {
	var (
		parts    Parts
		current  *Section
		inBlock  bool
		captured []string
	)

	flush := func() {
		if current != nil {
			parts.Sections = append(parts.Sections, *current)
			current = nil
		}
	}

	for _, line := range lines(content) {
		if inBlock {
			if isClose(line) {
				inBlock = false
				parts.HasBlock = true
				parts.Block = strings.TrimSpace(strings.Join(captured, "\n"))
				continue
			}
			captured = append(captured, line)
			continue
		}

		if !parts.HasBlock && isOpen(line) {
			inBlock = true
			captured = nil
			continue
		}

		if strings.HasPrefix(line, HeadingPrefix) {
			flush()
			title := strings.TrimSpace(line[len(HeadingPrefix):])
			current = &Section{Type: Classify(title), Title: title}
			continue
		}

		if current != nil && strings.TrimSpace(line) != "" {
			current.Content += line + "\n"
		}
	}
	flush()

	return parts
}
