package document

import "strings"

// Rewrite returns content with its structured block replaced by block.
//
// When content has an open marker followed by a close fence, everything
// from the first open marker line through the last close fence line is
// replaced. Otherwise the block is appended after a blank line. Bytes
// outside the replaced span are kept verbatim, line endings included. The
// inserted block uses "\r\n" when the document does.
//
// The returned string is complete before any caller writes it, so a write
// failure can never leave a half-rewritten document.
func Rewrite(content, block string) string {
	nl := "\n"
	if strings.Contains(content, "\r\n") {
		nl = "\r\n"
	}
	body := strings.ReplaceAll(strings.TrimSpace(block), "\r\n", "\n")
	fenced := OpenMarker + nl + strings.ReplaceAll(body, "\n", nl) + nl + Fence

	ls := spans(content)
	start := -1
	for i, l := range ls {
		if isOpen(l.text) {
			start = i
			break
		}
	}

	end := -1
	if start >= 0 {
		for i := len(ls) - 1; i > start; i-- {
			if isClose(ls[i].text) {
				end = i
				break
			}
		}
	}

	if end < 0 {
		if strings.TrimSpace(content) == "" {
			return fenced + nl
		}
		if !strings.HasSuffix(content, "\n") {
			content += nl
		}
		return content + nl + fenced + nl
	}

	return content[:ls[start].offset] + fenced + content[ls[end].offset+len(ls[end].text):]
}

// span is one line of a document located by byte offset. text excludes the
// line terminator.
type span struct {
	offset int
	text   string
}

func spans(content string) []span {
	var out []span
	offset := 0
	for {
		i := strings.IndexByte(content[offset:], '\n')
		if i < 0 {
			out = append(out, span{offset: offset, text: content[offset:]})
			return out
		}
		out = append(out, span{offset: offset, text: strings.TrimSuffix(content[offset:offset+i], "\r")})
		offset += i + 1
	}
}
