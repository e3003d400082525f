package vpn

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yllada/vpnonline/common"
)

// Entry is a definition with its user-facing index. Indices start at 1
// and follow the cache order, so listing and connecting agree.
type Entry struct {
	Index int
	Definition
}

// Index numbers definitions 1..N in the given order.
func Index(defs []Definition) []Entry {
	entries := make([]Entry, len(defs))
	for i, d := range defs {
		entries[i] = Entry{Index: i + 1, Definition: d}
	}
	return entries
}

// ListAll returns every entry. It is the ordering Resolve and Search use.
func ListAll(entries []Entry) []Entry {
	return entries
}

// Resolve returns the entry with the given index.
func Resolve(entries []Entry, index int) (Entry, error) {
	for _, e := range entries {
		if e.Index == index {
			return e, nil
		}
	}
	return Entry{}, common.KindError(common.ErrIndex, nil, "%d", index)
}

// Search returns the entries whose name contains every keyword, ignoring
// case. Entries keep their original index. No keywords returns all entries.
func Search(entries []Entry, keywords []string) []Entry {
	keywords = normalizeKeywords(keywords)
	if len(keywords) == 0 {
		return ListAll(entries)
	}

	matched := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if Matches(e.Name, keywords) {
			matched = append(matched, e)
		}
	}
	return matched
}

// Matches reports whether name contains every keyword, ignoring case.
func Matches(name string, keywords []string) bool {
	lowered, _ := foldWithOffsets(name)
	for _, kw := range normalizeKeywords(keywords) {
		if !strings.Contains(lowered, lowerString(kw)) {
			return false
		}
	}
	return true
}

// Highlighter marks a matched part of a name.
type Highlighter interface {
	Highlight(s string) string
}

// BracketHighlighter wraps matches in square brackets, for output that
// cannot carry color.
type BracketHighlighter struct{}

// Highlight wraps s in brackets.
func (BracketHighlighter) Highlight(s string) string {
	return "[" + s + "]"
}

// Render marks every keyword occurrence in name. Overlapping and adjacent
// occurrences are marked as one span and the original casing is kept.
func Render(name string, keywords []string, h Highlighter) string {
	spans := matchSpans(name, keywords)
	if len(spans) == 0 {
		return name
	}

	var b strings.Builder
	last := 0
	for _, s := range spans {
		b.WriteString(name[last:s.start])
		b.WriteString(h.Highlight(name[s.start:s.end]))
		last = s.end
	}
	b.WriteString(name[last:])
	return b.String()
}

type span struct {
	start, end int
}

// matchSpans returns the merged byte ranges of name matched by keywords.
func matchSpans(name string, keywords []string) []span {
	lowered, offsets := foldWithOffsets(name)

	var spans []span
	for _, kw := range normalizeKeywords(keywords) {
		needle := lowerString(kw)
		for from := 0; from <= len(lowered)-len(needle); {
			i := strings.Index(lowered[from:], needle)
			if i < 0 {
				break
			}
			ls := from + i
			le := ls + len(needle)
			spans = append(spans, span{start: offsets[ls].start, end: offsets[le-1].end})

			_, size := utf8.DecodeRuneInString(lowered[ls:])
			from = ls + size
		}
	}

	if len(spans) == 0 {
		return nil
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	merged := []span{spans[0]}
	for _, s := range spans[1:] {
		cur := &merged[len(merged)-1]
		if s.start <= cur.end {
			if s.end > cur.end {
				cur.end = s.end
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// foldWithOffsets lower-cases s rune by rune and records, for every byte
// of the result, the byte range of the rune in s it came from.
func foldWithOffsets(s string) (string, []span) {
	var b strings.Builder
	offsets := make([]span, 0, len(s))
	for i, r := range s {
		_, size := utf8.DecodeRuneInString(s[i:])
		n, _ := b.WriteRune(unicode.ToLower(r))
		for k := 0; k < n; k++ {
			offsets = append(offsets, span{start: i, end: i + size})
		}
	}
	return b.String(), offsets
}

func lowerString(s string) string {
	lowered, _ := foldWithOffsets(s)
	return lowered
}

// normalizeKeywords drops empty keywords.
func normalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
