package repl

import (
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/akashmane1598/hyperdash/variable"
)

// completion is the completion context of the word under the cursor.
type completion struct {
	start, end int
	word       string
	candidates []string

	// browse reports that an empty word should still list every candidate.
	browse bool
}

// openExpression returns the byte offset just past the innermost "${" left
// unclosed before cursor.
func openExpression(input string, cursor int) (int, bool) {
	var open []int

	for i := 0; i < cursor && i < len(input); i++ {
		switch {
		case input[i] == '\\':
			i++

		case i+len("${") <= cursor && strings.HasPrefix(input[i:], "${"):
			open = append(open, i+2)
			i++

		case input[i] == '}' && len(open) > 0:
			open = open[:len(open)-1]
		}
	}

	if len(open) == 0 {
		return 0, false
	}

	return open[len(open)-1], true
}

// isPathBoundary reports whether c ends a segment of a property path.
func isPathBoundary(c byte) bool {
	switch c {
	case '.', '[', ']', '}', '$', '\\', ' ', '\t':
		return true
	}

	return false
}

// pathBounds returns the boundaries of the path segment at cursor, and the
// path leading up to it, within the expression body beginning at open.
func pathBounds(input string, open, cursor int) (parent string, start, end int) {
	start = cursor
	for start > open && !isPathBoundary(input[start-1]) {
		start--
	}

	end = cursor
	for end < len(input) && !isPathBoundary(input[end]) {
		end++
	}

	if start > open && input[start-1] == '.' {
		parent = input[open : start-1]
	}

	return parent, start, end
}

// fieldBounds returns the index of the space-separated field at cursor and
// its boundaries.
func fieldBounds(input string, cursor int) (index, start, end int) {
	start = cursor
	for start > 0 && input[start-1] != ' ' {
		start--
	}

	end = cursor
	for end < len(input) && input[end] != ' ' {
		end++
	}

	return len(strings.Fields(input[:start])), start, end
}

// complete returns the completion context at cursor. In eval mode only the
// body of an unclosed expression is completed, against the variables visible
// from the current scope and the keys of their map values. In control mode
// the first field completes a command name and the second its argument.
func (s *shell) complete(mode inputMode, input string, cursor int) completion {
	if cursor > len(input) {
		cursor = len(input)
	}

	if mode == modeEval {
		open, ok := openExpression(input, cursor)
		if !ok {
			return completion{start: cursor, end: cursor}
		}

		parent, start, end := pathBounds(input, open, cursor)

		return completion{
			start:      start,
			end:        end,
			word:       input[start:end],
			candidates: s.pathCandidates(parent),
			browse:     true,
		}
	}

	index, start, end := fieldBounds(input, cursor)
	c := completion{start: start, end: end, word: input[start:end]}

	switch index {
	case 0:
		c.candidates = commandNames()

	case 1:
		c.candidates = s.argumentCandidates(strings.Fields(input)[0])
		c.browse = true
	}

	return c
}

// pathCandidates returns the names that may follow parent in a path.
func (s *shell) pathCandidates(parent string) []string {
	if parent == "" {
		return s.mgr.Keys(s.current)
	}

	m, ok := variable.Lookup(s.mgr.Dictionary(s.current), parent).(map[string]any)
	if !ok {
		return nil
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}

// argumentCandidates returns the values that may follow command.
func (s *shell) argumentCandidates(command string) []string {
	switch command {
	case "cd", "destroy":
		var names []string

		if s.current != s.root {
			names = append(names, "..")
		}

		for _, c := range s.tree.Children(s.current) {
			names = append(names, s.tree.Name(c))
		}

		return names

	case "get", "set":
		return s.mgr.Keys(s.current)

	case "unref":
		return s.bag(s.current).Keys()

	case "show":
		return []string{"raw"}
	}

	return nil
}

// computeMatches calculates the fuzzy match results for the word at the
// cursor, ranked best-first. An empty word lists every candidate only where
// the completion context browses.
func (m model) computeMatches() (
	matches fuzzy.Matches,
	candidates []string,
	wordStart, wordEnd int,
) {
	c := m.shell.complete(m.mode, m.input.Value(), m.input.Position())
	wordStart, wordEnd = c.start, c.end

	if len(c.candidates) == 0 {
		return nil, nil, wordStart, wordEnd
	}

	if c.word == "" {
		if !c.browse {
			return nil, nil, wordStart, wordEnd
		}

		matches = make(fuzzy.Matches, len(c.candidates))
		for i, cand := range c.candidates {
			matches[i] = fuzzy.Match{Str: cand, Index: i}
		}

		return matches, c.candidates, wordStart, wordEnd
	}

	return fuzzy.Find(c.word, c.candidates), c.candidates, wordStart, wordEnd
}

// renderCandidateBar builds the single-line completion bar, ellipsized to fit
// within the given terminal width. The selected candidate (when tabbing) uses
// the selected style.
func renderCandidateBar(
	matches fuzzy.Matches,
	suggIdx int,
	tabActive bool,
	width int,
) string {
	if len(matches) == 0 || width <= 0 {
		return ""
	}

	const sep = "  "

	sepWidth := lipgloss.Width(sep)
	ellipsis := hintStyle.Render("...")
	ellipsisWidth := lipgloss.Width(ellipsis)

	var b strings.Builder

	used := 0

	for i, match := range matches {
		rendered := renderCandidate(match, tabActive && i == suggIdx)

		entryWidth := lipgloss.Width(rendered)
		if i > 0 {
			entryWidth += sepWidth
		}

		if i > 0 && used+entryWidth+ellipsisWidth > width {
			b.WriteString(sep)
			b.WriteString(ellipsis)

			break
		}

		if i > 0 {
			b.WriteString(sep)
		}

		b.WriteString(rendered)

		used += entryWidth
	}

	return b.String()
}

// renderCandidate renders a single candidate with matched characters
// highlighted.
func renderCandidate(match fuzzy.Match, selected bool) string {
	baseStyle := suggestionStyle
	highlightStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("4")).
		Bold(true)

	if selected {
		baseStyle = selectedStyle
		highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("4")).
			Bold(true)
	}

	var b strings.Builder

	for i, r := range match.Str {
		if slices.Contains(match.MatchedIndexes, i) {
			b.WriteString(highlightStyle.Render(string(r)))
		} else {
			b.WriteString(baseStyle.Render(string(r)))
		}
	}

	return b.String()
}
