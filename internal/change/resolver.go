// Package change implements the change model and resolver: mapping
// user-provided fragments to canonical change ids, and deriving change
// status from task progress.
package change

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/jamesonstone/ito/internal/itopath"
)

// Kind describes the outcome of resolving a user query to a change id.
type Kind int

const (
	// NotFound means no change matched the query.
	NotFound Kind = iota
	// Unique means exactly one change matched.
	Unique
	// Ambiguous means more than one change matched.
	Ambiguous
)

// Result is the outcome of Resolve.
type Result struct {
	Kind       Kind
	ID         string
	Candidates []string
}

var twoIntTokens = regexp.MustCompile(`^\s*0*(\d+)\D+0*(\d+)\s*$`)
var moduleQuery = regexp.MustCompile(`^([^:]+):(.*)$`)
var pureNumeric = regexp.MustCompile(`^\d+$`)

// tokenize lowercases s and splits it into alphanumeric tokens, treating any
// run of non-alphanumeric characters as a separator.
func tokenize(s string) []string {
	lower := strings.ToLower(s)
	var b strings.Builder
	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	fields := strings.Fields(b.String())
	return fields
}

// slugTokens turns a canonical name's slug portion into a
// space-joined, lowercased token string for substring matching.
func slugTokens(name string) string {
	id, ok := itopath.ParseChangeID(name)
	if !ok || id.Slug == "" {
		return strings.Join(tokenize(name), " ")
	}
	return strings.Join(tokenize(id.Slug), " ")
}

// Resolve maps input to a change id among names (canonical change directory
// names). If includeArchived is true, archived is also searched. Resolution
// follows the order documented in spec.md §4.2: exact match, numeric
// selector, module-scoped query, pure-numeric module selector, prefix match,
// then token-wise slug match.
func Resolve(names []string, archived []string, input string, includeArchived bool) Result {
	input = strings.TrimSpace(input)
	if input == "" {
		return Result{Kind: NotFound}
	}

	pool := make([]string, len(names))
	copy(pool, names)
	if includeArchived {
		pool = append(pool, archived...)
	}
	sort.Strings(pool)

	// 1. Exact canonical match.
	for _, n := range pool {
		if n == input {
			return Result{Kind: Unique, ID: n}
		}
	}

	// 2. Numeric selector: any string yielding exactly two integer tokens.
	if m := twoIntTokens.FindStringSubmatch(input); m != nil {
		modNum, _ := strconv.Atoi(m[1])
		chNum, _ := strconv.Atoi(m[2])
		prefix := itopath.ChangeID{Module: padModule(modNum), Number: padNumber(chNum)}.String()
		matches := uniqueSorted(filterFunc(pool, func(n string) bool {
			return n == prefix || strings.HasPrefix(n, prefix+"_")
		}))
		return resultFromSet(matches)
	}

	// 3. Module-scoped query MODULE:query.
	if m := moduleQuery.FindStringSubmatch(input); m != nil {
		module := strings.TrimSpace(m[1])
		query := strings.TrimSpace(m[2])
		tokens := tokenize(query)
		if len(tokens) == 0 {
			return Result{Kind: NotFound}
		}
		var matches []string
		for _, n := range pool {
			id, ok := itopath.ParseChangeID(n)
			if !ok {
				continue
			}
			modNum, err := strconv.Atoi(module)
			if err == nil && id.Module != padModule(modNum) {
				continue
			}
			if err != nil && id.Module != module {
				continue
			}
			slug := slugTokens(n)
			if allTokensPresent(slug, tokens) {
				matches = append(matches, n)
			}
		}
		return resultFromSet(uniqueSorted(matches))
	}

	// 4. Pure numeric module selector.
	if pureNumeric.MatchString(input) {
		modNum, _ := strconv.Atoi(input)
		want := padModule(modNum)
		var matches []string
		for _, n := range pool {
			id, ok := itopath.ParseChangeID(n)
			if ok && id.Module == want {
				matches = append(matches, n)
			}
		}
		return resultFromSet(uniqueSorted(matches))
	}

	// 5. Prefix match on the full name.
	var prefixMatches []string
	for _, n := range pool {
		if strings.HasPrefix(n, input) {
			prefixMatches = append(prefixMatches, n)
		}
	}
	if len(prefixMatches) > 0 {
		return resultFromSet(uniqueSorted(prefixMatches))
	}

	// 6. Token-wise slug match against all names.
	tokens := tokenize(input)
	if len(tokens) == 0 {
		return Result{Kind: NotFound}
	}
	var tokenMatches []string
	for _, n := range pool {
		if allTokensPresent(slugTokens(n), tokens) {
			tokenMatches = append(tokenMatches, n)
		}
	}
	return resultFromSet(uniqueSorted(tokenMatches))
}

func allTokensPresent(haystack string, tokens []string) bool {
	for _, t := range tokens {
		if !strings.Contains(haystack, t) {
			return false
		}
	}
	return true
}

func filterFunc(in []string, keep func(string) bool) []string {
	var out []string
	for _, v := range in {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func uniqueSorted(in []string) []string {
	set := make(map[string]struct{}, len(in))
	for _, v := range in {
		set[v] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func resultFromSet(matches []string) Result {
	switch len(matches) {
	case 0:
		return Result{Kind: NotFound}
	case 1:
		return Result{Kind: Unique, ID: matches[0]}
	default:
		return Result{Kind: Ambiguous, Candidates: matches}
	}
}

func padModule(n int) string {
	return fmtPad(n, 3)
}

func padNumber(n int) string {
	return fmtPad(n, 2)
}

func fmtPad(n int, width int) string {
	s := strconv.Itoa(n)
	for len(s) < width {
		s = "0" + s
	}
	return s
}
