package change

import (
	"sort"
	"strings"
)

type scoredName struct {
	name  string
	score int
}

// Suggest ranks names against input per spec.md §4.2: canonical prefix
// scores 100, numeric-prefix hit (after normalizing to MMM-CC) scores 95,
// full-name substring scores 80, slug-token match scores 70. Results are
// sorted by descending score then ascending name; if fewer than max survive
// scoring, nearest matches by edit distance fill the remainder.
func Suggest(names []string, input string, max int) []string {
	if max <= 0 {
		return nil
	}
	input = strings.TrimSpace(input)
	lowerInput := strings.ToLower(input)

	var scored []scoredName
	seen := make(map[string]struct{})
	for _, n := range names {
		score := scoreName(n, input, lowerInput)
		if score > 0 {
			scored = append(scored, scoredName{name: n, score: score})
			seen[n] = struct{}{}
		}
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].name < scored[j].name
	})

	out := make([]string, 0, max)
	for _, s := range scored {
		if len(out) >= max {
			break
		}
		out = append(out, s.name)
	}
	if len(out) >= max {
		return out
	}

	type distName struct {
		name string
		dist int
	}
	var rest []distName
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		rest = append(rest, distName{name: n, dist: levenshtein(lowerInput, strings.ToLower(n))})
	}
	sort.Slice(rest, func(i, j int) bool {
		if rest[i].dist != rest[j].dist {
			return rest[i].dist < rest[j].dist
		}
		return rest[i].name < rest[j].name
	})
	for _, r := range rest {
		if len(out) >= max {
			break
		}
		out = append(out, r.name)
	}
	return out
}

func scoreName(name, input, lowerInput string) int {
	if name == input {
		return 100
	}
	if strings.HasPrefix(name, input) {
		return 100
	}
	if id, ok := canonicalPrefixForNumeric(input); ok && strings.HasPrefix(name, id) {
		return 95
	}
	if strings.Contains(strings.ToLower(name), lowerInput) {
		return 80
	}
	tokens := tokenize(input)
	if len(tokens) > 0 && allTokensPresent(slugTokens(name), tokens) {
		return 70
	}
	return 0
}

func canonicalPrefixForNumeric(input string) (string, bool) {
	m := twoIntTokens.FindStringSubmatch(input)
	if m == nil {
		return "", false
	}
	modNum := atoiSafe(m[1])
	chNum := atoiSafe(m[2])
	return padModule(modNum) + "-" + padNumber(chNum), true
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}

// levenshtein computes the edit distance between a and b.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}
	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			m := del
			if ins < m {
				m = ins
			}
			if sub < m {
				m = sub
			}
			curr[j] = m
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}
