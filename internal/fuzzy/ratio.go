package fuzzy

// autojunkMinLen is the second-sequence length from which very common
// runes are ignored when seeding matching blocks.
const autojunkMinLen = 200

type matcher struct {
	a, b []rune
	b2j  map[rune][]int
}

func newMatcher(a, b []rune) *matcher {
	m := &matcher{a: a, b: b}
	m.indexB()
	return m
}

func (m *matcher) indexB() {
	m.b2j = make(map[rune][]int, len(m.b))
	for i, r := range m.b {
		m.b2j[r] = append(m.b2j[r], i)
	}
	if len(m.b) < autojunkMinLen {
		return
	}
	limit := len(m.b)/100 + 1
	for r, idx := range m.b2j {
		if len(idx) > limit {
			delete(m.b2j, r)
		}
	}
}

// longestMatch finds the longest block a[i:i+k] == b[j:j+k] inside
// a[alo:ahi] and b[blo:bhi], preferring the earliest i, then earliest j.
func (m *matcher) longestMatch(alo, ahi, blo, bhi int) (besti, bestj, bestsize int) {
	besti, bestj = alo, blo
	j2len := map[int]int{}
	for i := alo; i < ahi; i++ {
		next := map[int]int{}
		for _, j := range m.b2j[m.a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := j2len[j-1] + 1
			next[j] = k
			if k > bestsize {
				besti, bestj, bestsize = i-k+1, j-k+1, k
			}
		}
		j2len = next
	}

	// Popular runes never seed a block but may extend one on either side.
	for besti > alo && bestj > blo && m.a[besti-1] == m.b[bestj-1] {
		besti, bestj, bestsize = besti-1, bestj-1, bestsize+1
	}
	for besti+bestsize < ahi && bestj+bestsize < bhi && m.a[besti+bestsize] == m.b[bestj+bestsize] {
		bestsize++
	}
	return besti, bestj, bestsize
}

// matchedRunes sums the sizes of all matching blocks.
func (m *matcher) matchedRunes() int {
	type span struct{ alo, ahi, blo, bhi int }
	queue := []span{{0, len(m.a), 0, len(m.b)}}
	total := 0
	for len(queue) > 0 {
		s := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		i, j, k := m.longestMatch(s.alo, s.ahi, s.blo, s.bhi)
		if k == 0 {
			continue
		}
		total += k
		if s.alo < i && s.blo < j {
			queue = append(queue, span{s.alo, i, s.blo, j})
		}
		if i+k < s.ahi && j+k < s.bhi {
			queue = append(queue, span{i + k, s.ahi, j + k, s.bhi})
		}
	}
	return total
}

// Ratio returns the similarity of a and b in [0,1] as 2*M/T, where M is the
// number of runes in matching blocks and T the combined rune count.
// Two empty strings are identical.
func Ratio(a, b string) float64 {
	ar, br := []rune(a), []rune(b)
	t := len(ar) + len(br)
	if t == 0 {
		return 1
	}
	return 2 * float64(newMatcher(ar, br).matchedRunes()) / float64(t)
}
