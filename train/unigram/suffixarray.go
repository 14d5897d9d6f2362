package unigram

import "sort"

// buildSuffixArray builds the suffix array of s (a codepoint sequence,
// conventionally terminated by a sentinel smaller than any real character)
// using the classic O(n log^2 n) prefix-doubling algorithm: rank suffixes
// by (rank[i], rank[i+k]) and double k until ranks are unique. This is
// asymptotically weaker than the source's SA-IS construction but produces
// the same sort order and the same LCP values via Kasai's algorithm, which
// is all the seeding step in §4.6 actually needs.
func buildSuffixArray(s []int32) []int {
	n := len(s)
	sa := make([]int, n)
	rank := make([]int, n)
	tmp := make([]int, n)

	for i := 0; i < n; i++ {
		sa[i] = i
		rank[i] = int(s[i])
	}

	for k := 1; k < n; k *= 2 {
		key := func(i int) (int, int) {
			r2 := -1
			if i+k < n {
				r2 = rank[i+k]
			}
			return rank[i], r2
		}
		sort.Slice(sa, func(a, b int) bool {
			ra1, ra2 := key(sa[a])
			rb1, rb2 := key(sa[b])
			if ra1 != rb1 {
				return ra1 < rb1
			}
			return ra2 < rb2
		})

		tmp[sa[0]] = 0
		for i := 1; i < n; i++ {
			prev, cur := sa[i-1], sa[i]
			pr1, pr2 := key(prev)
			cr1, cr2 := key(cur)
			tmp[cur] = tmp[prev]
			if pr1 != cr1 || pr2 != cr2 {
				tmp[cur]++
			}
		}
		copy(rank, tmp)
		if rank[sa[n-1]] == n-1 {
			break
		}
	}
	return sa
}

// kasaiLCP computes the LCP array (lcp[i] = length of the common prefix of
// suffixes sa[i-1] and sa[i], lcp[0] = 0) in O(n) given the suffix array,
// via Kasai's algorithm.
func kasaiLCP(s []int32, sa []int) []int {
	n := len(s)
	rank := make([]int, n)
	for i, p := range sa {
		rank[p] = i
	}
	lcp := make([]int, n)
	h := 0
	for i := 0; i < n; i++ {
		if rank[i] == 0 {
			h = 0
			continue
		}
		j := sa[rank[i]-1]
		for i+h < n && j+h < n && s[i+h] == s[j+h] {
			h++
		}
		lcp[rank[i]] = h
		if h > 0 {
			h--
		}
	}
	return lcp
}
