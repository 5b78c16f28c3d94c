package service

// Jaro-Winkler: префикс до 4 символов, p=0.1, буст только при jaro > 0.7.
const (
	jwPrefixScale = 0.1
	jwMaxPrefix   = 4
	jwBoostFrom   = 0.7
)

func jaro(r1, r2 []rune) float64 {
	len1, len2 := len(r1), len(r2)
	if len1 == 0 || len2 == 0 {
		return 0
	}

	window := max(len1, len2)/2 - 1
	if window < 0 {
		window = 0
	}

	m1 := make([]bool, len1)
	m2 := make([]bool, len2)
	matches := 0
	for i := 0; i < len1; i++ {
		lo := max(0, i-window)
		hi := min(len2, i+window+1)
		for j := lo; j < hi; j++ {
			if m2[j] || r1[i] != r2[j] {
				continue
			}
			m1[i], m2[j] = true, true
			matches++
			break
		}
	}
	if matches == 0 {
		return 0
	}

	transpositions := 0
	k := 0
	for i := 0; i < len1; i++ {
		if !m1[i] {
			continue
		}
		for !m2[k] {
			k++
		}
		if r1[i] != r2[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	return (m/float64(len1) + m/float64(len2) + (m-float64(transpositions)/2)/m) / 3
}

// jaroWinkler - симметричная схожесть в [0..1]; 1 только для равных непустых строк.
func jaroWinkler(a, b string) float64 {
	if a == b {
		if a == "" {
			return 0
		}
		return 1
	}
	// фиксируем порядок аргументов, иначе жадное сопоставление может дать A≠B
	if b < a {
		a, b = b, a
	}
	r1, r2 := []rune(a), []rune(b)
	j := jaro(r1, r2)
	if j <= jwBoostFrom {
		return j
	}

	prefix := 0
	for i := 0; i < len(r1) && i < len(r2) && i < jwMaxPrefix; i++ {
		if r1[i] != r2[i] {
			break
		}
		prefix++
	}
	return j + float64(prefix)*jwPrefixScale*(1-j)
}
