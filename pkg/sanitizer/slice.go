package sanitizer

// normalizeEach applies fn to every item and keeps the first occurrence of
// each non-empty result, preserving input order. A nil or empty input yields
// an empty, non-nil slice so documents never store a null photo list.
func normalizeEach(items []string, fn func(string) string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		v := fn(item)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// NormalizeURLs cleans a restaurant's photo links. Links that differ only in
// scheme, www prefix or tracking parameters collapse to one entry.
func NormalizeURLs(urls []string) []string {
	return normalizeEach(urls, NormalizeURL)
}
