package transport

import (
	"net/url"
	"sort"
)

// resolveURL parses raw and resolves it against base if not absolute. A base
// path such as "/api/v3" is kept as prefix for relative references.
func resolveURL(base *url.URL, raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.IsAbs() || base == nil {
		return u, nil
	}
	b := *base
	if b.Path != "" && b.Path[len(b.Path)-1] != '/' {
		b.Path += "/"
	}
	if len(u.Path) > 0 && u.Path[0] == '/' {
		u.Path = u.Path[1:]
	}
	return b.ResolveReference(u), nil
}

// mergeQuery merges kv into u's query in a deterministic way. Empty keys and
// values are skipped.
func mergeQuery(u *url.URL, kv map[string]string) {
	if u == nil || len(kv) == 0 {
		return
	}
	q := u.Query()

	keys := make([]string, 0, len(kv))
	for k := range kv {
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		if v := kv[k]; v != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
}
