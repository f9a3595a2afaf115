package app

import (
	"net/url"
	"strings"
)

type dsnOption struct {
	key   string
	value string
}

// registryDSN adds the lib/pq options the registry relies on. Options already present
// in raw win. URL and keyword/value connection strings are both accepted.
func registryDSN(raw string, disablePreparedBinaryResult bool, applicationName string) string {
	raw = strings.TrimSpace(raw)
	var options []dsnOption
	if disablePreparedBinaryResult {
		options = append(options, dsnOption{key: "disable_prepared_binary_result", value: "yes"})
	}
	if name := strings.TrimSpace(applicationName); name != "" {
		options = append(options, dsnOption{key: "application_name", value: name})
	}
	if raw == "" || len(options) == 0 {
		return raw
	}

	if parsed, err := url.Parse(raw); err == nil && parsed.Scheme != "" {
		query := parsed.Query()
		changed := false
		for _, opt := range options {
			if query.Get(opt.key) == "" {
				query.Set(opt.key, opt.value)
				changed = true
			}
		}
		if !changed {
			return raw
		}
		parsed.RawQuery = query.Encode()
		return parsed.String()
	}

	var b strings.Builder
	b.WriteString(raw)
	for _, opt := range options {
		if _, ok := keywordDSNValue(raw, opt.key); ok {
			continue
		}
		b.WriteString(" ")
		b.WriteString(opt.key)
		b.WriteString("=")
		b.WriteString(quoteDSNValue(opt.value))
	}
	return b.String()
}

func dbNameFromURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	parsed, err := url.Parse(trimmed)
	if err == nil && parsed != nil && parsed.Scheme != "" {
		return strings.TrimSpace(strings.TrimPrefix(parsed.Path, "/"))
	}

	name, _ := keywordDSNValue(trimmed, "dbname")
	return name
}

func keywordDSNValue(raw, key string) (string, bool) {
	for _, token := range strings.Fields(raw) {
		k, v, ok := strings.Cut(token, "=")
		if !ok || k != key {
			continue
		}
		return strings.Trim(strings.TrimSpace(v), `"'`), true
	}
	return "", false
}

func quoteDSNValue(v string) string {
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
