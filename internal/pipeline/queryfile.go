// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"
)

// ReadQueries loads the line-oriented query file: one query per line,
// blank lines and '#' comments skipped, file order preserved. A missing
// file is the run's only fatal startup condition.
func ReadQueries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening query file: %w", err)
	}
	defer f.Close()

	var queries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		queries = append(queries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	return queries, nil
}

// Stem turns a query into a filesystem-safe filename stem: letters and
// digits survive, runs of anything else collapse to a single underscore,
// and the result is trimmed and capped at maxLen.
func Stem(query string, maxLen int) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range query {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	stem := strings.Trim(b.String(), "_")
	if runes := []rune(stem); maxLen > 0 && len(runes) > maxLen {
		stem = strings.Trim(string(runes[:maxLen]), "_")
	}
	if stem == "" {
		stem = "query"
	}
	return stem
}
