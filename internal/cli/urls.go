package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
)

// urlPattern matches an http(s) URL up to the end of the line, whitespace, a
// comma or a double quote. A word boundary cannot end it because '?', '&'
// and '#' are common inside URLs.
var urlPattern = regexp.MustCompile(`https?://[^\s,"]+`)

// runURLs prints the unique URLs found in the given files (or stdin) as a
// one-column CSV, sorted.
func runURLs(args []string, e *env) error {
	seen := map[string]bool{}

	if len(args) == 0 {
		if err := collectURLs(e.stdin, seen); err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
	}
	for _, path := range args {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		err = collectURLs(f, seen)
		_ = f.Close() // read-only, nothing to flush
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
	}

	urls := make([]string, 0, len(seen))
	for u := range seen {
		urls = append(urls, u)
	}
	sort.Strings(urls)

	w := bufio.NewWriter(e.stdout)
	fmt.Fprintln(w, "url")
	for _, u := range urls {
		fmt.Fprintln(w, u)
	}
	return w.Flush()
}

// collectURLs adds the first URL of every line of r to seen.
func collectURLs(r io.Reader, seen map[string]bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024) // canonical trees can have long lines
	for scanner.Scan() {
		if u := urlPattern.FindString(scanner.Text()); u != "" {
			seen[u] = true
		}
	}
	return scanner.Err()
}
