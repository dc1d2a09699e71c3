package logger

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

func TestStdLoggerLevels(t *testing.T) {
	tests := map[string]struct {
		log  func(l *StdLogger)
		want string
	}{
		"info": {
			log:  func(l *StdLogger) { l.Info("%s: wrote %s", "a.json", "out/a.json") },
			want: "[INFO] a.json: wrote out/a.json\n",
		},
		"warn": {
			log:  func(l *StdLogger) { l.Warn("no processed trees in %s", "out") },
			want: "[WARN] no processed trees in out\n",
		},
		"error": {
			log:  func(l *StdLogger) { l.Error("%v", fmt.Errorf("decode: %w", errBoom)) },
			want: "[ERROR] decode: boom\n",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			tc.log(NewStdLogger(&buf, false))
			if got := buf.String(); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

var errBoom = errors.New("boom")

func TestStdLoggerQuiet(t *testing.T) {
	var buf bytes.Buffer
	log := NewStdLogger(&buf, true)
	log.Info("wrote tree")
	log.Warn("skipping entry")
	log.Error("file failed")

	want := "[WARN] skipping entry\n[ERROR] file failed\n"
	if got := buf.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestNoop(t *testing.T) {
	// must not panic
	log := Noop()
	log.Info("x")
	log.Warn("x")
	log.Error("x")
}

func TestStdLoggerConcurrentDerived(t *testing.T) {
	var buf bytes.Buffer
	base := NewStdLogger(&buf, false)

	const workers, perWorker = 8, 50
	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log := base.With(fmt.Sprintf("file%d.json", w))
			for i := range perWorker {
				log.Warn("link %d", i)
			}
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != workers*perWorker {
		t.Fatalf("got %d lines, want %d", len(lines), workers*perWorker)
	}
	for i, line := range lines {
		if !strings.HasPrefix(line, "[WARN] file") || !strings.Contains(line, ".json: link ") {
			t.Errorf("line %d interleaved: %q", i, line)
		}
	}
}

func TestLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	base := NewStdLogger(&buf, false)
	fileLog := base.With("onetab_chrome_home_personal.json")
	fileLog.Error("normalize: %s", "duplicate folder")
	fileLog.With("write").Warn("100%% done")
	base.Info("plain")

	want := "[ERROR] onetab_chrome_home_personal.json: normalize: duplicate folder\n" +
		"[WARN] onetab_chrome_home_personal.json: write: 100% done\n" +
		"[INFO] plain\n"
	if got := buf.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLoggerWith_QuietInherited(t *testing.T) {
	var buf bytes.Buffer
	NewStdLogger(&buf, true).With("file").Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("quiet derived logger wrote %q", buf.String())
	}
}

func TestProgresser(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgresser(&buf, "Transforming: %d/%d")
	p.Update(1, 3, "bookmarks_chrome_home_personal.json")
	p.Update(2, 3, "")
	p.Clear()

	want := "\rTransforming: 1/3 bookmarks_chrome_home_personal.json\033[K" +
		"\rTransforming: 2/3\033[K" +
		"\r\033[K"
	if got := buf.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
