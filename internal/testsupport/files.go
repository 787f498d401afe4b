package testsupport

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const callSeparator = "---"

// WriteScript writes an executable shell script at path.
func WriteScript(t testing.TB, path, body string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script %s: %v", path, err)
	}
}

// WriteTunnelStub writes a fake tunnel binary that logs its arguments to
// callsFile and answers "-d start" with handshake.
func WriteTunnelStub(t testing.TB, path, handshake, callsFile string) {
	t.Helper()

	body := fmt.Sprintf(`for arg in "$@"; do printf '%%s\n' "$arg" >> %[1]s; done
printf '%%s\n' '%[2]s' >> %[1]s
case "$2" in
  start) printf '%%s\n' %[3]s ;;
esac
exit 0
`, shellQuote(callsFile), callSeparator, shellQuote(handshake))
	WriteScript(t, path, body)
}

func readCalls(t testing.TB, path string) [][]string {
	t.Helper()

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	var calls [][]string
	var current []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == callSeparator {
			calls = append(calls, current)
			current = nil
			continue
		}
		current = append(current, line)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return calls
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
