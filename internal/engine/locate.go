// Package engine finds the OCR engine on the host, proves it works, and
// publishes the result as a process-wide readiness snapshot.
package engine

import (
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// Locator resolves the engine executable. The function fields default to the
// real OS and exist so tests can describe a host.
type Locator struct {
	DeclaredPath string // OCR_ENGINE_PATH; checked before anything else
	Binary       string // base name without extension, e.g. "tesseract"

	GOOS     string
	Getenv   func(string) string
	LookPath func(string) (string, error)
	Stat     func(string) (fs.FileInfo, error)
}

func NewLocator(declared string) *Locator {
	return &Locator{
		DeclaredPath: declared,
		Binary:       "tesseract",
		GOOS:         runtime.GOOS,
		Getenv:       os.Getenv,
		LookPath:     exec.LookPath,
		Stat:         os.Stat,
	}
}

// Locate returns the first existing candidate as an absolute path. Order:
// the declared path, then (Unix only) the PATH resolver, then the static
// install locations for the OS. It never runs the engine.
func (l *Locator) Locate() (string, bool) {
	if l.DeclaredPath != "" && l.exists(l.DeclaredPath) {
		return l.abs(l.DeclaredPath), true
	}
	if !l.windows() && l.LookPath != nil {
		if p, err := l.LookPath(l.Binary); err == nil && p != "" && l.exists(p) {
			return l.abs(p), true
		}
	}
	for _, c := range l.StaticCandidates() {
		if l.exists(c) {
			return l.abs(c), true
		}
	}
	return "", false
}

// StaticCandidates lists well-known install paths in lookup order.
func (l *Locator) StaticCandidates() []string {
	if l.windows() {
		exe := l.Binary + ".exe"
		var out []string
		// user-local installer first, then machine-wide
		if v := l.getenv("LOCALAPPDATA"); v != "" {
			out = append(out, winJoin(v, "Programs", "Tesseract-OCR", exe))
		}
		if v := l.getenv("USERPROFILE"); v != "" {
			out = append(out, winJoin(v, "AppData", "Local", "Programs", "Tesseract-OCR", exe))
		}
		out = append(out,
			winJoin(l.getenvOr("ProgramFiles", `C:\Program Files`), "Tesseract-OCR", exe),
			winJoin(l.getenvOr("ProgramFiles(x86)", `C:\Program Files (x86)`), "Tesseract-OCR", exe),
		)
		return dedupe(out)
	}
	return []string{
		"/usr/bin/" + l.Binary,
		"/usr/local/bin/" + l.Binary,
		"/opt/homebrew/bin/" + l.Binary,
	}
}

func (l *Locator) windows() bool { return l.GOOS == "windows" }

func (l *Locator) exists(p string) bool {
	stat := l.Stat
	if stat == nil {
		stat = os.Stat
	}
	fi, err := stat(p)
	return err == nil && !fi.IsDir()
}

func (l *Locator) abs(p string) string {
	if l.windows() || filepath.IsAbs(p) {
		return p
	}
	if a, err := filepath.Abs(p); err == nil {
		return a
	}
	return p
}

func (l *Locator) getenv(k string) string {
	if l.Getenv == nil {
		return os.Getenv(k)
	}
	return l.Getenv(k)
}

func (l *Locator) getenvOr(k, def string) string {
	if v := l.getenv(k); v != "" {
		return v
	}
	return def
}

// winJoin joins with backslashes regardless of the build OS so the Windows
// list is stable in tests run elsewhere.
func winJoin(parts ...string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		if len(out) > 0 && out[len(out)-1] != '\\' {
			out += `\`
		}
		out += p
	}
	return out
}

func dedupe(xs []string) []string {
	seen := make(map[string]bool, len(xs))
	out := xs[:0]
	for _, x := range xs {
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	return out
}
