package main

// Detects a sejda-console installation for higher-fidelity PDF filling:
//   go run ./cmd/toolcheck
// Exit code 0 when found, 1 otherwise. The built-in regeneration path
// works without it.

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"autofill-backend/internal/shared/config"
	"autofill-backend/internal/shared/process"
)

const sejdaInstallURL = "https://www.sejda.com/desktop"

func main() {
	cfg := config.Load()

	if path, version := probePath(); path != "" {
		report(path, version)
		return
	}

	candidates := append(fixedPaths(), cfg.SejdaPaths...)
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			report(candidate, versionOf(candidate))
			return
		}
	}

	fmt.Println("sejda-console not found")
	fmt.Printf("install it from %s or point SEJDA_PATHS at the executable\n", sejdaInstallURL)
	fmt.Println("the built-in PDF regeneration path works without it")
	os.Exit(1)
}

// probePath asks the PATH for sejda-console and confirms it answers.
func probePath() (string, string) {
	path, err := process.BinaryPath("sejda-console")
	if err != nil {
		return "", ""
	}
	return path, versionOf(path)
}

func versionOf(path string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, path, "--version").CombinedOutput()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// fixedPaths lists the usual install locations per OS.
func fixedPaths() []string {
	switch runtime.GOOS {
	case "windows":
		var out []string
		for _, programFiles := range []string{`C:\Program Files`, `C:\Program Files (x86)`} {
			out = append(out,
				filepath.Join(programFiles, "sejda-console", "bin", "sejda-console.bat"),
				filepath.Join(programFiles, "Sejda PDF Desktop", "sejda-console.bat"),
			)
		}
		return out
	case "darwin":
		return []string{
			"/Applications/Sejda PDF Desktop.app/Contents/MacOS/sejda-console",
			"/usr/local/bin/sejda-console",
		}
	default:
		return []string{
			"/opt/sejda/bin/sejda-console",
			"/usr/bin/sejda-console",
		}
	}
}

func report(path, version string) {
	fmt.Printf("found sejda-console at %s\n", path)
	if version != "" {
		fmt.Println(version)
	}
}
