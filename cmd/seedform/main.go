package main

// Writes fixture forms for manual testing and the smoke test:
//   go run ./cmd/seedform -dir ./fixtures          # all three kinds
//   go run ./cmd/seedform -dir ./fixtures -kind png

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"autofill-backend/internal/render"
	"autofill-backend/internal/shared/config"
)

func main() {
	dir := flag.String("dir", ".", "output directory")
	kind := flag.String("kind", "all", "fixture kind: png, pdf, txt or all")
	flag.Parse()

	cfg := config.Load()
	if err := os.MkdirAll(*dir, 0o755); err != nil {
		exitErr(fmt.Sprintf("create output dir: %v", err))
	}

	wrote := 0
	if *kind == "all" || *kind == "png" {
		data, err := render.SampleImageForm(cfg.OverlayFont)
		if err != nil {
			exitErr(fmt.Sprintf("render image form: %v", err))
		}
		writeFile(*dir, "sample-form.png", data)
		wrote++
	}
	if *kind == "all" || *kind == "pdf" {
		data, err := render.SamplePDFForm(cfg.OverlayFont)
		if err != nil {
			exitErr(fmt.Sprintf("render pdf form: %v", err))
		}
		writeFile(*dir, "sample-form.pdf", data)
		wrote++
	}
	if *kind == "all" || *kind == "txt" {
		writeFile(*dir, "sample-form.txt", []byte(render.SampleTextForm()))
		wrote++
	}

	if wrote == 0 {
		exitErr("unknown kind: " + *kind)
	}
}

func writeFile(dir, name string, data []byte) {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		exitErr(fmt.Sprintf("write %s: %v", path, err))
	}
	fmt.Printf("wrote %s (%d bytes)\n", path, len(data))
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
