package main

// Send one prompt through the model client and print the raw reply:
//   go run ./cmd/prompttest -prompt "What goes in a signature field?"
//   go run ./cmd/prompttest -field-context name

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"autofill-backend/internal/llm"
	"autofill-backend/internal/llm/ollama"
	"autofill-backend/internal/shared/config"
)

func main() {
	cfg := config.Load()

	prompt := flag.String("prompt", "", "raw prompt to send")
	fieldContext := flag.String("field-context", "", "wrap the prompt as a fill request for this field context")
	model := flag.String("model", cfg.OllamaModel, "model name")
	flag.Parse()

	text := strings.TrimSpace(*prompt)
	if *fieldContext != "" {
		text = llm.FillFieldPrompt(*fieldContext)
	}
	if text == "" {
		exitErr("one of -prompt or -field-context is required")
	}

	client := ollama.New(ollama.Config{
		BaseURL:         cfg.OllamaBaseURL,
		Model:           *model,
		StatusTimeout:   cfg.OllamaStatusTimeout,
		GenerateTimeout: cfg.OllamaGenerateTimeout,
		PullTimeout:     cfg.OllamaPullTimeout,
	})

	ctx := context.Background()
	if !client.Available(ctx) {
		exitErr(fmt.Sprintf("model server not reachable at %s", client.BaseURL()))
	}

	reply, err := client.Generate(ctx, text)
	if err != nil {
		exitErr(fmt.Sprintf("generate: %v", err))
	}
	fmt.Println(reply)
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
