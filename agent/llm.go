package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/principia-agentica/hybrid-memory-talk/memory"
)

// LLM generates an answer from a prompt. The engine treats it as an opaque
// blocking capability; callers impose their own timeout through ctx.
type LLM interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// LLMFunc adapts a plain function to the LLM interface.
type LLMFunc func(ctx context.Context, prompt string) (string, error)

// Generate implements LLM.
func (f LLMFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// StubLLM is the deterministic offline default: it formats the last two
// episodic items and first two semantic items from the retrieval pool into a
// canned password-reset answer. No model, no network.
type StubLLM struct{}

// Answer renders the stub response from retrieved context.
func (StubLLM) Answer(items []memory.RetrievedItem, question string) string {
	var epis, sems []memory.RetrievedItem
	for _, it := range items {
		switch it.Kind {
		case memory.KindEpisodic:
			epis = append(epis, it)
		case memory.KindSemantic:
			sems = append(sems, it)
		}
	}
	if len(epis) > 2 {
		epis = epis[len(epis)-2:]
	}
	if len(sems) > 2 {
		sems = sems[:2]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "User asked: %s\n", question)
	b.WriteString("Key recent events:\n")
	for _, e := range epis {
		fmt.Fprintf(&b, "- %s\n", e.Text)
	}
	b.WriteString("Relevant policy:\n")
	for _, s := range sems {
		fmt.Fprintf(&b, "- %s (source: %s)\n", s.Text, s.Source)
	}
	b.WriteString("\nResponse:\n")
	b.WriteString("It looks like you want to reset your password. If your email is verified, you'll receive a reset link.\n")
	b.WriteString("\nInternal checklist:\n")
	b.WriteString("- Confirm email on file\n")
	b.WriteString("- Follow policy step 2 if unverified\n")
	return b.String()
}

// BuildPrompt formats retrieved context plus the question for a real LLM.
func BuildPrompt(items []memory.RetrievedItem, question string) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	for _, it := range items {
		fmt.Fprintf(&b, "- %s\n", it.Text)
	}
	fmt.Fprintf(&b, "\nQuestion: %s\n", question)
	return b.String()
}
