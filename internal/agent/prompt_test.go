package agent

import "testing"

func TestAssemblePromptPreservesOrderAndSkipsBlanks(t *testing.T) {
	got := AssemblePrompt([]string{"You own a candy bowl.", "  ", "Be concise."}, nil, []string{"Haggle politely."})
	want := "You own a candy bowl.\nBe concise.\nHaggle politely."
	if got != want {
		t.Fatalf("AssemblePrompt() = %q, want %q", got, want)
	}
}

func TestAssemblePromptEmpty(t *testing.T) {
	if got := AssemblePrompt(); got != "" {
		t.Fatalf("expected empty prompt, got %q", got)
	}
}
