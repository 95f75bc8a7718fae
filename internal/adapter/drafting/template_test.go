package drafting

import (
	"context"
	"strings"
	"testing"

	"github.com/jamilahmedansari/letterdesk/internal/domain/model"
)

func sampleIntake() model.Intake {
	return model.Intake{
		LetterType:       model.LetterTypeDemand,
		SenderName:       "Ada Sender",
		RecipientName:    "Acme Landlords",
		RecipientAddress: "1 Main St",
		Subject:          "unreturned deposit",
		Details:          "The deposit of 1200 was not returned after move-out.",
		DesiredOutcome:   "Return the deposit within 14 days.",
		Extra:            map[string]string{"unit": "4B", "lease": "2024-01"},
	}
}

func TestTemplateGeneratorRendersIntake(t *testing.T) {
	text, err := NewTemplateGenerator().GenerateDraft(context.Background(), sampleIntake())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	for _, want := range []string{
		"Dear Acme Landlords,",
		"I am writing to formally demand regarding unreturned deposit.",
		"1 Main St",
		"I request the following: Return the deposit within 14 days.",
		"lease: 2024-01\nunit: 4B",
		"Sincerely,\nAda Sender",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected draft to contain %q:\n%s", want, text)
		}
	}

	again, _ := NewTemplateGenerator().GenerateDraft(context.Background(), sampleIntake())
	if again != text {
		t.Fatalf("template output must be deterministic")
	}
}

func TestTemplateGeneratorOmitsOptionalSections(t *testing.T) {
	in := sampleIntake()
	in.LetterType = model.LetterTypeNotice
	in.RecipientAddress = ""
	in.DesiredOutcome = ""
	in.Extra = nil

	text, err := NewTemplateGenerator().GenerateDraft(context.Background(), in)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if strings.Contains(text, "I request") || strings.Contains(text, "For reference") {
		t.Fatalf("unexpected optional sections:\n%s", text)
	}
	if !strings.Contains(text, "Please take notice regarding") {
		t.Fatalf("expected notice opening:\n%s", text)
	}
}

func TestTemplateGeneratorHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewTemplateGenerator().GenerateDraft(ctx, sampleIntake()); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestBuildPromptListsExtrasInOrder(t *testing.T) {
	prompt := buildPrompt(sampleIntake())
	if !strings.HasPrefix(prompt, "Draft a demand letter.") {
		t.Fatalf("unexpected prompt start: %q", prompt)
	}
	if strings.Index(prompt, "- lease:") > strings.Index(prompt, "- unit:") {
		t.Fatalf("expected extras sorted by key:\n%s", prompt)
	}
}
