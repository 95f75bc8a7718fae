package drafting

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jamilahmedansari/letterdesk/internal/domain/model"
)

const systemPrompt = "You draft formal letters for review by a licensed professional. " +
	"Write in plain, firm, courteous language. Do not invent facts beyond the intake. " +
	"Return only the letter body without preamble or markdown fences."

// buildPrompt renders the intake as the user turn sent to the model.
func buildPrompt(in model.Intake) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Draft a %s letter.\n\n", in.LetterType)
	fmt.Fprintf(&b, "Sender: %s\n", in.SenderName)
	fmt.Fprintf(&b, "Recipient: %s\n", in.RecipientName)
	if in.RecipientAddress != "" {
		fmt.Fprintf(&b, "Recipient address: %s\n", in.RecipientAddress)
	}
	fmt.Fprintf(&b, "Subject: %s\n\n", in.Subject)
	fmt.Fprintf(&b, "Facts:\n%s\n", in.Details)
	if in.DesiredOutcome != "" {
		fmt.Fprintf(&b, "\nDesired outcome:\n%s\n", in.DesiredOutcome)
	}
	if len(in.Extra) > 0 {
		b.WriteString("\nAdditional details:\n")
		for _, k := range sortedKeys(in.Extra) {
			fmt.Fprintf(&b, "- %s: %s\n", k, in.Extra[k])
		}
	}
	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
