package model

// LetterType classifies the requested letter.
type LetterType string

const (
	LetterTypeDemand    LetterType = "demand"
	LetterTypeNotice    LetterType = "notice"
	LetterTypeComplaint LetterType = "complaint"
	LetterTypeGeneral   LetterType = "general"
)

// Intake is the structured questionnaire a subscriber fills in before drafting.
// Extra carries attributes without a dedicated field.
type Intake struct {
	LetterType       LetterType        `json:"letter_type" validate:"required,oneof=demand notice complaint general"`
	SenderName       string            `json:"sender_name" validate:"required,max=200"`
	RecipientName    string            `json:"recipient_name" validate:"required,max=200"`
	RecipientAddress string            `json:"recipient_address,omitempty" validate:"max=500"`
	Subject          string            `json:"subject" validate:"required,max=200"`
	Details          string            `json:"details" validate:"required,max=10000"`
	DesiredOutcome   string            `json:"desired_outcome,omitempty" validate:"max=2000"`
	Extra            map[string]string `json:"extra,omitempty" validate:"max=32,dive,keys,required,max=64,endkeys,max=2000"`
}

// Clone returns a deep copy of the intake.
func (i Intake) Clone() Intake {
	out := i
	if i.Extra != nil {
		out.Extra = make(map[string]string, len(i.Extra))
		for k, v := range i.Extra {
			out.Extra[k] = v
		}
	}
	return out
}
