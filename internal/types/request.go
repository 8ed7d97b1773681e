package types

// GenerateRequest is the body of POST /generate. Only Content is required;
// the preference fields are free-form strings that fall back to documented
// defaults when empty or unrecognized (see the prompt package).
type GenerateRequest struct {
	Content    string `json:"content"`
	Persona    string `json:"persona,omitempty"`
	Tone       string `json:"tone,omitempty"`
	Length     string `json:"length,omitempty"`
	EmojiLevel string `json:"emojiLevel,omitempty"`
}
