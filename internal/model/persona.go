package model

// VisualStyle carries the UI theme for a persona.
type VisualStyle struct {
	PrimaryColor  string  `json:"primaryColor" validate:"required,hexcolor"`
	AccentColor   string  `json:"accentColor" validate:"required,hexcolor"`
	Mood          string  `json:"mood" validate:"required,oneof=elevated warm sharp grounded ethereal intense calm"`
	GlowIntensity float64 `json:"glowIntensity" validate:"gte=0,lte=1"`
}

// Persona is a generated "self" card. ID is generator-assigned (a fresh ULID
// when the generator leaves it empty). ChildrenIDs is derived from the
// exploration tree on read; it is never stored as a second mutable copy.
type Persona struct {
	ID               string      `json:"id"`
	Type             string      `json:"type" validate:"required,oneof=current future"`
	Name             string      `json:"name" validate:"required"`
	OptimizationGoal string      `json:"optimizationGoal"`
	ToneOfVoice      string      `json:"toneOfVoice"`
	Worldview        string      `json:"worldview"`
	CoreBelief       string      `json:"coreBelief"`
	TradeOff         string      `json:"tradeOff"`
	AvatarPrompt     string      `json:"avatarPrompt,omitempty"`
	AvatarURL        string      `json:"avatarUrl,omitempty"`
	VisualStyle      VisualStyle `json:"visualStyle"`
	VoiceID          string      `json:"voiceId,omitempty"`

	ParentID    string   `json:"parentSelfId,omitempty"` // empty at root level
	Depth       int      `json:"depthLevel"`
	ChildrenIDs []string `json:"childrenIds"`
}

// ValidMoods are the allowed visual moods.
var ValidMoods = map[string]bool{
	"elevated": true,
	"warm":     true,
	"sharp":    true,
	"grounded": true,
	"ethereal": true,
	"intense":  true,
	"calm":     true,
}
