package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/system.txt
	systemRaw string

	//go:embed template/image_nudge.txt
	imageNudgeRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	System     string
	ImageNudge string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings. Safe to call
// concurrently; the embed is compile-time and trimming is cheap.
func LoadPromptSet() PromptSet {
	return PromptSet{
		System:     strings.TrimSpace(systemRaw),
		ImageNudge: strings.TrimSpace(imageNudgeRaw),
	}
}
