package orchestrator

import (
	"github.com/janyojana/sahayak/internal/analysis"
	"github.com/janyojana/sahayak/internal/catalog"
	"github.com/janyojana/sahayak/internal/profile"
)

// Status classifies the terminal state of one discovery request.
type Status string

const (
	// StatusCompleted means every matched scheme produced a full result.
	StatusCompleted Status = "completed"
	// StatusNoMatches is the valid, non-error empty outcome.
	StatusNoMatches Status = "no_matches"
	// StatusPartial means some schemes completed and the rest failed or ran
	// out of deadline; completed results are returned.
	StatusPartial Status = "partial"
	// StatusFailed means no scheme produced a usable result.
	StatusFailed Status = "failed"
)

// SchemeResult aggregates one matched scheme with its analysis, document
// checklist and application steps. Only fully successful schemes become
// results.
type SchemeResult struct {
	Scheme    *catalog.Scheme       `json:"scheme"`
	Analysis  *analysis.Eligibility `json:"analysis"`
	Documents []string              `json:"documents"`
	Steps     []string              `json:"steps"`
}

// SchemeFailure records a classified per-scheme, per-prompt-kind failure for
// audit. It carries categorical tags only, no upstream error bodies.
type SchemeFailure struct {
	SchemeID      string `json:"scheme_id"`
	PromptKind    string `json:"prompt_kind"`
	Kind          string `json:"kind"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// Outcome is the per-request aggregate returned to the caller. Results keep
// the matcher's output order.
type Outcome struct {
	RequestID string          `json:"request_id"`
	Status    Status          `json:"status"`
	Message   string          `json:"message"`
	Results   []*SchemeResult `json:"results"`
	Failures  []SchemeFailure `json:"failures,omitempty"`
}

// User-visible messages are generic and localized; technical detail stays in
// the audit log.
var messages = map[string]map[Status]string{
	profile.LanguageEnglish: {
		StatusCompleted: "We found government schemes you may be eligible for.",
		StatusNoMatches: "No schemes match your profile right now.",
		StatusPartial:   "Some schemes could not be fully analyzed. Showing the completed results.",
		StatusFailed:    "Scheme analysis is temporarily unavailable. Please try again later.",
	},
	profile.LanguageHindi: {
		StatusCompleted: "आपके लिए संभावित सरकारी योजनाएं मिली हैं।",
		StatusNoMatches: "अभी आपकी प्रोफ़ाइल से मेल खाती कोई योजना नहीं मिली।",
		StatusPartial:   "कुछ योजनाओं का विश्लेषण पूरा नहीं हो सका। पूर्ण परिणाम दिखाए जा रहे हैं।",
		StatusFailed:    "योजना विश्लेषण अभी उपलब्ध नहीं है। कृपया बाद में पुनः प्रयास करें।",
	},
}

func messageFor(language string, status Status) string {
	if byStatus, ok := messages[language]; ok {
		if msg, ok := byStatus[status]; ok {
			return msg
		}
	}
	return messages[profile.LanguageEnglish][status]
}
