package models

// contains all interview types (in lowercase)
var ValidInterviewTypes = map[string]bool{
	"technical":   true,
	"culture-fit": true,
	"dsa":         true,
}

// languages accepted for code answers in DSA interviews (in lowercase)
var SupportedCodeLanguages = map[string]bool{
	"python":     true,
	"java":       true,
	"cpp":        true,
	"javascript": true,
	"typescript": true,
	"go":         true,
}

// agent types recorded on history rows, matching the client routes
const (
	AgentTypeChat      = "/ai-tools/ai-chat"
	AgentTypeResume    = "/ai-tools/ai-resume-analyzer"
	AgentTypeRoadmap   = "/ai-tools/ai-roadmap-agent"
	AgentTypeInterview = "/ai-tools/ai-interview-agent"
)

const (
	DefaultInterviewType     = "technical"
	DefaultInterviewDuration = 30 * 60
	MinInterviewDuration     = 60
	MaxInterviewDuration     = 3 * 60 * 60
)

func ValidInterviewTypesList() []string {
	return []string{"technical", "culture-fit", "dsa"}
}

func SupportedCodeLanguagesList() []string {
	return []string{"python", "java", "cpp", "javascript", "typescript", "go"}
}
