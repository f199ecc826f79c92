package models

import (
	"strings"

	"careercoach/ai/internal/utils"
)

// GenerationRequest is what the agent runner hands to an LLM provider
type GenerationRequest struct {
	RequestID string
	System    string
	Prompt    string
}

type StartInterviewRequest struct {
	InterviewID     string `json:"interview_id"`
	UserEmail       string `json:"user_email"`
	Domain          string `json:"domain"`
	InterviewType   string `json:"interview_type"`
	DurationSeconds int    `json:"duration_seconds"`
	CodeLanguage    string `json:"code_language,omitempty"`
}

// implements the Validator interface
func (r *StartInterviewRequest) Validate() error {
	r.Domain = strings.TrimSpace(r.Domain)
	if r.Domain == "" {
		return &ErrorResponse{Code: "missing_domain", Message: "Domain/role is required"}
	}
	if strings.TrimSpace(r.InterviewID) == "" {
		return &ErrorResponse{Code: "missing_interview_id", Message: "Interview ID is required"}
	}
	if strings.TrimSpace(r.UserEmail) == "" {
		return &ErrorResponse{Code: "missing_user_email", Message: "User email is required"}
	}

	r.InterviewType = utils.NormalizeLevel(r.InterviewType)
	if r.InterviewType == "" {
		r.InterviewType = DefaultInterviewType
	}
	if !ValidInterviewTypes[r.InterviewType] {
		return &ErrorResponse{
			Code:    "invalid_interview_type",
			Message: "Interview type must be one of: technical, culture-fit, dsa",
		}
	}

	if r.DurationSeconds == 0 {
		r.DurationSeconds = DefaultInterviewDuration
	}
	if r.DurationSeconds < MinInterviewDuration || r.DurationSeconds > MaxInterviewDuration {
		return &ErrorResponse{
			Code:    "invalid_duration",
			Message: "Duration must be between 60 seconds and 3 hours",
		}
	}

	if r.CodeLanguage != "" {
		r.CodeLanguage = utils.NormalizeLanguage(r.CodeLanguage)
		if !SupportedCodeLanguages[r.CodeLanguage] {
			return &ErrorResponse{Code: "unsupported_language", Message: "Code language not supported"}
		}
	}
	return nil
}

type SubmitAnswerRequest struct {
	Text     string `json:"text"`
	Code     string `json:"code,omitempty"`
	Language string `json:"language,omitempty"`
}

func (r *SubmitAnswerRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" && strings.TrimSpace(r.Code) == "" {
		return &ErrorResponse{Code: "empty_response", Message: "Answer text or code is required"}
	}
	r.Language = utils.NormalizeLanguage(r.Language)
	return nil
}

type TickRequest struct {
	ElapsedSeconds int `json:"elapsed_seconds"`
}

func (r *TickRequest) Validate() error {
	if r.ElapsedSeconds <= 0 {
		return &ErrorResponse{Code: "invalid_elapsed", Message: "elapsed_seconds must be positive"}
	}
	return nil
}

type ChatMessageRequest struct {
	UserInput string `json:"user_input"`
	UserEmail string `json:"user_email"`
}

func (r *ChatMessageRequest) Validate() error {
	if strings.TrimSpace(r.UserInput) == "" {
		return &ErrorResponse{Code: "missing_user_input", Message: "user_input is required"}
	}
	if strings.TrimSpace(r.UserEmail) == "" {
		return &ErrorResponse{Code: "missing_user_email", Message: "user_email is required"}
	}
	return nil
}

type ResumeAnalysisRequest struct {
	ResumeText string `json:"resume_text"`
	UserEmail  string `json:"user_email"`
}

func (r *ResumeAnalysisRequest) Validate() error {
	if strings.TrimSpace(r.ResumeText) == "" {
		return &ErrorResponse{Code: "missing_resume_text", Message: "resume_text is required"}
	}
	if strings.TrimSpace(r.UserEmail) == "" {
		return &ErrorResponse{Code: "missing_user_email", Message: "user_email is required"}
	}
	return nil
}

type RoadmapRequest struct {
	UserInput string `json:"user_input"`
	UserEmail string `json:"user_email"`
}

func (r *RoadmapRequest) Validate() error {
	if strings.TrimSpace(r.UserInput) == "" {
		return &ErrorResponse{Code: "missing_user_input", Message: "user_input is required"}
	}
	if strings.TrimSpace(r.UserEmail) == "" {
		return &ErrorResponse{Code: "missing_user_email", Message: "user_email is required"}
	}
	return nil
}

type CreateHistoryRequest struct {
	RecordID    string      `json:"record_id"`
	UserEmail   string      `json:"user_email"`
	AIAgentType string      `json:"ai_agent_type"`
	Content     interface{} `json:"content"`
}

func (r *CreateHistoryRequest) Validate() error {
	if strings.TrimSpace(r.RecordID) == "" {
		return &ErrorResponse{Code: "missing_record_id", Message: "record_id is required"}
	}
	if strings.TrimSpace(r.UserEmail) == "" {
		return &ErrorResponse{Code: "missing_user_email", Message: "user_email is required"}
	}
	return nil
}
