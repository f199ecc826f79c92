package models

// output of a single LLM generation call
type GenerationResponse struct {
	Content   string             `json:"content"`
	RequestID string             `json:"request_id"`
	Metadata  GenerationMetadata `json:"metadata"`
}

// additional information about the generation
type GenerationMetadata struct {
	ProcessingTime int    `json:"processing_time_ms"`
	Provider       string `json:"provider"`
	Model          string `json:"model"`
}

// uniform error responses
type ErrorResponse struct {
	Code    string                  `json:"code"`
	Message string                  `json:"message"`
	Details []ValidationErrorDetail `json:"details,omitempty"`
}

func (e *ErrorResponse) Error() string {
	return e.Message
}

// single field validation error
type ValidationErrorDetail struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// generic envelope used by the feedback and history endpoints
type Resp struct {
	OK   bool        `json:"ok"`
	Info interface{} `json:"info"`
}

// JobStatusResponse is a single non-blocking snapshot of an agent job
type JobStatusResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"` // "pending" | "completed" | "failed"
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
	Kind   string `json:"kind,omitempty"`
}
