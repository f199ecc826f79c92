package interview

import (
	"encoding/json"
	"strings"

	"careercoach/ai/internal/agent"
	"careercoach/ai/internal/utils"
)

// Reply is the structured payload the interview agent returns.
type Reply struct {
	Phase         Phase           `json:"interview_phase"`
	AIMessage     string          `json:"ai_message"`
	Domain        string          `json:"domain"`
	InterviewType Type            `json:"interview_type"`
	DSAQuestion   *DSAQuestion    `json:"dsa_question,omitempty"`
	Feedback      *FeedbackReport `json:"feedback,omitempty"`
}

// decodeReply strips fences and prose around the JSON object and decodes it.
// The session's interview type always overrides whatever the backend echoed.
func decodeReply(raw string, typ Type) (*Reply, error) {
	body := utils.ExtractJSONObject(utils.StripFences(raw))

	var reply Reply
	if err := json.Unmarshal([]byte(body), &reply); err != nil {
		return nil, &agent.JobError{Kind: agent.KindMalformedPayload, Message: "reply is not valid JSON", Err: err}
	}
	reply.InterviewType = typ
	reply.AIMessage = strings.TrimSpace(reply.AIMessage)
	reply.Phase = Phase(strings.ToLower(strings.TrimSpace(string(reply.Phase))))
	if reply.DSAQuestion != nil {
		reply.DSAQuestion.normalize()
	}
	return &reply, nil
}

// parseTurnReply accepts a conversational reply; it must carry a message unless
// the backend is ending the interview.
func parseTurnReply(raw string, typ Type) (*Reply, error) {
	reply, err := decodeReply(raw, typ)
	if err != nil {
		return nil, err
	}
	if reply.AIMessage == "" && reply.Phase != PhaseFeedback {
		return nil, &agent.JobError{Kind: agent.KindMalformedPayload, Message: "reply has no ai_message"}
	}
	return reply, nil
}

// parseFeedbackReply is strict: there is no safe report to substitute.
func parseFeedbackReply(raw string, typ Type) (*FeedbackReport, error) {
	reply, err := decodeReply(raw, typ)
	if err != nil {
		return nil, err
	}
	if reply.Feedback == nil {
		return nil, &agent.JobError{Kind: agent.KindMalformedPayload, Message: "reply has no feedback object"}
	}

	report := reply.Feedback.clone()
	switch {
	case typ != TypeDSA:
		report.CodeAnalysis = nil
	case report.CodeAnalysis == nil:
		report.CodeAnalysis = &CodeAnalysis{}
	}
	report.normalize()
	return &report, nil
}
