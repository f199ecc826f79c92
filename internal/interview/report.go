package interview

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Score is an integer in [0,100]. It decodes from numbers or strings such as
// "85", "85%" or "85/100"; anything unreadable becomes 0.
type Score int

func (s *Score) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = 0
		return nil
	}

	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*s = clampScore(f)
		return nil
	}

	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		*s = 0
		return nil
	}
	str = strings.TrimSpace(str)
	if i := strings.Index(str, "/"); i >= 0 {
		str = str[:i]
	}
	str = strings.TrimSpace(strings.TrimSuffix(str, "%"))
	f, err := strconv.ParseFloat(str, 64)
	if err != nil {
		*s = 0
		return nil
	}
	*s = clampScore(f)
	return nil
}

func clampScore(f float64) Score {
	if math.IsNaN(f) {
		return 0
	}
	f = math.Round(f)
	if f < 0 {
		return 0
	}
	if f > 100 {
		return 100
	}
	return Score(f)
}

type CodeAnalysis struct {
	Correctness     Score    `json:"correctness"`
	Efficiency      Score    `json:"efficiency"`
	Readability     Score    `json:"readability"`
	TimeComplexity  string   `json:"time_complexity"`
	SpaceComplexity string   `json:"space_complexity"`
	Suggestions     []string `json:"suggestions"`
}

// FeedbackReport is the final assessment. Every field is always present when
// encoded; code_analysis appears only for DSA interviews.
type FeedbackReport struct {
	OverallScore        Score         `json:"overall_score"`
	Strengths           []string      `json:"strengths"`
	AreasForImprovement []string      `json:"areas_for_improvement"`
	DetailedAnalysis    string        `json:"detailed_analysis"`
	Recommendations     []string      `json:"recommendations"`
	NextSteps           string        `json:"next_steps"`
	CodeAnalysis        *CodeAnalysis `json:"code_analysis,omitempty"`
}

type reportAlias FeedbackReport

func (r FeedbackReport) MarshalJSON() ([]byte, error) {
	if r.CodeAnalysis != nil {
		ca := *r.CodeAnalysis
		r.CodeAnalysis = &ca
	}
	r.normalize()
	return json.Marshal(reportAlias(r))
}

func (r *FeedbackReport) UnmarshalJSON(b []byte) error {
	var alias reportAlias
	if err := json.Unmarshal(b, &alias); err != nil {
		return err
	}
	*r = FeedbackReport(alias)
	r.normalize()
	return nil
}

func (r *FeedbackReport) normalize() {
	r.Strengths = nonNil(r.Strengths)
	r.AreasForImprovement = nonNil(r.AreasForImprovement)
	r.Recommendations = nonNil(r.Recommendations)
	if r.CodeAnalysis != nil {
		r.CodeAnalysis.Suggestions = nonNil(r.CodeAnalysis.Suggestions)
	}
}

func (r FeedbackReport) clone() FeedbackReport {
	c := r
	c.Strengths = append([]string{}, r.Strengths...)
	c.AreasForImprovement = append([]string{}, r.AreasForImprovement...)
	c.Recommendations = append([]string{}, r.Recommendations...)
	if r.CodeAnalysis != nil {
		ca := *r.CodeAnalysis
		ca.Suggestions = append([]string{}, r.CodeAnalysis.Suggestions...)
		c.CodeAnalysis = &ca
	}
	return c
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
