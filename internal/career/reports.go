package career

import (
	"encoding/json"
	"strings"

	"careercoach/ai/internal/agent"
	"careercoach/ai/internal/utils"
)

type SectionScore struct {
	Score   int    `json:"score"`
	Comment string `json:"comment"`
}

// ResumeReport is the structured result of a resume analysis.
type ResumeReport struct {
	FitSummary         string                  `json:"fit_summary"`
	OverallScore       int                     `json:"overall_score"`
	OverallFeedback    string                  `json:"overall_feedback"`
	Sections           map[string]SectionScore `json:"sections"`
	TipsForImprovement []string                `json:"tips_for_improvement"`
	WhatsGood          []string                `json:"whats_good"`
	NeedsImprovement   []string                `json:"needs_improvement"`
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type NodeData struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
}

type Node struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Position Position `json:"position"`
	Data     NodeData `json:"data"`
}

type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// Roadmap is a learning plan laid out as a flow chart.
type Roadmap struct {
	Title       string `json:"roadmap_title"`
	Description string `json:"description"`
	Duration    string `json:"duration"`
	Nodes       []Node `json:"initial_nodes"`
	Edges       []Edge `json:"initial_edges"`
}

func malformed(msg string, err error) error {
	return &agent.JobError{Kind: agent.KindMalformedPayload, Message: msg, Err: err}
}

func decode(raw string, v interface{}) error {
	body := utils.ExtractJSONObject(utils.StripFences(raw))
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return malformed("reply is not valid JSON", err)
	}
	return nil
}

func parseResumeReport(raw string) (*ResumeReport, error) {
	var report ResumeReport
	if err := decode(raw, &report); err != nil {
		return nil, err
	}
	if len(report.Sections) == 0 && strings.TrimSpace(report.FitSummary) == "" {
		return nil, malformed("report has neither sections nor summary", nil)
	}

	report.OverallScore = clamp(report.OverallScore)
	if report.Sections == nil {
		report.Sections = map[string]SectionScore{}
	}
	for name, section := range report.Sections {
		section.Score = clamp(section.Score)
		report.Sections[name] = section
	}
	report.TipsForImprovement = nonNil(report.TipsForImprovement)
	report.WhatsGood = nonNil(report.WhatsGood)
	report.NeedsImprovement = nonNil(report.NeedsImprovement)
	return &report, nil
}

func parseRoadmap(raw string) (*Roadmap, error) {
	var roadmap Roadmap
	if err := decode(raw, &roadmap); err != nil {
		return nil, err
	}
	if strings.TrimSpace(roadmap.Title) == "" {
		return nil, malformed("roadmap has no title", nil)
	}

	known := make(map[string]bool, len(roadmap.Nodes))
	nodes := make([]Node, 0, len(roadmap.Nodes))
	for _, node := range roadmap.Nodes {
		if node.ID == "" || known[node.ID] {
			continue
		}
		if node.Type == "" {
			node.Type = "turbo"
		}
		known[node.ID] = true
		nodes = append(nodes, node)
	}
	if len(nodes) == 0 {
		return nil, malformed("roadmap has no nodes", nil)
	}

	// edges pointing at dropped or unknown nodes would break the renderer
	edges := make([]Edge, 0, len(roadmap.Edges))
	for _, edge := range roadmap.Edges {
		if !known[edge.Source] || !known[edge.Target] {
			continue
		}
		if edge.ID == "" {
			edge.ID = "e" + edge.Source + "-" + edge.Target
		}
		edges = append(edges, edge)
	}

	roadmap.Nodes = nodes
	roadmap.Edges = edges
	return &roadmap, nil
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
