package interview

import "fmt"

// fallbackMessage is the in-character message used when the agent's reply
// cannot be parsed. It is deterministic in (type, domain, opening).
func fallbackMessage(typ Type, domain string, opening bool) string {
	if opening {
		if typ == TypeDSA {
			return fmt.Sprintf("Hello! Welcome to your DSA interview for the %s position. "+
				"I'm excited to see how you approach algorithmic problems. "+
				"Let's start with a problem: can you solve the \"Two Sum\" problem? "+
				"Walk me through your approach before you write any code.", domain)
		}
		return fmt.Sprintf("Hello! Welcome to your %s interview for the %s position. "+
			"I'm excited to learn more about you. "+
			"Could you start by telling me a bit about yourself and your background?", typ.Label(), domain)
	}

	switch typ {
	case TypeDSA:
		return "Thanks for walking me through that. What are the time and space complexity of your approach, " +
			"and which edge cases would you test?"
	case TypeCultureFit:
		return "Thanks for sharing. Tell me about a time when you had to work with a difficult team member. " +
			"How did you handle it?"
	default:
		return "Thanks, that's helpful. Can you walk me through how you would approach solving a complex " +
			"technical problem in your last role?"
	}
}

// fallbackQuestion is the problem posed when a DSA opening arrives without one.
func fallbackQuestion() *DSAQuestion {
	return &DSAQuestion{
		Title:       "Two Sum",
		Description: "Given an array of integers nums and an integer target, return indices of the two numbers such that they add up to target.",
		Difficulty:  "easy",
		Examples: []string{
			"Input: nums = [2,7,11,15], target = 9\nOutput: [0,1]\nExplanation: Because nums[0] + nums[1] == 9, we return [0, 1].",
			"Input: nums = [3,2,4], target = 6\nOutput: [1,2]",
			"Input: nums = [3,3], target = 6\nOutput: [0,1]",
		},
		Constraints: []string{
			"2 <= nums.length <= 10^4",
			"-10^9 <= nums[i] <= 10^9",
			"-10^9 <= target <= 10^9",
			"Only one valid answer exists.",
		},
		TestCases: []TestCase{
			{Input: "[2,7,11,15], 9", Output: "[0,1]", Explanation: "nums[0] + nums[1] = 2 + 7 = 9"},
			{Input: "[3,2,4], 6", Output: "[1,2]", Explanation: "nums[1] + nums[2] = 2 + 4 = 6"},
		},
	}
}
