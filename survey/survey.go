// Package survey defines the fixed ten-question wellbeing check-in and
// validates submitted answer maps before they reach the mood classifier.
package survey

import (
	"fmt"
	"sort"
	"strings"
)

// QuestionCount is the number of questions in the check-in.
const QuestionCount = 10

// options holds the valid option letters per question key. Questions one and
// two offer six options, the rest five.
var options = map[string]string{
	"q1":  "ABCDEF",
	"q2":  "ABCDEF",
	"q3":  "ABCDE",
	"q4":  "ABCDE",
	"q5":  "ABCDE",
	"q6":  "ABCDE",
	"q7":  "ABCDE",
	"q8":  "ABCDE",
	"q9":  "ABCDE",
	"q10": "ABCDE",
}

// Validate checks that answers carries exactly the keys q1..q10 and that each
// selected option is valid for its question. The error message names the first
// offending key in key order, so repeated validation of the same map reports
// the same problem.
func Validate(answers map[string]string) error {
	if len(answers) != QuestionCount {
		return fmt.Errorf("expected %d answers, got %d", QuestionCount, len(answers))
	}

	keys := make([]string, 0, len(answers))
	for key := range answers {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		valid, ok := options[key]
		if !ok {
			return fmt.Errorf("unknown question %q", key)
		}
		selected := strings.ToUpper(strings.TrimSpace(answers[key]))
		if len(selected) != 1 || !strings.Contains(valid, selected) {
			return fmt.Errorf("question %s: invalid option %q", key, answers[key])
		}
	}

	return nil
}
