package survey

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validAnswers() map[string]string {
	answers := map[string]string{}
	for i := 1; i <= 10; i++ {
		answers[fmt.Sprintf("q%d", i)] = "A"
	}
	return answers
}

func TestValidateAcceptsCompleteSubmission(t *testing.T) {
	require.NoError(t, Validate(validAnswers()))
}

func TestValidateAcceptsSixOptionQuestions(t *testing.T) {
	answers := validAnswers()
	answers["q1"] = "F"
	answers["q2"] = "f"
	require.NoError(t, Validate(answers))
}

func TestValidateRejectsWrongAnswerCount(t *testing.T) {
	answers := validAnswers()
	delete(answers, "q10")
	assert.Error(t, Validate(answers))

	answers["q10"] = "A"
	answers["q11"] = "A"
	assert.Error(t, Validate(answers))
}

func TestValidateRejectsUnknownQuestion(t *testing.T) {
	answers := validAnswers()
	delete(answers, "q5")
	answers["bogus"] = "A"
	assert.ErrorContains(t, Validate(answers), "unknown question")
}

func TestValidateRejectsInvalidOption(t *testing.T) {
	answers := validAnswers()
	answers["q3"] = "F" // q3 only offers A-E
	assert.ErrorContains(t, Validate(answers), "q3")

	answers["q3"] = "A"
	answers["q7"] = "ZZ"
	assert.ErrorContains(t, Validate(answers), "q7")

	answers["q7"] = ""
	assert.Error(t, Validate(answers))
}
