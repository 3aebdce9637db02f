package orchestrator

// #region imports
import (
	"fmt"
	"strings"

	"github.com/danielpatrickdp/reason-router/internal/strategy"
)

// #endregion

// #region non-answer-patterns

// Non-answer conditions, in detection order.
const (
	nonAnswerFailure = "collaborator_failure"
	nonAnswerEmpty   = "empty"
	nonAnswerRefusal = "refusal"
	nonAnswerEcho    = "echo"
)

var refusalPatterns = []string{
	"i cannot help with",
	"i can't help with",
	"i cannot answer",
	"i can't answer",
	"i'm unable to",
	"i am unable to",
	"i won't be able to",
	"as an ai",
	"as a language model",
	"beyond my capabilities",
}

// #endregion

// #region evaluate

// evaluate judges one attempt. Adequate means: no non-answer detected and a
// confidence signal at or above the configured minimum. Collaborator
// failures are inadequate results, never fatal.
func evaluate(problem string, res strategy.Result, execErr error, minConfidence float64) Evaluation {
	if execErr != nil {
		return Evaluation{
			Adequate:  false,
			NonAnswer: nonAnswerFailure,
			Reason:    fmt.Sprintf("execution failed: %v", execErr),
		}
	}

	trimmed := strings.TrimSpace(res.Text)
	lower := strings.ToLower(trimmed)

	if trimmed == "" {
		return Evaluation{Adequate: false, NonAnswer: nonAnswerEmpty, Reason: "empty output"}
	}
	for _, p := range refusalPatterns {
		if strings.Contains(lower, p) {
			return Evaluation{
				Adequate:   false,
				Confidence: 0.1,
				NonAnswer:  nonAnswerRefusal,
				Reason:     fmt.Sprintf("refusal pattern %q", p),
			}
		}
	}

	// Near-echo: a short response that just restates the problem.
	problemLower := strings.ToLower(strings.TrimSpace(problem))
	if len(problemLower) > 10 && strings.Contains(lower, problemLower) &&
		len(trimmed) < 2*len(problemLower) {
		return Evaluation{
			Adequate:   false,
			Confidence: 0.2,
			NonAnswer:  nonAnswerEcho,
			Reason:     "response restates the problem",
		}
	}

	conf := res.Confidence
	if !res.HasConfidence {
		conf = fallbackConfidence(problem, trimmed, lower)
	}

	if conf < minConfidence {
		return Evaluation{
			Adequate:   false,
			Confidence: conf,
			Reason:     fmt.Sprintf("confidence %.2f below minimum %.2f", conf, minConfidence),
		}
	}
	return Evaluation{Adequate: true, Confidence: conf, Reason: "adequate"}
}

// #endregion

// #region fallback-confidence

// fallbackConfidence scores an answer that carried no strategy confidence:
// length adequacy plus engagement with the problem's vocabulary.
func fallbackConfidence(problem, trimmed, lower string) float64 {
	words := strings.Fields(trimmed)
	wordCount := len(words)

	var lengthAdequacy float64
	switch {
	case wordCount < 10:
		lengthAdequacy = float64(wordCount) / 10
	case wordCount <= 50:
		lengthAdequacy = 0.5 + 0.5*float64(wordCount-10)/40
	default:
		lengthAdequacy = 1
	}

	responseWords := make(map[string]bool)
	for _, w := range strings.Fields(lower) {
		responseWords[w] = true
	}
	promptWords := strings.Fields(strings.ToLower(problem))
	shared := 0
	for _, pw := range promptWords {
		if len(pw) > 3 && responseWords[pw] {
			shared++
		}
	}
	engagement := 0.0
	if len(promptWords) > 0 {
		engagement = float64(shared) / float64(len(promptWords))
		if engagement > 1 {
			engagement = 1
		}
	}

	return 0.5*lengthAdequacy + 0.5*engagement
}

// #endregion
