package pipeline

import "github.com/aretw0/reel/pkg/domain"

// afterRender checks the render-error budget before anything else. A render failure
// replaces any unresolved evaluation issues in the feedback channel, so this loop
// always takes precedence over the evaluation loop.
func afterRender(s domain.State) domain.Route {
	if s.Terminated() {
		return domain.Terminate()
	}
	if s.Feedback.Kind() == domain.FeedbackRawError {
		if !s.CanSpend(domain.BudgetRender) {
			return domain.Exhausted(domain.BudgetRender)
		}
		return domain.Retry(StepResearch, domain.BudgetRender)
	}
	return domain.Next(StepEvaluate)
}

// afterEvaluate spends the evaluation budget on any issue list, whatever its severity.
// An evaluator outage (raw error) is advisory and lets the run proceed.
func afterEvaluate(s domain.State) domain.Route {
	if s.Terminated() {
		return domain.Terminate()
	}
	if s.Feedback.Kind() == domain.FeedbackIssues {
		if !s.CanSpend(domain.BudgetEvaluation) {
			return domain.Exhausted(domain.BudgetEvaluation)
		}
		return domain.Retry(StepGenerate, domain.BudgetEvaluation)
	}
	return domain.Next(StepNarrate)
}

// afterVoiceover skips straight to muxing a silent video when the audio chain fails
// and the fallback is enabled.
func afterVoiceover(next string, silentFallback bool) domain.Router {
	return func(s domain.State) domain.Route {
		if s.Terminated() {
			return domain.Terminate()
		}
		if s.Feedback.Kind() == domain.FeedbackNone {
			return domain.Next(next)
		}
		if silentFallback {
			return domain.Next(StepMux)
		}
		return domain.Terminate()
	}
}

// proceedOrStop continues on success and ends the run on any feedback.
// These steps have no revision loop of their own.
func proceedOrStop(next string) domain.Router {
	return func(s domain.State) domain.Route {
		if s.Terminated() || s.Feedback.Kind() != domain.FeedbackNone {
			return domain.Terminate()
		}
		return domain.Next(next)
	}
}
