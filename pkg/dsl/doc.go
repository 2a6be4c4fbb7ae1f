/*
Package dsl provides a fluent builder for constructing reel workflow graphs in Go.

Steps are bound to either a static fallback edge or a router together with the
full list of steps that router may select, so the graph can be validated and
rendered before anything runs.

Example usage:

	b := dsl.New()

	b.Add("plan").Do(planStep).Go("generate")

	b.Add("generate").
		Do(generateStep).
		Route(func(s domain.State) domain.Route {
			if s.Feedback.Kind() == domain.FeedbackRawError {
				return domain.Terminate()
			}
			return domain.Next("render")
		}, "render")

	b.Add("render").Do(renderStep).Terminal()

	graph, err := b.Build()
*/
package dsl
