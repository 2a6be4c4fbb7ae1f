/*
Package reel turns a short concept into a narrated math animation video.

A run walks a fixed workflow graph: plan the scenes, generate a Manim script,
render it, review the video, narrate it, synthesize speech, mux and publish.
Two revision loops send the script back for regeneration, one after render
failures and one after review findings. Each loop has its own budget, and a
global step ceiling guards against routing defects.

# Usage

	gen, err := reel.New(pipeline.Collaborators{
		Planner:   planner,
		Coder:     coder,
		Renderer:  renderer,
		Muxer:     muxer,
		Publisher: publisher,
	}, reel.WithBudgets(domain.Budgets{MaxEvaluationRevisions: 2, MaxRenderRevisions: 3}))
	if err != nil {
		log.Fatal(err)
	}

	res, err := gen.Run(ctx, "Pythagorean theorem", "en-US")
	if err != nil {
		log.Fatal(err) // invalid input
	}
	fmt.Println(res.Status, res.OutputReference, res.Message)

Evaluation, narration, speech synthesis and error research are optional
collaborators. With silent fallback enabled (the default), a run whose narration
or speech fails still publishes the silent video.

The cmd/reel binary wires the stock adapters from configuration and exposes the
generator as a CLI, an HTTP service and an MCP server.
*/
package reel
