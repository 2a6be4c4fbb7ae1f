package validator

import (
	"fmt"
	"strings"

	"github.com/aretw0/reel/pkg/domain"
)

// ValidateGraph crawls g from its entry step and reports steps that are never
// reached and steps from which the run can never terminate.
func ValidateGraph(g *domain.Graph) error {
	forward := make(map[string][]string)
	backward := make(map[string][]string)
	for _, e := range g.Edges() {
		forward[e.From] = append(forward[e.From], e.To)
		backward[e.To] = append(backward[e.To], e.From)
	}

	reached := crawl(g.Entry(), forward)
	// Every routed step may stop the run, so it reaches the end even without an explicit edge.
	exits := []string{domain.End}
	for _, name := range g.Names() {
		if n, _ := g.Node(name); n.Router != nil {
			exits = append(exits, name)
		}
	}
	terminating := crawl("", backward, exits...)

	var errors []string
	for _, name := range g.Names() {
		if !reached[name] {
			errors = append(errors, fmt.Sprintf("Unreachable step: '%s'", name))
			continue
		}
		if !terminating[name] {
			errors = append(errors, fmt.Sprintf("Step '%s' can never reach the end of the run", name))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("found %d errors:\n- %s", len(errors), strings.Join(errors, "\n- "))
	}
	return nil
}

func crawl(start string, edges map[string][]string, more ...string) map[string]bool {
	visited := make(map[string]bool)
	var queue []string
	if start != "" {
		queue = append(queue, start)
	}
	queue = append(queue, more...)

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true
		for _, next := range edges[current] {
			if !visited[next] {
				queue = append(queue, next)
			}
		}
	}
	return visited
}
