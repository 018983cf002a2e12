// Package graph builds the context inheritance graph of a .blobify document.
package graph

import (
	"fmt"
	"slices"

	"github.com/blobify/blobify-lang/internal/blobify/domain"
	"github.com/blobify/blobify-lang/internal/blobify/parser"
)

// Graph is the resolved set of contexts of one document. It is immutable
// once Build returns and safe for concurrent readers.
type Graph struct {
	contexts     map[string]*domain.Context
	order        []string            // Declared names in document order.
	edges        map[string][]string // Child -> resolved parents.
	reverseEdges map[string][]string // Parent -> children.
	depths       map[string]int
}

// builder is the accumulator threaded through the top-to-bottom scan.
type builder struct {
	graph   *Graph
	defined map[string]bool
	diags   []domain.Diagnostic
}

// Build scans the context headers of lines in document order. A header may
// only reference contexts defined on earlier lines or the reserved root, so
// the result is acyclic by construction. Diagnostics are reported on the
// offending (later or referencing) line.
func Build(lines []parser.Line) (*Graph, []domain.Diagnostic) {
	b := &builder{
		graph: &Graph{
			contexts: map[string]*domain.Context{
				domain.ReservedContext: {Name: domain.ReservedContext, Line: -1},
			},
			edges:        make(map[string][]string),
			reverseEdges: make(map[string][]string),
			depths:       map[string]int{domain.ReservedContext: 0},
		},
		defined: map[string]bool{domain.ReservedContext: true},
	}
	for _, l := range lines {
		if l.Kind == domain.LineContextHeader && l.Header != nil {
			b.add(l.Number, l.Header)
		}
	}
	return b.graph, b.diags
}

func (b *builder) add(line int, h *parser.Header) {
	switch {
	case h.Name == "":
		b.report(line, domain.CodeEmptyContext, "Empty context name")
		return
	case h.Name == domain.ReservedContext:
		b.report(line, domain.CodeReservedContext, "Cannot redefine the 'default' context")
		return
	case b.defined[h.Name]:
		b.report(line, domain.CodeDuplicateContext, fmt.Sprintf("Duplicate context name: %s", h.Name))
		return
	}

	var resolved []string
	for _, p := range h.Parents {
		if !b.defined[p] {
			b.report(line, domain.CodeUnknownParent, fmt.Sprintf(
				"Parent context '%s' not found. Contexts must be defined before they are referenced", p))
			continue
		}
		if !slices.Contains(resolved, p) {
			resolved = append(resolved, p)
		}
	}
	if len(resolved) == 0 {
		resolved = []string{domain.ReservedContext}
	}

	b.defined[h.Name] = true
	g := b.graph
	g.contexts[h.Name] = &domain.Context{
		Name:    h.Name,
		Parents: slices.Clone(h.Parents),
		Line:    line,
	}
	g.order = append(g.order, h.Name)
	g.edges[h.Name] = resolved
	depth := 0
	for _, p := range resolved {
		g.reverseEdges[p] = append(g.reverseEdges[p], h.Name)
		// Parents resolve before children, so their depth is final.
		depth = max(depth, g.depths[p]+1)
	}
	g.depths[h.Name] = depth
}

func (b *builder) report(line int, code domain.Code, msg string) {
	b.diags = append(b.diags, domain.Diagnostic{
		Line:     line,
		Message:  msg,
		Severity: domain.SeverityError,
		Code:     code,
	})
}

// Get returns the context with the given name. The reserved root is always
// present with Line -1.
func (g *Graph) Get(name string) (domain.Context, bool) {
	c, ok := g.contexts[name]
	if !ok {
		return domain.Context{}, false
	}
	return *c, true
}

// Names returns the reserved root followed by every declared context in
// document order.
func (g *Graph) Names() []string {
	return append([]string{domain.ReservedContext}, g.order...)
}

// Contexts returns the declared contexts in document order.
func (g *Graph) Contexts() []domain.Context {
	out := make([]domain.Context, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, *g.contexts[name])
	}
	return out
}

// DefinedBefore returns the names a header on the given line may inherit
// from: the reserved root plus every context declared on an earlier line.
func (g *Graph) DefinedBefore(line int) []string {
	names := []string{domain.ReservedContext}
	for _, name := range g.order {
		if g.contexts[name].Line < line {
			names = append(names, name)
		}
	}
	return names
}

// EffectiveParents returns the parents a context actually inherits from:
// its resolvable declared parents, or the reserved root when none of them
// resolve (including when none were declared). The reserved root itself has
// no parents.
func (g *Graph) EffectiveParents(name string) []string {
	return slices.Clone(g.edges[name])
}

// Children returns the contexts that directly inherit from name.
func (g *Graph) Children(name string) []string {
	return slices.Clone(g.reverseEdges[name])
}

// Ancestors returns the linearized inheritance chain of name: parents
// depth-first in declaration order, each listed once, ending with the
// reserved root. It returns nil for unknown names.
func (g *Graph) Ancestors(name string) []string {
	if _, ok := g.contexts[name]; !ok || name == domain.ReservedContext {
		return nil
	}

	seen := map[string]bool{name: true, domain.ReservedContext: true}
	var out []string
	var visit func(string)
	visit = func(n string) {
		for _, p := range g.edges[n] {
			if seen[p] {
				continue
			}
			seen[p] = true
			out = append(out, p)
			visit(p)
		}
	}
	visit(name)
	return append(out, domain.ReservedContext)
}

// Descendants returns every context that inherits from name directly or
// transitively, in document order.
func (g *Graph) Descendants(name string) []string {
	visited := map[string]bool{name: true}
	queue := []string{name}
	found := make(map[string]bool)

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, child := range g.reverseEdges[current] {
			if visited[child] {
				continue
			}
			visited[child] = true
			found[child] = true
			queue = append(queue, child)
		}
	}

	var out []string
	for _, n := range g.order {
		if found[n] {
			out = append(out, n)
		}
	}
	return out
}

// Depth is the length of the longest inheritance path from name to the
// reserved root; the root itself and unknown names have depth 0.
func (g *Graph) Depth(name string) int {
	return g.depths[name]
}
