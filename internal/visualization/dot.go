// Package visualization renders collaboration networks in various output
// formats.
package visualization

import (
	"fmt"
	"slices"
	"strings"

	"github.com/nvandessel/contagion/internal/network"
)

// Format specifies the output format for graph rendering.
type Format string

const (
	FormatDOT  Format = "dot"
	FormatJSON Format = "json"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatDOT, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("visualization: unknown format %q", s)
}

// View selects which graph is rendered.
type View string

const (
	ViewBipartite View = "bipartite" // agents and events
	ViewProjected View = "projected" // agents only, linked by shared events
)

// ParseView validates a view name.
func ParseView(s string) (View, error) {
	switch v := View(s); v {
	case ViewBipartite, ViewProjected:
		return v, nil
	}
	return "", fmt.Errorf("visualization: unknown view %q", s)
}

const (
	adopterColor    = "tomato"
	nonAdopterColor = "steelblue"
	eventColor      = "lightgray"
	labelLimit      = 40
)

func agentColor(net *network.Network, a *network.Agent) string {
	if net.IsAdopter(a.Index()) {
		return adopterColor
	}
	return nonAdopterColor
}

// RenderDOT produces a Graphviz representation of net in the given view.
// The projected view weighs links by wt.
func RenderDOT(net *network.Network, view View, wt network.WeightType) (string, error) {
	switch view {
	case ViewBipartite:
		return renderBipartiteDOT(net), nil
	case ViewProjected:
		return renderProjectedDOT(net.Project(wt)), nil
	}
	return "", fmt.Errorf("visualization: unknown view %q", view)
}

func writeHeader(b *strings.Builder, name string, directed bool) {
	kind := "graph"
	if directed {
		kind = "digraph"
	}
	fmt.Fprintf(b, "%s %s {\n", kind, name)
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [style=filled, fontname=\"Helvetica\"];\n")
	b.WriteString("  edge [fontname=\"Helvetica\", fontsize=10];\n\n")
}

func writeAgents(b *strings.Builder, net *network.Network) {
	for _, a := range net.Agents() {
		fmt.Fprintf(b, "  %q [shape=ellipse, fillcolor=%q, tooltip=\"belief=%.2f\"];\n",
			"a:"+a.ID, agentColor(net, a), a.Belief)
	}
}

// renderBipartiteDOT draws agents as ellipses and events as boxes, one edge
// per participation.
func renderBipartiteDOT(net *network.Network) string {
	var b strings.Builder
	writeHeader(&b, "bipartite", false)
	writeAgents(&b, net)
	b.WriteString("\n")

	agents := net.Agents()
	for _, ev := range net.Events() {
		fmt.Fprintf(&b, "  %q [shape=box, fillcolor=%q, label=%q, tooltip=\"year=%d days=%d\"];\n",
			"e:"+ev.ID, eventColor, truncate(eventLabel(ev), labelLimit), ev.Year, ev.Duration())
		for _, p := range ev.Participants {
			fmt.Fprintf(&b, "  %q -- %q;\n", "e:"+ev.ID, "a:"+agents[p].ID)
		}
	}
	b.WriteString("}\n")
	return b.String()
}

// renderProjectedDOT draws each undirected link once, labelled with its
// weight.
func renderProjectedDOT(p *network.Projection) string {
	var b strings.Builder
	writeHeader(&b, "projected", false)
	writeAgents(&b, p.Network)
	b.WriteString("\n")

	agents := p.Agents()
	for i, a := range agents {
		for _, l := range p.Neighbors(i) {
			if l.To < i {
				continue
			}
			fmt.Fprintf(&b, "  %q -- %q [label=\"%g\", penwidth=%.1f];\n",
				"a:"+a.ID, "a:"+agents[l.To].ID, l.Weight, penWidth(l.Weight))
		}
	}
	b.WriteString("}\n")
	return b.String()
}

func penWidth(w float64) float64 {
	return min(1+w/2, 6)
}

func eventLabel(ev *network.Event) string {
	if ev.Title != "" {
		return ev.Title
	}
	return ev.ID
}

// Node is one vertex of the JSON graph.
type Node struct {
	ID      string  `json:"id"`
	Kind    string  `json:"kind"` // agent or event
	Label   string  `json:"label,omitempty"`
	Belief  float64 `json:"belief,omitempty"`
	Adopter bool    `json:"adopter,omitempty"`
	Year    int     `json:"year,omitempty"`
	Days    int     `json:"days,omitempty"`
}

// Edge is one undirected edge of the JSON graph.
type Edge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"weight,omitempty"`
	Shared int     `json:"shared,omitempty"`
}

// Graph is the node-link form of a network.
type Graph struct {
	View      View   `json:"view"`
	Nodes     []Node `json:"nodes"`
	Edges     []Edge `json:"edges"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
}

// RenderJSON builds the node-link graph of net in the given view. Node ids
// carry an "a:" or "e:" prefix so agents and events never collide.
func RenderJSON(net *network.Network, view View, wt network.WeightType) (*Graph, error) {
	g := &Graph{View: view}
	agents := net.Agents()
	for _, a := range agents {
		g.Nodes = append(g.Nodes, Node{
			ID:      "a:" + a.ID,
			Kind:    "agent",
			Label:   a.ID,
			Belief:  a.Belief,
			Adopter: net.IsAdopter(a.Index()),
		})
	}

	switch view {
	case ViewBipartite:
		for _, ev := range net.Events() {
			g.Nodes = append(g.Nodes, Node{
				ID:    "e:" + ev.ID,
				Kind:  "event",
				Label: eventLabel(ev),
				Year:  ev.Year,
				Days:  ev.Duration(),
			})
			for _, p := range ev.Participants {
				g.Edges = append(g.Edges, Edge{Source: "e:" + ev.ID, Target: "a:" + agents[p].ID})
			}
		}
	case ViewProjected:
		p := net.Project(wt)
		for i, a := range agents {
			for _, l := range p.Neighbors(i) {
				if l.To < i {
					continue
				}
				g.Edges = append(g.Edges, Edge{
					Source: "a:" + a.ID,
					Target: "a:" + agents[l.To].ID,
					Weight: l.Weight,
					Shared: l.Shared,
				})
			}
		}
	default:
		return nil, fmt.Errorf("visualization: unknown view %q", view)
	}

	slices.SortStableFunc(g.Edges, func(x, y Edge) int {
		if c := strings.Compare(x.Source, y.Source); c != 0 {
			return c
		}
		return strings.Compare(x.Target, y.Target)
	})
	g.NodeCount, g.EdgeCount = len(g.Nodes), len(g.Edges)
	return g, nil
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
