// ABOUTME: Pipeline graph generation with graphviz
// ABOUTME: Renders lead counts per status, and per team member, as DOT, SVG or PNG
package viz

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/harperreed/leadsync/models"
)

// transitions are the pipeline moves drawn between status nodes.
var transitions = [][2]models.Status{
	{models.StatusNew, models.StatusCalled},
	{models.StatusCalled, models.StatusCallback},
	{models.StatusCalled, models.StatusInterested},
	{models.StatusCalled, models.StatusRejected},
	{models.StatusCallback, models.StatusInterested},
	{models.StatusCallback, models.StatusRejected},
	{models.StatusInterested, models.StatusClosed},
}

var statusColors = map[models.Status]string{
	models.StatusNew:        "lightgray",
	models.StatusCalled:     "lightblue",
	models.StatusCallback:   "lightyellow",
	models.StatusInterested: "palegreen",
	models.StatusRejected:   "lightpink",
	models.StatusClosed:     "gold",
}

// ParseFormat maps dot, svg or png to a graphviz format.
func ParseFormat(s string) (graphviz.Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "dot":
		return graphviz.XDOT, nil
	case "svg":
		return graphviz.SVG, nil
	case "png":
		return graphviz.PNG, nil
	}
	return "", fmt.Errorf("unknown graph format %q (valid: dot, svg, png)", s)
}

// GraphGenerator renders lead pipelines. Only marked or worked leads are
// drawn; untouched search results would swamp the NEW node.
type GraphGenerator struct {
	leads []models.Lead
}

func NewGraphGenerator(leads []models.Lead) *GraphGenerator {
	kept := make([]models.Lead, 0, len(leads))
	for _, l := range leads {
		if l.Interacted() {
			kept = append(kept, l)
		}
	}
	return &GraphGenerator{leads: kept}
}

// GeneratePipelineGraph draws one node per status labeled with its lead count.
func (g *GraphGenerator) GeneratePipelineGraph(ctx context.Context, format graphviz.Format) (string, error) {
	return g.render(ctx, format, func(graph *cgraph.Graph) error {
		graph.SetLabel(fmt.Sprintf("Sales pipeline (%d leads)", len(g.leads)))
		_, err := g.statusNodes(graph)
		return err
	})
}

// GenerateTeamGraph adds a node per team member with an edge to each status
// they hold leads in, weighted by count.
func (g *GraphGenerator) GenerateTeamGraph(ctx context.Context, format graphviz.Format) (string, error) {
	return g.render(ctx, format, func(graph *cgraph.Graph) error {
		graph.SetLabel("Team pipeline")
		nodes, err := g.statusNodes(graph)
		if err != nil {
			return err
		}

		counts := map[string]map[models.Status]int{}
		for _, l := range g.leads {
			owner := l.AssignedTo
			if owner == "" {
				owner = l.AddedBy
			}
			if owner == "" {
				owner = "Unknown"
			}
			if counts[owner] == nil {
				counts[owner] = map[models.Status]int{}
			}
			counts[owner][status(l)]++
		}

		members := make([]string, 0, len(counts))
		for m := range counts {
			members = append(members, m)
		}
		sort.Strings(members)

		for _, m := range members {
			node, err := graph.CreateNodeByName("member_" + m)
			if err != nil {
				return fmt.Errorf("failed to create member node: %w", err)
			}
			node.SetLabel(m)
			node.SetShape("ellipse")
			for _, s := range models.Statuses {
				n := counts[m][s]
				if n == 0 {
					continue
				}
				edge, err := graph.CreateEdgeByName(m+"_"+string(s), node, nodes[s])
				if err != nil {
					return fmt.Errorf("failed to create edge: %w", err)
				}
				edge.SetLabel(fmt.Sprintf("%d", n))
				edge.SetStyle("dashed")
			}
		}
		return nil
	})
}

func (g *GraphGenerator) statusNodes(graph *cgraph.Graph) (map[models.Status]*cgraph.Node, error) {
	counts := map[models.Status]int{}
	for _, l := range g.leads {
		counts[status(l)]++
	}

	nodes := make(map[models.Status]*cgraph.Node, len(models.Statuses))
	for _, s := range models.Statuses {
		node, err := graph.CreateNodeByName(string(s))
		if err != nil {
			return nil, fmt.Errorf("failed to create status node: %w", err)
		}
		node.SetLabel(fmt.Sprintf("%s\n%d", s.Label(), counts[s]))
		node.SetShape("box")
		node.SetStyle("filled")
		node.SetFillColor(statusColors[s])
		nodes[s] = node
	}
	for _, t := range transitions {
		if _, err := graph.CreateEdgeByName(string(t[0])+"_"+string(t[1]), nodes[t[0]], nodes[t[1]]); err != nil {
			return nil, fmt.Errorf("failed to create edge: %w", err)
		}
	}
	return nodes, nil
}

func (g *GraphGenerator) render(ctx context.Context, format graphviz.Format, build func(*cgraph.Graph) error) (string, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create graphviz: %w", err)
	}
	defer func() { _ = gv.Close() }()

	graph, err := gv.Graph()
	if err != nil {
		return "", fmt.Errorf("failed to create graph: %w", err)
	}
	defer func() { _ = graph.Close() }()

	graph.SetRankDir(cgraph.LRRank)
	if err := build(graph); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, format, &buf); err != nil {
		return "", fmt.Errorf("failed to render graph: %w", err)
	}
	return buf.String(), nil
}

func status(l models.Lead) models.Status {
	if l.Status == "" {
		return models.StatusNew
	}
	return l.Status
}
