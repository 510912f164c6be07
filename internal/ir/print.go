package ir

import (
	"fmt"
	"strings"
)

// Print renders g, and every graph reachable from it through constants, as a
// deterministic text listing:
//
//	graph f(x, y) {
//	  a = mul(x, x)
//	  return a
//	}
//
// Apply nodes owned by a graph are listed operands-first, starting from the
// output; nodes only read by the graph's closures follow. Nodes without a
// debug name are labeled %1, %2, ... in order of first appearance; graphs
// without a name are labeled g1, g2, .... The listing never mentions node or
// graph identifiers, so a faithful clone prints exactly like its original.
func Print(m *Module, g GraphID) (string, error) {
	if !m.HasGraph(g) {
		return "", unknownGraphError(g)
	}
	p := &printer{
		m:       m,
		labels:  make(map[NodeID]string),
		glabels: make(map[GraphID]string),
		queued:  make(map[GraphID]bool),
	}
	p.enqueue(g)
	for i := 0; i < len(p.queue); i++ {
		if i > 0 {
			p.buf.WriteByte('\n')
		}
		if err := p.printGraph(p.queue[i]); err != nil {
			return "", err
		}
	}
	return p.buf.String(), nil
}

type printer struct {
	m         *Module
	buf       strings.Builder
	labels    map[NodeID]string
	glabels   map[GraphID]string
	nextNode  int
	nextGraph int
	queue     []GraphID
	queued    map[GraphID]bool
}

func (p *printer) enqueue(g GraphID) {
	if !p.queued[g] {
		p.queued[g] = true
		p.queue = append(p.queue, g)
	}
}

func (p *printer) printGraph(g GraphID) error {
	out, err := p.m.Output(g)
	if err != nil {
		return err
	}
	params := p.m.Params(g)
	names := make([]string, len(params))
	for i, prm := range params {
		names[i] = p.label(prm)
	}
	fmt.Fprintf(&p.buf, "graph %s(%s) {\n", p.graphLabel(g), strings.Join(names, ", "))

	visited := make(map[NodeID]bool)
	var visit func(n NodeID)
	visit = func(n NodeID) {
		if visited[n] || p.m.Kind(n) != KindApply || p.m.Owner(n) != g {
			return
		}
		visited[n] = true
		inputs := p.m.Inputs(n)
		for _, in := range inputs {
			visit(in)
		}
		lhs := p.label(n)
		op := p.ref(inputs[0])
		args := make([]string, 0, len(inputs)-1)
		for _, in := range inputs[1:] {
			args = append(args, p.ref(in))
		}
		fmt.Fprintf(&p.buf, "  %s = %s(%s)\n", lhs, op, strings.Join(args, ", "))
	}
	visit(out)
	// Nodes of g used only inside its closures come after the main body.
	deep, err := p.m.Reachable(out, SuccDeep)
	if err != nil {
		return err
	}
	for _, n := range deep {
		visit(n)
	}

	fmt.Fprintf(&p.buf, "  return %s\n}\n", p.ref(out))
	return nil
}

func (p *printer) ref(n NodeID) string {
	v, ok := p.m.Value(n)
	if !ok {
		return p.label(n)
	}
	if g, isGraph := v.Graph(); isGraph {
		p.enqueue(g)
		return "@" + p.graphLabel(g)
	}
	return v.String()
}

func (p *printer) label(n NodeID) string {
	if l, ok := p.labels[n]; ok {
		return l
	}
	l := p.m.NodeName(n)
	if l == "" {
		p.nextNode++
		l = fmt.Sprintf("%%%d", p.nextNode)
	}
	p.labels[n] = l
	return l
}

func (p *printer) graphLabel(g GraphID) string {
	if l, ok := p.glabels[g]; ok {
		return l
	}
	l := p.m.GraphName(g)
	if l == "" {
		p.nextGraph++
		l = fmt.Sprintf("g%d", p.nextGraph)
	}
	p.glabels[g] = l
	return l
}
