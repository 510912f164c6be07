package store

import (
	"github.com/roach88/anfir/internal/clone"
	"github.com/roach88/anfir/internal/ir"
)

// RecordTable converts the translations of a clone table into journal
// mappings, keeping the table's order. Names are the debug names of the
// originals in m.
func RecordTable(m *ir.Module, t *clone.Table) (graphs, nodes []Mapping) {
	graphs = make([]Mapping, 0, len(t.Graphs()))
	for _, gm := range t.Graphs() {
		graphs = append(graphs, Mapping{
			From: uint32(gm.From),
			To:   uint32(gm.To),
			Name: m.GraphName(gm.From),
		})
	}
	nodes = make([]Mapping, 0, len(t.Nodes()))
	for _, nm := range t.Nodes() {
		nodes = append(nodes, Mapping{
			From: uint32(nm.From),
			To:   uint32(nm.To),
			Name: m.NodeName(nm.From),
		})
	}
	return graphs, nodes
}
