package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/anfir/internal/ir"
)

// Program is a compiled set of graph declarations.
type Program struct {
	Module *ir.Module

	// Graphs maps qualified names ("f", "f.j") to graphs.
	Graphs map[string]ir.GraphID

	// Order lists top-level graph names in declaration order.
	Order []string
}

// Graph returns the graph declared under a qualified name.
func (p *Program) Graph(name string) (ir.GraphID, bool) {
	g, ok := p.Graphs[name]
	return g, ok
}

// CompileString compiles CUE source text. Used by tests and tools that do not
// load a directory.
func CompileString(src string) (*Program, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileProgram(v)
}

// CompileProgram compiles every graph under the top-level `graph` field of v.
//
// Graph declaration format:
//
//	graph: f: {
//		params: ["x", "y"]
//		body: {
//			a: ["mul", "x", "x"]
//			b: ["add", "a", ["mul", "y", "y"]]
//		}
//		graphs: j: { params: ["z"], return: ["add", "x", "z"] }
//		return: "b"
//	}
//
// Expressions: a string names a parameter, binding, graph or primitive
// (innermost scope first, then enclosing graphs, then top-level graphs, then
// primitives); a list is an application [operator, operands...]; ints, bools
// and null are literals; {lit: "text"} is a string literal.
//
// Nesting only drives name resolution. The compiled graphs carry no parent
// pointer: a nested graph is tied to its enclosing graph solely through the
// nodes it reads.
func CompileProgram(v cue.Value) (*Program, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	c := &graphCompiler{
		prog: &Program{
			Module: ir.NewModule(),
			Graphs: make(map[string]ir.GraphID),
		},
		top: make(map[string]*scope),
	}

	graphsVal := v.LookupPath(cue.ParsePath("graph"))
	if !graphsVal.Exists() {
		return nil, &CompileError{
			Field:   "graph",
			Message: "no graph declarations found",
			Pos:     v.Pos(),
		}
	}

	iter, err := graphsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Label()
		s, err := c.declare(name, name, iter.Value(), nil)
		if err != nil {
			return nil, err
		}
		c.top[name] = s
		c.prog.Order = append(c.prog.Order, name)
	}

	// Bodies are compiled once every graph exists, so graphs may reference
	// each other (and themselves) regardless of declaration order.
	for _, s := range c.scopes {
		if err := c.compileScope(s); err != nil {
			return nil, err
		}
	}

	return c.prog, nil
}

type graphCompiler struct {
	prog   *Program
	top    map[string]*scope
	scopes []*scope // every scope, declaration pre-order
}

// scope is the compile-time view of one graph declaration.
type scope struct {
	parent *scope
	name   string // qualified
	graph  ir.GraphID
	decl   cue.Value

	params   map[string]ir.NodeID
	bindings map[string]cue.Value
	order    []string
	nested   map[string]*scope

	compiled   map[string]ir.NodeID
	inProgress map[string]bool
	consts     map[string]ir.NodeID
}

// declare allocates the graph and its parameters and records bindings and
// nested graphs. No expression is compiled yet.
func (c *graphCompiler) declare(label, qualified string, v cue.Value, parent *scope) (*scope, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	m := c.prog.Module

	s := &scope{
		parent:     parent,
		name:       qualified,
		graph:      m.NewGraph(label),
		decl:       v,
		params:     make(map[string]ir.NodeID),
		bindings:   make(map[string]cue.Value),
		nested:     make(map[string]*scope),
		compiled:   make(map[string]ir.NodeID),
		inProgress: make(map[string]bool),
		consts:     make(map[string]ir.NodeID),
	}
	c.prog.Graphs[qualified] = s.graph
	c.scopes = append(c.scopes, s)

	// Parse params (optional, ordered)
	paramsVal := v.LookupPath(cue.ParsePath("params"))
	if paramsVal.Exists() {
		list, err := paramsVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for list.Next() {
			pname, err := list.Value().String()
			if err != nil {
				return nil, &CompileError{
					Field:   "params",
					Message: fmt.Sprintf("graph %s: parameter names must be strings", qualified),
					Pos:     list.Value().Pos(),
				}
			}
			if _, dup := s.params[pname]; dup {
				return nil, &CompileError{
					Field:   "params",
					Message: fmt.Sprintf("graph %s: duplicate parameter %q", qualified, pname),
					Pos:     list.Value().Pos(),
				}
			}
			p, err := m.AddParameter(s.graph, pname)
			if err != nil {
				return nil, err
			}
			s.params[pname] = p
		}
	}

	// Parse body (optional); field order is binding order
	bodyVal := v.LookupPath(cue.ParsePath("body"))
	if bodyVal.Exists() {
		iter, err := bodyVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			bname := iter.Label()
			if _, clash := s.params[bname]; clash {
				return nil, &CompileError{
					Field:   "body",
					Message: fmt.Sprintf("graph %s: binding %q shadows a parameter", qualified, bname),
					Pos:     iter.Value().Pos(),
				}
			}
			s.bindings[bname] = iter.Value()
			s.order = append(s.order, bname)
		}
	}

	// Parse nested graphs (optional)
	nestedVal := v.LookupPath(cue.ParsePath("graphs"))
	if nestedVal.Exists() {
		iter, err := nestedVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			nname := iter.Label()
			child, err := c.declare(nname, qualified+"."+nname, iter.Value(), s)
			if err != nil {
				return nil, err
			}
			s.nested[nname] = child
		}
	}

	// Return is required
	if !v.LookupPath(cue.ParsePath("return")).Exists() {
		return nil, &CompileError{
			Field:   "return",
			Message: fmt.Sprintf("graph %s: return is required", qualified),
			Pos:     v.Pos(),
		}
	}

	return s, nil
}

// compileScope compiles every binding in declaration order, then the output.
func (c *graphCompiler) compileScope(s *scope) error {
	for _, name := range s.order {
		if _, err := c.compileBinding(s, name); err != nil {
			return err
		}
	}
	retVal := s.decl.LookupPath(cue.ParsePath("return"))
	out, err := c.compileExpr(s, retVal)
	if err != nil {
		return err
	}
	return c.prog.Module.SetOutput(s.graph, out)
}

// compileBinding compiles a body binding on first use. Bindings belong to the
// scope that declares them, whichever scope first references them.
func (c *graphCompiler) compileBinding(s *scope, name string) (ir.NodeID, error) {
	if n, ok := s.compiled[name]; ok {
		return n, nil
	}
	if s.inProgress[name] {
		return ir.NoNodeID, &CompileError{
			Field:   "body",
			Message: fmt.Sprintf("graph %s: binding %q depends on itself", s.name, name),
			Pos:     s.bindings[name].Pos(),
		}
	}
	s.inProgress[name] = true
	defer delete(s.inProgress, name)

	n, err := c.compileExpr(s, s.bindings[name])
	if err != nil {
		return ir.NoNodeID, err
	}
	m := c.prog.Module
	if m.Kind(n) == ir.KindApply && m.Owner(n) == s.graph && m.NodeName(n) == "" {
		m.SetNodeName(n, name)
	}
	s.compiled[name] = n
	return n, nil
}

// compileExpr compiles one expression in scope s.
func (c *graphCompiler) compileExpr(s *scope, v cue.Value) (ir.NodeID, error) {
	if err := v.Err(); err != nil {
		return ir.NoNodeID, formatCUEError(err)
	}

	switch v.Kind() {
	case cue.StringKind:
		name, err := v.String()
		if err != nil {
			return ir.NoNodeID, formatCUEError(err)
		}
		return c.resolve(s, name, v)

	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return ir.NoNodeID, formatCUEError(err)
		}
		return c.constant(s, ir.LiteralValue(ir.IRInt(i)))

	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return ir.NoNodeID, formatCUEError(err)
		}
		return c.constant(s, ir.LiteralValue(ir.IRBool(b)))

	case cue.NullKind:
		return c.constant(s, ir.LiteralValue(ir.IRNull{}))

	case cue.ListKind:
		return c.compileApply(s, v)

	case cue.StructKind:
		litVal := v.LookupPath(cue.ParsePath("lit"))
		if !litVal.Exists() {
			return ir.NoNodeID, &CompileError{
				Field:   "expr",
				Message: fmt.Sprintf("graph %s: struct expressions must be {lit: \"...\"}", s.name),
				Pos:     v.Pos(),
			}
		}
		str, err := litVal.String()
		if err != nil {
			return ir.NoNodeID, formatCUEError(err)
		}
		return c.constant(s, ir.LiteralValue(ir.IRString(str)))

	case cue.FloatKind:
		return ir.NoNodeID, &CompileError{
			Field:   "expr",
			Message: fmt.Sprintf("graph %s: float literals are not supported", s.name),
			Pos:     v.Pos(),
		}

	default:
		return ir.NoNodeID, &CompileError{
			Field:   "expr",
			Message: fmt.Sprintf("graph %s: unsupported expression kind %v", s.name, v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

func (c *graphCompiler) compileApply(s *scope, v cue.Value) (ir.NodeID, error) {
	list, err := v.List()
	if err != nil {
		return ir.NoNodeID, formatCUEError(err)
	}
	var inputs []ir.NodeID
	for list.Next() {
		n, err := c.compileExpr(s, list.Value())
		if err != nil {
			return ir.NoNodeID, err
		}
		inputs = append(inputs, n)
	}
	if len(inputs) == 0 {
		return ir.NoNodeID, &CompileError{
			Field:   "expr",
			Message: fmt.Sprintf("graph %s: application requires an operator", s.name),
			Pos:     v.Pos(),
		}
	}
	return c.prog.Module.NewApply(s.graph, inputs[0], inputs[1:]...)
}

// resolve looks a name up from the innermost scope outward.
func (c *graphCompiler) resolve(s *scope, name string, at cue.Value) (ir.NodeID, error) {
	for cur := s; cur != nil; cur = cur.parent {
		if p, ok := cur.params[name]; ok {
			return p, nil
		}
		if _, ok := cur.bindings[name]; ok {
			return c.compileBinding(cur, name)
		}
		if child, ok := cur.nested[name]; ok {
			return c.constant(s, ir.GraphValue(child.graph))
		}
	}
	if top, ok := c.top[name]; ok {
		return c.constant(s, ir.GraphValue(top.graph))
	}
	if prim, ok := ir.LookupPrimitive(name); ok {
		return c.constant(s, ir.PrimitiveValue(prim))
	}
	return ir.NoNodeID, &CompileError{
		Field:   "expr",
		Message: fmt.Sprintf("graph %s: undefined name %q", s.name, name),
		Pos:     at.Pos(),
	}
}

// constant returns the constant for v used by scope s. Each graph gets one
// constant node per distinct value; constants are never shared between
// graphs by the front end.
func (c *graphCompiler) constant(s *scope, v ir.Value) (ir.NodeID, error) {
	key := v.Kind().String() + ":" + v.String()
	if n, ok := s.consts[key]; ok {
		return n, nil
	}
	n, err := c.prog.Module.NewConstant(v)
	if err != nil {
		return ir.NoNodeID, err
	}
	s.consts[key] = n
	return n, nil
}
