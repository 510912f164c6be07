package ir

import (
	"errors"
	"fmt"
)

// IRError reports a malformed module or an invalid request against it.
//
// IR errors include:
//   - Missing output: a graph is traversed or cloned before its output is set
//   - Unknown graph / node: an identifier that does not belong to the module
//   - Invalid input: an apply node is built with a missing operator or operand
type IRError struct {
	// Code identifies the error category.
	Code IRErrorCode

	// Message is a human-readable description.
	Message string

	// Graph identifies the affected graph, if any.
	Graph GraphID

	// Node identifies the affected node, if any.
	Node NodeID
}

// IRErrorCode categorizes IR errors.
type IRErrorCode string

const (
	// ErrCodeMissingOutput indicates a graph whose output was never set.
	ErrCodeMissingOutput IRErrorCode = "MISSING_OUTPUT"

	// ErrCodeUnknownGraph indicates a GraphID not allocated by the module.
	ErrCodeUnknownGraph IRErrorCode = "UNKNOWN_GRAPH"

	// ErrCodeUnknownNode indicates a NodeID not allocated by the module.
	ErrCodeUnknownNode IRErrorCode = "UNKNOWN_NODE"

	// ErrCodeInvalidInput indicates an apply node without an operator.
	ErrCodeInvalidInput IRErrorCode = "INVALID_INPUT"
)

// Error implements the error interface.
func (e *IRError) Error() string {
	switch {
	case e.Graph.IsValid() && e.Node.IsValid():
		return fmt.Sprintf("%s: %s (graph=%s, node=%s)", e.Code, e.Message, e.Graph, e.Node)
	case e.Graph.IsValid():
		return fmt.Sprintf("%s: %s (graph=%s)", e.Code, e.Message, e.Graph)
	case e.Node.IsValid():
		return fmt.Sprintf("%s: %s (node=%s)", e.Code, e.Message, e.Node)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsMissingOutput returns true if the error reports a graph without output.
// Uses errors.As to handle wrapped errors.
func IsMissingOutput(err error) bool {
	return hasCode(err, ErrCodeMissingOutput)
}

// IsUnknownEntity returns true if the error reports an unknown graph or node.
func IsUnknownEntity(err error) bool {
	return hasCode(err, ErrCodeUnknownGraph) || hasCode(err, ErrCodeUnknownNode)
}

func hasCode(err error, code IRErrorCode) bool {
	var ie *IRError
	if errors.As(err, &ie) {
		return ie.Code == code
	}
	return false
}

// NewMissingOutputError creates an IRError for a graph without output.
func NewMissingOutputError(g GraphID, name string) *IRError {
	msg := "graph has no output node"
	if name != "" {
		msg = fmt.Sprintf("graph %q has no output node", name)
	}
	return &IRError{Code: ErrCodeMissingOutput, Message: msg, Graph: g}
}

func unknownGraphError(g GraphID) *IRError {
	return &IRError{Code: ErrCodeUnknownGraph, Message: "graph does not belong to this module", Graph: g}
}

func unknownNodeError(n NodeID) *IRError {
	return &IRError{Code: ErrCodeUnknownNode, Message: "node does not belong to this module", Node: n}
}
