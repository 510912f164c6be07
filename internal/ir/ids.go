package ir

import "fmt"

// GraphID identifies a graph within a Module.
type GraphID uint32

// NodeID identifies a node within a Module.
type NodeID uint32

// Invalid ID constants (zero is sentinel).
const (
	NoGraphID GraphID = 0
	NoNodeID  NodeID  = 0
)

// IsValid returns true if the ID is valid (non-zero).
func (id GraphID) IsValid() bool { return id != NoGraphID }
func (id NodeID) IsValid() bool  { return id != NoNodeID }

func (id GraphID) String() string { return fmt.Sprintf("g%d", uint32(id)) }
func (id NodeID) String() string  { return fmt.Sprintf("n%d", uint32(id)) }
