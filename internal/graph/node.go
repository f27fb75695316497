package graph

import (
	"fmt"
	"math"
)

// Role tags what a node does in the dataflow.
type Role int

// Node roles.
const (
	RolePlain Role = iota
	RoleDatastore
	RoleDatasource
	RoleDatasink
)

var roleNames = [...]string{
	RolePlain:      "plain",
	RoleDatastore:  "datastore",
	RoleDatasource: "datasource",
	RoleDatasink:   "datasink",
}

// String returns the wire name of the role.
func (r Role) String() string {
	if r < 0 || int(r) >= len(roleNames) {
		return fmt.Sprintf("role(%d)", int(r))
	}
	return roleNames[r]
}

// ParseRole parses a wire role name.
func ParseRole(s string) (Role, error) {
	for i, name := range roleNames {
		if name == s {
			return Role(i), nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

// IsEndpoint reports whether nodes of this role exchange data with the
// outside world.
func (r Role) IsEndpoint() bool {
	switch r {
	case RoleDatasource, RoleDatasink:
		return true
	case RolePlain, RoleDatastore:
		return false
	default:
		panic(fmt.Sprintf("unhandled role %d", int(r)))
	}
}

// Position is an opaque editor coordinate.
type Position struct {
	X float64
	Y float64
}

// Valid reports whether both coordinates are finite.
func (p Position) Valid() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Node is an identified, positioned unit of the graph.
// A node with RoleDatastore carries its datastore payload.
type Node struct {
	Name string
	Pos  Position
	Role Role

	store *Datastore
}

// NewNode creates a node of the given role. Datastore nodes must be created
// with NewDatastore instead.
func NewNode(name string, x, y float64, role Role) *Node {
	if role == RoleDatastore {
		return NewDatastore(name, x, y).Node()
	}
	return &Node{Name: name, Pos: Position{X: x, Y: y}, Role: role}
}

// Datastore returns the datastore payload of n.
func (n *Node) Datastore() (*Datastore, bool) {
	if n.Role != RoleDatastore || n.store == nil {
		return nil, false
	}
	return n.store, true
}

// IsDatasource reports whether n reads external data into the graph.
func (n *Node) IsDatasource() bool { return n.Role == RoleDatasource }

// IsDatasink reports whether n writes graph data out.
func (n *Node) IsDatasink() bool { return n.Role == RoleDatasink }

// Move overwrites the node position.
func (n *Node) Move(x, y float64) {
	n.Pos = Position{X: x, Y: y}
}
