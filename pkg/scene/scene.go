// Package scene defines the read-only asset graph consumed by the conversion core.
//
// An Asset owns a tree of Objects and a material table. Meshes own their vertex
// buffers, attribute descriptors and submeshes directly; submeshes refer to
// materials by MaterialID instead of holding a pointer, so a material shared by
// several submeshes has a single owner.
package scene

import "reflect"

// Object is a node of the asset tree. Implementations should be pointers:
// Meshes tracks shared objects by pointer identity and walks value-typed
// objects without deduplication.
type Object interface {
	Children() []Object
}

// Node is a plain grouping node without geometry.
type Node struct {
	Name  string
	Nodes []Object
}

// Children returns the node's children in declaration order.
func (n *Node) Children() []Object {
	return n.Nodes
}

// MaterialID is a handle into an Asset's material table.
// The zero value means "no material".
type MaterialID uint32

// NoMaterial marks a submesh without a material.
const NoMaterial MaterialID = 0

// Asset is the root of a loaded scene graph.
type Asset struct {
	Name      string
	Roots     []Object
	Materials []*Material
}

// Children returns the top-level objects.
func (a *Asset) Children() []Object {
	return a.Roots
}

// AddMaterial appends m to the material table and returns its handle.
func (a *Asset) AddMaterial(m *Material) MaterialID {
	a.Materials = append(a.Materials, m)
	return MaterialID(len(a.Materials))
}

// Material returns the material for id, or nil when id is NoMaterial or out of range.
func (a *Asset) Material(id MaterialID) *Material {
	if id == NoMaterial || int(id) > len(a.Materials) {
		return nil
	}
	return a.Materials[id-1]
}

// Meshes returns every mesh reachable from root in depth-first pre-order.
// A mesh's own children are visited after the mesh itself.
func Meshes(root Object) []*Mesh {
	var out []*Mesh
	visited := make(map[Object]bool)
	var walk func(o Object)
	walk = func(o Object) {
		if o == nil {
			return
		}
		if reflect.ValueOf(o).Kind() == reflect.Pointer {
			if visited[o] {
				return
			}
			visited[o] = true
		}
		if m, ok := o.(*Mesh); ok {
			out = append(out, m)
		}
		for _, child := range o.Children() {
			walk(child)
		}
	}
	walk(root)
	return out
}
