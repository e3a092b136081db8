// Package formats parses source asset files into scene assets.
//
// Wavefront OBJ geometry is read by ParseOBJ together with its MTL material
// libraries (ParseMTL). glTF 2.0 documents, both .gltf and .glb, are read by
// ParseGLTF through github.com/qmuntal/gltf.
package formats
