package sim

import (
	"fmt"
	"sort"
)

// Face identifies one side of a block: 2*axis for the low side and
// 2*axis+1 for the high side.
type Face int

var faceNames = []string{"X_LOW", "X_HIGH", "Y_LOW", "Y_HIGH", "Z_LOW", "Z_HIGH"}

// FaceOf returns the face of axis on the low or high side.
func FaceOf(axis int, high bool) Face {
	if high {
		return Face(2*axis + 1)
	}
	return Face(2 * axis)
}

// Axis returns the axis the face is perpendicular to.
func (f Face) Axis() int { return int(f) / 2 }

// IsHigh reports whether the face is on the high-coordinate side.
func (f Face) IsHigh() bool { return int(f)%2 == 1 }

// Opposite returns the face on the other side of the same axis.
func (f Face) Opposite() Face { return f ^ 1 }

func (f Face) String() string {
	if f >= 0 && int(f) < len(faceNames) {
		return faceNames[f]
	}
	return fmt.Sprintf("Face(%d)", int(f))
}

// Range is a half-open coordinate interval [Lo, Hi).
type Range struct {
	Lo, Hi int
}

// Len returns the number of nodes in the range.
func (r Range) Len() int { return r.Hi - r.Lo }

// Connection records one face adjacency of a block.
type Connection struct {
	Face     Face
	Neighbor int
	// Span is the overlap of the two blocks on the shared face, indexed by
	// axis. The entry of the face axis is the zero Range.
	Span []Range
	// SrcElements is the number of elements this block sends across the
	// face; DstElements is the number it receives.
	SrcElements int
	DstElements int
}

// FaceNeighbor is a (face, neighbor id) pair as returned by ConnectingBlocks.
type FaceNeighbor struct {
	Face     Face
	Neighbor int
}

// Block is a contiguous axis-aligned subdomain simulated by one worker.
//
// A block is mutated by the geometry processor (ID, connections,
// periodicity) and by the machine master (connectors, visualization
// region) before any worker starts. Workers treat its topology as
// read-only.
type Block struct {
	ID       int
	Location []int
	Size     []int

	envelope    int
	periodic    []bool
	connections map[Face][]*Connection
	connectors  map[int]Connector
	vis         *VisRegion
}

// NewBlock creates an unconnected block. ID is -1 until a geometry
// processor assigns one.
func NewBlock(location, size []int) *Block {
	if len(location) != len(size) {
		panic(fmt.Sprintf("NewBlock: location has %d components, size has %d", len(location), len(size)))
	}
	for axis, n := range size {
		if n < 1 {
			panic(fmt.Sprintf("NewBlock: size along axis %d must be positive, got %d", axis, n))
		}
	}
	return &Block{
		ID:          -1,
		Location:    append([]int(nil), location...),
		Size:        append([]int(nil), size...),
		periodic:    make([]bool, len(size)),
		connections: make(map[Face][]*Connection),
		connectors:  make(map[int]Connector),
	}
}

// Dim returns the dimensionality of the block.
func (b *Block) Dim() int { return len(b.Size) }

// End returns the higher coordinate (exclusive) of the block along axis.
func (b *Block) End(axis int) int { return b.Location[axis] + b.Size[axis] }

// NumNodes returns the number of lattice nodes in the block, without the
// envelope.
func (b *Block) NumNodes() int64 {
	n := int64(1)
	for _, s := range b.Size {
		n *= int64(s)
	}
	return n
}

// SetEnvelope sets the width of the ghost node layer around the block.
func (b *Block) SetEnvelope(width int) {
	if width < 0 {
		panic(fmt.Sprintf("Block.SetEnvelope: negative width %d", width))
	}
	b.envelope = width
}

// Envelope returns the ghost layer width.
func (b *Block) Envelope() int { return b.envelope }

// ActualSize returns the block size including the envelope on both sides
// of every axis.
func (b *Block) ActualSize() []int {
	actual := make([]int, len(b.Size))
	for axis, s := range b.Size {
		actual[axis] = s + 2*b.envelope
	}
	return actual
}

// EnableLocalPeriodicity marks the block as wrapping onto itself along axis.
func (b *Block) EnableLocalPeriodicity(axis int) {
	b.periodic[axis] = true
}

// PeriodicAlong reports whether the block wraps onto itself along axis.
func (b *Block) PeriodicAlong(axis int) bool {
	return b.periodic[axis]
}

// Connect tries to create a connection between b and other.
//
// With geo == nil the blocks are connected if one's higher coordinate on
// some axis equals the other's lower coordinate there. With geo != nil the
// connection wraps around the periodic axis: the block starting at 0 is
// joined with the block ending at the global extent of that axis.
// In both cases the blocks must overlap on every remaining axis. The
// element counts of the connection are the overlap area times the number
// of grid basis vectors crossing the face (1 for a nil grid).
//
// Connect returns false if the blocks are not adjacent, if other is b, or
// if the same (face, neighbor) connection already exists.
func (b *Block) Connect(other *Block, geo DomainGeometry, axis int, grid *Grid) bool {
	if other == b || other.ID == b.ID {
		return false
	}
	if other.Dim() != b.Dim() {
		return false
	}

	face, ok := b.touchingFace(other, geo, axis)
	if !ok {
		return false
	}
	span, area, ok := b.overlap(other, face.Axis())
	if !ok {
		return false
	}
	if b.Connection(face, other.ID) != nil {
		return false
	}

	out := area * grid.Crossing(face)
	in := area * grid.Crossing(face.Opposite())
	b.connections[face] = append(b.connections[face], &Connection{
		Face: face, Neighbor: other.ID, Span: span, SrcElements: out, DstElements: in,
	})
	other.connections[face.Opposite()] = append(other.connections[face.Opposite()], &Connection{
		Face: face.Opposite(), Neighbor: b.ID, Span: span, SrcElements: in, DstElements: out,
	})
	return true
}

func (b *Block) touchingFace(other *Block, geo DomainGeometry, axis int) (Face, bool) {
	if geo != nil {
		extent := geo.Extent()[axis]
		switch {
		case b.Location[axis] == 0 && other.End(axis) == extent:
			return FaceOf(axis, false), true
		case other.Location[axis] == 0 && b.End(axis) == extent:
			return FaceOf(axis, true), true
		}
		return 0, false
	}
	for a := range b.Size {
		switch {
		case b.End(a) == other.Location[a]:
			if _, _, ok := b.overlap(other, a); ok {
				return FaceOf(a, true), true
			}
		case other.End(a) == b.Location[a]:
			if _, _, ok := b.overlap(other, a); ok {
				return FaceOf(a, false), true
			}
		}
	}
	return 0, false
}

// overlap computes the intersection of b and other on every axis except
// skip. ok is false if any intersection is empty.
func (b *Block) overlap(other *Block, skip int) (span []Range, area int, ok bool) {
	span = make([]Range, len(b.Size))
	area = 1
	for a := range b.Size {
		if a == skip {
			continue
		}
		lo := max(b.Location[a], other.Location[a])
		hi := min(b.End(a), other.End(a))
		if hi <= lo {
			return nil, 0, false
		}
		span[a] = Range{Lo: lo, Hi: hi}
		area *= hi - lo
	}
	return span, area, true
}

// Connection returns the connection through face to neighbor, or nil.
func (b *Block) Connection(face Face, neighbor int) *Connection {
	for _, c := range b.connections[face] {
		if c.Neighbor == neighbor {
			return c
		}
	}
	return nil
}

// ConnectingBlocks lists every (face, neighbor) pair of the block, ordered
// by face and then neighbor id.
func (b *Block) ConnectingBlocks() []FaceNeighbor {
	var out []FaceNeighbor
	for face, conns := range b.connections {
		for _, c := range conns {
			out = append(out, FaceNeighbor{Face: face, Neighbor: c.Neighbor})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Face != out[j].Face {
			return out[i].Face < out[j].Face
		}
		return out[i].Neighbor < out[j].Neighbor
	})
	return out
}

// IsConnected reports whether the block has at least one connection.
func (b *Block) IsConnected() bool {
	for _, conns := range b.connections {
		if len(conns) > 0 {
			return true
		}
	}
	return false
}

// DoubleFace reports whether neighbor is adjacent through both face and
// its opposite, which happens when a periodic domain is two blocks wide.
func (b *Block) DoubleFace(face Face, neighbor int) bool {
	return b.Connection(face, neighbor) != nil && b.Connection(face.Opposite(), neighbor) != nil
}

// AddConnector attaches the halo-exchange endpoint shared with neighbor.
// Panics if one is already attached.
func (b *Block) AddConnector(neighbor int, c Connector) {
	if _, exists := b.connectors[neighbor]; exists {
		panic(fmt.Sprintf("Block.AddConnector: block %d already has a connector to %d", b.ID, neighbor))
	}
	b.connectors[neighbor] = c
}

// Connector returns the endpoint shared with neighbor, or nil.
func (b *Block) Connector(neighbor int) Connector {
	return b.connectors[neighbor]
}

// NeighborIDs returns the ids of all blocks with an attached connector,
// in ascending order.
func (b *Block) NeighborIDs() []int {
	ids := make([]int, 0, len(b.connectors))
	for id := range b.connectors {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// SetVisRegion attaches the shared visualization buffers of the block.
func (b *Block) SetVisRegion(r *VisRegion) { b.vis = r }

// VisRegion returns the shared visualization buffers, or nil outside
// visualization mode.
func (b *Block) VisRegion() *VisRegion { return b.vis }

func (b *Block) String() string {
	return fmt.Sprintf("Block(%d, loc=%v, size=%v)", b.ID, b.Location, b.Size)
}
