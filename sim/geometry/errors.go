package geometry

import "fmt"

// GeometryError reports blocks left without any connection after
// adjacency inference in a multi-block domain. It means the decomposition
// is invalid; retrying does not help.
type GeometryError struct {
	Disconnected []int // ids of the unconnected blocks, ascending
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("geometry: blocks %v are not connected to any other block", e.Disconnected)
}
