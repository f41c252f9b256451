package sim

// TimingSummary is the per-block result a worker reports at the end of a
// benchmark run. Total and Comp are mean seconds per iteration, wall clock
// and kernel time respectively, so NodeCount/Total is the block's update
// rate.
type TimingSummary struct {
	BlockID    int     `json:"block_id"`
	Total      float64 `json:"total"`
	Comp       float64 `json:"comp"`
	NodeCount  int64   `json:"node_count"`
	Iterations int     `json:"iterations"`
}
