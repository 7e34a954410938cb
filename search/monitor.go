package search

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to trace intermediate steps and results.
type SearchMonitor interface {
	Start(query string)
	AfterEmbedding(dimension int)
	AfterCollectionSearch(collection string, hits int)
	CollectionMissing(collection string)
	VerbatimHit(hit *Hit)
	Finish(results []*Hit)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                        {}
func (n *noopMonitor) AfterEmbedding(_ int)                  {}
func (n *noopMonitor) AfterCollectionSearch(_ string, _ int) {}
func (n *noopMonitor) CollectionMissing(_ string)            {}
func (n *noopMonitor) VerbatimHit(_ *Hit)                    {}
func (n *noopMonitor) Finish(_ []*Hit)                       {}
