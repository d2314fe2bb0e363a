package retrieval

import (
	"github.com/poiesic/vidrag/core"
)

// Monitor provides hooks to observe retrieval.
type Monitor interface {
	Start(namespace core.Namespace, query string)
	AfterEmbedding(vector []float32)
	Finish(matches []core.Match)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ core.Namespace, _ string) {}
func (n *noopMonitor) AfterEmbedding(_ []float32)       {}
func (n *noopMonitor) Finish(_ []core.Match)            {}
