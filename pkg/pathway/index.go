package pathway

import (
	"fmt"
	"sort"
	"sync/atomic"

	"pathmind/pkg/common"
	"pathmind/pkg/logger"
)

// NodeInput is one raw hierarchy row as delivered by the ETL build. Parent
// links may form cycles in the raw data; BuildSnapshot collapses them.
type NodeInput struct {
	ID          string
	Name        string
	ParentIDs   []string
	GeneSetSize int
	URL         string
}

type node struct {
	id        string
	name      string
	depth     int
	size      int
	url       string
	ancestors []string
	children  []string
}

// Snapshot is an immutable, point-in-time view of the pathway hierarchy,
// identified by the release tag of the source it was built from. Readers
// never observe a partially built snapshot: a new one is built offline and
// swapped in via Index.Publish.
type Snapshot struct {
	release string
	nodes   map[string]*node
}

// BuildSnapshot collapses the raw pathway graph into a tree keyed by
// shortest root-to-node depth (roots sit at depth 1). Ancestor sets are
// computed once here, not by live traversal. Cyclic regions unreachable from
// any root are skipped and logged, never fatal.
func BuildSnapshot(release string, inputs []NodeInput) (*Snapshot, error) {
	if release == "" {
		release = "unknown"
	}

	byID := make(map[string]*node, len(inputs))
	parents := make(map[string][]string, len(inputs))
	for _, input := range inputs {
		if input.ID == "" {
			continue
		}
		if _, exists := byID[input.ID]; exists {
			continue
		}
		byID[input.ID] = &node{
			id:   input.ID,
			name: input.Name,
			size: input.GeneSetSize,
			url:  input.URL,
		}
		parents[input.ID] = input.ParentIDs
	}

	// keep only parent links that point at known nodes, deterministically
	// ordered
	for id, parentIDs := range parents {
		kept := parentIDs[:0]
		for _, parentID := range parentIDs {
			if parentID == id {
				logger.Warn("[Pathway] Dropping self-parent link", "pathway", id)
				continue
			}
			if _, ok := byID[parentID]; ok {
				kept = append(kept, parentID)
			}
		}
		sort.Strings(kept)
		parents[id] = kept
		for _, parentID := range kept {
			byID[parentID].children = append(byID[parentID].children, id)
		}
	}

	roots := make([]string, 0)
	for id := range byID {
		if len(parents[id]) == 0 {
			roots = append(roots, id)
		}
	}
	if len(byID) > 0 && len(roots) == 0 {
		return nil, fmt.Errorf("%w: pathway hierarchy has no root", common.ErrDataIntegrity)
	}
	sort.Strings(roots)

	// shortest root-to-node distance via BFS; roots sit at depth 1
	depths := make(map[string]int, len(byID))
	queue := make([]string, 0, len(byID))
	for _, id := range roots {
		depths[id] = 1
		queue = append(queue, id)
	}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		children := append([]string(nil), byID[current].children...)
		sort.Strings(children)
		for _, childID := range children {
			if _, seen := depths[childID]; seen {
				continue
			}
			depths[childID] = depths[current] + 1
			queue = append(queue, childID)
		}
	}

	snapshot := &Snapshot{release: release, nodes: make(map[string]*node, len(depths))}
	for id, depth := range depths {
		entry := byID[id]
		entry.depth = depth
		sort.Strings(entry.children)
		snapshot.nodes[id] = entry
	}
	if skipped := len(byID) - len(depths); skipped > 0 {
		logger.Warn("[Pathway] Skipping pathways unreachable from any root", "count", skipped, "release", release)
	}

	// ancestor sets, computed once per node by walking parent links; the
	// visited set makes cyclic regions terminate, and a node is never its
	// own ancestor
	for id, entry := range snapshot.nodes {
		visited := map[string]bool{id: true}
		frontier := append([]string(nil), parents[id]...)
		ancestors := make([]string, 0)
		for len(frontier) > 0 {
			ancestorID := frontier[0]
			frontier = frontier[1:]
			if visited[ancestorID] {
				continue
			}
			visited[ancestorID] = true
			if _, ok := snapshot.nodes[ancestorID]; !ok {
				continue
			}
			ancestors = append(ancestors, ancestorID)
			frontier = append(frontier, parents[ancestorID]...)
		}
		sort.Strings(ancestors)
		entry.ancestors = ancestors
	}

	return snapshot, nil
}

// Release returns the source release tag this snapshot was built from. It is
// copied verbatim into every version snapshot.
func (s *Snapshot) Release() string {
	return s.release
}

// Contains reports whether the pathway is part of this snapshot.
func (s *Snapshot) Contains(pathwayID string) bool {
	_, ok := s.nodes[pathwayID]
	return ok
}

// AncestorsOf returns every ancestor of the pathway, sorted.
func (s *Snapshot) AncestorsOf(pathwayID string) []string {
	if entry, ok := s.nodes[pathwayID]; ok {
		return entry.ancestors
	}
	return nil
}

// ChildrenOf returns the direct children of the pathway, sorted.
func (s *Snapshot) ChildrenOf(pathwayID string) []string {
	if entry, ok := s.nodes[pathwayID]; ok {
		return entry.children
	}
	return nil
}

// GeneSetSize returns the pathway's gene-set size, or 0 when unknown.
func (s *Snapshot) GeneSetSize(pathwayID string) int {
	if entry, ok := s.nodes[pathwayID]; ok {
		return entry.size
	}
	return 0
}

// Depth returns the shortest root-to-node distance (roots at 1), or 0 when
// the pathway is unknown.
func (s *Snapshot) Depth(pathwayID string) int {
	if entry, ok := s.nodes[pathwayID]; ok {
		return entry.depth
	}
	return 0
}

// Ref returns the pathway as a hierarchy reference.
func (s *Snapshot) Ref(pathwayID string) (common.PathwayRef, bool) {
	entry, ok := s.nodes[pathwayID]
	if !ok {
		return common.PathwayRef{}, false
	}
	return common.PathwayRef{
		PathwayID:          entry.id,
		PathwayName:        entry.name,
		Depth:              entry.depth,
		PathwaySize:        entry.size,
		AncestorPathwayIDs: entry.ancestors,
		URL:                entry.url,
	}, true
}

// Len returns the number of pathways in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.nodes)
}

// Index holds the currently published hierarchy snapshot. The ETL process
// builds a complete new snapshot and flips the pointer; in-flight readers
// keep the snapshot they started with, so they see either the old or the new
// hierarchy, never a partial one.
type Index struct {
	current atomic.Pointer[Snapshot]
}

// Publish atomically replaces the current snapshot.
func (x *Index) Publish(snapshot *Snapshot) {
	x.current.Store(snapshot)
}

// Current returns the published snapshot, or nil when none was published
// yet.
func (x *Index) Current() *Snapshot {
	return x.current.Load()
}
