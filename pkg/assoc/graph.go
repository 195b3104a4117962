package assoc

import (
	"fmt"
	"hash/fnv"
	"sort"

	"pathmind/pkg/common"
)

// NodeID builds the deterministic node identifier for an entity. The same
// entity always maps to the same node id across runs.
func NodeID(kind common.NodeKind, entityID string) string {
	return string(kind) + ":" + entityID
}

// EdgeID derives a stable edge identifier from the endpoints and kind, so
// two runs over the same data emit byte-identical graphs.
func EdgeID(source, target string, kind common.EdgeKind) string {
	hasher := fnv.New64a()
	hasher.Write([]byte(source))
	hasher.Write([]byte{0x1f})
	hasher.Write([]byte(target))
	hasher.Write([]byte{0x1f})
	hasher.Write([]byte(kind))
	return fmt.Sprintf("e-%016x", hasher.Sum64())
}

// Build assembles the association graph for one analysis: a single compound
// node, one node per visible target, one node per scored pathway, with
// compound-to-target edges weighted by median potency and target-to-pathway
// edges weighted by the pathway score. Every edge endpoint is guaranteed to
// exist as a node.
func Build(identity common.CompoundIdentity, targets []common.TargetSummary, pathways []common.PathwayScore) common.AssociationGraph {
	graph := common.AssociationGraph{
		Nodes: make([]common.GraphNode, 0, 1+len(targets)+len(pathways)),
		Edges: make([]common.GraphEdge, 0, len(targets)+len(pathways)),
	}

	compoundNode := NodeID(common.NodeDrug, identity.CanonicalID)
	graph.Nodes = append(graph.Nodes, common.GraphNode{
		ID:    compoundNode,
		Label: identity.DisplayName,
		Kind:  common.NodeDrug,
		Metadata: map[string]any{
			"canonical_id": identity.CanonicalID,
		},
	})

	targetNodes := make(map[string]string, len(targets))
	for _, target := range targets {
		nodeID := NodeID(common.NodeTarget, target.TargetID)
		targetNodes[target.TargetID] = nodeID
		metadata := map[string]any{
			"confidence_tier": string(target.ConfidenceTier),
			"mapping_status":  string(target.MappingStatus),
		}
		if target.GeneSymbol != "" {
			metadata["gene_symbol"] = target.GeneSymbol
		}
		graph.Nodes = append(graph.Nodes, common.GraphNode{
			ID:       nodeID,
			Label:    target.TargetName,
			Kind:     common.NodeTarget,
			Metadata: metadata,
		})
		graph.Edges = append(graph.Edges, common.GraphEdge{
			ID:     EdgeID(compoundNode, nodeID, common.EdgeDrugTarget),
			Source: compoundNode,
			Target: nodeID,
			Kind:   common.EdgeDrugTarget,
			Weight: target.MedianPotency,
		})
	}

	for _, pathway := range pathways {
		nodeID := NodeID(common.NodePathway, pathway.PathwayID)
		metadata := map[string]any{
			"depth": pathway.Depth,
		}
		if pathway.URL != "" {
			metadata["url"] = pathway.URL
		}
		graph.Nodes = append(graph.Nodes, common.GraphNode{
			ID:       nodeID,
			Label:    pathway.PathwayName,
			Kind:     common.NodePathway,
			Metadata: metadata,
		})
		hitIDs := append([]string(nil), pathway.TargetIDs...)
		sort.Strings(hitIDs)
		for _, targetID := range hitIDs {
			sourceNode, ok := targetNodes[targetID]
			if !ok {
				continue
			}
			graph.Edges = append(graph.Edges, common.GraphEdge{
				ID:     EdgeID(sourceNode, nodeID, common.EdgeTargetPathway),
				Source: sourceNode,
				Target: nodeID,
				Kind:   common.EdgeTargetPathway,
				Weight: pathway.Score,
			})
		}
	}

	return graph
}

// Validate checks the endpoint invariant: every edge references two existing
// nodes. A violation is a bug in graph assembly, surfaced as a data
// integrity error.
func Validate(graph common.AssociationGraph) error {
	nodes := make(map[string]bool, len(graph.Nodes))
	for _, node := range graph.Nodes {
		if nodes[node.ID] {
			return fmt.Errorf("%w: duplicate graph node %s", common.ErrDataIntegrity, node.ID)
		}
		nodes[node.ID] = true
	}
	for _, edge := range graph.Edges {
		if !nodes[edge.Source] {
			return fmt.Errorf("%w: edge %s references missing source %s", common.ErrDataIntegrity, edge.ID, edge.Source)
		}
		if !nodes[edge.Target] {
			return fmt.Errorf("%w: edge %s references missing target %s", common.ErrDataIntegrity, edge.ID, edge.Target)
		}
	}
	return nil
}
