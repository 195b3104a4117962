package clients

import (
	"context"
	"fmt"
	"net/url"

	"pathmind/pkg/common"
	"pathmind/pkg/pathway"
)

// Reactome serves the pathway hierarchy: per-accession pathway membership,
// the full event hierarchy for ETL rebuilds and the release tag.
type Reactome struct {
	client *Client
}

// NewReactome builds the Reactome client against the Content Service base
// URL.
func NewReactome(baseURL string, options ...Option) *Reactome {
	return &Reactome{client: NewClient("reactome", baseURL, options...)}
}

type reactomePathway struct {
	StID        string `json:"stId"`
	DisplayName string `json:"displayName"`
}

// PathwaysFor returns the lowest-level pathways a UniProt accession
// participates in. Depth, size and ancestors are filled in from the
// hierarchy snapshot by the caller.
func (c *Reactome) PathwaysFor(ctx context.Context, accession string) ([]common.PathwayRef, error) {
	params := url.Values{}
	params.Set("species", "9606")

	var response []reactomePathway
	path := fmt.Sprintf("/data/pathways/low/entity/%s", url.PathEscape(accession))
	if err := c.client.getJSON(ctx, path, params, &response); err != nil {
		return nil, err
	}

	refs := make([]common.PathwayRef, 0, len(response))
	for _, entry := range response {
		if entry.StID == "" {
			continue
		}
		refs = append(refs, common.PathwayRef{
			PathwayID:   entry.StID,
			PathwayName: entry.DisplayName,
			URL:         "https://reactome.org/content/detail/" + entry.StID,
		})
	}
	return refs, nil
}

type reactomeEvent struct {
	StID     string          `json:"stId"`
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	Children []reactomeEvent `json:"children"`
}

// EventsHierarchy fetches the complete human event tree and flattens it into
// hierarchy build inputs. Non-pathway events (reactions) are skipped but
// traversed, so pathway parent links stay intact.
func (c *Reactome) EventsHierarchy(ctx context.Context) ([]pathway.NodeInput, error) {
	var response []reactomeEvent
	if err := c.client.getJSON(ctx, "/data/eventsHierarchy/9606", nil, &response); err != nil {
		return nil, err
	}

	byID := map[string]*pathway.NodeInput{}
	var walk func(event reactomeEvent, parentID string)
	walk = func(event reactomeEvent, parentID string) {
		nextParent := parentID
		if event.Type == "Pathway" || event.Type == "TopLevelPathway" {
			input, ok := byID[event.StID]
			if !ok {
				input = &pathway.NodeInput{
					ID:   event.StID,
					Name: event.Name,
					URL:  "https://reactome.org/content/detail/" + event.StID,
				}
				byID[event.StID] = input
			}
			if parentID != "" && parentID != event.StID {
				input.ParentIDs = append(input.ParentIDs, parentID)
			}
			nextParent = event.StID
		}
		for _, child := range event.Children {
			walk(child, nextParent)
		}
	}
	for _, root := range response {
		walk(root, "")
	}

	inputs := make([]pathway.NodeInput, 0, len(byID))
	for _, input := range byID {
		inputs = append(inputs, *input)
	}
	return inputs, nil
}

// GeneSetSizes fetches participant counts for the given pathways.
func (c *Reactome) GeneSetSizes(ctx context.Context, pathwayIDs []string) (map[string]int, error) {
	sizes := make(map[string]int, len(pathwayIDs))
	for _, pathwayID := range pathwayIDs {
		var response struct {
			ParticipantsCount int `json:"participantsCount"`
		}
		path := fmt.Sprintf("/data/participants/%s/referenceEntities/count", url.PathEscape(pathwayID))
		if err := c.client.getJSON(ctx, path, nil, &response); err != nil {
			return nil, err
		}
		sizes[pathwayID] = response.ParticipantsCount
	}
	return sizes, nil
}

// Release returns the Reactome database version, e.g. "91".
func (c *Reactome) Release(ctx context.Context) (string, error) {
	var version int
	if err := c.client.getJSON(ctx, "/data/database/version", nil, &version); err != nil {
		return "", err
	}
	if version == 0 {
		return "", common.NewUpstreamError("reactome", fmt.Errorf("version endpoint returned 0"))
	}
	return fmt.Sprintf("%d", version), nil
}

// Ping probes the database version endpoint.
func (c *Reactome) Ping(ctx context.Context) Status {
	return c.client.Ping(ctx, "/data/database/version")
}
