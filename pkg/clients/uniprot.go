package clients

import (
	"context"
	"fmt"
	"net/url"

	"pathmind/pkg/common"
)

// UniProt is the secondary mapping source: when a ChEMBL target carries no
// usable accession, a gene-symbol lookup here can still anchor the target in
// the pathway hierarchy. Targets mapped this way are marked partial.
type UniProt struct {
	client *Client
}

// NewUniProt builds the UniProt client against the REST base URL.
func NewUniProt(baseURL string, options ...Option) *UniProt {
	return &UniProt{client: NewClient("uniprot", baseURL, options...)}
}

type uniprotEntry struct {
	PrimaryAccession string `json:"primaryAccession"`
	Genes            []struct {
		GeneName struct {
			Value string `json:"value"`
		} `json:"geneName"`
	} `json:"genes"`
}

// AccessionForGene resolves a human gene symbol to its reviewed primary
// accession. An empty result means no mapping exists, which is not an error.
func (c *UniProt) AccessionForGene(ctx context.Context, geneSymbol string) (string, error) {
	if geneSymbol == "" {
		return "", nil
	}
	params := url.Values{}
	params.Set("query", fmt.Sprintf("gene_exact:%s AND organism_id:9606 AND reviewed:true", geneSymbol))
	params.Set("fields", "accession,gene_names")
	params.Set("size", "1")

	var response struct {
		Results []uniprotEntry `json:"results"`
	}
	if err := c.client.getJSON(ctx, "/uniprotkb/search", params, &response); err != nil {
		return "", err
	}
	if len(response.Results) == 0 {
		return "", nil
	}
	return response.Results[0].PrimaryAccession, nil
}

// GeneForAccession resolves an accession back to its primary gene symbol.
func (c *UniProt) GeneForAccession(ctx context.Context, accession string) (string, error) {
	var entry uniprotEntry
	path := fmt.Sprintf("/uniprotkb/%s", url.PathEscape(accession))
	if err := c.client.getJSON(ctx, path, url.Values{"fields": {"accession,gene_names"}}, &entry); err != nil {
		return "", err
	}
	for _, gene := range entry.Genes {
		if gene.GeneName.Value != "" {
			return gene.GeneName.Value, nil
		}
	}
	return "", nil
}

// Release returns the UniProt release tag, e.g. "2025_04".
func (c *UniProt) Release(ctx context.Context) (string, error) {
	var response struct {
		ReleaseNumber string `json:"releaseNumber"`
	}
	if err := c.client.getJSON(ctx, "/release", nil, &response); err != nil {
		return "", err
	}
	if response.ReleaseNumber == "" {
		return "", common.NewUpstreamError("uniprot", fmt.Errorf("release endpoint carried no tag"))
	}
	return response.ReleaseNumber, nil
}

// Ping probes the release endpoint.
func (c *UniProt) Ping(ctx context.Context) Status {
	return c.client.Ping(ctx, "/release")
}
