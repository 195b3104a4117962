package clients

import (
	"context"
	"fmt"
	"net/url"
)

// PubChem supplies name autocomplete for the suggest endpoint and extra
// synonyms during identity resolution. It is an optional source: when it is
// down, resolution and analysis proceed degraded.
type PubChem struct {
	client *Client
}

// NewPubChem builds the PubChem client against the PUG REST base URL.
func NewPubChem(baseURL string, options ...Option) *PubChem {
	return &PubChem{client: NewClient("pubchem", baseURL, options...)}
}

// Suggest returns autocomplete candidates for a partial drug name.
func (c *PubChem) Suggest(ctx context.Context, prefix string, limit int) ([]string, error) {
	if prefix == "" {
		return nil, nil
	}
	params := url.Values{}
	params.Set("limit", fmt.Sprintf("%d", limit))

	var response struct {
		Dictionary struct {
			Terms []struct {
				Compound string `json:"compound"`
			} `json:"terms"`
		} `json:"dictionary_terms"`
	}
	path := fmt.Sprintf("/autocomplete/compound/%s/json", url.PathEscape(prefix))
	if err := c.client.getJSON(ctx, path, params, &response); err != nil {
		return nil, err
	}

	suggestions := make([]string, 0, len(response.Dictionary.Terms))
	for _, term := range response.Dictionary.Terms {
		if term.Compound != "" {
			suggestions = append(suggestions, term.Compound)
		}
	}
	return suggestions, nil
}

// Synonyms fetches additional names for a compound by name lookup.
func (c *PubChem) Synonyms(ctx context.Context, name string) ([]string, error) {
	var response struct {
		InformationList struct {
			Information []struct {
				Synonym []string `json:"Synonym"`
			} `json:"Information"`
		} `json:"InformationList"`
	}
	path := fmt.Sprintf("/compound/name/%s/synonyms/JSON", url.PathEscape(name))
	if err := c.client.getJSON(ctx, path, nil, &response); err != nil {
		return nil, err
	}

	synonyms := make([]string, 0)
	for _, info := range response.InformationList.Information {
		synonyms = append(synonyms, info.Synonym...)
	}
	return synonyms, nil
}

// Release returns a fixed tag: PubChem does not publish a database release,
// so version snapshots record the service generation instead.
func (c *PubChem) Release(ctx context.Context) (string, error) {
	return "pug-rest", nil
}

// Ping probes a cheap fixed compound lookup.
func (c *PubChem) Ping(ctx context.Context) Status {
	return c.client.Ping(ctx, "/compound/cid/2244/property/Title/JSON")
}
