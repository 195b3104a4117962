package clients

import (
	"context"
	"errors"
	"fmt"

	"pathmind/pkg/common"
)

var errNoRelease = errors.New("release query carried no data version")

// OpenTargets enriches targets with a prior confidence score and the known
// mechanism of action. It is an optional source, analyses degrade without
// it.
type OpenTargets struct {
	client *Client
}

// NewOpenTargets builds the client against the GraphQL API base URL.
func NewOpenTargets(baseURL string, options ...Option) *OpenTargets {
	return &OpenTargets{client: NewClient("opentargets", baseURL, options...)}
}

// TargetPrior is the per-target enrichment payload. Mechanism and
// ClinicalPhase describe the analyzed compound against this target, not the
// target in general.
type TargetPrior struct {
	AccessionID     string
	PriorConfidence int
	Mechanism       string
	ClinicalPhase   *int
}

const targetPriorQuery = `query targetPriors($accessions: [String!]!, $drug: String!) {
  targets(ensemblIds: $accessions) {
    id
    proteinIds { id source }
    tractability { label modality value }
    knownDrugs(freeTextQuery: $drug) {
      rows { drugId mechanismOfAction phase }
    }
  }
}`

type openTargetsResponse struct {
	Data struct {
		Targets []struct {
			ID         string `json:"id"`
			ProteinIDs []struct {
				ID     string `json:"id"`
				Source string `json:"source"`
			} `json:"proteinIds"`
			Tractability []struct {
				Label    string `json:"label"`
				Modality string `json:"modality"`
				Value    bool   `json:"value"`
			} `json:"tractability"`
			KnownDrugs struct {
				Rows []struct {
					DrugID            string `json:"drugId"`
					MechanismOfAction string `json:"mechanismOfAction"`
					Phase             int    `json:"phase"`
				} `json:"rows"`
			} `json:"knownDrugs"`
		} `json:"targets"`
	} `json:"data"`
}

// Priors fetches prior-confidence enrichment for a batch of UniProt
// accessions, plus the mechanism of action and highest clinical phase of
// compoundID against each target. Accessions absent from the response carry
// no prior and keep the default.
func (c *OpenTargets) Priors(ctx context.Context, compoundID string, accessions []string) (map[string]TargetPrior, error) {
	if len(accessions) == 0 {
		return map[string]TargetPrior{}, nil
	}

	body := map[string]any{
		"query": targetPriorQuery,
		"variables": map[string]any{
			"accessions": accessions,
			"drug":       compoundID,
		},
	}
	var response openTargetsResponse
	if err := c.client.postJSON(ctx, "/api/v4/graphql", body, &response); err != nil {
		return nil, err
	}

	priors := make(map[string]TargetPrior, len(response.Data.Targets))
	for _, target := range response.Data.Targets {
		tractable := 0
		for _, bucket := range target.Tractability {
			if bucket.Value {
				tractable++
			}
		}
		prior := TargetPrior{PriorConfidence: scoreTractability(tractable)}
		for _, protein := range target.ProteinIDs {
			if protein.Source == "uniprot_swissprot" {
				prior.AccessionID = protein.ID
				break
			}
		}
		if prior.AccessionID == "" {
			continue
		}
		// knownDrugs is a free-text match, keep only rows for the compound
		for _, row := range target.KnownDrugs.Rows {
			if row.DrugID != compoundID {
				continue
			}
			if prior.Mechanism == "" && row.MechanismOfAction != "" {
				prior.Mechanism = row.MechanismOfAction
			}
			if prior.ClinicalPhase == nil || row.Phase > *prior.ClinicalPhase {
				phase := row.Phase
				prior.ClinicalPhase = &phase
			}
		}
		priors[prior.AccessionID] = prior
	}
	return priors, nil
}

// scoreTractability folds the count of satisfied tractability buckets into
// the 0..10 prior confidence scale.
func scoreTractability(buckets int) int {
	score := 5 + buckets/2
	if score > 10 {
		score = 10
	}
	return score
}

// Release returns the Open Targets data release, e.g. "24.09".
func (c *OpenTargets) Release(ctx context.Context) (string, error) {
	body := map[string]any{"query": `query { meta { dataVersion { year month } } }`}
	var response struct {
		Data struct {
			Meta struct {
				DataVersion struct {
					Year  int `json:"year"`
					Month int `json:"month"`
				} `json:"dataVersion"`
			} `json:"meta"`
		} `json:"data"`
	}
	if err := c.client.postJSON(ctx, "/api/v4/graphql", body, &response); err != nil {
		return "", err
	}
	version := response.Data.Meta.DataVersion
	if version.Year == 0 {
		return "", common.NewUpstreamError("opentargets", errNoRelease)
	}
	return fmt.Sprintf("%02d.%02d", version.Year%100, version.Month), nil
}

// Ping probes the GraphQL endpoint with the release query.
func (c *OpenTargets) Ping(ctx context.Context) Status {
	return c.client.Ping(ctx, "/api/v4/graphql")
}
