package clients

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"pathmind/pkg/common"
)

const chemblPageSize = 200

// ChEMBL is the primary evidence source: compound identity, bioactivity
// records and target annotations.
type ChEMBL struct {
	client *Client
}

// NewChEMBL builds the ChEMBL client against the given API base URL.
func NewChEMBL(baseURL string, options ...Option) *ChEMBL {
	return &ChEMBL{client: NewClient("chembl", baseURL, options...)}
}

type chemblMolecule struct {
	MoleculeChemblID   string `json:"molecule_chembl_id"`
	PrefName           string `json:"pref_name"`
	MaxPhase           *int   `json:"max_phase"`
	MoleculeStructures *struct {
		StandardInchiKey string `json:"standard_inchi_key"`
	} `json:"molecule_structures"`
	MoleculeSynonyms []struct {
		MoleculeSynonym string `json:"molecule_synonym"`
	} `json:"molecule_synonyms"`
}

func (m chemblMolecule) identity() common.CompoundIdentity {
	identity := common.CompoundIdentity{
		CanonicalID:   m.MoleculeChemblID,
		DisplayName:   m.PrefName,
		ClinicalPhase: m.MaxPhase,
	}
	if m.MoleculeStructures != nil {
		identity.StructureKey = m.MoleculeStructures.StandardInchiKey
	}
	for _, synonym := range m.MoleculeSynonyms {
		if synonym.MoleculeSynonym != "" {
			identity.Synonyms = append(identity.Synonyms, synonym.MoleculeSynonym)
		}
	}
	if identity.DisplayName == "" {
		identity.DisplayName = identity.CanonicalID
	}
	return identity
}

// Search looks a drug name up in the molecule index and returns candidate
// identities, implementing the identity resolver's provider contract.
func (c *ChEMBL) Search(ctx context.Context, query string, limit int) ([]common.CompoundIdentity, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))

	var response struct {
		Molecules []chemblMolecule `json:"molecules"`
	}
	if err := c.client.getJSON(ctx, "/molecule/search.json", params, &response); err != nil {
		return nil, err
	}

	identities := make([]common.CompoundIdentity, 0, len(response.Molecules))
	for _, molecule := range response.Molecules {
		if molecule.MoleculeChemblID == "" {
			continue
		}
		identities = append(identities, molecule.identity())
	}
	return identities, nil
}

type chemblActivity struct {
	TargetChemblID   string `json:"target_chembl_id"`
	AssayChemblID    string `json:"assay_chembl_id"`
	AssayType        string `json:"assay_type"`
	StandardRelation string `json:"standard_relation"`
	PchemblValue     string `json:"pchembl_value"`
	TargetOrganism   string `json:"target_organism"`
	DataValidity     string `json:"data_validity_comment"`
}

// Activities pages through all bioactivity records for a compound. Records
// come back raw; the evidence aggregator applies the assay filters.
func (c *ChEMBL) Activities(ctx context.Context, canonicalID string) ([]common.ActivityRecord, error) {
	records := make([]common.ActivityRecord, 0)
	offset := 0
	for {
		params := url.Values{}
		params.Set("molecule_chembl_id", canonicalID)
		params.Set("limit", strconv.Itoa(chemblPageSize))
		params.Set("offset", strconv.Itoa(offset))

		var response struct {
			Activities []chemblActivity `json:"activities"`
			PageMeta   struct {
				Next string `json:"next"`
			} `json:"page_meta"`
		}
		if err := c.client.getJSON(ctx, "/activity.json", params, &response); err != nil {
			return nil, err
		}

		for _, activity := range response.Activities {
			record := common.ActivityRecord{
				TargetID:  activity.TargetChemblID,
				AssayID:   activity.AssayChemblID,
				AssayType: activity.AssayType,
				Relation:  activity.StandardRelation,
				Organism:  activity.TargetOrganism,
				Flagged:   activity.DataValidity != "",
			}
			if activity.PchemblValue != "" {
				potency, err := strconv.ParseFloat(activity.PchemblValue, 64)
				if err == nil {
					record.Potency = &potency
				}
			}
			records = append(records, record)
		}

		if response.PageMeta.Next == "" || len(response.Activities) == 0 {
			break
		}
		offset += chemblPageSize
	}
	return records, nil
}

type chemblTarget struct {
	TargetChemblID   string `json:"target_chembl_id"`
	PrefName         string `json:"pref_name"`
	Organism         string `json:"organism"`
	TargetComponents []struct {
		Accession               string `json:"accession"`
		TargetComponentSynonyms []struct {
			ComponentSynonym string `json:"component_synonym"`
			SynType          string `json:"syn_type"`
		} `json:"target_component_synonyms"`
	} `json:"target_components"`
}

// TargetAnnotations fetches names, organisms and UniProt accessions for a
// batch of target ids.
func (c *ChEMBL) TargetAnnotations(ctx context.Context, targetIDs []string) (map[string]common.TargetAnnotation, error) {
	annotations := make(map[string]common.TargetAnnotation, len(targetIDs))
	for start := 0; start < len(targetIDs); start += chemblPageSize {
		end := start + chemblPageSize
		if end > len(targetIDs) {
			end = len(targetIDs)
		}
		params := url.Values{}
		params.Set("target_chembl_id__in", strings.Join(targetIDs[start:end], ","))
		params.Set("limit", strconv.Itoa(chemblPageSize))

		var response struct {
			Targets []chemblTarget `json:"targets"`
		}
		if err := c.client.getJSON(ctx, "/target.json", params, &response); err != nil {
			return nil, err
		}

		for _, target := range response.Targets {
			annotation := common.TargetAnnotation{
				TargetID:   target.TargetChemblID,
				TargetName: target.PrefName,
				Organism:   target.Organism,
			}
			for _, component := range target.TargetComponents {
				if annotation.AccessionID == "" {
					annotation.AccessionID = component.Accession
				}
				for _, synonym := range component.TargetComponentSynonyms {
					if synonym.SynType == "GENE_SYMBOL" && annotation.GeneSymbol == "" {
						annotation.GeneSymbol = synonym.ComponentSynonym
					}
				}
			}
			annotations[target.TargetChemblID] = annotation
		}
	}
	return annotations, nil
}

// Release returns the ChEMBL database release tag, e.g. "CHEMBL_34".
func (c *ChEMBL) Release(ctx context.Context) (string, error) {
	var response struct {
		ChemblDBVersion string `json:"chembl_db_version"`
	}
	if err := c.client.getJSON(ctx, "/status.json", nil, &response); err != nil {
		return "", err
	}
	if response.ChemblDBVersion == "" {
		return "", common.NewUpstreamError("chembl", fmt.Errorf("status response carried no release"))
	}
	return response.ChemblDBVersion, nil
}

// Ping probes the status endpoint.
func (c *ChEMBL) Ping(ctx context.Context) Status {
	return c.client.Ping(ctx, "/status.json")
}
