package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestChEMBLSearchParsesMolecules(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/molecule/search.json" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("q") != "aspirin" {
			t.Fatalf("unexpected query %s", r.URL.Query().Get("q"))
		}
		w.Write([]byte(`{"molecules":[{
			"molecule_chembl_id":"CHEMBL25",
			"pref_name":"ASPIRIN",
			"max_phase":4,
			"molecule_structures":{"standard_inchi_key":"BSYNRYMUTXBXSQ-UHFFFAOYSA-N"},
			"molecule_synonyms":[{"molecule_synonym":"Acetylsalicylic acid"}]
		}]}`))
	}))
	defer server.Close()

	identities, err := NewChEMBL(server.URL).Search(context.Background(), "aspirin", 8)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(identities) != 1 {
		t.Fatalf("expected 1 identity, got %d", len(identities))
	}

	identity := identities[0]
	if identity.CanonicalID != "CHEMBL25" || identity.DisplayName != "ASPIRIN" {
		t.Fatalf("unexpected identity: %+v", identity)
	}
	if identity.StructureKey != "BSYNRYMUTXBXSQ-UHFFFAOYSA-N" {
		t.Fatalf("expected structure key, got %s", identity.StructureKey)
	}
	if identity.ClinicalPhase == nil || *identity.ClinicalPhase != 4 {
		t.Fatalf("expected clinical phase 4")
	}
	if len(identity.Synonyms) != 1 || identity.Synonyms[0] != "Acetylsalicylic acid" {
		t.Fatalf("unexpected synonyms: %v", identity.Synonyms)
	}
}

func TestChEMBLActivitiesPagesAndParses(t *testing.T) {
	page := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page++
		if page == 1 {
			w.Write([]byte(`{"activities":[{
				"target_chembl_id":"CHEMBL203",
				"assay_chembl_id":"CHEMBL1000",
				"assay_type":"B",
				"standard_relation":"=",
				"pchembl_value":"9.1",
				"target_organism":"Homo sapiens"
			}],"page_meta":{"next":"/activity.json?offset=200"}}`))
			return
		}
		w.Write([]byte(`{"activities":[{
			"target_chembl_id":"CHEMBL204",
			"assay_chembl_id":"CHEMBL1001",
			"assay_type":"F",
			"standard_relation":">",
			"pchembl_value":"",
			"target_organism":"Homo sapiens",
			"data_validity_comment":"Outside typical range"
		}],"page_meta":{"next":""}}`))
	}))
	defer server.Close()

	records, err := NewChEMBL(server.URL).Activities(context.Background(), "CHEMBL25")
	if err != nil {
		t.Fatalf("Activities failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records across pages, got %d", len(records))
	}

	first := records[0]
	if first.TargetID != "CHEMBL203" || first.Potency == nil || *first.Potency != 9.1 {
		t.Fatalf("unexpected first record: %+v", first)
	}
	if first.Flagged {
		t.Fatalf("expected clean record")
	}

	second := records[1]
	if second.Potency != nil {
		t.Fatalf("expected missing potency to stay nil")
	}
	if !second.Flagged {
		t.Fatalf("expected validity comment to flag the record")
	}
}

func TestChEMBLReleaseRequiresTag(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chembl_db_version":"CHEMBL_34"}`))
	}))
	defer server.Close()

	release, err := NewChEMBL(server.URL).Release(context.Background())
	if err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if release != "CHEMBL_34" {
		t.Fatalf("expected CHEMBL_34, got %s", release)
	}

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer empty.Close()

	if _, err := NewChEMBL(empty.URL).Release(context.Background()); err == nil {
		t.Fatalf("expected error on missing release tag")
	}
}

func TestReactomeEventsHierarchyFlattens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{
			"stId":"R-HSA-1","name":"Signal Transduction","type":"TopLevelPathway",
			"children":[
				{"stId":"R-HSA-2","name":"RTK Signaling","type":"Pathway",
				 "children":[{"stId":"R-HSA-5","name":"Some reaction","type":"Reaction",
				              "children":[{"stId":"R-HSA-3","name":"EGFR Signaling","type":"Pathway"}]}]}
			]
		}]`))
	}))
	defer server.Close()

	inputs, err := NewReactome(server.URL).EventsHierarchy(context.Background())
	if err != nil {
		t.Fatalf("EventsHierarchy failed: %v", err)
	}
	if len(inputs) != 3 {
		t.Fatalf("expected 3 pathway nodes, got %d", len(inputs))
	}

	byID := map[string][]string{}
	for _, input := range inputs {
		byID[input.ID] = input.ParentIDs
	}
	if len(byID["R-HSA-1"]) != 0 {
		t.Fatalf("expected top-level pathway to have no parents")
	}
	if len(byID["R-HSA-2"]) != 1 || byID["R-HSA-2"][0] != "R-HSA-1" {
		t.Fatalf("unexpected parents for R-HSA-2: %v", byID["R-HSA-2"])
	}
	// the reaction in between is skipped but its pathway parent is kept
	if len(byID["R-HSA-3"]) != 1 || byID["R-HSA-3"][0] != "R-HSA-2" {
		t.Fatalf("unexpected parents for R-HSA-3: %v", byID["R-HSA-3"])
	}
}
