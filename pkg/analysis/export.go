package analysis

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"pathmind/pkg/common"
)

// ExportJSON renders a stored analysis as indented JSON. The export is a
// pure function of the stored result, repeated exports are byte-identical.
func ExportJSON(result *common.AnalysisResult) ([]byte, error) {
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding analysis export: %w", err)
	}
	return append(payload, '\n'), nil
}

// ExportCSV renders the pathway table as CSV, prefixed with commented
// metadata lines carrying the analysis id, parameters, source releases and
// attribution.
func ExportCSV(result *common.AnalysisResult) ([]byte, error) {
	var buffer bytes.Buffer

	writeMetadata(&buffer, result)

	writer := csv.NewWriter(&buffer)
	header := []string{
		"pathway_id", "pathway_name", "depth", "pathway_size",
		"targets_hit", "median_potency", "score", "coverage_ratio", "target_ids",
	}
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("writing csv header: %w", err)
	}
	for _, pathway := range result.Pathways {
		row := []string{
			pathway.PathwayID,
			pathway.PathwayName,
			strconv.Itoa(pathway.Depth),
			strconv.Itoa(pathway.PathwaySize),
			strconv.Itoa(pathway.TargetsHit),
			formatFloat(pathway.MedianPotency),
			formatFloat(pathway.Score),
			formatFloat(pathway.CoverageRatio),
			strings.Join(pathway.TargetIDs, ";"),
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("writing csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flushing csv: %w", err)
	}
	return buffer.Bytes(), nil
}

func writeMetadata(buffer *bytes.Buffer, result *common.AnalysisResult) {
	fmt.Fprintf(buffer, "# export_version: 1\n")
	fmt.Fprintf(buffer, "# analysis_id: %s\n", result.AnalysisID)
	fmt.Fprintf(buffer, "# created_at: %s\n", result.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"))
	fmt.Fprintf(buffer, "# query: %s\n", result.Query)
	fmt.Fprintf(buffer, "# canonical_id: %s\n", result.CanonicalID)
	fmt.Fprintf(buffer, "# params: potency_threshold=%s min_assays=%d include_low_confidence=%t top_pathways=%d min_depth=%d max_depth=%d\n",
		formatFloat(result.Params.PotencyThreshold),
		result.Params.MinAssays,
		result.Params.IncludeLowConfidence,
		result.Params.TopPathways,
		result.Params.MinDepth,
		result.Params.MaxDepth)
	fmt.Fprintf(buffer, "# flags: direction_unknown=%s limited_data=%s partial_mapping=%s high_variability=%s\n",
		result.AnalysisFlags.DirectionUnknown,
		result.AnalysisFlags.LimitedData,
		result.AnalysisFlags.PartialMapping,
		result.AnalysisFlags.HighVariability)

	sources := make([]string, 0, len(result.VersionSnapshot))
	for source := range result.VersionSnapshot {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	for _, source := range sources {
		fmt.Fprintf(buffer, "# source_release: %s=%s\n", source, result.VersionSnapshot[source])
	}
	fmt.Fprintf(buffer, "# attribution: %s\n", result.Attribution)
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
