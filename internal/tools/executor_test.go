package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lexatlas/lexatlas/internal/llm"
)

type stubProvider struct {
	response string
	err      error
	prompts  []string
}

func (s *stubProvider) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	return s.response, s.err
}

func (s *stubProvider) Complete(ctx context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.response, s.err
}

type stubClusterer struct {
	labels []int
	err    error

	calls          int
	minClusterSize int
	minSamples     int
	metric         string
}

func (s *stubClusterer) Cluster(features [][]float64, minClusterSize, minSamples int, metric string) ([]int, error) {
	s.calls++
	s.minClusterSize = minClusterSize
	s.minSamples = minSamples
	s.metric = metric
	return s.labels, s.err
}

type auditEntry struct {
	server, tool, status, errMsg string
}

type stubRecorder struct {
	entries []auditEntry
}

func (s *stubRecorder) RecordExecution(ctx context.Context, turnID, sessionID, server, tool, status, errMsg string) error {
	s.entries = append(s.entries, auditEntry{server: server, tool: tool, status: status, errMsg: errMsg})
	return nil
}

const coreCSVSample = "Glottocode,Language Family,Language Name,Concept,Form,Latitude,Longitude,Source\n" +
	"stan1293,Indo-European,English,water,water,51.5,-0.1,OED\n" +
	"stan1290,Indo-European,French,water,eau,48.8,2.3,TLFi\n"

func TestLookupClosedSet(t *testing.T) {
	spec, ok := Lookup("clustering_hdbscan", "cluster")
	if !ok || spec.ID != Cluster {
		t.Fatalf("Lookup cluster = %+v, %v", spec, ok)
	}
	if _, ok := Lookup("clustering_hdbscan", "fit_predict"); ok {
		t.Error("unknown tool resolved")
	}
	if _, ok := Lookup("kmeans", "cluster"); ok {
		t.Error("unknown server resolved")
	}
	if got := len(All()); got != 10 {
		t.Errorf("registry size = %d, want 10", got)
	}
}

func TestValidateParams(t *testing.T) {
	propose, _ := Lookup("wordlist_discovery", "propose_wordlist")
	if err := propose.ValidateParams(map[string]any{"topic": "kinship"}); err != nil {
		t.Errorf("valid propose params rejected: %v", err)
	}
	if err := propose.ValidateParams(map[string]any{}); err == nil {
		t.Error("propose_wordlist without topic accepted")
	}

	clusterSpec, _ := Lookup("clustering_hdbscan", "cluster")
	if err := clusterSpec.ValidateParams(map[string]any{"min_cluster_size": 1}); err == nil {
		t.Error("min_cluster_size below 2 accepted")
	}
	if err := clusterSpec.ValidateParams(map[string]any{"metric": "cosine"}); err == nil {
		t.Error("unsupported metric accepted")
	}
	if err := clusterSpec.ValidateParams(map[string]any{"min_cluster_size": 4, "metric": "jaccard"}); err != nil {
		t.Errorf("valid cluster params rejected: %v", err)
	}

	collect, _ := Lookup("linguistic_web_harvester", "collect_multilingual_rows")
	if err := collect.ValidateParams(map[string]any{"wordlist": []string{"water"}}); err != nil {
		t.Errorf("string-slice wordlist rejected: %v", err)
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	e := &Executor{}
	result := e.Execute(context.Background(), Call{ID: ID{Server: "nope", Tool: "nope"}})
	if !strings.Contains(result.Err(), "Unknown tool") {
		t.Errorf("error = %q", result.Err())
	}
}

func TestProposeWordlist(t *testing.T) {
	provider := &stubProvider{response: `Here you go: ["mother", "father", "sibling"]`}
	e := &Executor{LLM: provider}

	result := e.Execute(context.Background(), Call{
		ID:     ProposeWordlist,
		Params: map[string]any{"topic": "kinship", "constraints": map[string]any{"max_terms": 3, "region": "Oceania"}},
	})
	if result.Err() != "" {
		t.Fatalf("unexpected error: %q", result.Err())
	}
	wordlist, _ := result["wordlist"].([]string)
	if len(wordlist) != 3 || wordlist[0] != "mother" {
		t.Errorf("wordlist = %v", wordlist)
	}
	if notes, _ := result["notes"].(string); notes != "Generated 3 concepts for kinship" {
		t.Errorf("notes = %q", notes)
	}
	if len(provider.prompts) != 1 {
		t.Fatalf("LLM called %d times, want 1", len(provider.prompts))
	}
	prompt := provider.prompts[0]
	if !strings.Contains(prompt, "3 concepts") || !strings.Contains(prompt, "Geographic focus: Oceania") {
		t.Errorf("prompt missing constraint wiring:\n%s", prompt)
	}
}

func TestProposeWordlistWithoutProvider(t *testing.T) {
	e := &Executor{}
	result := e.Execute(context.Background(), Call{ID: ProposeWordlist, Params: map[string]any{"topic": "boats"}})
	if result.Err() != "LLM call function not provided" {
		t.Errorf("error = %q", result.Err())
	}
}

func TestProposeWordlistUnparsableReply(t *testing.T) {
	e := &Executor{LLM: &stubProvider{response: "Sorry, I cannot help with that."}}
	result := e.Execute(context.Background(), Call{ID: ProposeWordlist, Params: map[string]any{"topic": "boats"}})
	if result.Err() != "No JSON list found in LLM response" {
		t.Errorf("error = %q", result.Err())
	}
}

func TestRefineWordlistFallsBackToInput(t *testing.T) {
	e := &Executor{LLM: &stubProvider{response: "no list here"}}
	result := e.Execute(context.Background(), Call{
		ID:     RefineWordlist,
		Params: map[string]any{"wordlist": []string{"water", "fire"}, "feedback": "add earth"},
	})
	wordlist, _ := result["wordlist"].([]string)
	if len(wordlist) != 2 || wordlist[0] != "water" {
		t.Errorf("fallback wordlist = %v", wordlist)
	}
}

func TestCollectRowsPromptOnlyWithoutProvider(t *testing.T) {
	e := &Executor{}
	result := e.Execute(context.Background(), Call{
		ID:     CollectRows,
		Params: map[string]any{"wordlist": []string{"mother", "father"}, "scope": map[string]any{"regions": []string{"Oceania"}}},
	})
	if result.Err() != "" {
		t.Fatalf("unexpected error: %q", result.Err())
	}
	prompt, _ := result["prompt"].(string)
	if !strings.Contains(prompt, "mother, father") || !strings.Contains(prompt, "Focus on regions: Oceania") {
		t.Errorf("prompt missing wordlist or scope:\n%s", prompt)
	}
	if notes, _ := result["notes"].(string); !strings.Contains(notes, "prompt only") {
		t.Errorf("notes = %q", notes)
	}
	if _, hasCSV := result["csv"]; hasCSV {
		t.Error("prompt-only result should not carry csv")
	}
}

func TestCollectRowsWithProvider(t *testing.T) {
	e := &Executor{LLM: &stubProvider{response: coreCSVSample}}
	result := e.Execute(context.Background(), Call{ID: CollectRows, Params: map[string]any{"wordlist": []string{"water"}}})
	if got, _ := result["csv"].(string); got != coreCSVSample {
		t.Errorf("csv not passed through: %q", got)
	}
	if notes, _ := result["notes"].(string); notes != "Collected data for 1 concepts" {
		t.Errorf("notes = %q", notes)
	}
}

func TestReadCSV(t *testing.T) {
	e := &Executor{}
	result := e.Execute(context.Background(), Call{ID: ReadCSV, Params: map[string]any{"csv_data": coreCSVSample}})
	if result.Err() != "" {
		t.Fatalf("unexpected error: %q", result.Err())
	}
	columns, _ := result["columns"].([]string)
	if len(columns) != 8 || columns[0] != "Glottocode" {
		t.Errorf("columns = %v", columns)
	}
	if rows, _ := result["row_count"].(int); rows != 2 {
		t.Errorf("row_count = %v", result["row_count"])
	}
	preview, _ := result["preview"].([]map[string]string)
	if len(preview) != 2 || preview[0]["Form"] != "water" {
		t.Errorf("preview = %v", preview)
	}
}

func TestReadCSVStructuralGate(t *testing.T) {
	broken := "Glottocode,Language Family,Language Name,Concept,Form,Latitude,Longitude,Source\n" +
		"stan1293,Indo-European,English,water,water,51.5,-0.1,OED,extra,fields\n"
	e := &Executor{}
	result := e.Execute(context.Background(), Call{ID: ReadCSV, Params: map[string]any{"csv_data": broken}})
	if !strings.Contains(result.Err(), "Run 'normalize' first") {
		t.Errorf("error = %q", result.Err())
	}
	if needs, _ := result["needs_normalize"].(bool); !needs {
		t.Error("needs_normalize not set")
	}
}

func TestValidateSchemaRequiredColumns(t *testing.T) {
	e := &Executor{}
	result := e.Execute(context.Background(), Call{
		ID: ValidateSchema,
		Params: map[string]any{
			"csv_data":         "A,B\n1,2\n",
			"required_columns": []string{"A", "Glottocode"},
		},
	})
	if ok, _ := result["ok"].(bool); ok {
		t.Error("validation passed despite missing required column")
	}
	errs, _ := result["errors"].([]string)
	found := false
	for _, e := range errs {
		if e == "Missing required column: Glottocode" {
			found = true
		}
	}
	if !found {
		t.Errorf("errors = %v", errs)
	}
	warnings, _ := result["warnings"].([]string)
	var hasExtra, hasWidth bool
	for _, w := range warnings {
		if w == "Extra column: B" {
			hasExtra = true
		}
		if w == "Expected 8 columns, found 2" {
			hasWidth = true
		}
	}
	if !hasExtra || !hasWidth {
		t.Errorf("warnings = %v", warnings)
	}
}

func TestNormalize(t *testing.T) {
	raw := "Glottocode,Language Family,Language Name,Concept,Form,Latitude,Longitude,Source\n" +
		"stan1293,Indo-European,English,water,water,51.5° N,-0.1,Smith, Jones, 1999\n"
	e := &Executor{}
	result := e.Execute(context.Background(), Call{ID: Normalize, Params: map[string]any{"csv_data": raw}})
	if result.Err() != "" {
		t.Fatalf("unexpected error: %q", result.Err())
	}
	repaired, _ := result["csv"].(string)
	if !strings.Contains(repaired, `"Smith, Jones, 1999"`) {
		t.Errorf("Source not merged and quoted:\n%s", repaired)
	}
	if rows, _ := result["row_count"].(int); rows != 1 {
		t.Errorf("row_count = %v", result["row_count"])
	}
	if warnings, _ := result["warnings"].([]string); len(warnings) == 0 {
		t.Error("repair produced no warnings")
	}
}

func TestToBinaryMatrix(t *testing.T) {
	e := &Executor{}
	result := e.Execute(context.Background(), Call{ID: ToBinaryMatrix, Params: map[string]any{"csv_data": coreCSVSample}})
	if result.Err() != "" {
		t.Fatalf("unexpected error: %q", result.Err())
	}
	matrix, _ := result["csv"].(string)
	if !strings.Contains(matrix, "water") {
		t.Errorf("matrix missing concept column:\n%s", matrix)
	}
	summary, _ := result["summary"].(map[string]any)
	if summary["languages"] != 2 || summary["concepts"] != 1 {
		t.Errorf("summary = %v", summary)
	}
}

func TestClusterAppliesDefaultsAndSummary(t *testing.T) {
	matrixCSV := "Glottocode,Language Name,water,fire\n" +
		"aaa,A,1,0\n" +
		"bbb,B,0,1\n" +
		"ccc,C,1,1\n"
	clusterer := &stubClusterer{labels: []int{0, 0, -1}}
	e := &Executor{
		Clusterer: clusterer,
		Defaults:  ClusterDefaults{MinClusterSize: 5, MinSamples: 3, Metric: "jaccard"},
	}
	result := e.Execute(context.Background(), Call{ID: Cluster, Params: map[string]any{"csv_data": matrixCSV}})
	if result.Err() != "" {
		t.Fatalf("unexpected error: %q", result.Err())
	}
	if clusterer.minClusterSize != 5 || clusterer.minSamples != 3 || clusterer.metric != "jaccard" {
		t.Errorf("defaults not applied: %+v", clusterer)
	}

	clustered, _ := result["csv"].(string)
	lines := strings.Split(strings.TrimSpace(clustered), "\n")
	if !strings.HasSuffix(lines[0], ",cluster_id") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasSuffix(lines[3], ",-1") {
		t.Errorf("noise row = %q", lines[3])
	}

	summary, _ := result["summary"].(map[string]any)
	total := summary["total_clusters"].(int)
	clusteredN := summary["clustered_languages"].(int)
	noise := summary["noise_points"].(int)
	if total != 1 || clusteredN != 2 || noise != 1 {
		t.Errorf("summary = %v", summary)
	}
	if clusteredN+noise != 3 {
		t.Errorf("clustered+noise = %d, want total row count 3", clusteredN+noise)
	}
}

func TestClusterParamOverrides(t *testing.T) {
	clusterer := &stubClusterer{labels: []int{0, 0}}
	e := &Executor{Clusterer: clusterer, Defaults: ClusterDefaults{MinClusterSize: 5, MinSamples: 3, Metric: "jaccard"}}
	matrixCSV := "Glottocode,water\naaa,1\nbbb,0\n"
	e.Execute(context.Background(), Call{
		ID: Cluster,
		Params: map[string]any{
			"csv_data": matrixCSV,
			"params":   map[string]any{"min_cluster_size": float64(2), "min_samples": float64(1), "metric": "hamming"},
		},
	})
	if clusterer.minClusterSize != 2 || clusterer.minSamples != 1 || clusterer.metric != "hamming" {
		t.Errorf("overrides not applied: %+v", clusterer)
	}
}

func TestClusterWithoutCapability(t *testing.T) {
	e := &Executor{}
	result := e.Execute(context.Background(), Call{ID: Cluster, Params: map[string]any{"csv_data": "Glottocode,water\naaa,1\n"}})
	if result.Err() != "clustering capability unavailable" {
		t.Errorf("error = %q", result.Err())
	}
}

func TestClusterNoConceptColumns(t *testing.T) {
	clusterer := &stubClusterer{}
	e := &Executor{Clusterer: clusterer}
	result := e.Execute(context.Background(), Call{
		ID:     Cluster,
		Params: map[string]any{"csv_data": "Glottocode,Language Name\naaa,A\n"},
	})
	if result.Err() != "No concept columns found" {
		t.Errorf("error = %q", result.Err())
	}
	if clusterer.calls != 0 {
		t.Errorf("clusterer ran %d times on identity-only input", clusterer.calls)
	}
}

func TestToMapLayer(t *testing.T) {
	e := &Executor{}
	result := e.Execute(context.Background(), Call{ID: ToMapLayer, Params: map[string]any{"csv_data": coreCSVSample}})
	if result.Err() != "" {
		t.Fatalf("unexpected error: %q", result.Err())
	}
	if count, _ := result["point_count"].(int); count != 2 {
		t.Errorf("point_count = %v", result["point_count"])
	}
	if result["geojson"] == nil {
		t.Error("geojson missing")
	}
}

func TestExportFromSnapshots(t *testing.T) {
	e := &Executor{}
	result := e.Execute(context.Background(), Call{
		ID: ExportCSV,
		Params: map[string]any{
			"data_source": "binary_matrix",
			"_snapshots":  map[string]any{"binary_matrix_csv": "h\n1\n", "raw_csv": "r\n1\n"},
		},
	})
	if result.Err() != "" {
		t.Fatalf("unexpected error: %q", result.Err())
	}
	if csvData, _ := result["csv"].(string); csvData != "h\n1\n" {
		t.Errorf("csv = %q", csvData)
	}
	if dl, _ := result["downloadable"].(bool); !dl {
		t.Error("downloadable not set")
	}
}

func TestExportMissingSnapshot(t *testing.T) {
	e := &Executor{}
	result := e.Execute(context.Background(), Call{
		ID:     ExportCSV,
		Params: map[string]any{"data_source": "clustered", "_snapshots": map[string]any{}},
	})
	if result.Err() != "No clustered data available to export" {
		t.Errorf("error = %q", result.Err())
	}
	if dl, _ := result["downloadable"].(bool); dl {
		t.Error("missing snapshot marked downloadable")
	}
}

func TestExecuteRecordsAudit(t *testing.T) {
	recorder := &stubRecorder{}
	e := &Executor{Audit: recorder}
	e.Execute(context.Background(), Call{ID: ReadCSV, Params: map[string]any{"csv_data": coreCSVSample}, SessionID: "s1"})
	e.Execute(context.Background(), Call{ID: Cluster, Params: map[string]any{"csv_data": "Glottocode,water\naaa,1\n"}})

	if len(recorder.entries) != 2 {
		t.Fatalf("recorded %d entries, want 2", len(recorder.entries))
	}
	if recorder.entries[0].status != "ok" || recorder.entries[0].tool != "read_csv" {
		t.Errorf("first entry = %+v", recorder.entries[0])
	}
	if recorder.entries[1].status != "error" || recorder.entries[1].errMsg == "" {
		t.Errorf("second entry = %+v", recorder.entries[1])
	}
}

func TestProviderErrorSurfacesInResult(t *testing.T) {
	e := &Executor{LLM: &stubProvider{err: errors.New("boom")}}
	result := e.Execute(context.Background(), Call{ID: ProposeWordlist, Params: map[string]any{"topic": "boats"}})
	if !strings.Contains(result.Err(), "LLM call failed: boom") {
		t.Errorf("error = %q", result.Err())
	}
}
