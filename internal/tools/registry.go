// Package tools defines the closed set of pipeline tools the assistant can
// invoke and executes them against session data. Each tool belongs to a
// named server; the (server, tool) pairs below are the only valid ones, so
// a hallucinated tool name can never reach an executor.
package tools

import (
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ID names one tool on one server.
type ID struct {
	Server string
	Tool   string
}

func (id ID) String() string { return id.Server + "/" + id.Tool }

// The closed tool set.
var (
	ProposeWordlist = ID{"wordlist_discovery", "propose_wordlist"}
	RefineWordlist  = ID{"wordlist_discovery", "refine_wordlist"}
	CollectRows     = ID{"linguistic_web_harvester", "collect_multilingual_rows"}
	ReadCSV         = ID{"csv_ingest_and_validate", "read_csv"}
	ValidateSchema  = ID{"csv_ingest_and_validate", "validate_schema"}
	Normalize       = ID{"csv_ingest_and_validate", "normalize"}
	ToBinaryMatrix  = ID{"availability_matrix", "to_binary_matrix"}
	Cluster         = ID{"clustering_hdbscan", "cluster"}
	ToMapLayer      = ID{"map_layer_builder", "to_map_layer"}
	ExportCSV       = ID{"data_export", "export_csv"}
)

// Spec describes one registered tool: what it does, an example invocation
// for the system prompt, and a schema its parameters must satisfy.
type Spec struct {
	ID          ID
	Description string
	Example     string

	schema *jsonschema.Schema
}

// ValidateParams checks tool parameters against the tool's schema.
func (s Spec) ValidateParams(params map[string]any) error {
	if s.schema == nil {
		return nil
	}
	if params == nil {
		params = map[string]any{}
	}
	if err := s.schema.Validate(normalizeForSchema(params)); err != nil {
		return fmt.Errorf("invalid parameters for %s: %w", s.ID, err)
	}
	return nil
}

// normalizeForSchema rewrites params into the shapes jsonschema validates:
// plain maps and slices with any-typed values.
func normalizeForSchema(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeForSchema(val)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = val
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalizeForSchema(item)
		}
		return out
	case int:
		return float64(t)
	case int64:
		return float64(t)
	default:
		return v
	}
}

func mustSchema(name, doc string) *jsonschema.Schema {
	return jsonschema.MustCompileString(name+".json", doc)
}

var registry = []Spec{
	{
		ID:          ProposeWordlist,
		Description: "Generate a wordlist for a topic",
		Example:     `{"server": "wordlist_discovery", "tool": "propose_wordlist", "params": {"topic": "kinship"}}`,
		schema: mustSchema("propose_wordlist", `{
			"type": "object",
			"properties": {
				"topic": {"type": "string", "minLength": 1},
				"constraints": {
					"type": "object",
					"properties": {
						"max_terms": {"type": "integer", "minimum": 1},
						"region": {"type": "string"},
						"domain": {"type": "string"}
					}
				},
				"max_terms": {"type": "integer", "minimum": 1},
				"num_words": {"type": "integer", "minimum": 1},
				"region": {"type": "string"},
				"domain": {"type": "string"}
			},
			"required": ["topic"]
		}`),
	},
	{
		ID:          RefineWordlist,
		Description: "Modify an existing wordlist",
		Example:     `{"server": "wordlist_discovery", "tool": "refine_wordlist", "params": {"feedback": "drop the loanwords"}}`,
		schema: mustSchema("refine_wordlist", `{
			"type": "object",
			"properties": {
				"wordlist": {"type": "array", "items": {"type": "string"}},
				"feedback": {"type": "string", "minLength": 1}
			},
			"required": ["feedback"]
		}`),
	},
	{
		ID:          CollectRows,
		Description: "Search for linguistic data across languages",
		Example:     `{"server": "linguistic_web_harvester", "tool": "collect_multilingual_rows", "params": {"wordlist": ["mother", "father"]}}`,
		schema: mustSchema("collect_multilingual_rows", `{
			"type": "object",
			"properties": {
				"wordlist": {"type": "array", "items": {"type": "string"}},
				"scope": {
					"type": "object",
					"properties": {
						"language_families": {"type": "array", "items": {"type": "string"}},
						"regions": {"type": "array", "items": {"type": "string"}},
						"max_languages": {"type": "integer", "minimum": 1}
					}
				},
				"language_families": {"type": "array", "items": {"type": "string"}},
				"regions": {"type": "array", "items": {"type": "string"}},
				"max_languages": {"type": "integer", "minimum": 1}
			}
		}`),
	},
	{
		ID:          ReadCSV,
		Description: "Parse CSV data",
		Example:     `{"server": "csv_ingest_and_validate", "tool": "read_csv", "params": {}}`,
		schema:      csvDataSchema("read_csv"),
	},
	{
		ID:          ValidateSchema,
		Description: "Check CSV columns",
		Example:     `{"server": "csv_ingest_and_validate", "tool": "validate_schema", "params": {}}`,
		schema: mustSchema("validate_schema", `{
			"type": "object",
			"properties": {
				"csv_data": {"type": "string"},
				"required_columns": {"type": "array", "items": {"type": "string"}}
			}
		}`),
	},
	{
		ID:          Normalize,
		Description: "Fix formatting",
		Example:     `{"server": "csv_ingest_and_validate", "tool": "normalize", "params": {}}`,
		schema:      csvDataSchema("normalize"),
	},
	{
		ID:          ToBinaryMatrix,
		Description: "Convert to binary availability matrix",
		Example:     `{"server": "availability_matrix", "tool": "to_binary_matrix", "params": {}}`,
		schema:      csvDataSchema("to_binary_matrix"),
	},
	{
		ID:          Cluster,
		Description: "Cluster languages using HDBSCAN",
		Example:     `{"server": "clustering_hdbscan", "tool": "cluster", "params": {}}`,
		schema: mustSchema("cluster", `{
			"type": "object",
			"properties": {
				"csv_data": {"type": "string"},
				"params": {
					"type": "object",
					"properties": {
						"min_cluster_size": {"type": "integer", "minimum": 2},
						"min_samples": {"type": "integer", "minimum": 1},
						"metric": {"type": "string", "enum": ["jaccard", "hamming"]}
					}
				},
				"min_cluster_size": {"type": "integer", "minimum": 2},
				"min_samples": {"type": "integer", "minimum": 1},
				"metric": {"type": "string", "enum": ["jaccard", "hamming"]}
			}
		}`),
	},
	{
		ID:          ToMapLayer,
		Description: "Create map visualization",
		Example:     `{"server": "map_layer_builder", "tool": "to_map_layer", "params": {}}`,
		schema: mustSchema("to_map_layer", `{
			"type": "object",
			"properties": {
				"csv_data": {"type": "string"},
				"lat_col": {"type": "string"},
				"lon_col": {"type": "string"},
				"style_by": {"type": "string"}
			}
		}`),
	},
	{
		ID:          ExportCSV,
		Description: "Export data as downloadable CSV file",
		Example:     `{"server": "data_export", "tool": "export_csv", "params": {"data_source": "raw_csv"}}`,
		schema: mustSchema("export_csv", `{
			"type": "object",
			"properties": {
				"data_source": {"type": "string"},
				"filename": {"type": "string"}
			}
		}`),
	},
}

func csvDataSchema(name string) *jsonschema.Schema {
	return mustSchema(name, `{
		"type": "object",
		"properties": {
			"csv_data": {"type": "string"}
		}
	}`)
}

var registryIndex = func() map[ID]int {
	idx := make(map[ID]int, len(registry))
	for i, spec := range registry {
		idx[spec.ID] = i
	}
	return idx
}()

// Lookup resolves a (server, tool) pair against the registry.
func Lookup(server, tool string) (Spec, bool) {
	i, ok := registryIndex[ID{Server: server, Tool: tool}]
	if !ok {
		return Spec{}, false
	}
	return registry[i], true
}

// All returns every registered tool in stable registration order.
func All() []Spec {
	return append([]Spec(nil), registry...)
}
