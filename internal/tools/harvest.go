package tools

import (
	"context"
	"fmt"
	"strings"
)

// harvestRules is the fixed instruction block appended to every harvest
// prompt. It pins the output to the strict core CSV schema and forbids
// invented coordinates.
const harvestRules = `### Linguistic Search & Coverage Rules

For each target word or concept in the wordlist, the primary objective is to identify corresponding lexical forms expressing the same concept in as many languages as possible.

1. Lexical Form Discovery (Primary Objective)
   - Actively search for attested lexical forms that correspond to the target word or concept, including cognates, inherited forms, loanwords, calques, and closely related or semantically equivalent lexical items.
   - The focus is on lexical realization, not orthographic similarity alone.
   - Include culturally specific variants that encode the same concept, even when the surface form differs substantially.

2. Priority Scope
   - Identify language families and geographic regions where the target concept is historically attested, culturally significant, or frequently documented in linguistic or ethnographic literature.
   - Prioritize these regions and families to maximize coverage of relevant lexical forms.

3. Global Expansion
   - After covering priority regions, expand the search to all other languages with reliable documentation, aiming for maximal cross-linguistic coverage.
   - Include both historical and contemporary lexical data when available.

4. Per-Row Information Requirement
   - For every (Language x Concept x Lexical Form), you MUST attempt to retrieve:
     - Glottocode (from Glottolog)
     - Language Family (Glottolog classification)
     - Standardized Language Name (Glottolog)
     - Concept (from the wordlist)
     - Form (the attested lexical form expressing the concept)
     - Latitude and Longitude (see rules below)
     - Source (dictionary, grammar, database, or ethnographic reference)
   - Coordinate rules (CRITICAL):
     - Latitude and Longitude MUST be provided for every row and MUST correspond to a real, mappable geographic location.
     - Primary source: Glottolog language-level coordinates.
     - Fallback: a standardized country-level reference point for the primary country where the language is spoken, taken from an authoritative dataset. The same country must always resolve to the same coordinates.
     - Do NOT generate random coordinates, use arbitrary offsets or noise, guess from vague regional descriptions, or use placeholder values.
     - Latitude must be in [-90, 90], longitude in [-180, 180], numeric and finite.
   - Do not output a row unless a Source is available.
   - Never guess or invent linguistic data.

5. Output Format (STRICT CSV)
   - Output only CSV, UTF-8 encoded.
   - Columns must appear in this exact order:
     Glottocode,Language Family,Language Name,Concept,Form,Latitude,Longitude,Source
   - One row per (Language x Concept x Lexical Form).
   - Any field containing commas, quotes, or newlines (especially Language Name and Source) MUST be wrapped in double quotes, with internal double quotes escaped as "".
   - Start with the header row, then data rows.
   - Do not include explanations, markdown, or extra text.

Goal: produce a maximally comprehensive, geographically valid, and schema-strict cross-linguistic inventory of corresponding lexical forms, suitable for direct computational analysis and accurate map visualization.`

// collectRows builds a harvest prompt for the wordlist and, when a model is
// available, runs it to produce raw core-schema CSV rows. Without a model
// the prompt itself is returned so the caller can run it elsewhere.
func (e *Executor) collectRows(ctx context.Context, params map[string]any) Result {
	wordlist := stringsParam(params, "wordlist")

	// Scope sometimes arrives flattened to the top level.
	scope := mapParam(params, "scope")
	if scope == nil {
		scope = map[string]any{}
		for _, key := range []string{"language_families", "regions", "max_languages"} {
			if v, ok := params[key]; ok {
				scope[key] = v
			}
		}
	}
	var scopeText strings.Builder
	if families := stringsParam(scope, "language_families"); len(families) > 0 {
		fmt.Fprintf(&scopeText, "\nFocus on language families: %s", strings.Join(families, ", "))
	}
	if regions := stringsParam(scope, "regions"); len(regions) > 0 {
		fmt.Fprintf(&scopeText, "\nFocus on regions: %s", strings.Join(regions, ", "))
	}
	if max := intParam(scope, "max_languages", 0); max > 0 {
		fmt.Fprintf(&scopeText, "\nLimit to approximately %d languages", max)
	}

	prompt := fmt.Sprintf(`Task: Collect multilingual linguistic data for the following concepts:
%s
%s

%s`, strings.Join(wordlist, ", "), scopeText.String(), harvestRules)

	if e.LLM == nil {
		return Result{
			"prompt":   prompt,
			"wordlist": wordlist,
			"notes":    "LLM function not available - returning prompt only",
		}
	}

	csvResult, err := e.LLM.Complete(ctx, prompt)
	if err != nil {
		return Result{"error": err.Error(), "csv": "", "prompt": prompt}
	}
	return Result{
		"csv":      csvResult,
		"prompt":   prompt,
		"wordlist": wordlist,
		"notes":    fmt.Sprintf("Collected data for %d concepts", len(wordlist)),
	}
}
