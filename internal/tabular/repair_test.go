package tabular

import (
	"strings"
	"testing"
)

func TestCleanCoordinate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"27.1° N", "27.1", true},
		{"92.11° E", "92.11", true},
		{"10 S", "-10", true},
		{"12.5 W", "-12.5", true},
		{"-33.9 S", "-33.9", true},
		{"51.5", "51.5", true},
		{"abc", "", false},
		{"", "", false},
		{"NaN", "", false},
		{"Inf", "", false},
	}
	for _, tc := range cases {
		got, ok := CleanCoordinate(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("CleanCoordinate(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestRepair_CollapsesUnescapedSourceComma(t *testing.T) {
	in := coreCSV("stan1293,Indo-European,English,water,water,51.0,0.0,Smith, Jones, 1999")
	out, warnings := Repair(in)

	v := ValidateCoreSchema(out)
	if !v.OK {
		t.Fatalf("repaired CSV still invalid: %v", v.Errors)
	}
	if !strings.Contains(out, `"Smith, Jones, 1999"`) {
		t.Errorf("Source not comma-joined and quoted:\n%s", out)
	}
	if len(warnings) == 0 || !strings.Contains(warnings[0], "merged extra columns into Source") {
		t.Errorf("expected merge warning, got %v", warnings)
	}
}

func TestRepair_PadsShortRowsAndHeader(t *testing.T) {
	in := "Glottocode,Language Family,Language Name,Concept,Form\nstan1293,Indo-European,English,water,water\n"
	out, warnings := Repair(in)

	rows, cols := Dimensions(out)
	if rows != 1 || cols != 8 {
		t.Errorf("repaired shape = (%d, %d), want (1, 8)", rows, cols)
	}
	joined := strings.Join(warnings, " ")
	if !strings.Contains(joined, "Added missing header columns") {
		t.Errorf("missing header-pad warning: %v", warnings)
	}
}

func TestRepair_TruncatesLongHeader(t *testing.T) {
	in := coreHeader + ",Extra\na,b,c,d,e,1,2,f,g\n"
	out, warnings := Repair(in)
	_, cols := Dimensions(out)
	if cols != 8 {
		t.Errorf("header cols = %d, want 8", cols)
	}
	joined := strings.Join(warnings, " ")
	if !strings.Contains(joined, "Dropped extra header columns") {
		t.Errorf("missing header-truncate warning: %v", warnings)
	}
}

func TestRepair_CleansCoordinates(t *testing.T) {
	in := coreCSV("stan1293,Indo-European,English,water,water,27.1° N,92.11° E,OED")
	out, _ := Repair(in)
	if !strings.Contains(out, ",27.1,92.11,") {
		t.Errorf("coordinates not cleaned:\n%s", out)
	}
}

func TestRepair_BlanksUnparsableCoordinates(t *testing.T) {
	in := coreCSV("stan1293,Indo-European,English,water,water,somewhere,east,OED")
	out, _ := Repair(in)
	if !strings.Contains(out, "water,,,OED") {
		t.Errorf("bad coordinates should be blanked, not zeroed:\n%s", out)
	}
}

func TestRepair_Idempotent(t *testing.T) {
	inputs := []string{
		coreCSV("stan1293,Indo-European,English,water,water,51.0,0.0,Smith, Jones, 1999"),
		coreCSV(" stan1293 , Indo-European ,English,water,water, 27.1° N , 92.11° E ,OED"),
		"Glottocode;Language Family;Language Name;Concept;Form;Latitude;Longitude;Source\na;b;c;d;e;1;2;f\n",
		"a,b\n1,2\n",
	}
	for _, in := range inputs {
		once, _ := Repair(in)
		twice, _ := Repair(once)
		if once != twice {
			t.Errorf("repair not idempotent for %q:\nonce:  %q\ntwice: %q", in, once, twice)
		}
	}
}

func TestRepair_PreservesCleanCoreData(t *testing.T) {
	in := coreCSV(
		"stan1293,Indo-European,English,water,water,51.0,0.0,OED",
		"germ1287,Indo-European,German,water,Wasser,52.5,13.4,Duden",
	)
	out, warnings := Repair(in)
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings on clean input: %v", warnings)
	}
	rows, cols := Dimensions(out)
	if rows != 2 || cols != 8 {
		t.Errorf("shape changed: (%d, %d)", rows, cols)
	}
	if !strings.Contains(out, "germ1287,Indo-European,German,water,Wasser,52.5,13.4,Duden") {
		t.Errorf("field values changed:\n%s", out)
	}
}

func TestRepair_SniffsSemicolonDelimiter(t *testing.T) {
	in := "Glottocode;Language Family;Language Name;Concept;Form;Latitude;Longitude;Source\nstan1293;Indo-European;English;water;water;51.0;0.0;OED\n"
	out, _ := Repair(in)
	v := ValidateCoreSchema(out)
	if !v.IsCoreSchema || !v.OK {
		t.Errorf("semicolon input not normalized to core schema:\n%s", out)
	}
}

func TestRepair_EmptyInput(t *testing.T) {
	out, warnings := Repair("  \n ")
	if out != "" {
		t.Errorf("output = %q, want empty", out)
	}
	if len(warnings) != 1 || warnings[0] != "Empty CSV data" {
		t.Errorf("warnings = %v", warnings)
	}
}
