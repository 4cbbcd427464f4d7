package tabular

import (
	"fmt"
	"strings"
	"testing"
)

const coreHeader = "Glottocode,Language Family,Language Name,Concept,Form,Latitude,Longitude,Source"

func coreCSV(rows ...string) string {
	return coreHeader + "\n" + strings.Join(rows, "\n") + "\n"
}

func TestValidateCoreSchema_Empty(t *testing.T) {
	for _, input := range []string{"", "   \n  "} {
		v := ValidateCoreSchema(input)
		if v.OK {
			t.Errorf("empty input %q accepted", input)
		}
		if v.IsCoreSchema {
			t.Errorf("empty input %q flagged as core schema", input)
		}
	}
}

func TestValidateCoreSchema_CleanData(t *testing.T) {
	v := ValidateCoreSchema(coreCSV(
		"stan1293,Indo-European,English,water,water,51.0,0.0,OED",
		"germ1287,Indo-European,German,water,Wasser,52.5,13.4,Duden",
	))
	if !v.OK {
		t.Fatalf("clean data rejected: %v", v.Errors)
	}
	if !v.IsCoreSchema {
		t.Error("core header not detected")
	}
	if v.RowCount != 2 {
		t.Errorf("row count = %d, want 2", v.RowCount)
	}
}

func TestValidateCoreSchema_NonCoreIsVacuouslyOK(t *testing.T) {
	v := ValidateCoreSchema("a,b,c\n1,2\n3,4,5,6\n")
	if !v.OK {
		t.Errorf("non-core CSV rejected: %v", v.Errors)
	}
	if v.IsCoreSchema {
		t.Error("3-column header flagged as core schema")
	}
	if v.RowCount != -1 {
		t.Errorf("row count = %d, want -1 (scan skipped)", v.RowCount)
	}
}

func TestValidateCoreSchema_RowLengthErrorsCappedAtFive(t *testing.T) {
	rows := make([]string, 8)
	for i := range rows {
		// Unescaped comma in Source gives 9 fields.
		rows[i] = fmt.Sprintf("code%d,Fam,Lang,water,water,1.0,2.0,Smith, 1999", i)
	}
	v := ValidateCoreSchema(coreCSV(rows...))
	if v.OK {
		t.Fatal("ragged rows accepted")
	}
	if len(v.Errors) != 5 {
		t.Errorf("got %d errors, want cap of 5: %v", len(v.Errors), v.Errors)
	}
	if !strings.Contains(v.Errors[0], "Line 2") {
		t.Errorf("first error should be 1-indexed line 2, got %q", v.Errors[0])
	}
}

func TestValidateCoreSchema_MissingColumnName(t *testing.T) {
	header := "Glottocode,Language Family,Language Name,Concept,Shape,Latitude,Longitude,Source"
	v := ValidateCoreSchema(header + "\na,b,c,d,e,1,2,f\n")
	if v.OK {
		t.Fatal("missing Form column accepted")
	}
	if !strings.Contains(strings.Join(v.Errors, " "), "Form") {
		t.Errorf("errors do not name the missing column: %v", v.Errors)
	}
}

func TestDimensions(t *testing.T) {
	rows, cols := Dimensions(coreCSV("a,b,c,d,e,1,2,f", "g,h,i,j,k,3,4,l"))
	if rows != 2 || cols != 8 {
		t.Errorf("Dimensions = (%d, %d), want (2, 8)", rows, cols)
	}
	rows, cols = Dimensions("")
	if rows != 0 || cols != 0 {
		t.Errorf("Dimensions of empty = (%d, %d)", rows, cols)
	}
}
