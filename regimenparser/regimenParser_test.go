package regimenparser

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nkiranraj/oncov3/regimenparser/entities"
)

const typedDocument = `{
  "indication": "HER2-positive breast cancer",
  "courses": [
    {
      "name": "AC",
      "cycle_length": 21,
      "cycles": 4,
      "drugs": [
        {"name": "Doxorubicin", "dose": "60mg/m2", "route": "IV", "day": 1},
        {"name": "Cyclophosphamide", "dose": "600mg/m2", "route": "IV", "day": 1}
      ]
    },
    {
      "name": "TCH",
      "cycle_length": 21,
      "cycles": 6,
      "drugs": [
        {"name": "Trastuzumab", "route": "IV", "days": [1, 8, 15], "loading_dose": "8mg/kg", "maintenance_dose": "6mg/kg"}
      ],
      "supportive_care": ["G-CSF support"],
      "maintenance_trastuzumab": {"duration": 34, "dose": "6mg/kg"}
    }
  ]
}`

func TestParseRegimenTypedCourses(t *testing.T) {
	regimen, err := ParseRegimen([]byte(typedDocument))
	if err != nil {
		t.Fatalf("ParseRegimen failed: %v", err)
	}

	if regimen.Indication != "HER2-positive breast cancer" {
		t.Errorf("Unexpected indication: %s", regimen.Indication)
	}
	if len(regimen.Courses) != 2 {
		t.Fatalf("Expected 2 courses, got %d", len(regimen.Courses))
	}
	if regimen.Courses[0].Name != "AC" || regimen.Courses[1].Name != "TCH" {
		t.Errorf("Courses out of order: %s, %s", regimen.Courses[0].Name, regimen.Courses[1].Name)
	}
	if len(regimen.Courses[0].Drugs) != 2 {
		t.Errorf("Expected 2 drugs in AC, got %d", len(regimen.Courses[0].Drugs))
	}
	if regimen.Courses[1].Drugs[0].Kind != entities.MultiDay {
		t.Error("Trastuzumab should decode as a multi-day drug")
	}
}

func TestParseRegimenLegacyKeysPreserveTextOrder(t *testing.T) {
	// Keys deliberately not in lexicographic order
	raw := `{
		"indication": "test",
		"course_induction": {"name": "induction", "cycle_length": 7, "cycles": 2, "drugs": []},
		"course_consolidation": {"name": "consolidation", "cycle_length": 14, "cycles": 1, "drugs": []}
	}`

	regimen, err := ParseRegimen([]byte(raw))
	if err != nil {
		t.Fatalf("ParseRegimen failed: %v", err)
	}

	if len(regimen.Courses) != 2 {
		t.Fatalf("Expected 2 courses, got %d", len(regimen.Courses))
	}
	if regimen.Courses[0].Name != "induction" || regimen.Courses[1].Name != "consolidation" {
		t.Errorf("Legacy courses should follow text order: %s, %s",
			regimen.Courses[0].Name, regimen.Courses[1].Name)
	}
}

func TestParseRegimenTypedCoursesWinOverLegacy(t *testing.T) {
	raw := `{
		"indication": "test",
		"course_old": {"name": "old", "cycle_length": 7, "cycles": 1, "drugs": []},
		"courses": [{"name": "new", "cycle_length": 7, "cycles": 1, "drugs": []}]
	}`

	regimen, err := ParseRegimen([]byte(raw))
	if err != nil {
		t.Fatalf("ParseRegimen failed: %v", err)
	}
	if len(regimen.Courses) != 1 || regimen.Courses[0].Name != "new" {
		t.Errorf("Typed courses should win over legacy keys, got %+v", regimen.Courses)
	}
}

func TestParseRegimenEmptyCoursesIsValid(t *testing.T) {
	regimen, err := ParseRegimen([]byte(`{"indication": "observation only"}`))
	if err != nil {
		t.Fatalf("ParseRegimen failed: %v", err)
	}
	if len(regimen.Courses) != 0 {
		t.Errorf("Expected no courses, got %d", len(regimen.Courses))
	}
}

func TestParseRegimenErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"not json", `{{{`, "not valid JSON"},
		{"array root", `[1, 2]`, "not a JSON mapping"},
		{"string root", `"regimen"`, "not a JSON mapping"},
		{"missing indication", `{"courses": []}`, `missing required field "indication"`},
		{"indication not a string", `{"indication": 42}`, `"indication" is not a string`},
		{"courses not an array", `{"indication": "x", "courses": 17}`, "not a course sequence"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRegimen([]byte(tt.raw))
			var malformed *entities.MalformedInputError
			if !errors.As(err, &malformed) {
				t.Fatalf("Expected MalformedInputError, got %T: %v", err, err)
			}
			if !strings.Contains(malformed.Reason, tt.want) {
				t.Errorf("Reason %q should contain %q", malformed.Reason, tt.want)
			}
		})
	}
}

// Typed errors raised inside course or drug decoding must reach the caller
// unwrapped.
func TestParseRegimenPropagatesNestedEngineErrors(t *testing.T) {
	raw := `{
		"indication": "test",
		"courses": [{"name": "bad", "cycles": 1, "drugs": []}]
	}`

	_, err := ParseRegimen([]byte(raw))
	var malformed *entities.MalformedInputError
	if !errors.As(err, &malformed) {
		t.Fatalf("Expected MalformedInputError, got %T: %v", err, err)
	}
	if !strings.Contains(malformed.Reason, `lacks "cycle_length"`) {
		t.Errorf("Nested course error should survive: %s", malformed.Reason)
	}
}

func TestParseRegimenMap(t *testing.T) {
	m := map[string]any{
		"indication": "test",
		"courses": []any{
			map[string]any{"name": "AC", "cycle_length": 21, "cycles": 4, "drugs": []any{}},
		},
	}

	regimen, err := ParseRegimenMap(m)
	if err != nil {
		t.Fatalf("ParseRegimenMap failed: %v", err)
	}
	if regimen.Courses[0].Name != "AC" {
		t.Errorf("Unexpected course: %+v", regimen.Courses[0])
	}

	if _, err := ParseRegimenMap(nil); err == nil {
		t.Error("Nil mapping should fail")
	}
}

func TestCanonicalJSONRoundTrip(t *testing.T) {
	first, err := ParseRegimen([]byte(typedDocument))
	if err != nil {
		t.Fatalf("ParseRegimen failed: %v", err)
	}

	canonical, err := CanonicalJSON(first)
	if err != nil {
		t.Fatalf("CanonicalJSON failed: %v", err)
	}

	second, err := ParseRegimen(canonical)
	if err != nil {
		t.Fatalf("Re-parsing canonical form failed: %v", err)
	}

	reserialized, err := CanonicalJSON(second)
	if err != nil {
		t.Fatalf("CanonicalJSON failed on second pass: %v", err)
	}
	if string(canonical) != string(reserialized) {
		t.Error("Canonical form should be a fixed point of parse/serialize")
	}
}

// Legacy documents normalize to the typed form on canonicalization.
func TestCanonicalJSONNormalizesLegacyKeys(t *testing.T) {
	raw := `{"indication": "test", "course1": {"name": "AC", "cycle_length": 21, "cycles": 4, "drugs": []}}`

	regimen, err := ParseRegimen([]byte(raw))
	if err != nil {
		t.Fatalf("ParseRegimen failed: %v", err)
	}
	canonical, err := CanonicalJSON(regimen)
	if err != nil {
		t.Fatalf("CanonicalJSON failed: %v", err)
	}

	if !strings.Contains(string(canonical), `"courses"`) {
		t.Errorf("Canonical form should use the typed courses field: %s", canonical)
	}
	if strings.Contains(string(canonical), `"course1"`) {
		t.Errorf("Canonical form should not keep legacy keys: %s", canonical)
	}
}

func TestLoadLibrary(t *testing.T) {
	dir := t.TempDir()

	writeFile := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}

	writeFile("AC-TCH.json", typedDocument)
	writeFile("malformed.json", `{"courses": []}`)
	writeFile("broken.json", `not json at all`)
	writeFile("out-of-range.json", `{
		"indication": "x",
		"courses": [{"name": "bad", "cycle_length": 7, "cycles": 1,
			"drugs": [{"name": "D", "dose": "1mg", "route": "IV", "day": 9}]}]
	}`)
	writeFile("notes.txt", "not a regimen")

	documents, byID, err := LoadLibrary(dir)
	if err != nil {
		t.Fatalf("LoadLibrary failed: %v", err)
	}

	if len(documents) != 1 {
		t.Fatalf("Expected 1 loaded document, got %d", len(documents))
	}
	doc, ok := byID["ac-tch"]
	if !ok {
		t.Fatal("Document id should be the lowercased file stem")
	}
	if doc.Regimen.Indication != "HER2-positive breast cancer" {
		t.Errorf("Unexpected indication: %s", doc.Regimen.Indication)
	}
	if string(doc.Raw) != typedDocument {
		t.Error("Raw bytes should be preserved verbatim")
	}
	if len(doc.Canonical) == 0 {
		t.Error("Canonical bytes should be populated")
	}
}

func TestLoadLibraryMissingDir(t *testing.T) {
	_, _, err := LoadLibrary(filepath.Join(t.TempDir(), "absent"))
	if err == nil {
		t.Fatal("LoadLibrary on a missing directory should fail")
	}
}

func TestDocumentID(t *testing.T) {
	tests := []struct {
		file string
		want string
	}{
		{"AC-TCH.json", "ac-tch"},
		{"folfox.json", "folfox"},
		{"R-CHOP.json", "r-chop"},
	}

	for _, tt := range tests {
		if got := DocumentID(tt.file); got != tt.want {
			t.Errorf("DocumentID(%q) = %q, want %q", tt.file, got, tt.want)
		}
	}
}
