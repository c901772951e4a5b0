// Package regimenparser loads external regimen documents into the internal
// course/drug model. Documents are JSON mappings with an "indication" and
// either a typed "courses" array or, for legacy documents, top-level keys
// prefixed "course". Parsing is a pure transform: no deep drug validation
// happens here, malformed drugs surface when a schedule is resolved.
package regimenparser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nkiranraj/oncov3/logging"
	"github.com/nkiranraj/oncov3/regimenparser/entities"
	"github.com/nkiranraj/oncov3/resolver"
)

// ParseRegimen parses a serialized regimen document.
//
// The typed "courses" array is the primary representation. When it is
// absent, every top-level key beginning with "course" is treated as a
// course record, in the order the keys appear in the source text. The
// prefix filter is purely on key name: an unrelated key that happens to
// start with "course" will be misclassified. Legacy documents only.
func ParseRegimen(raw []byte) (*entities.Regimen, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, &entities.MalformedInputError{Reason: "input is not valid JSON: " + err.Error()}
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, &entities.MalformedInputError{Reason: "input is not a JSON mapping"}
	}

	var (
		indication *string
		typed      []entities.Course
		sawTyped   bool
		legacy     []entities.Course
	)

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, &entities.MalformedInputError{Reason: "input is not valid JSON: " + err.Error()}
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, &entities.MalformedInputError{Reason: "input is not a JSON mapping"}
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, &entities.MalformedInputError{Reason: fmt.Sprintf("invalid value for key %q: %s", key, err)}
		}

		switch {
		case key == "indication":
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				return nil, &entities.MalformedInputError{Reason: "\"indication\" is not a string"}
			}
			indication = &s
		case key == "courses":
			var courses []entities.Course
			if err := json.Unmarshal(value, &courses); err != nil {
				return nil, passthroughEngineError(err, "\"courses\" is not a course sequence")
			}
			typed = courses
			sawTyped = true
		case strings.HasPrefix(key, "course"):
			var course entities.Course
			if err := json.Unmarshal(value, &course); err != nil {
				return nil, passthroughEngineError(err, fmt.Sprintf("key %q is not a course record", key))
			}
			legacy = append(legacy, course)
		}
	}

	if indication == nil {
		return nil, &entities.MalformedInputError{Reason: "missing required field \"indication\""}
	}

	courses := legacy
	if sawTyped {
		courses = typed
	}
	return &entities.Regimen{Indication: *indication, Courses: courses}, nil
}

// ParseRegimenMap parses an already-decoded mapping. Go maps do not carry
// key order, so legacy "course*" keys are taken in lexicographic order;
// for deterministic sequencing a mapping input should use the typed
// "courses" field.
func ParseRegimenMap(m map[string]any) (*entities.Regimen, error) {
	if m == nil {
		return nil, &entities.MalformedInputError{Reason: "input is not a mapping"}
	}
	raw, err := json.Marshal(sortedMapDocument(m))
	if err != nil {
		return nil, &entities.MalformedInputError{Reason: "mapping is not serializable: " + err.Error()}
	}
	return ParseRegimen(raw)
}

// sortedMapDocument re-keys the mapping so json.Marshal (which sorts map
// keys) yields legacy course keys in lexicographic order.
func sortedMapDocument(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// CanonicalJSON is the canonical serialization of a regimen: the typed
// representation, indented like the library files themselves.
func CanonicalJSON(r *entities.Regimen) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// LoadLibrary parses every .json file in dir into a regimen document.
// Files that fail to parse or violate structural invariants are skipped
// with a warning, mirroring how the service treats individual bad records:
// one defective file must not take the whole library down.
func LoadLibrary(dir string) ([]entities.RegimenDocument, map[string]entities.RegimenDocument, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read regimen directory %s: %w", dir, err)
	}

	documents := make([]entities.RegimenDocument, 0, len(dirEntries))
	byID := make(map[string]entities.RegimenDocument, len(dirEntries))

	for _, entry := range dirEntries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			logging.Warn("Skipping unreadable regimen file", "file", entry.Name(), "error", err)
			continue
		}

		regimen, err := ParseRegimen(raw)
		if err != nil {
			logging.Warn("Skipping malformed regimen file", "file", entry.Name(), "error", err)
			continue
		}

		if err := validateCourses(regimen); err != nil {
			logging.Warn("Skipping invalid regimen file", "file", entry.Name(), "error", err)
			continue
		}

		canonical, err := CanonicalJSON(regimen)
		if err != nil {
			logging.Warn("Skipping unserializable regimen file", "file", entry.Name(), "error", err)
			continue
		}

		id := DocumentID(entry.Name())
		if _, exists := byID[id]; exists {
			logging.Warn("Skipping regimen file with duplicate id", "file", entry.Name(), "id", id)
			continue
		}

		doc := entities.RegimenDocument{
			ID:        id,
			Regimen:   *regimen,
			Raw:       raw,
			Canonical: canonical,
		}
		documents = append(documents, doc)
		byID[id] = doc
	}

	logging.Info("Regimen library loaded", "dir", dir, "regimens", len(documents))
	return documents, byID, nil
}

// DocumentID derives the library id of a regimen file from its name.
func DocumentID(fileName string) string {
	return strings.ToLower(strings.TrimSuffix(fileName, ".json"))
}

func validateCourses(r *entities.Regimen) error {
	for _, course := range r.Courses {
		if err := resolver.ValidateCourse(course); err != nil {
			return err
		}
	}
	return nil
}

// passthroughEngineError keeps typed engine errors intact and wraps
// anything else as malformed input.
func passthroughEngineError(err error, reason string) error {
	var malformed *entities.MalformedInputError
	var missing *entities.MissingFieldError
	var invalid *entities.InvalidRangeError
	if errors.As(err, &malformed) || errors.As(err, &missing) || errors.As(err, &invalid) {
		return err
	}
	return &entities.MalformedInputError{Reason: reason + ": " + err.Error()}
}
