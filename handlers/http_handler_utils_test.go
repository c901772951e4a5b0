package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nkiranraj/oncov3/regimenparser"
	"github.com/nkiranraj/oncov3/regimenparser/entities"
)

// ============================================================================
// TEST DATA FACTORY
// ============================================================================

// TestDataFactory creates consistent test data across all tests
type TestDataFactory struct{}

func NewTestDataFactory() *TestDataFactory {
	return &TestDataFactory{}
}

// CreateACCourse creates the classic AC course: doxorubicin and
// cyclophosphamide on day 1 of a 21-day cycle, four cycles
func (f *TestDataFactory) CreateACCourse() entities.Course {
	return entities.Course{
		Name:        "AC",
		CycleLength: 21,
		Cycles:      4,
		Drugs: []entities.Drug{
			entities.NewSingleDayDrug("Doxorubicin", "60mg/m2", "IV", 1),
			entities.NewSingleDayDrug("Cyclophosphamide", "600mg/m2", "IV", 1),
		},
		SupportiveCare: []string{"Antiemetics before each infusion"},
	}
}

// CreateTCHCourse creates a course with a multi-day trastuzumab schedule
func (f *TestDataFactory) CreateTCHCourse() entities.Course {
	return entities.Course{
		Name:        "TCH",
		CycleLength: 21,
		Cycles:      6,
		Drugs: []entities.Drug{
			entities.NewSingleDayDrug("Docetaxel", "75mg/m2", "IV", 1),
			entities.NewMultiDayDrug("Trastuzumab", "IV", []int{1, 8, 15}, "8mg/kg", "6mg/kg"),
		},
		MaintenanceTrastuzumab: &entities.Maintenance{Duration: 34, Dose: "6mg/kg"},
	}
}

// CreateDocument creates a library document wrapping the given courses
func (f *TestDataFactory) CreateDocument(id, indication string, courses ...entities.Course) entities.RegimenDocument {
	regimen := entities.Regimen{Indication: indication, Courses: courses}
	canonical, err := regimenparser.CanonicalJSON(&regimen)
	if err != nil {
		panic(fmt.Sprintf("test document %s is not serializable: %v", id, err))
	}
	return entities.RegimenDocument{
		ID:        id,
		Regimen:   regimen,
		Raw:       []byte(`{"indication": "` + indication + `"}`),
		Canonical: canonical,
	}
}

// CreateLibrary creates a small realistic regimen library
func (f *TestDataFactory) CreateLibrary() []entities.RegimenDocument {
	return []entities.RegimenDocument{
		f.CreateDocument("ac-tch", "HER2-positive breast cancer", f.CreateACCourse(), f.CreateTCHCourse()),
		f.CreateDocument("folfox", "Colorectal cancer", entities.Course{
			Name:        "FOLFOX",
			CycleLength: 14,
			Cycles:      12,
			Drugs: []entities.Drug{
				entities.NewSingleDayDrug("Oxaliplatin", "85mg/m2", "IV", 1),
				entities.NewMultiDayDrug("Fluorouracil", "IV", []int{1, 2}, "400mg/m2", "600mg/m2"),
			},
		}),
	}
}

// ============================================================================
// MOCK BUILDERS
// ============================================================================

// MockDataStoreBuilder provides a fluent interface for building mock stores
type MockDataStoreBuilder struct {
	mock *MockDataStore
}

func NewMockDataStoreBuilder() *MockDataStoreBuilder {
	return &MockDataStoreBuilder{
		mock: &MockDataStore{
			regimens:        []entities.RegimenDocument{},
			regimensMap:     make(map[string]entities.RegimenDocument),
			lastUpdated:     time.Now(),
			serverStartTime: time.Now(),
		},
	}
}

func (b *MockDataStoreBuilder) WithRegimens(docs []entities.RegimenDocument) *MockDataStoreBuilder {
	b.mock.regimens = docs
	b.mock.regimensMap = make(map[string]entities.RegimenDocument)
	for _, doc := range docs {
		b.mock.regimensMap[doc.ID] = doc
	}
	return b
}

func (b *MockDataStoreBuilder) WithUpdating(updating bool) *MockDataStoreBuilder {
	b.mock.updating = updating
	return b
}

func (b *MockDataStoreBuilder) WithLastUpdated(lastUpdated time.Time) *MockDataStoreBuilder {
	b.mock.lastUpdated = lastUpdated
	return b
}

func (b *MockDataStoreBuilder) Build() *MockDataStore {
	return b.mock
}

// MockValidatorBuilder provides a fluent interface for building mock validators
type MockValidatorBuilder struct {
	mock *MockRegimenValidator
}

func NewMockValidatorBuilder() *MockValidatorBuilder {
	return &MockValidatorBuilder{mock: &MockRegimenValidator{}}
}

func (b *MockValidatorBuilder) WithInputError(err error) *MockValidatorBuilder {
	b.mock.validateInputError = err
	return b
}

func (b *MockValidatorBuilder) Build() *MockRegimenValidator {
	return b.mock
}

// ============================================================================
// HTTP TEST UTILITIES
// ============================================================================

// HTTPTestHelper provides utilities for HTTP handler testing
type HTTPTestHelper struct {
	t *testing.T
}

func NewHTTPTestHelper(t *testing.T) *HTTPTestHelper {
	return &HTTPTestHelper{t: t}
}

// ExecuteRequest executes an HTTP handler with given parameters
func (h *HTTPTestHelper) ExecuteRequest(handler http.HandlerFunc, method, path string, urlParams map[string]string) *httptest.ResponseRecorder {
	return h.ExecuteRequestWithBody(handler, method, path, urlParams, "")
}

// ExecuteRequestWithBody executes an HTTP handler with a request body
func (h *HTTPTestHelper) ExecuteRequestWithBody(handler http.HandlerFunc, method, path string, urlParams map[string]string, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)

	if len(urlParams) > 0 {
		rctx := chi.NewRouteContext()
		for key, value := range urlParams {
			rctx.URLParams.Add(key, value)
		}
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

// AssertJSONResponse asserts that response contains valid JSON with expected status
func (h *HTTPTestHelper) AssertJSONResponse(resp *httptest.ResponseRecorder, expectedStatus int, target any) {
	if resp.Code != expectedStatus {
		h.t.Errorf("Expected status %d, got %d: %s", expectedStatus, resp.Code, resp.Body.String())
	}

	bodyStr := resp.Body.String()
	if bodyStr == "" {
		h.t.Error("Response body should not be empty")
	}

	err := json.Unmarshal([]byte(bodyStr), target)
	if err != nil {
		h.t.Errorf("Response should be valid JSON, got error: %v", err)
	}
}

// AssertErrorResponse asserts that response contains an error with expected status
func (h *HTTPTestHelper) AssertErrorResponse(resp *httptest.ResponseRecorder, expectedStatus int) {
	if resp.Code != expectedStatus {
		h.t.Errorf("Expected status %d, got %d: %s", expectedStatus, resp.Code, resp.Body.String())
	}

	var errorResp map[string]any
	err := json.Unmarshal(resp.Body.Bytes(), &errorResp)
	if err != nil {
		h.t.Errorf("Error response should be valid JSON, got error: %v", err)
	}

	if _, ok := errorResp["error"]; !ok {
		h.t.Error("Error response should have error field")
	}
}

// ============================================================================
// MOCK IMPLEMENTATIONS
// ============================================================================

// MockDataStore implements interfaces.DataStore for testing
type MockDataStore struct {
	regimens        []entities.RegimenDocument
	regimensMap     map[string]entities.RegimenDocument
	lastUpdated     time.Time
	serverStartTime time.Time
	updating        bool
}

func (m *MockDataStore) GetRegimens() []entities.RegimenDocument {
	return m.regimens
}

func (m *MockDataStore) GetRegimensMap() map[string]entities.RegimenDocument {
	return m.regimensMap
}

func (m *MockDataStore) GetRegimen(id string) (entities.RegimenDocument, bool) {
	doc, ok := m.regimensMap[id]
	return doc, ok
}

func (m *MockDataStore) GetLastUpdated() time.Time {
	return m.lastUpdated
}

func (m *MockDataStore) IsUpdating() bool {
	return m.updating
}

func (m *MockDataStore) GetServerStartTime() time.Time {
	return m.serverStartTime
}

func (m *MockDataStore) UpdateData(regimens []entities.RegimenDocument, byID map[string]entities.RegimenDocument) {
	m.regimens = regimens
	m.regimensMap = byID
	m.lastUpdated = time.Now()
}

func (m *MockDataStore) BeginUpdate() bool {
	m.updating = true
	return true
}

func (m *MockDataStore) EndUpdate() {
	m.updating = false
}

// MockRegimenValidator implements interfaces.RegimenValidator for testing.
// Cycle number and anchor parsing behave like the real validator so handler
// tests exercise realistic flows; input screening is injectable.
type MockRegimenValidator struct {
	validateInputError error
}

func (m *MockRegimenValidator) ValidateRegimen(r *entities.Regimen) error {
	return nil
}

func (m *MockRegimenValidator) ValidateInput(input string) error {
	return m.validateInputError
}

func (m *MockRegimenValidator) ValidateCycleNumber(input string, cycles int) (int, error) {
	cycle, err := strconv.Atoi(input)
	if err != nil {
		return 0, fmt.Errorf("cycle number must be an integer, got %q", input)
	}
	if cycle < 1 || cycle > cycles {
		return 0, &entities.InvalidRangeError{Record: "cycle", Field: "cycle_number", Value: cycle, Min: 1, Max: cycles}
	}
	return cycle, nil
}

func (m *MockRegimenValidator) ValidateAnchorDate(input string) (time.Time, error) {
	return time.Parse("2006-01-02", input)
}
