package snow

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestListPlanifications_RejectsBadFromDate(t *testing.T) {
	api := &API{}
	router := api.SetupRoutes()

	bad := []string{
		"2024-12-09",           // date only
		"2024-12-09 08:00:00",  // space separator
		"2024-12-09T08:00",     // missing seconds
		"2024-12-09T08:00:00Z", // trailing zone
		"09-12-2024T08:00:00",  // wrong field order
		"notadate",
	}

	for _, v := range bad {
		req := httptest.NewRequest(http.MethodGet, "/planifications?from_date="+strings.ReplaceAll(v, " ", "%20"), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("from_date=%q: expected 400, got %d", v, rec.Code)
		}
	}
}

func TestFromDateRe_AcceptsExactFormat(t *testing.T) {
	if !fromDateRe.MatchString("2024-12-09T08:00:00") {
		t.Error("expected exact-format date to match")
	}
}

func TestGetPlanification_RejectsNonNumericID(t *testing.T) {
	api := &API{}
	router := api.SetupRoutes()

	req := httptest.NewRequest(http.MethodGet, "/planifications/abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-numeric id, got %d", rec.Code)
	}
}

func TestListStreets_RejectsPartialBBox(t *testing.T) {
	api := &API{}
	router := api.SetupRoutes()

	req := httptest.NewRequest(http.MethodGet, "/streets?minLat=45.4&maxLat=45.6", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for partial bbox, got %d", rec.Code)
	}
}

func TestParseBBox(t *testing.T) {
	b, err := parseBBox("45.4", "-73.7", "45.6", "-73.4")
	if err != nil {
		t.Fatalf("parseBBox failed: %v", err)
	}
	if b.minLat != 45.4 || b.maxLng != -73.4 {
		t.Errorf("unexpected bbox: %+v", b)
	}

	if b, err := parseBBox("", "", "", ""); err != nil || b != nil {
		t.Errorf("empty bbox must be nil, got %+v, %v", b, err)
	}
}

func TestFoldAccents(t *testing.T) {
	cases := map[string]string{
		"Décarie":        "Decarie",
		"Côte-des-Neiges": "Cote-des-Neiges",
		"Enneigé":        "Enneige",
		"plain":          "plain",
	}
	for in, want := range cases {
		if got := foldAccents(in); got != want {
			t.Errorf("foldAccents(%q) = %q, want %q", in, got, want)
		}
	}
}
