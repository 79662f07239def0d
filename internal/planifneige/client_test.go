package planifneige

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const okResponse = `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <ns2:GetPlanificationsForDateResponse xmlns:ns2="https://servicesenlignedev.ville.montreal.qc.ca">
      <getPlanificationsForDateResult>
        <responseStatus>0</responseStatus>
        <responseDesc>OK</responseDesc>
        <planifications>
          <planification>
            <munid>50</munid>
            <coteRueId>1234501</coteRueId>
            <etatDeneig>2</etatDeneig>
            <dateDebutPlanif>2025-01-10T07:00:00</dateDebutPlanif>
            <dateFinPlanif>2025-01-10T19:00:00</dateFinPlanif>
            <dateMaj>2025-01-09T22:15:00</dateMaj>
          </planification>
          <planification>
            <munid>50</munid>
            <coteRueId>1234502</coteRueId>
            <etatDeneig>0</etatDeneig>
            <dateMaj>2025-01-09T22:16:00</dateMaj>
          </planification>
          <planification>
            <munid>50</munid>
            <coteRueId>1234503</coteRueId>
            <dateMaj>2025-01-09T22:17:00</dateMaj>
          </planification>
        </planifications>
      </getPlanificationsForDateResult>
    </ns2:GetPlanificationsForDateResponse>
  </soap:Body>
</soap:Envelope>`

const errorResponse = `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <ns2:GetPlanificationsForDateResponse xmlns:ns2="https://servicesenlignedev.ville.montreal.qc.ca">
      <getPlanificationsForDateResult>
        <responseStatus>8</responseStatus>
        <responseDesc>Jeton invalide</responseDesc>
      </getPlanificationsForDateResult>
    </ns2:GetPlanificationsForDateResponse>
  </soap:Body>
</soap:Envelope>`

func TestGetPlanificationsForDate(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		w.Header().Set("Content-Type", "text/xml")
		io.WriteString(w, okResponse)
	}))
	defer srv.Close()

	client := NewClient(Config{Token: "test-token", Endpoint: srv.URL})
	from := time.Date(2025, 1, 9, 7, 0, 0, 0, time.UTC)

	records, err := client.GetPlanificationsForDate(context.Background(), from)
	if err != nil {
		t.Fatalf("GetPlanificationsForDate failed: %v", err)
	}

	if !strings.Contains(gotBody, "<fromDate>2025-01-09T07:00:00</fromDate>") {
		t.Errorf("request missing fromDate, body: %s", gotBody)
	}
	if !strings.Contains(gotBody, "<tokenString>test-token</tokenString>") {
		t.Error("request missing token")
	}

	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	first := records[0]
	if first.CoteRueID != 1234501 || first.Munid != 50 {
		t.Errorf("unexpected first record: %+v", first)
	}
	if first.EtatDeneig == nil || *first.EtatDeneig != 2 {
		t.Errorf("expected etatDeneig 2, got %v", first.EtatDeneig)
	}
	if first.DateDebutPlanif == nil || first.DateDebutPlanif.Hour() != 7 {
		t.Errorf("expected parsed dateDebutPlanif, got %v", first.DateDebutPlanif)
	}
	if first.DateMaj == nil {
		t.Error("expected parsed dateMaj")
	}

	second := records[1]
	if second.DateDebutPlanif != nil {
		t.Errorf("expected nil dateDebutPlanif for record without it, got %v", second.DateDebutPlanif)
	}
	// etatDeneig 0 is a real state (Enneigé), not the same as absent.
	if second.EtatDeneig == nil || *second.EtatDeneig != 0 {
		t.Errorf("expected etatDeneig 0, got %v", second.EtatDeneig)
	}

	third := records[2]
	if third.EtatDeneig != nil {
		t.Errorf("expected nil etatDeneig for record without it, got %v", *third.EtatDeneig)
	}
}

func TestGetPlanificationsForDate_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, errorResponse)
	}))
	defer srv.Close()

	client := NewClient(Config{Token: "bad-token", Endpoint: srv.URL})

	_, err := client.GetPlanificationsForDate(context.Background(), time.Now())
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected *UpstreamError, got %v", err)
	}
	if upstream.Status != 8 {
		t.Errorf("expected status 8, got %d", upstream.Status)
	}
}

func TestGetPlanificationsForDate_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(Config{Token: "t", Endpoint: srv.URL})
	if _, err := client.GetPlanificationsForDate(context.Background(), time.Now()); err == nil {
		t.Error("expected error on HTTP 502")
	}
}

func TestConfigValidate(t *testing.T) {
	if err := (Config{}).Validate(); !errors.Is(err, ErrMissingToken) {
		t.Errorf("expected ErrMissingToken, got %v", err)
	}
	if err := (Config{Token: "x"}).Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}
