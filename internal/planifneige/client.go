// Package planifneige is a client for Montreal's InfoNeige SOAP web service,
// the upstream source of snow-removal planning records.
package planifneige

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// userAgent identifies this client to the city's service.
const userAgent = "planif-neige-client github.com/InfoNeigeMTL/neige-backend"

// soapEnvelope is the request document for GetPlanificationsForDate. The
// service ignores the envelope prefix namespaces as long as the body shape
// matches, so a template keeps this readable.
const soapEnvelope = `<?xml version="1.0" encoding="UTF-8"?>
<soapenv:Envelope
    xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/"
    xmlns:ser="https://servicesenlignedev.ville.montreal.qc.ca">
  <soapenv:Header/>
  <soapenv:Body>
    <ser:GetPlanificationsForDate>
        <getPlanificationsForDate>
            <fromDate>%s</fromDate>
            <tokenString>%s</tokenString>
        </getPlanificationsForDate>
    </ser:GetPlanificationsForDate>
  </soapenv:Body>
</soapenv:Envelope>
`

// Client talks to the InfoNeige web service.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates an InfoNeige client. Requests are throttled to one per
// second; the city rate-limits aggressively during snow operations.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// GetPlanificationsForDate fetches every planning record updated since
// fromDate. A non-zero upstream responseStatus is returned as *UpstreamError.
func (c *Client) GetPlanificationsForDate(ctx context.Context, fromDate time.Time) ([]Planification, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body := fmt.Sprintf(soapEnvelope, fromDate.Format(SoapTimeLayout), c.cfg.Token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")

	start := time.Now()
	log.Printf("[planifneige] POST %s fromDate=%s", c.cfg.Endpoint, fromDate.Format(SoapTimeLayout))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("infoneige request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("infoneige status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read infoneige response: %w", err)
	}

	records, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	log.Printf("[planifneige] response status=%d duration=%dms results=%d",
		resp.StatusCode, time.Since(start).Milliseconds(), len(records))

	return records, nil
}

// parseResponse decodes the SOAP response and enforces the upstream status
// contract. A response carrying a single planification decodes to a
// one-element slice, so no special casing is needed here.
func parseResponse(raw []byte) ([]Planification, error) {
	var env envelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode infoneige response: %w", err)
	}

	result := env.Body.Response.Result
	if result.ResponseStatus != 0 {
		return nil, &UpstreamError{Status: result.ResponseStatus, Desc: result.ResponseDesc}
	}

	return result.Planifications.Planification, nil
}
