package planifneige

import (
	"encoding/xml"
	"time"
)

// SoapTimeLayout is the timestamp shape the InfoNeige service speaks, both
// in requests and responses. No offset, no sub-second precision.
const SoapTimeLayout = "2006-01-02T15:04:05"

// SoapTime wraps time.Time with the service's XML timestamp encoding.
type SoapTime struct {
	time.Time
}

func (t *SoapTime) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var raw string
	if err := d.DecodeElement(&raw, &start); err != nil {
		return err
	}
	if raw == "" {
		return nil
	}
	parsed, err := time.Parse(SoapTimeLayout, raw)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// Planification is one planning-state observation for one street side, as
// returned by GetPlanificationsForDate. The timestamps and the state code
// stay nil when the service omits them.
type Planification struct {
	Munid             int       `xml:"munid" json:"munid"`
	CoteRueID         int       `xml:"coteRueId" json:"coteRueId"`
	EtatDeneig        *int      `xml:"etatDeneig" json:"etatDeneig,omitempty"`
	DateDebutPlanif   *SoapTime `xml:"dateDebutPlanif" json:"dateDebutPlanif,omitempty"`
	DateFinPlanif     *SoapTime `xml:"dateFinPlanif" json:"dateFinPlanif,omitempty"`
	DateDebutReplanif *SoapTime `xml:"dateDebutReplanif" json:"dateDebutReplanif,omitempty"`
	DateFinReplanif   *SoapTime `xml:"dateFinReplanif" json:"dateFinReplanif,omitempty"`
	DateMaj           *SoapTime `xml:"dateMaj" json:"dateMaj,omitempty"`
}

// envelope mirrors the SOAP response document. encoding/xml matches local
// element names, so the namespace prefixes the service uses don't matter.
type envelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Response struct {
			Result planResult `xml:"getPlanificationsForDateResult"`
		} `xml:"GetPlanificationsForDateResponse"`
	} `xml:"Body"`
}

type planResult struct {
	ResponseStatus int    `xml:"responseStatus"`
	ResponseDesc   string `xml:"responseDesc"`
	Planifications struct {
		Planification []Planification `xml:"planification"`
	} `xml:"planifications"`
}
