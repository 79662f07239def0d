// Package snow maintains the durable snow-removal planning state for
// Montreal street sides: the street rows, the per-side current state, and
// the append-only transition events.
package snow

import (
	"context"
	"log"
	"time"

	"github.com/InfoNeigeMTL/neige-backend/internal/geobase"
	"github.com/InfoNeigeMTL/neige-backend/internal/planifneige"
)

// Outcome reports what one reconciliation pass did with one record.
type Outcome struct {
	StreetUpserted  bool
	StreetSkipped   bool
	CurrentUpserted bool
	MissingID       bool
	Failed          bool
}

// Summary aggregates outcomes across a chunk or a whole run.
type Summary struct {
	Total           int `json:"total"`
	StreetsUpserted int `json:"streets_upserted"`
	StreetsSkipped  int `json:"streets_skipped"`
	CurrentUpserted int `json:"current_upserted"`
	MissingID       int `json:"missing_id"`
	Failed          int `json:"failed"`
}

// Add folds another summary into s.
func (s *Summary) Add(o Summary) {
	s.Total += o.Total
	s.StreetsUpserted += o.StreetsUpserted
	s.StreetsSkipped += o.StreetsSkipped
	s.CurrentUpserted += o.CurrentUpserted
	s.MissingID += o.MissingID
	s.Failed += o.Failed
}

// Engine reconciles incoming planning records against the store. It is the
// sole writer of streets, deneigement_current and deneigement_events. All
// collaborators are injected; the engine holds no ambient state.
type Engine struct {
	store     Store
	directory *geobase.Directory

	// serializePerStreet turns on per-identifier locking around the
	// read-detect-write sequence. Off by default: concurrent chunks touching
	// the same street side may then double-record an event, which is the
	// accepted best-effort behavior.
	serializePerStreet bool
}

// NewEngine builds a reconciliation engine over the given store and street
// directory.
func NewEngine(store Store, directory *geobase.Directory, serializePerStreet bool) *Engine {
	return &Engine{
		store:              store,
		directory:          directory,
		serializePerStreet: serializePerStreet,
	}
}

// Reconcile processes a single planning record: refreshes the street row
// from the directory, detects a state transition against the stored current
// state, appends an event when one happened, and upserts the current state.
// Failures are reported through the outcome, never by aborting the batch.
func (e *Engine) Reconcile(ctx context.Context, rec planifneige.Planification) Outcome {
	var out Outcome

	// An absent state code is not code 0; it gets the bare unknown label.
	status := "État inconnu"
	if rec.EtatDeneig != nil {
		status = StatusLabel(*rec.EtatDeneig)
	}

	id := rec.CoteRueID
	if id == 0 {
		out.MissingID = true
		log.Printf("[snow] record without coteRueId skipped (munid=%d)", rec.Munid)
		return out
	}

	feature, haveFeature := e.directory.Lookup(id)
	if haveFeature {
		if err := e.store.UpsertStreet(ctx, feature); err != nil {
			out.StreetSkipped = true
			log.Printf("[snow] cote_rue_id=%d: street upsert failed: %v", id, err)
		} else {
			out.StreetUpserted = true
		}
	} else {
		out.StreetSkipped = true
		log.Printf("[snow] cote_rue_id=%d: no matching geobase feature", id)
	}

	exists, err := e.store.StreetExists(ctx, id)
	if err != nil {
		out.Failed = true
		log.Printf("[snow] cote_rue_id=%d: existence check failed: %v", id, err)
		return out
	}
	if !exists {
		// The referential invariant cannot be satisfied: no street row and
		// nothing in the directory to create one from.
		out.Failed = true
		log.Printf("[snow] cote_rue_id=%d: street missing, refusing current-state write", id)
		return out
	}

	apply := func(st Store) error {
		return e.applyCurrent(ctx, st, rec, status)
	}

	var applyErr error
	if e.serializePerStreet {
		applyErr = e.store.Serialized(ctx, id, apply)
	} else {
		applyErr = apply(e.store)
	}

	if applyErr != nil && isForeignKeyViolation(applyErr) && haveFeature {
		// The street row vanished between the check and the write, or our
		// insert lost a race. Re-insert the street and retry exactly once,
		// upsert only: the event for this transition is already recorded.
		log.Printf("[snow] cote_rue_id=%d: foreign key violation, retrying after street insert", id)
		if err := e.store.UpsertStreet(ctx, feature); err != nil {
			log.Printf("[snow] cote_rue_id=%d: street re-insert failed: %v", id, err)
		} else if e.serializePerStreet {
			applyErr = e.store.Serialized(ctx, id, func(st Store) error {
				return st.UpsertCurrent(ctx, currentRow(rec, status))
			})
		} else {
			applyErr = e.store.UpsertCurrent(ctx, currentRow(rec, status))
		}
	}

	if applyErr != nil {
		out.Failed = true
		log.Printf("[snow] cote_rue_id=%d: current-state upsert failed: %v", id, applyErr)
		return out
	}

	out.CurrentUpserted = true
	return out
}

// applyCurrent runs steps 4-7 of the reconciliation: read the stored state,
// detect a transition on the state code alone, append the event, upsert the
// current row.
func (e *Engine) applyCurrent(ctx context.Context, st Store, rec planifneige.Planification, status string) error {
	prior, found, err := st.GetCurrent(ctx, rec.CoteRueID)
	if err != nil {
		return err
	}

	changed := !found || !etatEqual(prior.EtatDeneig, rec.EtatDeneig)
	if changed {
		ev := &DeneigementEvent{
			CoteRueID: rec.CoteRueID,
			NewEtat:   rec.EtatDeneig,
			NewStatus: status,
			EventDate: soapTimePtr(rec.DateMaj),
		}
		if found {
			oldStatus := prior.Status
			ev.OldEtat = prior.EtatDeneig
			ev.OldStatus = &oldStatus
		}
		// Events are a best-effort audit trail; a failed append must not
		// block the current-state write.
		if err := st.InsertEvent(ctx, ev); err != nil {
			log.Printf("[snow] cote_rue_id=%d: event insert failed: %v", rec.CoteRueID, err)
		}
	}

	return st.UpsertCurrent(ctx, currentRow(rec, status))
}

// currentRow builds the current-state row carried by one record.
func currentRow(rec planifneige.Planification, status string) *DeneigementCurrent {
	return &DeneigementCurrent{
		CoteRueID:         rec.CoteRueID,
		EtatDeneig:        rec.EtatDeneig,
		Status:            status,
		DateDebutPlanif:   soapTimePtr(rec.DateDebutPlanif),
		DateFinPlanif:     soapTimePtr(rec.DateFinPlanif),
		DateDebutReplanif: soapTimePtr(rec.DateDebutReplanif),
		DateFinReplanif:   soapTimePtr(rec.DateFinReplanif),
		DateMaj:           soapTimePtr(rec.DateMaj),
	}
}

func etatEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// IngestBatch reconciles one chunk of records sequentially and returns the
// chunk summary.
func (e *Engine) IngestBatch(ctx context.Context, records []planifneige.Planification) Summary {
	s := Summary{Total: len(records)}
	for _, rec := range records {
		out := e.Reconcile(ctx, rec)
		if out.StreetUpserted {
			s.StreetsUpserted++
		}
		if out.StreetSkipped {
			s.StreetsSkipped++
		}
		if out.CurrentUpserted {
			s.CurrentUpserted++
		}
		if out.MissingID {
			s.MissingID++
		}
		if out.Failed {
			s.Failed++
		}
	}
	return s
}

func soapTimePtr(t *planifneige.SoapTime) *time.Time {
	if t == nil {
		return nil
	}
	tt := t.Time
	return &tt
}
