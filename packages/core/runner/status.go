package runner

import (
	"context"
	"fmt"

	"github.com/abdul-hamid-achik/hitbatch/packages/ledger"
	"github.com/abdul-hamid-achik/hitbatch/packages/payload"
)

// PendingRecord is a record the ledger does not yet hold.
type PendingRecord struct {
	Index int    `json:"index"`
	Data  string `json:"data"`
}

// Status is how far a batch has progressed according to its ledger.
type Status struct {
	Records    int             `json:"records"`
	Done       int             `json:"done"`
	LedgerPath string          `json:"ledger,omitempty"`
	Pending    []PendingRecord `json:"pending,omitempty"`
}

// Status derives every record's key and checks it against the ledger without
// issuing requests or writing anything. A ledger that does not exist yet
// reports every record as pending.
func (r *Runner) Status(ctx context.Context, records []string) (*Status, error) {
	cfg := r.config
	led, err := ledger.OpenReadOnly(ctx, cfg.LedgerPath, r.sink)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	defer led.Close()

	st := &Status{Records: len(records), LedgerPath: cfg.LedgerPath}
	for i, record := range records {
		data := payload.Derive(cfg.Template, record)
		if led.Has(cfg.KeyMode.Key(i, data)) {
			st.Done++
			continue
		}
		st.Pending = append(st.Pending, PendingRecord{Index: i, Data: data})
	}
	return st, nil
}
