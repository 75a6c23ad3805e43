package agents

import (
	"context"
	"encoding/json"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"
)

const batchConcurrency = 4

// Batch item outcomes.
const (
	BatchStatusSuccess = "success"
	BatchStatusError   = "error"
)

// Specification requests one agent in a batch.
type Specification struct {
	Type         string     `json:"type"`
	Requirements *Overrides `json:"requirements,omitempty"`

	decodeErr error
}

// DecodeSpecifications decodes each raw item on its own. An item that does not
// decode keeps its slot and fails as a malformed request in GenerateBatch.
func DecodeSpecifications(items []json.RawMessage) []Specification {
	specs := make([]Specification, len(items))
	for i, raw := range items {
		var spec Specification
		if err := json.Unmarshal(raw, &spec); err != nil {
			specs[i] = Specification{decodeErr: MalformedRequest(err)}
			continue
		}
		specs[i] = spec
	}
	return specs
}

// BatchResult is the outcome of a single specification.
type BatchResult struct {
	Status        string         `json:"status"`
	Agent         *AgentProfile  `json:"agent,omitempty"`
	Error         string         `json:"error,omitempty"`
	Specification *Specification `json:"specification,omitempty"`

	err error
}

// Err returns the composition error for failed items.
func (r BatchResult) Err() error {
	return r.err
}

// BatchSummary counts the outcomes of a batch.
type BatchSummary struct {
	TotalRequested int    `json:"total_requested"`
	Successful     int    `json:"successful"`
	Failed         int    `json:"failed"`
	BatchID        string `json:"batch_id"`
}

// BatchReport holds one result per specification, in request order.
type BatchReport struct {
	Results []BatchResult `json:"results"`
	Summary BatchSummary  `json:"summary"`
}

// GenerateBatch composes every specification independently. A failing item is
// reported in its slot and never aborts the rest of the batch.
func (c *Composer) GenerateBatch(ctx context.Context, specs []Specification) BatchReport {
	results := make([]BatchResult, len(specs))

	var g errgroup.Group
	g.SetLimit(batchConcurrency)
	for i := range specs {
		spec := specs[i]
		g.Go(func() error {
			if spec.decodeErr != nil {
				results[i] = BatchResult{
					Status: BatchStatusError,
					Error:  spec.decodeErr.Error(),
					err:    spec.decodeErr,
				}
				return nil
			}
			profile, err := c.Compose(ctx, spec.Type, spec.Requirements)
			if err != nil {
				results[i] = BatchResult{
					Status:        BatchStatusError,
					Error:         err.Error(),
					Specification: &spec,
					err:           err,
				}
				return nil
			}
			results[i] = BatchResult{Status: BatchStatusSuccess, Agent: profile}
			return nil
		})
	}
	_ = g.Wait()

	summary := BatchSummary{
		TotalRequested: len(specs),
		BatchID:        ulid.Make().String(),
	}
	for _, r := range results {
		if r.Status == BatchStatusSuccess {
			summary.Successful++
		} else {
			summary.Failed++
		}
	}

	return BatchReport{Results: results, Summary: summary}
}
