package report

import (
	"encoding/json"
	"fmt"
	"io"

	"dupdrive/internal/dedupe"
)

// WritePlan writes the deletion plan as indented JSON.
func WritePlan(w io.Writer, plan dedupe.DeletionPlan) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(plan); err != nil {
		return fmt.Errorf("encoding deletion plan: %w", err)
	}
	return nil
}
