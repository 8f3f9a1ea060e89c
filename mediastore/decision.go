package mediastore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"echopost/config"
)

// UserFeedback is initialized to nulls and filled in later by a human reviewer.
type UserFeedback struct {
	IsCorrect      *bool   `json:"is_correct"`
	CorrectedValue *string `json:"corrected_value"`
	Comment        *string `json:"comment"`
	CorrectedAt    *string `json:"corrected_at"`
}

// Decision is the audit record written for every automated model decision.
type Decision struct {
	ID           string         `json:"id"`
	CreatedAt    string         `json:"created_at"`
	Step         string         `json:"step"`
	Input        map[string]any `json:"input"`
	Model        string         `json:"model"`
	Parameters   map[string]any `json:"parameters"`
	Output       string         `json:"output"`
	Explanation  string         `json:"explanation"`
	UserFeedback UserFeedback   `json:"user_feedback"`
}

// SaveDecision writes a {step}_details.json audit artifact into dir and returns
// its path. One file per step; a retry of the same step overwrites it.
func SaveDecision(dir, step string, input map[string]any, model string, parameters map[string]any, output, explanation string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create decision directory: %w", err)
	}

	record := Decision{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now().UTC().Truncate(time.Second).Format("2006-01-02T15:04:05Z"),
		Step:        step,
		Input:       input,
		Model:       model,
		Parameters:  parameters,
		Output:      output,
		Explanation: explanation,
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode decision record: %w", err)
	}

	path := filepath.Join(dir, step+config.DecisionFileSuffix)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write decision record: %w", err)
	}
	return path, nil
}
