package ops

import (
	"github.com/hpungsan/diarydigest/internal/lifecycle"
)

// ContextStatusOutput contains the result of the ContextStatus operation.
type ContextStatusOutput struct {
	lifecycle.Status
	StatePath string `json:"state_path"`
}

// ContextStatus reports the persisted assistant and thread without any remote call.
func ContextStatus(m *lifecycle.Manager, statePath string) (*ContextStatusOutput, error) {
	st, err := m.Inspect()
	if err != nil {
		return nil, err
	}
	return &ContextStatusOutput{Status: st, StatePath: statePath}, nil
}
