package seedmodels

import "encoding/json"

// SeedQuestion defines a question bank item in the JSON seed file. Key holds
// the answer key payload for the named strategy.
type SeedQuestion struct {
	ID             string          `json:"id"`
	Module         string          `json:"module"`
	Prompt         string          `json:"prompt"`
	Strategy       string          `json:"strategy"`
	Key            json.RawMessage `json:"key"`
	Points         float64         `json:"points"`
	SafetyCritical bool            `json:"safety_critical"`
}

// SeedSession defines a demo session and the question IDs it is built from.
type SeedSession struct {
	ID          string   `json:"id"`
	ExamineeID  string   `json:"examinee_id"`
	QuestionIDs []string `json:"question_ids"`
}

// SeedBank is the root of the JSON seed file.
type SeedBank struct {
	Questions []SeedQuestion `json:"questions"`
	Sessions  []SeedSession  `json:"sessions"`
}
