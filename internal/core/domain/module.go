package domain

// LearningPath is the model-designed step structure an interactive module
// set is generated from.
type LearningPath struct {
	PathTitle string         `json:"path_title"`
	Steps     []LearningStep `json:"steps"`
}

type LearningStep struct {
	Step        int    `json:"step"`
	Title       string `json:"title"`
	Description string `json:"description"`
}
