package models

// JudgeType selects the input widget and rating domain of a rubric question.
type JudgeType string

const (
	JudgeTypeLikert   JudgeType = "likert"   // 1-5
	JudgeTypeBinary   JudgeType = "binary"   // {0, 1}
	JudgeTypeFreeform JudgeType = "freeform" // free text
)

// RubricQuestion is a single evaluation criterion.
type RubricQuestion struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	JudgeType   JudgeType `json:"judge_type"`
}

// Rubric is the ordered set of questions used during annotation.
type Rubric struct {
	ID         string           `json:"id"`
	WorkshopID string           `json:"workshop_id"`
	Questions  []RubricQuestion `json:"questions"`
}
