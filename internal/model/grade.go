package model

// GradeInput holds the calculator fields. Weights are percentages.
type GradeInput struct {
	Score1       float64
	Weight1      float64
	Score2       float64
	Weight2      float64
	Target       float64
	FutureWeight float64
}

// GradeProjection is the calculator result. Required is nil when there is no
// future assessment to make up the difference with.
type GradeProjection struct {
	Current  float64  `json:"current"`
	Required *float64 `json:"required"`
}
