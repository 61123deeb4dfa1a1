package service

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/sakif/studyhub/internal/apperror"
	"github.com/sakif/studyhub/internal/model"
)

const (
	DefaultTarget = 90

	MsgGradeInput = "Input format error: please check the numbers."
)

// Form field names read by ParseGradeForm.
const (
	FieldScore1       = "score1"
	FieldWeight1      = "weight1"
	FieldScore2       = "score2"
	FieldWeight2      = "weight2"
	FieldTarget       = "target"
	FieldFutureWeight = "future_weight"
)

// GradeService projects the score needed on a future exam. It is stateless.
type GradeService struct{}

// NewGradeService returns a GradeService. It holds no state.
func NewGradeService() *GradeService {
	return &GradeService{}
}

// ParseGradeForm reads the calculator fields. A missing field takes its
// default (DefaultTarget for target, 0 otherwise). A field that is present
// but not a finite number is a validation error naming the field, with the
// user-facing MsgGradeInput as its message.
func (s *GradeService) ParseGradeForm(form url.Values) (model.GradeInput, error) {
	in := model.GradeInput{Target: DefaultTarget}

	fields := []struct {
		name string
		dst  *float64
	}{
		{FieldScore1, &in.Score1},
		{FieldWeight1, &in.Weight1},
		{FieldScore2, &in.Score2},
		{FieldWeight2, &in.Weight2},
		{FieldTarget, &in.Target},
		{FieldFutureWeight, &in.FutureWeight},
	}
	for _, f := range fields {
		if !form.Has(f.name) {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(form.Get(f.name)), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return model.GradeInput{}, apperror.ValidationFailed(f.name, MsgGradeInput)
		}
		*f.dst = v
	}
	return in, nil
}

// Project computes the current weighted score and, when a future weight is
// given, the score needed on the future exam to reach the target, clamped
// to [0, 100]. Both values are rounded to 2 decimals.
func (s *GradeService) Project(in model.GradeInput) model.GradeProjection {
	current := in.Score1*(in.Weight1/100) + in.Score2*(in.Weight2/100)

	out := model.GradeProjection{Current: round2(current)}
	if in.FutureWeight == 0 {
		return out
	}

	required := (in.Target - current) / (in.FutureWeight / 100)
	required = round2(math.Max(0, math.Min(100, required)))
	out.Required = &required
	return out
}

// ProjectForm is ParseGradeForm followed by Project.
func (s *GradeService) ProjectForm(form url.Values) (*model.GradeProjection, error) {
	in, err := s.ParseGradeForm(form)
	if err != nil {
		return nil, err
	}
	p := s.Project(in)
	return &p, nil
}

// round2 rounds half away from zero.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatScore renders a projection value for display.
func FormatScore(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
