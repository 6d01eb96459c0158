package models

// LetterGrade is a letter grade recorded on an enrollment.
type LetterGrade string

// Recognised letter grades.
const (
	GradeAPlus      LetterGrade = "A+"
	GradeA          LetterGrade = "A"
	GradeAMinus     LetterGrade = "A-"
	GradeBPlus      LetterGrade = "B+"
	GradeB          LetterGrade = "B"
	GradeBMinus     LetterGrade = "B-"
	GradeCPlus      LetterGrade = "C+"
	GradeC          LetterGrade = "C"
	GradeCMinus     LetterGrade = "C-"
	GradeDPlus      LetterGrade = "D+"
	GradeD          LetterGrade = "D"
	GradeF          LetterGrade = "F"
	GradeIncomplete LetterGrade = "I"
	GradeWithdraw   LetterGrade = "W"
)

// gradePoints is the fixed 4.0-scale point table. Incomplete and
// Withdraw carry no points and are excluded from GPA computation.
var gradePoints = map[LetterGrade]float64{
	GradeAPlus:  4.0,
	GradeA:      4.0,
	GradeAMinus: 3.7,
	GradeBPlus:  3.3,
	GradeB:      3.0,
	GradeBMinus: 2.7,
	GradeCPlus:  2.3,
	GradeC:      2.0,
	GradeCMinus: 1.7,
	GradeDPlus:  1.3,
	GradeD:      1.0,
	GradeF:      0.0,
}

// Valid reports whether the letter is an accepted grade value.
func (g LetterGrade) Valid() bool {
	if g == GradeIncomplete || g == GradeWithdraw {
		return true
	}
	_, ok := gradePoints[g]
	return ok
}

// Points returns the grade-point value and whether the grade counts
// toward GPA.
func (g LetterGrade) Points() (float64, bool) {
	points, ok := gradePoints[g]
	return points, ok
}

// Passing reports whether the grade satisfies a prerequisite. Any
// graded letter above 0.0 points qualifies; F, I and W do not.
func (g LetterGrade) Passing() bool {
	points, ok := gradePoints[g]
	return ok && points > 0
}
