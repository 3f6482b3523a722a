// internal/predictor/grades.go
package predictor

// Two rating-to-grade tables live in this file on purpose. GradeForRating is
// the coarse table attached to predictions; DisplayGrade is the finer table
// used for presentation. Their breakpoints differ for the same letters and
// they must stay independent.

// GradeForRating maps a predicted rating to its letter grade.
func GradeForRating(rating float64) string {
	switch {
	case rating >= 4.5:
		return "A+"
	case rating >= 4.2:
		return "A"
	case rating >= 3.8:
		return "A-"
	case rating >= 3.5:
		return "B+"
	case rating >= 3.2:
		return "B"
	case rating >= 2.8:
		return "B-"
	case rating >= 2.5:
		return "C+"
	case rating >= 2.0:
		return "C"
	case rating >= 1.5:
		return "C-"
	default:
		return "D"
	}
}

// DisplayGrade maps a rating to the finer display scale, down to F.
func DisplayGrade(rating float64) string {
	switch {
	case rating >= 4.6:
		return "A+"
	case rating >= 4.4:
		return "A"
	case rating >= 4.2:
		return "A-"
	case rating >= 4.0:
		return "B+"
	case rating >= 3.8:
		return "B"
	case rating >= 3.6:
		return "B-"
	case rating >= 3.4:
		return "C+"
	case rating >= 3.2:
		return "C"
	case rating >= 3.0:
		return "C-"
	case rating >= 2.5:
		return "D"
	default:
		return "F"
	}
}

// GradeColor returns the hex color used when rendering a display grade.
// Unknown grades fall back to neutral gray.
func GradeColor(grade string) string {
	switch grade {
	case "A+", "A":
		return "#00a86b"
	case "A-":
		return "#228b22"
	case "B+":
		return "#32cd32"
	case "B":
		return "#9acd32"
	case "B-":
		return "#ffff00"
	case "C+":
		return "#ffa500"
	case "C":
		return "#ff8c00"
	case "C-":
		return "#ff6347"
	case "D":
		return "#dc143c"
	case "F":
		return "#8b0000"
	default:
		return "#666666"
	}
}

// GradeGPA returns the grade-point value for a display grade.
func GradeGPA(grade string) float64 {
	switch grade {
	case "A+", "A":
		return 4.0
	case "A-":
		return 3.7
	case "B+":
		return 3.3
	case "B":
		return 3.0
	case "B-":
		return 2.7
	case "C+":
		return 2.3
	case "C":
		return 2.0
	case "C-":
		return 1.7
	case "D":
		return 1.0
	default:
		return 0.0
	}
}

// GradeDescription returns a short human label for a display grade.
func GradeDescription(grade string) string {
	switch grade {
	case "A+":
		return "Exceptional"
	case "A":
		return "Excellent"
	case "A-":
		return "Very Good"
	case "B+":
		return "Good"
	case "B":
		return "Above Average"
	case "B-":
		return "Slightly Above Average"
	case "C+":
		return "Average"
	case "C":
		return "Below Average"
	case "C-":
		return "Fair"
	case "D":
		return "Poor"
	default:
		return "Failing"
	}
}

// NormalizeRating scales a 1..5 rating into 0..1 for model features.
func NormalizeRating(rating float64) float64 {
	if rating < 1.0 {
		rating = 1.0
	}
	if rating > 5.0 {
		rating = 5.0
	}
	return (rating - 1.0) / 4.0
}

// DenormalizeRating is the inverse of NormalizeRating.
func DenormalizeRating(normalized float64) float64 {
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}
	return normalized*4.0 + 1.0
}
