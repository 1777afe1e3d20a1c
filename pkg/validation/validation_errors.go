package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldLabels maps struct field names to user-friendly labels
var FieldLabels = map[string]string{
	// Interview fields
	"ApplicationID":   "Application",
	"InterviewerID":   "Interviewer",
	"ScheduledAt":     "Scheduled time",
	"DurationMinutes": "Duration (minutes)",
	"Type":            "Interview type",
	"MeetingLink":     "Meeting link",
	"Reason":          "Reason",

	// Feedback fields
	"Rating":         "Rating",
	"Recommendation": "Recommendation",
	"Strengths":      "Strengths",
	"Weaknesses":     "Weaknesses",
	"Comments":       "Comments",

	// Slot fields
	"DayOfWeek":            "Day of week",
	"StartTime":            "Start time",
	"EndTime":              "End time",
	"Timezone":             "Timezone",
	"EffectiveFrom":        "Effective from",
	"EffectiveUntil":       "Effective until",
	"MaxInterviewsPerSlot": "Max interviews per slot",
}

// FirstField returns the struct field name of the first validation failure,
// or "" when err is not a validator error.
func FirstField(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		return toSnake(validationErrors[0].Field())
	}
	return ""
}

// FormatValidationErrors converts validator.ValidationErrors to user-friendly messages
func FormatValidationErrors(err error) []string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []string{err.Error()}
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		messages = append(messages, formatSingleError(e))
	}
	return messages
}

// formatSingleError formats a single validation error to a user-friendly message
func formatSingleError(e validator.FieldError) string {
	label := getFieldLabel(e.Field())
	param := e.Param()

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s: is required", label)
	case "min", "gte":
		if e.Kind().String() == "string" {
			return fmt.Sprintf("%s: must be at least %s characters", label, param)
		}
		return fmt.Sprintf("%s: must be at least %s", label, param)
	case "max", "lte":
		if e.Kind().String() == "string" {
			return fmt.Sprintf("%s: must be at most %s characters", label, param)
		}
		return fmt.Sprintf("%s: must be at most %s", label, param)
	case "gt":
		return fmt.Sprintf("%s: must be greater than %s", label, param)
	case "oneof":
		return fmt.Sprintf("%s: must be one of: %s", label, strings.ReplaceAll(param, " ", ", "))
	case "url":
		return fmt.Sprintf("%s: invalid URL", label)
	case "clock":
		return fmt.Sprintf("%s: must be a time of day in HH:MM format", label)
	case "timezone":
		return fmt.Sprintf("%s: unknown IANA timezone", label)
	default:
		return fmt.Sprintf("%s: failed validation (%s)", label, e.Tag())
	}
}

// getFieldLabel returns the user-friendly label for a field
func getFieldLabel(fieldName string) string {
	if label, ok := FieldLabels[fieldName]; ok {
		return label
	}
	return formatCamelCase(fieldName)
}

// formatCamelCase converts CamelCase to spaced words
func formatCamelCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune(' ')
		}
		result.WriteRune(r)
	}
	return result.String()
}

// toSnake converts CamelCase field names to the json field names used in requests
func toSnake(s string) string {
	var result strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && !(s[i-1] >= 'A' && s[i-1] <= 'Z') {
				result.WriteRune('_')
			}
			r += 'a' - 'A'
		}
		result.WriteRune(r)
	}
	return result.String()
}
