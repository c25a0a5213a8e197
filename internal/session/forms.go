package session

import (
	"strings"

	"roamfree/internal/models"
	"roamfree/internal/planning"
	"roamfree/internal/validation"
)

// GenerateForm is what the user submits to plan a route.
// Radius is in kilometers and TimeLimit in hours.
type GenerateForm struct {
	Prompt      string                        `json:"prompt" validate:"min=10"`
	Radius      float64                       `json:"radius" validate:"gte=0.5,lte=10"`
	TimeLimit   float64                       `json:"timeLimit" validate:"gte=0.5,lte=6"`
	Preferences []models.AttractionPreference `json:"preferences" validate:"dive,oneof=monuments malls parks restaurants museums cafes historical_sites"`
}

// DefaultGenerateForm holds the values the form starts with
var DefaultGenerateForm = GenerateForm{Radius: 2, TimeLimit: 2}

// Validate trims the prompt and checks every field.
func (f *GenerateForm) Validate() error {
	f.Prompt = strings.TrimSpace(f.Prompt)
	return validation.Struct(f)
}

// ComposedPrompt appends the selected interests to the free-text prompt.
func (f *GenerateForm) ComposedPrompt() string {
	if len(f.Preferences) == 0 {
		return f.Prompt
	}
	return f.Prompt + " User is interested in: " + models.JoinPreferenceLabels(f.Preferences) + "."
}

// Input converts form units to the planning service's meters and minutes.
func (f *GenerateForm) Input(start models.Coordinates) planning.GenerateInput {
	return planning.GenerateInput{
		Prompt:          f.ComposedPrompt(),
		Radius:          f.Radius * 1000,
		TimeLimit:       f.TimeLimit * 60,
		CurrentLocation: start,
	}
}

// AdjustForm describes the conditions a route should be adjusted for.
type AdjustForm struct {
	TrafficConditions string `json:"trafficConditions" validate:"min=5"`
	TimeConstraints   string `json:"timeConstraints" validate:"min=5"`
}

// Validate trims and checks both fields.
func (f *AdjustForm) Validate() error {
	f.TrafficConditions = strings.TrimSpace(f.TrafficConditions)
	f.TimeConstraints = strings.TrimSpace(f.TimeConstraints)
	return validation.Struct(f)
}

// adjustRadius is wider when the route has concrete stops to detour from.
func adjustRadius(route *models.GeneratedRoute) float64 {
	if len(route.Locations) > 0 {
		return 5000
	}
	return 2000
}
