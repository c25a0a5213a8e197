package planning

import (
	"math"

	"roamfree/internal/models"
)

// GenerateInput asks for a new route. Radius is in meters and TimeLimit in
// minutes; callers convert from form units before calling.
type GenerateInput struct {
	Prompt          string             `json:"prompt" validate:"required"`
	Radius          float64            `json:"radius" validate:"gt=0"`
	TimeLimit       float64            `json:"timeLimit" validate:"gt=0"`
	CurrentLocation models.Coordinates `json:"currentLocation"`
}

// GenerateOutput is a route as returned by the model. The caller assigns the ID.
type GenerateOutput struct {
	RouteDescription   string                 `json:"routeDescription"`
	Locations          []models.RouteLocation `json:"locations"`
	TotalEstimatedTime int                    `json:"totalEstimatedTime"`
}

// ToRoute attaches an identity to the output.
func (o *GenerateOutput) ToRoute(id string) models.GeneratedRoute {
	route := models.GeneratedRoute{
		ID:                 id,
		RouteDescription:   o.RouteDescription,
		Locations:          o.Locations,
		TotalEstimatedTime: o.TotalEstimatedTime,
	}
	return *route.Clone()
}

// SummarizeInput asks for a narrative summary of a route.
// EstimatedDistance is optional; leave it empty when no distance is known.
type SummarizeInput struct {
	RouteDescription      string `json:"routeDescription" validate:"required"`
	EstimatedTime         string `json:"estimatedTime" validate:"required"`
	EstimatedDistance     string `json:"estimatedDistance,omitempty"`
	AttractionPreferences string `json:"attractionPreferences"`
}

// AdjustInput asks for alternative routes given current conditions. Radius is in meters.
type AdjustInput struct {
	CurrentRoute      string  `json:"currentRoute" validate:"required"`
	TrafficConditions string  `json:"trafficConditions" validate:"required"`
	TimeConstraints   string  `json:"timeConstraints" validate:"required"`
	Radius            float64 `json:"radius" validate:"gt=0"`
}

// The wire types below mirror the output schemas with pointer fields so a
// missing field can be told apart from a zero value.

type locationWire struct {
	Name        *string  `json:"name" validate:"required"`
	Latitude    *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude   *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Description *string  `json:"description" validate:"required"`
}

type generateWire struct {
	RouteDescription   *string        `json:"routeDescription" validate:"required"`
	Locations          []locationWire `json:"locations" validate:"required,dive"`
	TotalEstimatedTime *float64       `json:"totalEstimatedTime" validate:"required,gte=0,lte=100000"`
}

func (w *generateWire) output() *GenerateOutput {
	out := &GenerateOutput{
		RouteDescription:   *w.RouteDescription,
		Locations:          make([]models.RouteLocation, 0, len(w.Locations)),
		TotalEstimatedTime: int(math.Round(*w.TotalEstimatedTime)),
	}
	for _, loc := range w.Locations {
		out.Locations = append(out.Locations, models.RouteLocation{
			Name:        *loc.Name,
			Latitude:    *loc.Latitude,
			Longitude:   *loc.Longitude,
			Description: *loc.Description,
		})
	}
	return out
}

type summarizeWire struct {
	Summary *string `json:"summary" validate:"required"`
}

func (w *summarizeWire) output() *models.RouteSummary {
	return &models.RouteSummary{Summary: *w.Summary}
}

type adjustWire struct {
	AlternativeRoutes     []string `json:"alternativeRoutes" validate:"required"`
	EstimatedArrivalTimes []string `json:"estimatedArrivalTimes" validate:"required"`
	ReasonsForSuggestion  []string `json:"reasonsForSuggestion" validate:"required"`
}

func (w *adjustWire) output() *models.RouteAdjustment {
	return &models.RouteAdjustment{
		AlternativeRoutes:     w.AlternativeRoutes,
		EstimatedArrivalTimes: w.EstimatedArrivalTimes,
		ReasonsForSuggestion:  w.ReasonsForSuggestion,
	}
}
