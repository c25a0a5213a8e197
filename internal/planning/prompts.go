package planning

import (
	"bytes"
	"fmt"
	"text/template"
)

// The three prompts only interpolate fields. Anything optional is resolved
// into plain text before rendering.

var generateTemplate = template.Must(template.New("generate").Parse(
	`You are an expert route planner. Generate an exploration route based on the user's current location, the search radius, the time limit, and their request.

Current Location: Latitude {{.CurrentLocation.Lat}}, Longitude {{.CurrentLocation.Lng}}
Radius: {{.Radius}} meters
Time Limit: {{.TimeLimit}} minutes
Request: {{.Prompt}}

Return the list of locations to visit in order (name, latitude, longitude, description), a high-level description of the route, and the estimated total travel time in minutes.

Respond with a single JSON object and nothing else:
{"routeDescription": string, "locations": [{"name": string, "latitude": number, "longitude": number, "description": string}], "totalEstimatedTime": number}
`))

var summarizeTemplate = template.Must(template.New("summarize").Parse(
	`You are an expert travel assistant. Summarize the following route for a traveller in a few friendly sentences, highlighting what matches their interests.

Route Description: {{.RouteDescription}}
Estimated Time: {{.EstimatedTime}}
Estimated Distance: {{.EstimatedDistance}}
Attraction Preferences: {{.AttractionPreferences}}

Respond with a single JSON object and nothing else:
{"summary": string}
`))

var adjustTemplate = template.Must(template.New("adjust").Parse(
	`You are a route optimization expert. Suggest alternative routes for the current route given the traffic conditions and time constraints, staying within the radius.

Current Route: {{.CurrentRoute}}
Traffic Conditions: {{.TrafficConditions}}
Time Constraints: {{.TimeConstraints}}
Radius: {{.Radius}} meters

For each alternative give the route, the estimated arrival time, and the reason for the suggestion. The three lists must be in the same order.

Respond with a single JSON object and nothing else:
{"alternativeRoutes": [string], "estimatedArrivalTimes": [string], "reasonsForSuggestion": [string]}
`))

// distanceUnavailable is what the summarize prompt shows when no distance was supplied.
const distanceUnavailable = "not available"

type summarizePromptData struct {
	SummarizeInput
}

func newSummarizePromptData(in SummarizeInput) summarizePromptData {
	if in.EstimatedDistance == "" {
		in.EstimatedDistance = distanceUnavailable
	}
	if in.AttractionPreferences == "" {
		in.AttractionPreferences = "none specified"
	}
	return summarizePromptData{SummarizeInput: in}
}

func render(tmpl *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
