package itinerary

import (
	"encoding/json"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI system prompt for itinerary waypoint extraction
const SystemPrompt = `You are a motorbike trip planning assistant. Your task is to extract an ordered list of waypoints (places the rider will pass through or stop at) from free-text itinerary descriptions.

Instructions:
- Extract only real, geocodable place names: towns, villages, passes, lakes, named junctions.
- Preserve the travel order described in the text; number waypoints from 1.
- Do NOT invent stops that are not mentioned.
- Do NOT include vague references ("the next valley", "a small dhaba").
- When a place name is ambiguous, add a short disambiguating context (region, country) from the surrounding text.
- Collapse duplicates: if the rider returns to a place already listed, include it again only when the text clearly describes passing through it a second time.

Return a valid JSON object with a single field:
- waypoints (array) – ordered list of objects:
  - name (string) – the place name exactly as a geocoder would expect it
  - sequence (integer) – 1-based position in travel order
  - context (string, optional) – disambiguating hint, e.g. "Ladakh, India"

Good examples of names: "Leh", "Khardung La", "Pangong Tso", "Kargil"
Bad examples: "our hotel", "the pass after Leh", "somewhere near the lake"`

// ExtractionSchema defines the JSON schema for structured extraction output
var ExtractionSchema = openai.ChatCompletionResponseFormatJSONSchema{
	Name:   "waypoint_extraction",
	Strict: true,
	Schema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"waypoints": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {
						"name": {
							"type": "string",
							"minLength": 1,
							"description": "Geocodable place name"
						},
						"sequence": {
							"type": "integer",
							"minimum": 1,
							"description": "1-based position in travel order"
						},
						"context": {
							"type": "string",
							"description": "Optional disambiguating hint, e.g. region or country"
						}
					},
					"required": ["name", "sequence"],
					"additionalProperties": false
				}
			}
		},
		"required": ["waypoints"],
		"additionalProperties": false
	}`),
}
