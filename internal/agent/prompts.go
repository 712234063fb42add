package agent

import (
	"github.com/nkoterov/breeze/internal/llm"
	"github.com/nkoterov/breeze/internal/tools"
)

// plannerInstruction narrows the planner call to a single decision: emit the
// forecast tool call when the user is clearly asking about weather, otherwise
// answer nothing. Appended to the base system prompt for planner requests only.
const plannerInstruction = `

You are acting as a tool planner. If — and only if — the user's latest message is asking about weather or forecast conditions, call the getWeather function with the best arguments you can extract. For any other request do not call a function; reply with plain text instead.`

// forecastPreamble is streamed immediately when the planner selects the
// forecast tool, before any network work starts.
const forecastPreamble = "On it — checking the forecast now."

// emptyStreamFallback replaces a fully empty relayed response so the client
// never receives a bare done with no text.
const emptyStreamFallback = "Sorry — I couldn't come up with a response just now. Please try again."

// summaryInstruction frames the model-based outcome summary.
const summaryInstruction = "Summarise the outcome of the tool run below for the user in one to three friendly sentences. Mention what succeeded or what went wrong and, on failure, one thing the user could try differently. Do not invent details that are not in the result."

// weatherToolSchema declares the single planner-visible function.
func weatherToolSchema() llm.Tool {
	return llm.Tool{
		Type: "function",
		Function: llm.ToolFunction{
			Name:        tools.ToolWeather,
			Description: "Look up a weather forecast for a place, either by name or by coordinates.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"location": map[string]any{
						"type":        "string",
						"description": "Place name to geocode, e.g. \"Lisbon\" or \"Kyoto, Japan\".",
					},
					"latitude":  map[string]any{"type": "number"},
					"longitude": map[string]any{"type": "number"},
					"startDate": map[string]any{
						"type":        "string",
						"description": "Window start in YYYY-MM-DD, paired with endDate.",
					},
					"endDate": map[string]any{"type": "string"},
					"days": map[string]any{
						"type":    "integer",
						"minimum": 1,
						"maximum": 16,
					},
					"units": map[string]any{
						"type": "string",
						"enum": []string{"auto", "metric", "imperial"},
					},
				},
				"additionalProperties": false,
			},
		},
	}
}
