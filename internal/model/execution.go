package model

// OutputKind classifies the post-processed output of a run.
const (
	OutputText      = "text"
	OutputHTML      = "html"
	OutputDataFrame = "dataframe"
)

// ExecResult is the terminal outcome of one run, returned to the client
// after the executor finishes (or after the final pending input resolves).
type ExecResult struct {
	Success         bool   `json:"success"`
	Output          string `json:"output"`
	OutputType      string `json:"outputType"`
	ExecutionTimeMs int64  `json:"executionTime"`
	DurationMinutes int    `json:"durationMinutes"`
	ExitCode        int    `json:"exitCode"`
	Error           string `json:"error,omitempty"`

	// RequiresInput marks an intermediate response: the run is suspended
	// until the client resolves InputPrompt via the input endpoint.
	RequiresInput bool   `json:"requiresInput,omitempty"`
	InputPrompt   string `json:"inputPrompt,omitempty"`
}

// AwaitingInput builds the intermediate response for an unresolved prompt.
func AwaitingInput(prompt string) *ExecResult {
	return &ExecResult{Success: true, RequiresInput: true, InputPrompt: prompt}
}

// UsageSummary is the API-facing daily quota shape.
type UsageSummary struct {
	UserID           string `json:"userId"`
	Date             string `json:"date"`
	UsedMinutes      int    `json:"usedMinutes"`
	QuotaMinutes     int    `json:"quotaMinutes"`
	RemainingMinutes int    `json:"remainingMinutes"`
}

// UserUsage is one row of the admin all-users usage report.
type UserUsage struct {
	UserID           string `json:"userId"`
	Email            string `json:"email"`
	Role             string `json:"role"`
	Date             string `json:"date"`
	UsedMinutes      int    `json:"usedMinutes"`
	QuotaMinutes     int    `json:"quotaMinutes"`
	RemainingMinutes int    `json:"remainingMinutes"`
}
