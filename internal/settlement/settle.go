package settlement

// Overall settlement statuses.
const (
	StatusComplete = "complete"
	StatusPartial  = "partial"
)

// Counts rolls up graded rows by result.
type Counts struct {
	Total      int `json:"total"`
	Win        int `json:"win"`
	Loss       int `json:"loss"`
	Push       int `json:"push"`
	Pending    int `json:"pending"`
	Unresolved int `json:"unresolved"`
}

// Outcome is the result of one settlement pass.
type Outcome struct {
	Status   string    `json:"status"`
	ExitCode int       `json:"exit_code"`
	Counts   Counts    `json:"counts"`
	Rows     []SeedRow `json:"rows"`
	Errors   []string  `json:"errors,omitempty"`
}

// SettleRows grades every seed row against the results payload and rolls up
// counts. The run is complete only when nothing is pending or unresolved;
// a partial run reports exit code 1 so schedulers retry later.
func SettleRows(rows []SeedRow, payload *ResultsPayload) Outcome {
	index := NewGameIndex(payload)
	out := Outcome{Rows: make([]SeedRow, 0, len(rows))}
	if payload != nil {
		out.Errors = append(out.Errors, payload.Errors...)
	}
	for _, row := range rows {
		graded := GradeRow(row, index)
		out.Rows = append(out.Rows, graded)
		out.Counts.Total++
		switch graded.Result {
		case ResultWin:
			out.Counts.Win++
		case ResultLoss:
			out.Counts.Loss++
		case ResultPush:
			out.Counts.Push++
		case ResultPending:
			out.Counts.Pending++
		default:
			out.Counts.Unresolved++
		}
	}
	if out.Counts.Pending == 0 && out.Counts.Unresolved == 0 {
		out.Status = StatusComplete
		out.ExitCode = 0
	} else {
		out.Status = StatusPartial
		out.ExitCode = 1
	}
	return out
}
