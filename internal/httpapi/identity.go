package httpapi

import "net/http"

// Identity carries the caller-provided provenance headers spec.md §6
// names. No authorization decision is made from them; userID flows into
// segment/document metadata the same way the orchestrator stamps
// user_id on every segment.
type Identity struct {
	AppID              string
	UserID             string
	TeamID              string
	WorkflowID          string
	WorkflowInstanceID string
}

func identityFromRequest(r *http.Request) Identity {
	return Identity{
		AppID:              r.Header.Get("x-monkeys-appid"),
		UserID:             r.Header.Get("x-monkeys-userid"),
		TeamID:             r.Header.Get("x-monkeys-teamid"),
		WorkflowID:         r.Header.Get("x-monkeys-workflowid"),
		WorkflowInstanceID: r.Header.Get("x-monkeys-workflow-instanceid"),
	}
}
