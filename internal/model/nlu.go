package model

// NLUResponse is the structured result of one detect-intent round trip.
type NLUResponse struct {
	FulfillmentText     string
	FulfillmentMessages []Message
	Action              string
	OutputContexts      []OutputContext
	Parameters          map[string]any
}

type OutputContext struct {
	Name          string         `json:"name"`
	LifespanCount int            `json:"lifespanCount,omitempty"`
	Parameters    map[string]any `json:"parameters,omitempty"`
}

// Param returns the named string parameter, or "" when absent or not a string.
func (r *NLUResponse) Param(name string) string {
	if r == nil || r.Parameters == nil {
		return ""
	}
	s, _ := r.Parameters[name].(string)
	return s
}
