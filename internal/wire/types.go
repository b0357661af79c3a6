package wire

import "encoding/json"

// Version is the payload format version
const Version = "1"

// Call is one function invocation inside a payload
type Call struct {
	Function string          `json:"fn"`
	Args     json.RawMessage `json:"args,omitempty"`
	Kwargs   json.RawMessage `json:"kwargs,omitempty"`
}

// Batch is the payload a job's worker executes, calls in order
type Batch struct {
	Version string `json:"version"`
	ID      string `json:"id"`
	Calls   []Call `json:"calls"`
}
