package request

import "github.com/mcoot/iq180/internal/model"

// AbortGameRequest is the optional request body for aborting the running game
type AbortGameRequest struct {
	Reason model.EndReason `json:"reason,omitempty"`
}
