package transport

import (
	"encoding/json"

	"github.com/fastygo/taskmarket/domain"
)

// Envelope is the standard API response wrapper used for both success and error payloads.
type Envelope struct {
	Status string      `json:"status"`
	Code   string      `json:"code,omitempty"`
	Data   interface{} `json:"data,omitempty"`
	Error  interface{} `json:"error,omitempty"`
	Meta   interface{} `json:"meta,omitempty"`
}

func NewSuccess(data interface{}, meta interface{}) Envelope {
	return Envelope{
		Status: "success",
		Data:   data,
		Meta:   meta,
	}
}

func NewError(code string, err interface{}, meta interface{}) Envelope {
	return Envelope{
		Status: "error",
		Code:   code,
		Error:  err,
		Meta:   meta,
	}
}

// String returns the JSON representation (best-effort) for logging purposes.
func (e Envelope) String() string {
	out, err := json.Marshal(e)
	if err != nil {
		return "{}"
	}
	return string(out)
}

// Page describes the window a list response covers.
type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Count  int `json:"count"`
}

type SessionResponse struct {
	Session *domain.Session `json:"session"`
	Token   string          `json:"token"`
	Account *domain.Account `json:"account,omitempty"`
}

type MyTasksResponse struct {
	Posted []domain.Task `json:"posted"`
	Taken  []domain.Task `json:"taken"`
}

type DisputeResponse struct {
	Dispute *domain.Dispute `json:"dispute"`
	Task    *domain.Task    `json:"task,omitempty"`
}

type FriendRequestsResponse struct {
	Incoming []domain.FriendRequest `json:"incoming"`
	Outgoing []domain.FriendRequest `json:"outgoing"`
}
