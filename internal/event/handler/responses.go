package handler

import (
	"time"

	"civreg/internal/event"
)

// ActionResponse is one log entry as returned to callers.
type ActionResponse struct {
	ID                 string         `json:"id"`
	Type               string         `json:"type"`
	Status             string         `json:"status"`
	CreatedAt          time.Time      `json:"createdAt"`
	CreatedBy          string         `json:"createdBy"`
	CreatedAtLocation  string         `json:"createdAtLocation,omitempty"`
	CreatedByUserAgent string         `json:"createdByUserAgent,omitempty"`
	TransactionID      string         `json:"transactionId"`
	Declaration        map[string]any `json:"declaration,omitempty"`
	AssignedTo         string         `json:"assignedTo,omitempty"`
	RequestID          string         `json:"requestId,omitempty"`
	TemplateID         string         `json:"selectedTemplateId,omitempty"`
	Reason             string         `json:"reason,omitempty"`
	Duplicates         []string       `json:"duplicateOf,omitempty"`
}

// EventResponse is the event with its full log and the state derived from it.
// Status and the aggregated declaration are computed per response, never read
// from storage.
type EventResponse struct {
	ID                   string           `json:"id"`
	Type                 string           `json:"type"`
	TrackingID           string           `json:"trackingId"`
	Status               string           `json:"status"`
	Declaration          map[string]any   `json:"declaration"`
	AssignedTo           string           `json:"assignedTo,omitempty"`
	PotentialDuplicateOf []string         `json:"potentialDuplicateOf,omitempty"`
	CreatedAt            time.Time        `json:"createdAt"`
	UpdatedAt            time.Time        `json:"updatedAt"`
	Actions              []ActionResponse `json:"actions"`
}

func newEventResponse(ev *event.Event) EventResponse {
	snap := ev.Snapshot()

	resp := EventResponse{
		ID:          ev.ID.String(),
		Type:        ev.Type,
		TrackingID:  ev.TrackingID,
		Status:      string(snap.Status),
		Declaration: snap.Declaration,
		CreatedAt:   ev.CreatedAt,
		UpdatedAt:   ev.UpdatedAt,
		Actions:     make([]ActionResponse, 0, len(ev.Actions)),
	}
	if snap.AssignedTo != nil {
		resp.AssignedTo = snap.AssignedTo.String()
	}
	for _, dup := range snap.PotentialDuplicateOf {
		resp.PotentialDuplicateOf = append(resp.PotentialDuplicateOf, dup.String())
	}
	for _, a := range ev.Actions {
		resp.Actions = append(resp.Actions, newActionResponse(a))
	}
	return resp
}

func newActionResponse(a event.Action) ActionResponse {
	resp := ActionResponse{
		ID:                 a.ID.String(),
		Type:               string(a.Type),
		Status:             string(a.Status),
		CreatedAt:          a.CreatedAt,
		CreatedBy:          a.CreatedBy.String(),
		CreatedByUserAgent: a.CreatedByUserAgent,
		TransactionID:      a.TransactionID.String(),
		Declaration:        a.Declaration,
		TemplateID:         a.TemplateID,
		Reason:             a.Reason,
	}
	if !a.CreatedAtLocation.IsNil() {
		resp.CreatedAtLocation = a.CreatedAtLocation.String()
	}
	if a.AssignedTo != nil {
		resp.AssignedTo = a.AssignedTo.String()
	}
	if a.RequestID != nil {
		resp.RequestID = a.RequestID.String()
	}
	for _, dup := range a.Duplicates {
		resp.Duplicates = append(resp.Duplicates, dup.String())
	}
	return resp
}

// ReindexResponse reports how many events were pushed to the search index.
type ReindexResponse struct {
	Indexed int `json:"indexed"`
}
