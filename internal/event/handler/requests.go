package handler

import (
	"civreg/internal/event"
	"civreg/internal/event/service"
	id "civreg/pkg/domain"
	dErrors "civreg/pkg/domain-errors"
)

// CreateEventRequest starts a new event of a configured type.
type CreateEventRequest struct {
	Type          string         `json:"type"`
	TransactionID string         `json:"transactionId"`
	Declaration   map[string]any `json:"declaration,omitempty"`
	LocationID    string         `json:"locationId,omitempty"`
}

func (r CreateEventRequest) Validate() error {
	if r.Type == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "type is required")
	}
	if r.TransactionID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "transactionId is required")
	}
	return nil
}

func (r CreateEventRequest) toInput() (service.CreateInput, error) {
	in := service.CreateInput{
		Type:          r.Type,
		TransactionID: id.TransactionID(r.TransactionID),
		Declaration:   event.Declaration(r.Declaration),
	}
	if r.LocationID != "" {
		loc, err := id.ParseLocationID(r.LocationID)
		if err != nil {
			return service.CreateInput{}, err
		}
		in.Location = loc
	}
	return in, nil
}

// PatchEventRequest changes the event's configured type.
type PatchEventRequest struct {
	Type string `json:"type"`
}

func (r PatchEventRequest) Validate() error {
	if r.Type == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "type is required")
	}
	return nil
}

// SubmitActionRequest is the body for every action submission; the action
// type comes from the URL. Which fields are required depends on the type and
// is enforced by the payload schema, not here.
type SubmitActionRequest struct {
	TransactionID string         `json:"transactionId"`
	Declaration   map[string]any `json:"declaration,omitempty"`
	AssignedTo    string         `json:"assignedTo,omitempty"`
	RequestID     string         `json:"requestId,omitempty"`
	TemplateID    string         `json:"selectedTemplateId,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	Duplicates    []string       `json:"duplicateOf,omitempty"`
	LocationID    string         `json:"locationId,omitempty"`
}

func (r SubmitActionRequest) Validate() error {
	if r.TransactionID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "transactionId is required")
	}
	return nil
}

func (r SubmitActionRequest) toInput(actionType event.ActionType) (service.ActionInput, error) {
	in := service.ActionInput{
		Type:          actionType,
		TransactionID: id.TransactionID(r.TransactionID),
		Declaration:   event.Declaration(r.Declaration),
		TemplateID:    r.TemplateID,
		Reason:        r.Reason,
	}
	if r.AssignedTo != "" {
		assignee, err := id.ParseUserID(r.AssignedTo)
		if err != nil {
			return service.ActionInput{}, err
		}
		in.AssignedTo = &assignee
	}
	if r.RequestID != "" {
		reqID, err := id.ParseActionID(r.RequestID)
		if err != nil {
			return service.ActionInput{}, err
		}
		in.RequestID = &reqID
	}
	if r.LocationID != "" {
		loc, err := id.ParseLocationID(r.LocationID)
		if err != nil {
			return service.ActionInput{}, err
		}
		in.Location = loc
	}
	for _, raw := range r.Duplicates {
		dup, err := id.ParseEventID(raw)
		if err != nil {
			return service.ActionInput{}, err
		}
		in.Duplicates = append(in.Duplicates, dup)
	}
	return in, nil
}
