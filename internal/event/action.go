package event

import (
	"time"

	id "civreg/pkg/domain"
	dErrors "civreg/pkg/domain-errors"
)

// ActionType tags the kind of fact appended to an event's history.
type ActionType string

const (
	ActionCreate            ActionType = "CREATE"
	ActionNotify            ActionType = "NOTIFY"
	ActionDeclare           ActionType = "DECLARE"
	ActionValidate          ActionType = "VALIDATE"
	ActionRegister          ActionType = "REGISTER"
	ActionReject            ActionType = "REJECT"
	ActionArchive           ActionType = "ARCHIVE"
	ActionReinstate         ActionType = "REINSTATE"
	ActionPrintCertificate  ActionType = "PRINT_CERTIFICATE"
	ActionRequestCorrection ActionType = "REQUEST_CORRECTION"
	ActionApproveCorrection ActionType = "APPROVE_CORRECTION"
	ActionRejectCorrection  ActionType = "REJECT_CORRECTION"
	ActionAssign            ActionType = "ASSIGN"
	ActionUnassign          ActionType = "UNASSIGN"
	ActionDuplicateDetected ActionType = "DUPLICATE_DETECTED"
	ActionNotDuplicate      ActionType = "NOT_DUPLICATE"
)

// ActionStatus distinguishes completed actions from pending requests.
type ActionStatus string

const (
	// StatusAccepted marks a completed action that contributes to derived state.
	StatusAccepted ActionStatus = "accepted"
	// StatusRejected marks an action recorded for audit that was turned down.
	StatusRejected ActionStatus = "rejected"
	// StatusRequested marks a two-phase action awaiting approval, such as a
	// correction request.
	StatusRequested ActionStatus = "requested"
)

// Declaration is the mapping of form field id to value carried by
// declaration-shaped actions. Values come from configured forms the service
// does not interpret beyond storage and overlay.
type Declaration map[string]any

// Clone returns a shallow copy so callers cannot mutate stored declarations.
func (d Declaration) Clone() Declaration {
	if d == nil {
		return nil
	}
	out := make(Declaration, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Action is one immutable fact appended to an event's history. Once appended
// it is never mutated or deleted; corrections are new actions referencing the
// original by RequestID.
type Action struct {
	ID                 id.ActionID
	Type               ActionType
	Status             ActionStatus
	CreatedAt          time.Time
	CreatedBy          id.UserID
	CreatedAtLocation  id.LocationID
	CreatedByUserAgent string
	TransactionID      id.TransactionID

	// Payload fields. Which of these may be set depends on Type; see
	// ValidatePayload. Keeping the union flat keeps storage and JSON plain
	// while the per-type schema check prevents cross-action field confusion.
	Declaration Declaration  // NOTIFY, DECLARE, VALIDATE, REQUEST_CORRECTION, APPROVE_CORRECTION
	AssignedTo  *id.UserID   // ASSIGN
	RequestID   *id.ActionID // APPROVE_CORRECTION, REJECT_CORRECTION
	TemplateID  string       // PRINT_CERTIFICATE
	Reason      string       // REJECT, ARCHIVE, REJECT_CORRECTION
	Duplicates  []id.EventID // DUPLICATE_DETECTED
	NewType     string       // reserved for audited type changes via patch
}

// knownActionTypes gates payload validation and the transition table. Unknown
// types read back from storage are tolerated by the fold but never written.
var knownActionTypes = map[ActionType]bool{
	ActionCreate: true, ActionNotify: true, ActionDeclare: true,
	ActionValidate: true, ActionRegister: true, ActionReject: true,
	ActionArchive: true, ActionReinstate: true, ActionPrintCertificate: true,
	ActionRequestCorrection: true, ActionApproveCorrection: true,
	ActionRejectCorrection: true, ActionAssign: true, ActionUnassign: true,
	ActionDuplicateDetected: true, ActionNotDuplicate: true,
}

// KnownActionType reports whether t is an action type this service writes.
func KnownActionType(t ActionType) bool { return knownActionTypes[t] }

// ValidatePayload enforces the per-type payload schema: required fields must
// be present and fields belonging to other action types must be absent.
func (a Action) ValidatePayload() error {
	if !KnownActionType(a.Type) {
		return dErrors.Newf(dErrors.CodeBadRequest, "unknown action type %q", a.Type)
	}

	requireDeclaration := false
	allowDeclaration := false
	requireAssignee := false
	requireRequestID := false
	requireTemplate := false
	allowDuplicates := false

	switch a.Type {
	case ActionDeclare:
		requireDeclaration = true
	case ActionNotify, ActionValidate, ActionCreate:
		// Incomplete records are the point of NOTIFY; declaration optional.
		// CREATE may carry an initial draft declaration.
		allowDeclaration = true
	case ActionRequestCorrection:
		requireDeclaration = true
	case ActionApproveCorrection:
		requireRequestID = true
		allowDeclaration = true
	case ActionRejectCorrection:
		requireRequestID = true
	case ActionAssign:
		requireAssignee = true
	case ActionPrintCertificate:
		requireTemplate = true
	case ActionDuplicateDetected:
		allowDuplicates = true
	}

	if requireDeclaration && len(a.Declaration) == 0 {
		return dErrors.Newf(dErrors.CodeInvalidInput, "%s requires a declaration", a.Type)
	}
	if !requireDeclaration && !allowDeclaration && len(a.Declaration) > 0 {
		return dErrors.Newf(dErrors.CodeInvalidInput, "%s must not carry a declaration", a.Type)
	}
	if requireAssignee && (a.AssignedTo == nil || a.AssignedTo.IsNil()) {
		return dErrors.New(dErrors.CodeInvalidInput, "ASSIGN requires assignedTo")
	}
	if !requireAssignee && a.AssignedTo != nil {
		return dErrors.Newf(dErrors.CodeInvalidInput, "%s must not carry assignedTo", a.Type)
	}
	if requireRequestID && (a.RequestID == nil || a.RequestID.IsNil()) {
		return dErrors.Newf(dErrors.CodeInvalidInput, "%s requires requestId", a.Type)
	}
	if !requireRequestID && a.RequestID != nil {
		return dErrors.Newf(dErrors.CodeInvalidInput, "%s must not carry requestId", a.Type)
	}
	if requireTemplate && a.TemplateID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "PRINT_CERTIFICATE requires selectedTemplateId")
	}
	if !requireTemplate && a.TemplateID != "" {
		return dErrors.Newf(dErrors.CodeInvalidInput, "%s must not carry selectedTemplateId", a.Type)
	}
	if !allowDuplicates && len(a.Duplicates) > 0 {
		return dErrors.Newf(dErrors.CodeInvalidInput, "%s must not carry duplicate ids", a.Type)
	}
	if allowDuplicates && len(a.Duplicates) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "DUPLICATE_DETECTED requires duplicate event ids")
	}

	return nil
}
