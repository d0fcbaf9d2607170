package event

import (
	"slices"

	dErrors "civreg/pkg/domain-errors"
)

// Scope strings checked against the caller's token claims. The auth service
// grants them; this service only compares.
const (
	ScopeNotify   = "record.notify"
	ScopeDeclare  = "record.declare"
	ScopeValidate = "record.validate"
	ScopeRegister = "record.register"
	ScopeReject   = "record.reject"
	ScopeArchive  = "record.archive"
	ScopeCertify  = "record.certify"
	ScopeCorrect  = "record.correct"
	ScopeAssign   = "record.assign"
	ScopeDedupe   = "record.dedupe"
)

// transition declares, for one action type, the statuses it may be applied
// from and the scope the caller must hold. A nil sources list means the
// action is orthogonal to the main lattice and legal from any live status.
type transition struct {
	sources       []Status
	scope         string
	allowArchived bool
}

// transitions is the full legal-transition table. CREATE is absent on
// purpose: it brings an event into existence and is handled by Create, not
// Submit.
var transitions = map[ActionType]transition{
	ActionNotify: {
		sources: []Status{StatusCreated},
		scope:   ScopeNotify,
	},
	ActionDeclare: {
		sources: []Status{StatusCreated, StatusNotified, StatusRequiresUpdates},
		scope:   ScopeDeclare,
	},
	ActionValidate: {
		sources: []Status{StatusDeclared},
		scope:   ScopeValidate,
	},
	ActionRegister: {
		sources: []Status{StatusDeclared, StatusValidated},
		scope:   ScopeRegister,
	},
	ActionReject: {
		sources: []Status{StatusNotified, StatusDeclared, StatusValidated},
		scope:   ScopeReject,
	},
	ActionArchive: {
		sources: []Status{StatusDeclared, StatusValidated, StatusRequiresUpdates},
		scope:   ScopeArchive,
	},
	ActionReinstate: {
		sources:       []Status{StatusArchived},
		scope:         ScopeArchive,
		allowArchived: true,
	},
	ActionPrintCertificate: {
		sources: []Status{StatusRegistered, StatusCertified},
		scope:   ScopeCertify,
	},
	ActionRequestCorrection: {
		sources: []Status{StatusRegistered, StatusCertified},
		scope:   ScopeCorrect,
	},
	ActionApproveCorrection: {
		sources: []Status{StatusRegistered, StatusCertified},
		scope:   ScopeCorrect,
	},
	ActionRejectCorrection: {
		sources: []Status{StatusRegistered, StatusCertified},
		scope:   ScopeCorrect,
	},
	ActionAssign: {
		scope: ScopeAssign,
	},
	ActionUnassign: {
		scope: ScopeAssign,
	},
	ActionDuplicateDetected: {
		sources: []Status{StatusDeclared, StatusValidated, StatusRegistered},
		scope:   ScopeDedupe,
	},
	ActionNotDuplicate: {
		sources: []Status{StatusDeclared, StatusValidated, StatusRegistered},
		scope:   ScopeDedupe,
	},
}

// RequiredScope returns the scope a caller must hold to apply the action
// type. The transport layer uses it for route-level documentation; the
// authoritative check is CanApply.
func RequiredScope(t ActionType) (string, bool) {
	tr, ok := transitions[t]
	return tr.scope, ok
}

// CanApply decides whether the requested action is legal from the current
// derived status and whether the caller's scopes permit it. A missing scope
// is forbidden; an illegal transition is a conflict. Neither is retryable as
// issued — the caller must change something.
func CanApply(current Status, requested ActionType, callerScopes []string) error {
	tr, ok := transitions[requested]
	if !ok {
		return dErrors.Newf(dErrors.CodeBadRequest, "unknown action type %q", requested)
	}

	if !slices.Contains(callerScopes, tr.scope) {
		return dErrors.Newf(dErrors.CodeForbidden, "missing required scope %q", tr.scope)
	}

	if tr.sources == nil {
		// Orthogonal action (assignment): legal unless the record is archived.
		if current == StatusArchived && !tr.allowArchived {
			return dErrors.Newf(dErrors.CodeConflict, "cannot %s an archived record", requested)
		}
		return nil
	}

	if !slices.Contains(tr.sources, current) {
		return dErrors.Newf(dErrors.CodeConflict, "action %s is not legal from status %s", requested, current)
	}

	return nil
}
