package event

import (
	"time"

	id "civreg/pkg/domain"
)

// Status is the derived position of an event in the registration lifecycle.
// It is never stored; it is recomputed from the action log on every read so
// it cannot diverge from the facts.
type Status string

const (
	StatusCreated         Status = "CREATED"
	StatusNotified        Status = "NOTIFIED"
	StatusDeclared        Status = "DECLARED"
	StatusValidated       Status = "VALIDATED"
	StatusRegistered      Status = "REGISTERED"
	StatusCertified       Status = "CERTIFIED"
	StatusRequiresUpdates Status = "REQUIRES_UPDATES"
	StatusArchived        Status = "ARCHIVED"
)

// statusRank orders the main lattice so a replayed out-of-order legacy action
// cannot downgrade the derived status. Side statuses (REQUIRES_UPDATES,
// ARCHIVED) are handled explicitly in the fold.
var statusRank = map[Status]int{
	StatusCreated:    1,
	StatusNotified:   2,
	StatusDeclared:   3,
	StatusValidated:  4,
	StatusRegistered: 5,
	StatusCertified:  6,
}

// statusEffect maps accepted action types onto the main lattice.
var statusEffect = map[ActionType]Status{
	ActionCreate:           StatusCreated,
	ActionNotify:           StatusNotified,
	ActionDeclare:          StatusDeclared,
	ActionValidate:         StatusValidated,
	ActionRegister:         StatusRegistered,
	ActionPrintCertificate: StatusCertified,
}

// Snapshot is the reconstructed current-state view of an event, derived by
// folding its ordered action list.
type Snapshot struct {
	ID         id.EventID
	Type       string
	TrackingID string
	Status     Status

	// Declaration overlays every accepted declaration-shaped action in order,
	// so approved corrections shadow originally declared values.
	Declaration Declaration

	AssignedTo        *id.UserID
	CreatedAt         time.Time
	CreatedBy         id.UserID
	UpdatedAt         time.Time
	UpdatedAtLocation id.LocationID

	// PotentialDuplicateOf is non-empty while the event is flagged against
	// other events and no NOT_DUPLICATE ruling has cleared it.
	PotentialDuplicateOf []id.EventID

	// OpenCorrections holds correction requests awaiting approval or
	// rejection, keyed by the requesting action's id.
	OpenCorrections map[id.ActionID]Declaration

	// LastActionType is the type of the final action in the log, useful for
	// audit displays.
	LastActionType ActionType
}

// Derive folds an ordered action list into a Snapshot. It is a pure, total
// function over any prefix of a valid log, which is what makes point-in-time
// reconstruction possible. Unknown or legacy action shapes are skipped rather
// than rejected; payload schemas evolve and old rows must keep replaying.
func Derive(actions []Action) Snapshot {
	snap := Snapshot{
		Declaration:     Declaration{},
		OpenCorrections: map[id.ActionID]Declaration{},
	}

	// preArchive remembers the lattice position so REINSTATE can restore it.
	var preArchive Status

	for i, a := range actions {
		if i == 0 {
			snap.CreatedAt = a.CreatedAt
			snap.CreatedBy = a.CreatedBy
		}
		snap.UpdatedAt = a.CreatedAt
		snap.LastActionType = a.Type

		if a.Status == StatusRejected {
			continue
		}

		if a.Status == StatusRequested {
			if a.Type == ActionRequestCorrection {
				snap.OpenCorrections[a.ID] = a.Declaration.Clone()
			}
			continue
		}

		// Accepted actions from here on.
		snap.UpdatedAtLocation = a.CreatedAtLocation

		switch a.Type {
		case ActionAssign:
			if a.AssignedTo != nil {
				assignee := *a.AssignedTo
				snap.AssignedTo = &assignee
			}
			continue
		case ActionUnassign:
			snap.AssignedTo = nil
			continue
		case ActionDuplicateDetected:
			snap.PotentialDuplicateOf = append([]id.EventID(nil), a.Duplicates...)
			continue
		case ActionNotDuplicate:
			snap.PotentialDuplicateOf = nil
			continue
		case ActionReject:
			snap.Status = StatusRequiresUpdates
			continue
		case ActionArchive:
			if snap.Status != StatusArchived {
				preArchive = snap.Status
			}
			snap.Status = StatusArchived
			continue
		case ActionReinstate:
			if snap.Status == StatusArchived {
				snap.Status = preArchive
			}
			continue
		case ActionApproveCorrection, ActionRejectCorrection:
			if a.RequestID != nil {
				delete(snap.OpenCorrections, *a.RequestID)
			}
			if a.Type == ActionApproveCorrection {
				overlay(snap.Declaration, a.Declaration)
			}
			continue
		}

		if len(a.Declaration) > 0 {
			overlay(snap.Declaration, a.Declaration)
		}

		next, ok := statusEffect[a.Type]
		if !ok {
			// Unknown/legacy action type: tolerated, contributes nothing.
			continue
		}
		if snap.Status == StatusRequiresUpdates || snap.Status == StatusArchived {
			// Resubmission or post-archive activity re-enters the lattice at
			// the action's own position.
			snap.Status = next
			continue
		}
		if statusRank[next] > statusRank[snap.Status] {
			snap.Status = next
		}
	}

	return snap
}

// DeriveAt replays only the actions recorded up to and including t, giving
// the audit view of the event as of that instant.
func DeriveAt(actions []Action, t time.Time) Snapshot {
	cut := 0
	for i, a := range actions {
		if a.CreatedAt.After(t) {
			break
		}
		cut = i + 1
	}
	return Derive(actions[:cut])
}

func overlay(dst, src Declaration) {
	for k, v := range src {
		dst[k] = v
	}
}
