package review

import (
	"fmt"
	"time"
)

// State of a performance review. APPROVED is terminal; REJECTED re-enters
// FEEDBACK through Rework.
type State string

const (
	StatePending   State = "PENDING"
	StateScheduled State = "SCHEDULED"
	StateFeedback  State = "FEEDBACK"
	StateApproval  State = "APPROVAL"
	StateApproved  State = "APPROVED"
	StateRejected  State = "REJECTED"
)

// RejectionSeparator precedes every rejection note appended to feedback,
// keeping the full rejection history readable in order.
const RejectionSeparator = "\n\n--- REJECTED ---\n"

// InvalidTransitionError reports a transition attempted from the wrong
// source state. The review is left untouched when it is returned.
type InvalidTransitionError struct {
	Op      string
	Current State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s a review in state %s", e.Op, e.Current)
}

// Review is the state machine instance. The state field is unexported:
// outside this package it can only change through the named transition
// methods below, each of which validates its source state and mutates the
// state together with its payload, or not at all.
type Review struct {
	ID         string     `json:"id"`
	EmployeeID string     `json:"employeeId"`
	Feedback   string     `json:"feedback"`
	ReviewDate *time.Time `json:"reviewDate,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`

	state State
}

func (r *Review) State() State {
	return r.state
}

func (r *Review) guard(op string, source State) error {
	if r.state != source {
		return &InvalidTransitionError{Op: op, Current: r.state}
	}
	return nil
}

// Schedule moves PENDING -> SCHEDULED and records the review date.
func (r *Review) Schedule(reviewDate time.Time) error {
	if err := r.guard("schedule", StatePending); err != nil {
		return err
	}
	r.state = StateScheduled
	r.ReviewDate = &reviewDate
	return nil
}

// ProvideFeedback moves SCHEDULED -> FEEDBACK and sets the feedback text.
func (r *Review) ProvideFeedback(feedbackText string) error {
	if err := r.guard("provide feedback for", StateScheduled); err != nil {
		return err
	}
	r.state = StateFeedback
	r.Feedback = feedbackText
	return nil
}

// SubmitForApproval moves FEEDBACK -> APPROVAL.
func (r *Review) SubmitForApproval() error {
	if err := r.guard("submit for approval", StateFeedback); err != nil {
		return err
	}
	r.state = StateApproval
	return nil
}

// Approve moves APPROVAL -> APPROVED. APPROVED is terminal.
func (r *Review) Approve() error {
	if err := r.guard("approve", StateApproval); err != nil {
		return err
	}
	r.state = StateApproved
	return nil
}

// Reject moves APPROVAL -> REJECTED and appends the rejection note to the
// existing feedback after the separator. Prior feedback is never
// overwritten; the rejection trail is an audit requirement.
func (r *Review) Reject(rejectionNote string) error {
	if err := r.guard("reject", StateApproval); err != nil {
		return err
	}
	r.state = StateRejected
	r.Feedback += RejectionSeparator + rejectionNote
	return nil
}

// Rework moves REJECTED -> FEEDBACK and replaces the feedback wholesale.
// Unlike Reject it does not append: reworked feedback supersedes the
// rejected text.
func (r *Review) Rework(updatedFeedback string) error {
	if err := r.guard("rework", StateRejected); err != nil {
		return err
	}
	r.state = StateFeedback
	r.Feedback = updatedFeedback
	return nil
}
