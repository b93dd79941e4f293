package domain

import "time"

// Outcome is the terminal result of a resolution request.
type Outcome string

const (
	OutcomePersisted           Outcome = "persisted"
	OutcomeSourceNotFound      Outcome = "source_not_found"
	OutcomeUnrecognizedURL     Outcome = "unrecognized_url"
	OutcomeUpstreamUnavailable Outcome = "upstream_unavailable"
	OutcomePersistenceFailed   Outcome = "persistence_failed"
)

// State is a step of the per-request state machine.
type State string

const (
	StateSubmitted         State = "submitted"
	StateClassified        State = "classified"
	StateSourceResolved    State = "source_resolved"
	StateSourceNotFound    State = "source_not_found"
	StateCreatorResolved   State = "creator_resolved"
	StateCreatorAbsent     State = "creator_absent"
	StateNormalized        State = "normalized"
	StatePersisted         State = "persisted"
	StatePersistenceFailed State = "persistence_failed"
)

type Resolution struct {
	RequestID string         `json:"request_id"`
	URL       string         `json:"url"`
	Kind      SourceKind     `json:"kind,omitempty"`
	Outcome   Outcome        `json:"outcome"`
	States    []State        `json:"states"`
	Content   *Content       `json:"content,omitempty"`
	Service   *Service       `json:"service,omitempty"`
	Author    *Author        `json:"author,omitempty"`
	Creator   *CreatorResult `json:"creator,omitempty"`
	Degraded  bool           `json:"degraded,omitempty"`
	Duration  time.Duration  `json:"duration"`
}

func (r *Resolution) Advance(s State) {
	r.States = append(r.States, s)
}
