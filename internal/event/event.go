// Package event carries the records emitted after each committed allocation
// or request transition, and the sinks that consume them.
//
// Delivery is fire-and-forget. A failing sink is logged and never reaches
// the caller, so emission can not undo a committed write.
package event

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Kind event kind
type Kind string

const (
	KindLogin                 Kind = "login"
	KindLogout                Kind = "logout"
	KindPasswordChange        Kind = "password_change"
	KindUserCreate            Kind = "user_create"
	KindUserUpdate            Kind = "user_update"
	KindUserDelete            Kind = "user_delete"
	KindDataImport            Kind = "data_import"
	KindBuildingCreate        Kind = "building_create"
	KindBuildingUpdate        Kind = "building_update"
	KindBuildingDelete        Kind = "building_delete"
	KindRoomCreate            Kind = "room_create"
	KindRoomUpdate            Kind = "room_update"
	KindRoomDelete            Kind = "room_delete"
	KindServiceUnitCreate     Kind = "service_unit_create"
	KindServiceUnitUpdate     Kind = "service_unit_update"
	KindServiceUnitDelete     Kind = "service_unit_delete"
	KindAllocationCreated     Kind = "allocation_created"
	KindAllocationDeactivated Kind = "allocation_deactivated"
	KindAllocationReactivated Kind = "allocation_reactivated"
	KindRequestSubmitted      Kind = "request_submitted"
	KindRequestApproved       Kind = "request_approved"
	KindRequestRejected       Kind = "request_rejected"
	KindRequestCancelled      Kind = "request_cancelled"
)

// Subject keys used in Event.SubjectIDs
const (
	SubjectAllocation  = "allocation"
	SubjectRequest     = "allocation_request"
	SubjectBuilding    = "building"
	SubjectRoom        = "room"
	SubjectUser        = "user"
	SubjectServiceUnit = "service_unit"
	SubjectRequester   = "requester"
	SubjectSuperseded  = "superseded"
)

// Event {kind, actorId, subjectIds, timestamp}. Error is non-empty when the
// event records a failed attempt, such as a rejected login.
type Event struct {
	Kind       Kind              `json:"kind"`
	ActorID    string            `json:"actor_id"`
	SubjectIDs map[string]string `json:"subject_ids"`
	Timestamp  time.Time         `json:"timestamp"`
	Metadata   map[string]any    `json:"metadata,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// Failed reports whether the event records a failed attempt
func (e Event) Failed() bool { return e.Error != "" }

// Resource the primary subject: the request for request events, the
// allocation for allocation events, the managed entity for admin events,
// the actor otherwise.
func (e Event) Resource() (string, string) {
	switch e.Kind {
	case KindUserCreate, KindUserUpdate, KindUserDelete:
		return SubjectUser, e.SubjectIDs[SubjectUser]
	case KindBuildingCreate, KindBuildingUpdate, KindBuildingDelete:
		return SubjectBuilding, e.SubjectIDs[SubjectBuilding]
	case KindRoomCreate, KindRoomUpdate, KindRoomDelete:
		return SubjectRoom, e.SubjectIDs[SubjectRoom]
	case KindServiceUnitCreate, KindServiceUnitUpdate, KindServiceUnitDelete:
		return SubjectServiceUnit, e.SubjectIDs[SubjectServiceUnit]
	case KindRequestSubmitted, KindRequestApproved, KindRequestRejected, KindRequestCancelled:
		return SubjectRequest, e.SubjectIDs[SubjectRequest]
	case KindAllocationCreated, KindAllocationDeactivated, KindAllocationReactivated:
		return SubjectAllocation, e.SubjectIDs[SubjectAllocation]
	}
	return SubjectUser, e.ActorID
}

// Sink consumes events
type Sink interface {
	Name() string
	Handle(ctx context.Context, e Event) error
}

// Emitter is what services depend on
type Emitter interface {
	Emit(ctx context.Context, e Event)
}

// Nop discards every event
type Nop struct{}

// Emit does nothing
func (Nop) Emit(context.Context, Event) {}

// Dispatcher fans an event out to every sink in order
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
	logger  *zap.Logger
}

const defaultSinkTimeout = 3 * time.Second

// NewDispatcher creates a Dispatcher
func NewDispatcher(logger *zap.Logger, sinks ...Sink) *Dispatcher {
	return &Dispatcher{sinks: sinks, timeout: defaultSinkTimeout, logger: logger}
}

// Emit delivers e to every sink. The caller's cancellation is detached so a
// finished HTTP request does not abort delivery.
func (d *Dispatcher) Emit(ctx context.Context, e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.SubjectIDs == nil {
		e.SubjectIDs = map[string]string{}
	}

	base := context.WithoutCancel(ctx)
	for _, s := range d.sinks {
		sctx, cancel := context.WithTimeout(base, d.timeout)
		err := handle(sctx, s, e)
		cancel()
		if err != nil {
			d.logger.Warn("event sink failed",
				zap.String("sink", s.Name()),
				zap.String("kind", string(e.Kind)),
				zap.String("actor_id", e.ActorID),
				zap.Error(err),
			)
		}
	}
}

func handle(ctx context.Context, s Sink, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panic: %v", r)
		}
	}()
	return s.Handle(ctx, e)
}

// ── Client info ──

type clientInfoKey struct{}

// ClientInfo request origin recorded with analytics events
type ClientInfo struct {
	IP        string
	UserAgent string
}

// WithClientInfo attaches info to ctx
func WithClientInfo(ctx context.Context, info ClientInfo) context.Context {
	return context.WithValue(ctx, clientInfoKey{}, info)
}

// ClientInfoFrom reads info set by WithClientInfo
func ClientInfoFrom(ctx context.Context) (ClientInfo, bool) {
	info, ok := ctx.Value(clientInfoKey{}).(ClientInfo)
	return info, ok
}
