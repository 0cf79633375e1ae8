package service

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"accommodation-portal/config"
	"accommodation-portal/internal/event"
	"accommodation-portal/internal/model"
	"accommodation-portal/internal/policy"
)

// ── Test fixtures ──

const testPassword = "Password123"

// recordingEmitter keeps every emitted event
type recordingEmitter struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recordingEmitter) Emit(_ context.Context, e event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingEmitter) kinds() []event.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]event.Kind, 0, len(r.events))
	for _, e := range r.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func (r *recordingEmitter) last(kind event.Kind) (event.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Kind == kind {
			return r.events[i], true
		}
	}
	return event.Event{}, false
}

func (r *recordingEmitter) count(kind event.Kind) int {
	n := 0
	for _, k := range r.kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

func (r *recordingEmitter) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// world a seeded store: one building with two rooms, one service unit with
// its admin, a pastor and a member
type world struct {
	store   *memStore
	emitter *recordingEmitter

	unit     *model.ServiceUnit
	building *model.Building
	room1    *model.Room
	room2    *model.Room

	superAdmin *model.User
	unitAdmin  *model.User
	pastor     *model.User
	member     *model.User
	outsider   *model.User // member of no unit
}

func newWorld(t *testing.T) *world {
	t.Helper()
	store := newMemStore()
	w := &world{store: store, emitter: &recordingEmitter{}}

	repo := store.repos()
	ctx := context.Background()

	w.superAdmin = seedUser(t, store, "admin@lfc.test", model.RoleSuperAdmin, nil)
	w.unitAdmin = seedUser(t, store, "deacon@lfc.test", model.RoleServiceUnitAdmin, nil)

	w.unit = &model.ServiceUnit{Name: "Choir", AdminID: &w.unitAdmin.UserID}
	if err := repo.ServiceUnit.Create(ctx, w.unit); err != nil {
		t.Fatalf("seed unit: %v", err)
	}
	w.unitAdmin.ServiceUnitID = &w.unit.ServiceUnitID
	if err := repo.User.Update(ctx, w.unitAdmin); err != nil {
		t.Fatalf("seed unit admin: %v", err)
	}

	w.pastor = seedUser(t, store, "pastor@lfc.test", model.RolePastor, &w.unit.ServiceUnitID)
	w.member = seedUser(t, store, "member@lfc.test", model.RoleMember, &w.unit.ServiceUnitID)
	w.outsider = seedUser(t, store, "outsider@lfc.test", model.RoleMember, nil)

	w.building = &model.Building{Name: "Faith Hostel", Location: "Canaanland"}
	if err := repo.Building.Create(ctx, w.building); err != nil {
		t.Fatalf("seed building: %v", err)
	}
	w.room1 = seedRoom(t, store, w.building.BuildingID, "A101", 2)
	w.room2 = seedRoom(t, store, w.building.BuildingID, "A102", 4)
	return w
}

func seedUser(t *testing.T, store *memStore, email, role string, unitID *string) *model.User {
	t.Helper()
	hash, _ := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	u := &model.User{
		FirstName:     role,
		LastName:      "Tester",
		Email:         email,
		PasswordHash:  string(hash),
		Role:          role,
		ServiceUnitID: unitID,
		IsActive:      true,
	}
	if err := store.repos().User.Create(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func seedRoom(t *testing.T, store *memStore, buildingID, number string, capacity int) *model.Room {
	t.Helper()
	room := &model.Room{BuildingID: buildingID, RoomNumber: number, Capacity: capacity, HasToilet: true}
	if err := store.repos().Room.Create(context.Background(), room); err != nil {
		t.Fatalf("seed room: %v", err)
	}
	return room
}

func principalOf(u *model.User) policy.Principal {
	return policy.Principal{UserID: u.UserID, Role: u.Role, ServiceUnitID: u.ServiceUnitID}
}

func (w *world) allocationService(supersede bool) AllocationService {
	repo := w.store.repos().WithTxFunc(w.store.transaction)
	cfg := &config.AllocationConfig{ApprovalKind: config.ApprovalKindDerive, SupersedeOnCreate: supersede}
	return NewAllocationService(cfg, repo, w.emitter, zap.NewNop())
}

func (w *world) requestService(approvalKind string) AllocationRequestService {
	repo := w.store.repos().WithTxFunc(w.store.transaction)
	cfg := &config.AllocationConfig{ApprovalKind: approvalKind, SupersedeOnCreate: true}
	return NewAllocationRequestService(cfg, repo, w.emitter, zap.NewNop())
}

// roomFlag is_allocated as stored
func (w *world) roomFlag(t *testing.T, roomID string) bool {
	t.Helper()
	room, err := w.store.repos().Room.GetByID(context.Background(), roomID)
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	return room.IsAllocated
}

// assertRoomInvariant at most one active allocation, and the flag agrees
func (w *world) assertRoomInvariant(t *testing.T, roomID string) {
	t.Helper()
	n, _ := w.store.repos().Allocation.CountActiveByRoom(context.Background(), roomID)
	if n > 1 {
		t.Fatalf("room %s has %d active allocations", roomID, n)
	}
	if got := w.roomFlag(t, roomID); got != (n > 0) {
		t.Fatalf("room %s is_allocated=%v but active allocations=%d", roomID, got, n)
	}
}

func strPtr(s string) *string { return &s }
