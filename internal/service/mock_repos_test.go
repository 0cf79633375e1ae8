package service

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"accommodation-portal/internal/model"
	"accommodation-portal/internal/repository"
	pkgerrors "accommodation-portal/pkg/errors"
)

// ── In-memory store ──
//
// memStore backs every mock repository. Rows are stored by value without
// associations; reads return copies with associations filled in, the way
// gorm Preload would. Transactions are serialized by txMu and rolled back
// by restoring a snapshot, which stands in for the room row lock.

type memStore struct {
	mu   sync.Mutex
	txMu sync.Mutex

	users         map[string]model.User
	units         map[string]model.ServiceUnit
	buildings     map[string]model.Building
	rooms         map[string]model.Room
	allocations   map[int64]model.Allocation
	requests      map[int64]model.AllocationRequest
	events        []model.UserEvent
	notifications map[string]model.Notification

	nextAllocationID int64
	nextRequestID    int64
	seq              int

	// fail makes the named operation return the error, e.g. "AllocationRequest.Update"
	fail map[string]error
	// before runs once when the named operation starts, outside mu
	before map[string]func()
}

func newMemStore() *memStore {
	return &memStore{
		users:         make(map[string]model.User),
		units:         make(map[string]model.ServiceUnit),
		buildings:     make(map[string]model.Building),
		rooms:         make(map[string]model.Room),
		allocations:   make(map[int64]model.Allocation),
		requests:      make(map[int64]model.AllocationRequest),
		notifications: make(map[string]model.Notification),
		fail:          make(map[string]error),
		before:        make(map[string]func()),
	}
}

type memSnapshot struct {
	users         map[string]model.User
	units         map[string]model.ServiceUnit
	buildings     map[string]model.Building
	rooms         map[string]model.Room
	allocations   map[int64]model.Allocation
	requests      map[int64]model.AllocationRequest
	events        []model.UserEvent
	notifications map[string]model.Notification
}

func (m *memStore) snapshot() memSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memSnapshot{
		users:         maps.Clone(m.users),
		units:         maps.Clone(m.units),
		buildings:     maps.Clone(m.buildings),
		rooms:         maps.Clone(m.rooms),
		allocations:   maps.Clone(m.allocations),
		requests:      maps.Clone(m.requests),
		events:        append([]model.UserEvent(nil), m.events...),
		notifications: maps.Clone(m.notifications),
	}
}

func (m *memStore) restore(s memSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = s.users
	m.units = s.units
	m.buildings = s.buildings
	m.rooms = s.rooms
	m.allocations = s.allocations
	m.requests = s.requests
	m.events = s.events
	m.notifications = s.notifications
}

// repos a Repository over the store with no transaction runner
func (m *memStore) repos() *repository.Repository {
	return &repository.Repository{
		User:              &mockUserRepo{m},
		ServiceUnit:       &mockServiceUnitRepo{m},
		Building:          &mockBuildingRepo{m},
		Room:              &mockRoomRepo{m},
		Allocation:        &mockAllocationRepo{m},
		AllocationRequest: &mockAllocationRequestRepo{m},
		UserEvent:         &mockUserEventRepo{m},
		Notification:      &mockNotificationRepo{m},
	}
}

func (m *memStore) transaction(_ context.Context, fn func(tx *repository.Repository) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	snap := m.snapshot()
	if err := fn(m.repos()); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

// newTestRepo repository with snapshot transactions
func newTestRepo() (*repository.Repository, *memStore) {
	store := newMemStore()
	return store.repos().WithTxFunc(store.transaction), store
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%04d", prefix, m.seq)
}

// failure must be called with mu held
func (m *memStore) failure(op string) error {
	return m.fail[op]
}

func (m *memStore) setBefore(op string, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.before[op] = fn
}

// runBefore must be called without mu held
func (m *memStore) runBefore(op string) {
	m.mu.Lock()
	fn := m.before[op]
	delete(m.before, op)
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (m *memStore) setFailure(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, op)
		return
	}
	m.fail[op] = err
}

func paginate[T any](list []T, offset, limit int) []T {
	if offset >= len(list) {
		return []T{}
	}
	end := len(list)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return list[offset:end]
}

// ── association loaders (mu held) ──

func (m *memStore) loadUser(id *string) *model.User {
	if id == nil {
		return nil
	}
	u, ok := m.users[*id]
	if !ok || u.DeletedAt.Valid {
		return nil
	}
	u.ServiceUnit = m.loadUnit(u.ServiceUnitID, false)
	return &u
}

func (m *memStore) loadUnit(id *string, withAdmin bool) *model.ServiceUnit {
	if id == nil {
		return nil
	}
	su, ok := m.units[*id]
	if !ok || su.DeletedAt.Valid {
		return nil
	}
	if withAdmin && su.AdminID != nil {
		if admin, ok := m.users[*su.AdminID]; ok {
			su.Admin = &admin
		}
	}
	return &su
}

func (m *memStore) loadBuilding(id *string) *model.Building {
	if id == nil {
		return nil
	}
	b, ok := m.buildings[*id]
	if !ok || b.DeletedAt.Valid {
		return nil
	}
	return &b
}

func (m *memStore) loadRoom(id *string) *model.Room {
	if id == nil {
		return nil
	}
	r, ok := m.rooms[*id]
	if !ok || r.DeletedAt.Valid {
		return nil
	}
	r.Building = m.loadBuilding(&r.BuildingID)
	return &r
}

func (m *memStore) loadAllocation(a model.Allocation) *model.Allocation {
	a.Room = m.loadRoom(&a.RoomID)
	a.User = m.loadUser(a.UserID)
	a.ServiceUnit = m.loadUnit(a.ServiceUnitID, false)
	a.Allocator = m.loadUser(&a.AllocatedBy)
	return &a
}

func (m *memStore) loadRequest(r model.AllocationRequest) *model.AllocationRequest {
	r.Requester = m.loadUser(&r.RequestedBy)
	r.PreferredRoom = m.loadRoom(r.PreferredRoomID)
	r.PreferredBuilding = m.loadBuilding(r.PreferredBuildingID)
	r.Reviewer = m.loadUser(r.ReviewedBy)
	return &r
}

func (m *memStore) activeCount(roomID string, exclude int64) int64 {
	var n int64
	for id, a := range m.allocations {
		if a.RoomID == roomID && a.IsActive && id != exclude {
			n++
		}
	}
	return n
}

var errActiveIndex = fmt.Errorf("%w: room already has an active allocation", pkgerrors.ErrConflict)

// ── Mock UserRepository ──

type mockUserRepo struct{ m *memStore }

func (r *mockUserRepo) Create(_ context.Context, user *model.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.failure("User.Create"); err != nil {
		return err
	}
	if user.UserID == "" {
		user.UserID = r.m.nextID("user")
	}
	if user.Version == 0 {
		user.Version = 1
	}
	user.CreatedAt = time.Now().UTC()
	row := *user
	row.ServiceUnit = nil
	r.m.users[user.UserID] = row
	return nil
}

func (r *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if u := r.m.loadUser(&id); u != nil {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for id, u := range r.m.users {
		if strings.EqualFold(u.Email, email) && !u.DeletedAt.Valid {
			return r.m.loadUser(&id), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockUserRepo) Update(_ context.Context, user *model.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.failure("User.Update"); err != nil {
		return err
	}
	cur, ok := r.m.users[user.UserID]
	if !ok || cur.Version != user.Version {
		return pkgerrors.ErrOptimisticLock
	}
	user.Version++
	row := *user
	row.ServiceUnit = nil
	r.m.users[user.UserID] = row
	return nil
}

func (r *mockUserRepo) Delete(_ context.Context, id string, deletedBy string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok {
		return nil
	}
	u.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	u.DeletedBy = &deletedBy
	u.IsActive = false
	r.m.users[id] = u
	return nil
}

func (r *mockUserRepo) ListWithFilters(_ context.Context, filters *repository.UserListFilters, offset, limit int) ([]model.User, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var list []model.User
	for id, u := range r.m.users {
		if u.DeletedAt.Valid {
			continue
		}
		if filters != nil {
			if filters.ServiceUnitID != "" && (u.ServiceUnitID == nil || *u.ServiceUnitID != filters.ServiceUnitID) {
				continue
			}
			if filters.Role != "" && u.Role != filters.Role {
				continue
			}
			if kw := strings.ToLower(filters.Keyword); kw != "" &&
				!strings.Contains(strings.ToLower(u.FirstName+" "+u.LastName+" "+u.Email), kw) {
				continue
			}
		}
		list = append(list, *r.m.loadUser(&id))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UserID < list[j].UserID })
	return paginate(list, offset, limit), int64(len(list)), nil
}

func (r *mockUserRepo) ListByServiceUnit(_ context.Context, serviceUnitID string) ([]model.User, error) {
	list, _, err := r.ListWithFilters(context.Background(), &repository.UserListFilters{ServiceUnitID: serviceUnitID}, 0, 0)
	return list, err
}

// ── Mock ServiceUnitRepository ──

type mockServiceUnitRepo struct{ m *memStore }

func (r *mockServiceUnitRepo) Create(_ context.Context, unit *model.ServiceUnit) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if unit.ServiceUnitID == "" {
		unit.ServiceUnitID = r.m.nextID("unit")
	}
	unit.CreatedAt = time.Now().UTC()
	row := *unit
	row.Admin = nil
	r.m.units[unit.ServiceUnitID] = row
	return nil
}

func (r *mockServiceUnitRepo) GetByID(_ context.Context, id string) (*model.ServiceUnit, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if su := r.m.loadUnit(&id, true); su != nil {
		return su, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// LockByID transactions are already serialized by the store
func (r *mockServiceUnitRepo) LockByID(ctx context.Context, id string) (*model.ServiceUnit, error) {
	return r.GetByID(ctx, id)
}

func (r *mockServiceUnitRepo) ShareByID(ctx context.Context, id string) (*model.ServiceUnit, error) {
	return r.GetByID(ctx, id)
}

func (r *mockServiceUnitRepo) GetByName(_ context.Context, name string) (*model.ServiceUnit, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for id, su := range r.m.units {
		if strings.EqualFold(su.Name, name) && !su.DeletedAt.Valid {
			return r.m.loadUnit(&id, false), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockServiceUnitRepo) List(_ context.Context) ([]model.ServiceUnit, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var list []model.ServiceUnit
	for id := range r.m.units {
		if su := r.m.loadUnit(&id, true); su != nil {
			list = append(list, *su)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

func (r *mockServiceUnitRepo) Update(_ context.Context, unit *model.ServiceUnit) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	row := *unit
	row.Admin = nil
	r.m.units[unit.ServiceUnitID] = row
	return nil
}

func (r *mockServiceUnitRepo) Delete(_ context.Context, id string, deletedBy string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if su, ok := r.m.units[id]; ok {
		su.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
		su.DeletedBy = &deletedBy
		r.m.units[id] = su
	}
	return nil
}

func (r *mockServiceUnitRepo) CountMembers(_ context.Context, serviceUnitID string) (int64, error) {
	counts, err := r.BatchCountMembers(context.Background(), []string{serviceUnitID})
	return counts[serviceUnitID], err
}

func (r *mockServiceUnitRepo) BatchCountMembers(_ context.Context, serviceUnitIDs []string) (map[string]int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	result := make(map[string]int64, len(serviceUnitIDs))
	for _, id := range serviceUnitIDs {
		for _, u := range r.m.users {
			if u.ServiceUnitID != nil && *u.ServiceUnitID == id && !u.DeletedAt.Valid {
				result[id]++
			}
		}
	}
	return result, nil
}

// ── Mock BuildingRepository ──

type mockBuildingRepo struct{ m *memStore }

func (r *mockBuildingRepo) Create(_ context.Context, b *model.Building) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if b.BuildingID == "" {
		b.BuildingID = r.m.nextID("bld")
	}
	b.CreatedAt = time.Now().UTC()
	r.m.buildings[b.BuildingID] = *b
	return nil
}

func (r *mockBuildingRepo) GetByID(_ context.Context, id string) (*model.Building, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if b := r.m.loadBuilding(&id); b != nil {
		return b, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockBuildingRepo) GetByName(_ context.Context, name string) (*model.Building, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for id, b := range r.m.buildings {
		if strings.EqualFold(b.Name, name) && !b.DeletedAt.Valid {
			return r.m.loadBuilding(&id), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockBuildingRepo) List(_ context.Context, keyword string) ([]model.Building, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var list []model.Building
	for _, b := range r.m.buildings {
		if b.DeletedAt.Valid {
			continue
		}
		if keyword != "" && !strings.Contains(strings.ToLower(b.Name+" "+b.Location), strings.ToLower(keyword)) {
			continue
		}
		list = append(list, b)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

func (r *mockBuildingRepo) Update(_ context.Context, b *model.Building) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.buildings[b.BuildingID] = *b
	return nil
}

func (r *mockBuildingRepo) Delete(_ context.Context, id string, deletedBy string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	now := gorm.DeletedAt{Time: time.Now(), Valid: true}
	for rid, room := range r.m.rooms {
		if room.BuildingID == id {
			room.DeletedAt = now
			room.DeletedBy = &deletedBy
			r.m.rooms[rid] = room
		}
	}
	if b, ok := r.m.buildings[id]; ok {
		b.DeletedAt = now
		b.DeletedBy = &deletedBy
		r.m.buildings[id] = b
	}
	return nil
}

// ── Mock RoomRepository ──

type mockRoomRepo struct{ m *memStore }

func (r *mockRoomRepo) Create(_ context.Context, room *model.Room) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if room.RoomID == "" {
		room.RoomID = r.m.nextID("room")
	}
	room.CreatedAt = time.Now().UTC()
	row := *room
	row.Building = nil
	r.m.rooms[room.RoomID] = row
	return nil
}

func (r *mockRoomRepo) GetByID(_ context.Context, id string) (*model.Room, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if room := r.m.loadRoom(&id); room != nil {
		return room, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// LockByID transactions are already serialized by the store
func (r *mockRoomRepo) LockByID(ctx context.Context, id string) (*model.Room, error) {
	return r.GetByID(ctx, id)
}

func (r *mockRoomRepo) LockByBuilding(ctx context.Context, buildingID string) ([]model.Room, error) {
	list, _, err := r.List(ctx, &repository.RoomListFilters{BuildingID: buildingID}, 0, 0)
	return list, err
}

func (r *mockRoomRepo) GetByNumber(_ context.Context, buildingID, roomNumber string) (*model.Room, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for id, room := range r.m.rooms {
		if room.BuildingID == buildingID && room.RoomNumber == roomNumber && !room.DeletedAt.Valid {
			return r.m.loadRoom(&id), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockRoomRepo) Update(_ context.Context, room *model.Room) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	cur, ok := r.m.rooms[room.RoomID]
	if !ok {
		return nil
	}
	cur.BuildingID = room.BuildingID
	cur.RoomNumber = room.RoomNumber
	cur.Capacity = room.Capacity
	cur.HasToilet = room.HasToilet
	cur.HasWashroom = room.HasWashroom
	cur.UpdatedBy = room.UpdatedBy
	r.m.rooms[room.RoomID] = cur
	return nil
}

func (r *mockRoomRepo) SetAllocated(_ context.Context, id string, allocated bool) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.failure("Room.SetAllocated"); err != nil {
		return err
	}
	if room, ok := r.m.rooms[id]; ok {
		room.IsAllocated = allocated
		r.m.rooms[id] = room
	}
	return nil
}

func (r *mockRoomRepo) Delete(_ context.Context, id string, deletedBy string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if room, ok := r.m.rooms[id]; ok {
		room.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
		room.DeletedBy = &deletedBy
		r.m.rooms[id] = room
	}
	return nil
}

func (r *mockRoomRepo) List(_ context.Context, filters *repository.RoomListFilters, offset, limit int) ([]model.Room, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var list []model.Room
	for id, room := range r.m.rooms {
		if room.DeletedAt.Valid {
			continue
		}
		if filters != nil {
			if filters.BuildingID != "" && room.BuildingID != filters.BuildingID {
				continue
			}
			if filters.Allocated != nil && room.IsAllocated != *filters.Allocated {
				continue
			}
			if filters.MinCapacity > 0 && room.Capacity < filters.MinCapacity {
				continue
			}
			if filters.Keyword != "" && !strings.Contains(room.RoomNumber, filters.Keyword) {
				continue
			}
		}
		list = append(list, *r.m.loadRoom(&id))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].RoomID < list[j].RoomID })
	return paginate(list, offset, limit), int64(len(list)), nil
}

func (r *mockRoomRepo) ListAvailable(_ context.Context, buildingID string) ([]model.Room, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var list []model.Room
	for id, room := range r.m.rooms {
		if room.DeletedAt.Valid || r.m.activeCount(id, 0) > 0 {
			continue
		}
		if buildingID != "" && room.BuildingID != buildingID {
			continue
		}
		list = append(list, *r.m.loadRoom(&id))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].RoomID < list[j].RoomID })
	return list, nil
}

func (r *mockRoomRepo) ListIDs(_ context.Context) ([]string, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var ids []string
	for id, room := range r.m.rooms {
		if !room.DeletedAt.Valid {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *mockRoomRepo) StatsByBuilding(_ context.Context, buildingIDs []string) (map[string]model.BuildingStats, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	result := make(map[string]model.BuildingStats, len(buildingIDs))
	for _, bid := range buildingIDs {
		stats := model.BuildingStats{BuildingID: bid}
		for _, room := range r.m.rooms {
			if room.BuildingID != bid || room.DeletedAt.Valid {
				continue
			}
			stats.TotalRooms++
			stats.TotalCapacity += int64(room.Capacity)
			if room.IsAllocated {
				stats.AllocatedRooms++
			}
		}
		result[bid] = stats
	}
	return result, nil
}

// ── Mock AllocationRepository ──

type mockAllocationRepo struct{ m *memStore }

// Create enforces the one-active-per-room index like Postgres would
func (r *mockAllocationRepo) Create(_ context.Context, a *model.Allocation) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.failure("Allocation.Create"); err != nil {
		return err
	}
	if a.IsActive && r.m.activeCount(a.RoomID, 0) > 0 {
		return errActiveIndex
	}
	r.m.nextAllocationID++
	a.AllocationID = r.m.nextAllocationID
	now := time.Now().UTC()
	a.AllocationDate = now
	a.UpdatedAt = now
	row := *a
	row.Room, row.User, row.ServiceUnit, row.Allocator = nil, nil, nil, nil
	r.m.allocations[a.AllocationID] = row
	return nil
}

func (r *mockAllocationRepo) GetByID(_ context.Context, id int64) (*model.Allocation, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.allocations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return r.m.loadAllocation(a), nil
}

func (r *mockAllocationRepo) SetActive(_ context.Context, id int64, active bool) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.failure("Allocation.SetActive"); err != nil {
		return err
	}
	a, ok := r.m.allocations[id]
	if !ok {
		return nil
	}
	if active && r.m.activeCount(a.RoomID, id) > 0 {
		return errActiveIndex
	}
	a.IsActive = active
	a.UpdatedAt = time.Now().UTC()
	r.m.allocations[id] = a
	return nil
}

func (r *mockAllocationRepo) ListActiveByRoom(_ context.Context, roomID string) ([]model.Allocation, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var list []model.Allocation
	for _, a := range r.m.allocations {
		if a.RoomID == roomID && a.IsActive {
			list = append(list, a)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].AllocationID < list[j].AllocationID })
	return list, nil
}

func (r *mockAllocationRepo) CountActiveByRoom(_ context.Context, roomID string) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.m.activeCount(roomID, 0), nil
}

func (r *mockAllocationRepo) CountActiveByBuilding(_ context.Context, buildingID string) (int64, error) {
	r.m.runBefore("Allocation.CountActiveByBuilding")
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for _, a := range r.m.allocations {
		if room, ok := r.m.rooms[a.RoomID]; ok && room.BuildingID == buildingID && a.IsActive {
			n++
		}
	}
	return n, nil
}

func (r *mockAllocationRepo) CountActiveByServiceUnit(_ context.Context, serviceUnitID string) (int64, error) {
	r.m.runBefore("Allocation.CountActiveByServiceUnit")
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for _, a := range r.m.allocations {
		if a.ServiceUnitID != nil && *a.ServiceUnitID == serviceUnitID && a.IsActive {
			n++
		}
	}
	return n, nil
}

func (r *mockAllocationRepo) List(_ context.Context, filters *repository.AllocationListFilters, offset, limit int) ([]model.Allocation, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	eq := func(p *string, v string) bool { return p != nil && *p == v }

	var list []model.Allocation
	for _, a := range r.m.allocations {
		if f := filters; f != nil {
			if f.RoomID != "" && a.RoomID != f.RoomID {
				continue
			}
			if f.BuildingID != "" && r.m.rooms[a.RoomID].BuildingID != f.BuildingID {
				continue
			}
			if f.UserID != "" && !eq(a.UserID, f.UserID) {
				continue
			}
			if f.ServiceUnitID != "" && !eq(a.ServiceUnitID, f.ServiceUnitID) {
				continue
			}
			if f.Kind != "" && a.Kind != f.Kind {
				continue
			}
			if f.Active != nil && a.IsActive != *f.Active {
				continue
			}
			if v := f.VisibleTo; v != nil {
				visible := (v.UserID != "" && eq(a.UserID, v.UserID)) ||
					(v.ServiceUnitID != "" && eq(a.ServiceUnitID, v.ServiceUnitID)) ||
					(v.AllocatedBy != "" && a.AllocatedBy == v.AllocatedBy)
				if !visible {
					continue
				}
			}
		}
		list = append(list, *r.m.loadAllocation(a))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].AllocationID > list[j].AllocationID })
	return paginate(list, offset, limit), int64(len(list)), nil
}

// ── Mock AllocationRequestRepository ──

type mockAllocationRequestRepo struct{ m *memStore }

func (r *mockAllocationRequestRepo) Create(_ context.Context, req *model.AllocationRequest) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.nextRequestID++
	req.RequestID = r.m.nextRequestID
	req.Version = 1
	req.CreatedAt = time.Now().UTC()
	req.UpdatedAt = req.CreatedAt
	row := *req
	row.Requester, row.PreferredRoom, row.PreferredBuilding, row.Reviewer, row.CreatedAllocation = nil, nil, nil, nil, nil
	r.m.requests[req.RequestID] = row
	return nil
}

func (r *mockAllocationRequestRepo) GetByID(_ context.Context, id int64) (*model.AllocationRequest, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	req, ok := r.m.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return r.m.loadRequest(req), nil
}

func (r *mockAllocationRequestRepo) LockByID(ctx context.Context, id int64) (*model.AllocationRequest, error) {
	return r.GetByID(ctx, id)
}

func (r *mockAllocationRequestRepo) Update(_ context.Context, req *model.AllocationRequest) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.failure("AllocationRequest.Update"); err != nil {
		return err
	}
	cur, ok := r.m.requests[req.RequestID]
	if !ok || cur.Version != req.Version {
		return pkgerrors.ErrOptimisticLock
	}
	req.Version++
	req.UpdatedAt = time.Now().UTC()
	row := *req
	row.Requester, row.PreferredRoom, row.PreferredBuilding, row.Reviewer, row.CreatedAllocation = nil, nil, nil, nil, nil
	r.m.requests[req.RequestID] = row
	return nil
}

func (r *mockAllocationRequestRepo) List(_ context.Context, filters *repository.RequestListFilters, offset, limit int) ([]model.AllocationRequest, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var list []model.AllocationRequest
	for _, req := range r.m.requests {
		if f := filters; f != nil {
			if f.Status != "" && req.Status != f.Status {
				continue
			}
			if f.RequestedBy != "" && req.RequestedBy != f.RequestedBy {
				continue
			}
			if v := f.VisibleTo; v != nil && req.RequestedBy != v.UserID {
				requester := r.m.users[req.RequestedBy]
				inUnit := v.ServiceUnitID != "" && requester.ServiceUnitID != nil && *requester.ServiceUnitID == v.ServiceUnitID
				if !inUnit {
					continue
				}
			}
		}
		list = append(list, *r.m.loadRequest(req))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].RequestID > list[j].RequestID })
	return paginate(list, offset, limit), int64(len(list)), nil
}

// ── Mock UserEventRepository ──

type mockUserEventRepo struct{ m *memStore }

func (r *mockUserEventRepo) Create(_ context.Context, e *model.UserEvent) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	e.EventID = int64(len(r.m.events) + 1)
	r.m.events = append(r.m.events, *e)
	return nil
}

func (r *mockUserEventRepo) List(_ context.Context, filters *repository.UserEventListFilters, offset, limit int) ([]model.UserEvent, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var list []model.UserEvent
	for _, e := range r.m.events {
		if f := filters; f != nil {
			if f.UserID != "" && (e.UserID == nil || *e.UserID != f.UserID) {
				continue
			}
			if f.EventType != "" && e.EventType != f.EventType {
				continue
			}
			if f.ResourceType != "" && (e.ResourceType == nil || *e.ResourceType != f.ResourceType) {
				continue
			}
			if f.ResourceID != "" && (e.ResourceID == nil || *e.ResourceID != f.ResourceID) {
				continue
			}
			if f.From != nil && e.Timestamp.Before(*f.From) {
				continue
			}
			if f.To != nil && e.Timestamp.After(*f.To) {
				continue
			}
		}
		list = append(list, e)
	}
	return paginate(list, offset, limit), int64(len(list)), nil
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct{ m *memStore }

func (r *mockNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if n.NotificationID == "" {
		n.NotificationID = r.m.nextID("ntf")
	}
	n.CreatedAt = time.Now().UTC()
	r.m.notifications[n.NotificationID] = *n
	return nil
}

func (r *mockNotificationRepo) ListByUser(_ context.Context, userID string, unreadOnly bool, offset, limit int) ([]model.Notification, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var list []model.Notification
	for _, n := range r.m.notifications {
		if n.UserID != userID || (unreadOnly && n.IsRead) {
			continue
		}
		list = append(list, n)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].NotificationID > list[j].NotificationID })
	return paginate(list, offset, limit), int64(len(list)), nil
}

func (r *mockNotificationRepo) CountUnread(ctx context.Context, userID string) (int64, error) {
	_, total, err := r.ListByUser(ctx, userID, true, 0, 0)
	return total, err
}

func (r *mockNotificationRepo) MarkRead(_ context.Context, id, userID string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	n, ok := r.m.notifications[id]
	if !ok || n.UserID != userID {
		return gorm.ErrRecordNotFound
	}
	n.IsRead = true
	r.m.notifications[id] = n
	return nil
}

func (r *mockNotificationRepo) MarkAllRead(_ context.Context, userID string) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var updated int64
	for id, n := range r.m.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			r.m.notifications[id] = n
			updated++
		}
	}
	return updated, nil
}
