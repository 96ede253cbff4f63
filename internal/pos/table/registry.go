package table

import (
	"sync"

	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/domain"
)

// Registry is the shared store behind the till: every known table, its
// status, the parked cart per table, and which table is selected. It is an
// explicit injectable object, not a package singleton, so tests construct
// isolated instances. Only the Controller mutates it.
type Registry struct {
	mu         sync.Mutex
	takeawayID string
	tables     map[string]*domain.Table
	order      []string
	parked     map[string][]domain.LineItem
	selected   string
}

func NewRegistry(takeawayID string) *Registry {
	return &Registry{
		takeawayID: takeawayID,
		tables:     make(map[string]*domain.Table),
		parked:     make(map[string][]domain.LineItem),
	}
}

// LoadTables seeds the registry from the fetched table list, preserving
// order for display. Statuses are re-derived from parked carts, not trusted
// from the remote record.
func (r *Registry) LoadTables(tables []domain.Table) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables = make(map[string]*domain.Table, len(tables))
	r.order = r.order[:0]
	for i := range tables {
		t := tables[i]
		r.tables[t.ID] = &t
		r.order = append(r.order, t.ID)
		r.deriveStatusLocked(t.ID)
	}
}

func (r *Registry) TakeawayID() string { return r.takeawayID }

// PublishCart mirrors the working cart into the parked map under its owning
// table after every cart mutation. Implements cart.Publisher.
func (r *Registry) PublishCart(tableID string, items []domain.LineItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(items) == 0 {
		delete(r.parked, tableID)
	} else {
		r.parked[tableID] = items
	}
	// The selected table keeps its occupied status even with an empty cart:
	// staff are seated and about to order. Everyone else is derived.
	if tableID != r.selected {
		r.deriveStatusLocked(tableID)
	} else if len(items) > 0 {
		r.setStatusLocked(tableID, domain.TableOccupied)
	}
}

// Parked returns a copy of the parked cart for the table, nil if none.
func (r *Registry) Parked(tableID string) []domain.LineItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneItems(r.parked[tableID])
}

// Selected reports the selected table id ("" if none).
func (r *Registry) Selected() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selected
}

// Table returns a snapshot of one table record.
func (r *Registry) Table(id string) (domain.Table, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tables[id]
	if !ok {
		return domain.Table{}, false
	}
	return *t, true
}

// Tables returns snapshots of all tables in load order.
func (r *Registry) Tables() []domain.Table {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Table, 0, len(r.order))
	for _, id := range r.order {
		if t, ok := r.tables[id]; ok {
			out = append(out, *t)
		}
	}
	return out
}

// OrderEntry is one parked order in a recovery snapshot.
type OrderEntry struct {
	TableID string            `json:"table_id"`
	Items   []domain.LineItem `json:"items"`
}

// Export captures every parked order plus the selection for the recovery
// snapshot, in stable table order.
func (r *Registry) Export() ([]OrderEntry, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]OrderEntry, 0, len(r.parked))
	for _, id := range r.order {
		if items, ok := r.parked[id]; ok {
			out = append(out, OrderEntry{TableID: id, Items: cloneItems(items)})
		}
	}
	return out, r.selected
}

// Seed restores parked orders from a recovery snapshot. Entries for tables
// the registry does not know are dropped. Statuses are re-derived.
func (r *Registry) Seed(entries []OrderEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		if _, ok := r.tables[e.TableID]; !ok {
			continue
		}
		if len(e.Items) == 0 {
			continue
		}
		r.parked[e.TableID] = cloneItems(e.Items)
		r.deriveStatusLocked(e.TableID)
	}
}

// SetSelected records which table the till is pointed at.
func (r *Registry) SetSelected(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selected = id
}

// Occupy marks a table occupied (no-op for takeaway).
func (r *Registry) Occupy(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setStatusLocked(id, domain.TableOccupied)
}

// Free drops the table's parked order and resets it to empty (takeaway
// keeps no status). Used when a settlement clears a table or a selection
// leaves an empty table behind.
func (r *Registry) Free(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.parked, id)
	r.setStatusLocked(id, domain.TableEmpty)
}

// Move relocates an order from src to dst in one step: parked entry moves,
// src is freed, dst is occupied, and the selection follows the order.
func (r *Registry) Move(src, dst string, items []domain.LineItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.parked, src)
	r.parked[dst] = cloneItems(items)
	r.setStatusLocked(src, domain.TableEmpty)
	r.setStatusLocked(dst, domain.TableOccupied)
	r.selected = dst
}

func (r *Registry) setStatusLocked(id string, st domain.TableStatus) {
	if id == r.takeawayID {
		return
	}
	if t, ok := r.tables[id]; ok {
		t.Status = st
	}
}

// occupied iff the table holds a non-empty order
func (r *Registry) deriveStatusLocked(id string) {
	if len(r.parked[id]) > 0 {
		r.setStatusLocked(id, domain.TableOccupied)
	} else {
		r.setStatusLocked(id, domain.TableEmpty)
	}
}

func cloneItems(items []domain.LineItem) []domain.LineItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]domain.LineItem, len(items))
	copy(out, items)
	return out
}
