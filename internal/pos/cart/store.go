package cart

import (
	"errors"
	"sync"

	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/domain"
)

// ErrNoTableSelected is returned by every mutation when the store is not
// bound to a table. Callers surface a "select a table first" message.
var ErrNoTableSelected = errors.New("no table selected")

// Publisher receives the full cart after every mutation so the parked copy
// in the table registry never diverges from the working cart.
type Publisher interface {
	PublishCart(tableID string, items []domain.LineItem)
}

// Store holds the working cart for the currently selected table.
// All operations are synchronous; the mutex makes them safe outside the
// single-UI-thread assumption the original till ran under.
type Store struct {
	mu    sync.Mutex
	owner string
	items []domain.LineItem
	sink  Publisher
}

func NewStore(sink Publisher) *Store {
	return &Store{sink: sink}
}

// Bind replaces the working cart wholesale. Used by table selection and
// transfer; it does not republish, because the caller is the registry's
// own controller loading a parked cart.
func (s *Store) Bind(tableID string, items []domain.LineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owner = tableID
	s.items = cloneItems(items)
}

// Owner reports which table the working cart belongs to ("" if none).
func (s *Store) Owner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner
}

// Items returns a snapshot copy of the working cart in insertion order.
func (s *Store) Items() []domain.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneItems(s.items)
}

// AddItem appends the product as a new line with quantity 1, or increments
// the existing line's quantity if the product is already in the cart.
// The unit price is snapshotted here and never re-read from the catalog.
func (s *Store) AddItem(p domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owner == "" {
		return ErrNoTableSelected
	}
	for i := range s.items {
		if s.items[i].ProductID == p.ID {
			s.items[i].Quantity++
			s.publishLocked()
			return nil
		}
	}
	s.items = append(s.items, domain.LineItem{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Quantity:  1,
		Unit:      p.Unit,
	})
	s.publishLocked()
	return nil
}

// RemoveItem deletes the whole line regardless of quantity. Removing a
// product that is not in the cart is a no-op.
func (s *Store) RemoveItem(productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owner == "" {
		return ErrNoTableSelected
	}
	for i := range s.items {
		if s.items[i].ProductID == productID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			s.publishLocked()
			return nil
		}
	}
	return nil
}

// AdjustQuantity adds delta to the line's quantity. A result of zero or
// below removes the line entirely: decrementing a quantity-1 item deletes
// it rather than clamping at 1.
func (s *Store) AdjustQuantity(productID string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owner == "" {
		return ErrNoTableSelected
	}
	for i := range s.items {
		if s.items[i].ProductID != productID {
			continue
		}
		s.items[i].Quantity += delta
		if s.items[i].Quantity <= 0 {
			s.items = append(s.items[:i], s.items[i+1:]...)
		}
		s.publishLocked()
		return nil
	}
	return nil
}

// SetNote replaces the free-text customization note on a line.
func (s *Store) SetNote(productID, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owner == "" {
		return ErrNoTableSelected
	}
	for i := range s.items {
		if s.items[i].ProductID == productID {
			s.items[i].Note = note
			s.publishLocked()
			return nil
		}
	}
	return nil
}

// Clear empties the working cart and republishes the empty state.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	if s.owner != "" {
		s.publishLocked()
	}
}

func (s *Store) publishLocked() {
	if s.sink != nil {
		s.sink.PublishCart(s.owner, cloneItems(s.items))
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
