package table

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/domain"
	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/pos/cart"
)

var (
	ErrUnknownTable = errors.New("unknown table")

	// ErrTransferRejected wraps every transfer precondition failure. No
	// state is mutated when it is returned.
	ErrTransferRejected = errors.New("transfer rejected")
)

// Controller mediates table selection and order transfer between the
// working cart and the registry. It is the only component allowed to
// mutate the registry's selection; the mutex keeps compound transitions
// atomic when the terminal serves concurrent requests.
type Controller struct {
	mu   sync.Mutex
	reg  *Registry
	cart *cart.Store
}

func NewController(reg *Registry, store *cart.Store) *Controller {
	return &Controller{reg: reg, cart: store}
}

// Select switches the till to another table: the working cart is flushed
// into the registry under the old table, the new table's parked cart (empty
// if none) becomes the working cart, and a non-takeaway empty target is
// marked occupied in anticipation of items being added.
func (c *Controller) Select(newTableID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.reg.Table(newTableID); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTable, newTableID)
	}

	if old := c.cart.Owner(); old != "" {
		c.reg.PublishCart(old, c.cart.Items())
		if old != newTableID && len(c.reg.Parked(old)) == 0 {
			c.reg.Free(old)
		}
	}

	c.reg.SetSelected(newTableID)
	c.cart.Bind(newTableID, c.reg.Parked(newTableID))
	c.reg.Occupy(newTableID)
	return nil
}

// Transfer moves the currently selected table's order to an empty target
// table and follows it there. Every precondition is checked before any
// mutation, so a rejection leaves all state untouched.
func (c *Controller) Transfer(targetTableID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	src := c.cart.Owner()
	if src == "" {
		return fmt.Errorf("%w: no table selected", ErrTransferRejected)
	}
	items := c.cart.Items()
	if len(items) == 0 {
		return fmt.Errorf("%w: nothing to transfer", ErrTransferRejected)
	}
	if targetTableID == src {
		return fmt.Errorf("%w: target is the source table", ErrTransferRejected)
	}
	if targetTableID == c.reg.TakeawayID() {
		return fmt.Errorf("%w: takeaway cannot receive a transfer", ErrTransferRejected)
	}
	target, ok := c.reg.Table(targetTableID)
	if !ok {
		return fmt.Errorf("%w: unknown table %s", ErrTransferRejected, targetTableID)
	}
	if target.Status == domain.TableOccupied || len(c.reg.Parked(targetTableID)) > 0 {
		return fmt.Errorf("%w: table %s is occupied", ErrTransferRejected, targetTableID)
	}

	c.reg.Move(src, targetTableID, items)
	c.cart.Bind(targetTableID, items)
	return nil
}

// Settled finalizes the bookkeeping after a successful settlement of the
// given table: working cart cleared, parked entry dropped, table freed
// (takeaway has no status to reset).
func (c *Controller) Settled(tableID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cart.Owner() == tableID {
		c.cart.Bind(tableID, nil)
	}
	c.reg.Free(tableID)
}
