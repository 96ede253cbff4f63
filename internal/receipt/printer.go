package receipt

import (
	"fmt"
	"io"
	"strings"

	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/domain"
)

// Printer renders settled invoices as plain text for the till printer.
// Printing failures are the coordinator's problem to downgrade to warnings;
// this package just reports them.
type Printer struct {
	header string
	out    io.Writer
}

func NewPrinter(header string, out io.Writer) *Printer {
	return &Printer{header: header, out: out}
}

// Render produces the printable receipt text.
func (p *Printer) Render(inv domain.Invoice, lines []domain.InvoiceLine) string {
	var b strings.Builder
	if p.header != "" {
		fmt.Fprintln(&b, p.header)
	}
	fmt.Fprintf(&b, "Invoice %s\n", inv.ID)
	fmt.Fprintf(&b, "Table: %s  Staff: %s\n", inv.TableName, inv.EmployeeName)
	if inv.CustomerName != "" {
		fmt.Fprintf(&b, "Customer: %s\n", inv.CustomerName)
	}
	fmt.Fprintf(&b, "%s\n", inv.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintln(&b, strings.Repeat("-", 32))
	for _, ln := range lines {
		fmt.Fprintf(&b, "%-20s x%-3d %10s\n", ln.Name, ln.Quantity, ln.Amount.StringFixed(0))
		if ln.Note != "" {
			fmt.Fprintf(&b, "  (%s)\n", ln.Note)
		}
	}
	fmt.Fprintln(&b, strings.Repeat("-", 32))
	fmt.Fprintf(&b, "Subtotal: %s\n", inv.Subtotal.StringFixed(0))
	fmt.Fprintf(&b, "VAT:      %s\n", inv.VAT.StringFixed(0))
	if !inv.TierDiscount.IsZero() {
		fmt.Fprintf(&b, "Member:  -%s\n", inv.TierDiscount.StringFixed(0))
	}
	if !inv.ManualDiscount.IsZero() {
		fmt.Fprintf(&b, "Discount:-%s\n", inv.ManualDiscount.StringFixed(0))
	}
	fmt.Fprintf(&b, "TOTAL:    %s\n", inv.Total.StringFixed(0))
	fmt.Fprintf(&b, "Tendered: %s\n", inv.Tendered.StringFixed(0))
	fmt.Fprintf(&b, "Change:   %s\n", inv.Change.StringFixed(0))
	return b.String()
}

// Print writes the rendered receipt to the configured output.
func (p *Printer) Print(inv domain.Invoice, lines []domain.InvoiceLine) error {
	if p.out == nil {
		return nil
	}
	_, err := io.WriteString(p.out, p.Render(inv, lines))
	return err
}
