package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Commission status of an order.
const (
	CommissionStatusUncomputed = "uncomputed"
	CommissionStatusComputed   = "computed"
	CommissionStatusReversed   = "reversed"
)

// Commission ledger entry types.
const (
	CommissionEntryAccrual  = "accrual"
	CommissionEntryReversal = "reversal"
)

// ErrOrderNotSettled is returned when commissions are requested for an unpaid order.
var ErrOrderNotSettled = errors.New("order is not paid")

var hundred = decimal.NewFromInt(100)

// Vendor carries the commission rate and the rolling sales counters.
type Vendor struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	CommissionRate  decimal.Decimal `json:"commission_rate"`
	TotalSales      int             `json:"total_sales"`
	TotalOrders     int             `json:"total_orders"`
	TotalRevenue    int64           `json:"total_revenue"`
	TotalCommission int64           `json:"total_commission"`
	PendingPayout   int64           `json:"pending_payout"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// SalesStatsDelta is applied to a vendor's rolling counters in one update.
type SalesStatsDelta struct {
	Sales      int
	Orders     int
	Revenue    int64
	Commission int64
	Payout     int64
}

// Negate returns the compensating delta.
func (d SalesStatsDelta) Negate() SalesStatsDelta {
	return SalesStatsDelta{
		Sales:      -d.Sales,
		Orders:     -d.Orders,
		Revenue:    -d.Revenue,
		Commission: -d.Commission,
		Payout:     -d.Payout,
	}
}

// Apply adds the delta to the vendor counters.
func (v *Vendor) Apply(d SalesStatsDelta) {
	v.TotalSales += d.Sales
	v.TotalOrders += d.Orders
	v.TotalRevenue += d.Revenue
	v.TotalCommission += d.Commission
	v.PendingPayout += d.Payout
}

// CommissionEntry is one event of the append-only commission ledger.
type CommissionEntry struct {
	ID         string          `json:"id"`
	OrderID    string          `json:"order_id"`
	VendorID   string          `json:"vendor_id"`
	Type       string          `json:"type"`
	Revenue    int64           `json:"revenue"`
	Rate       decimal.Decimal `json:"rate"`
	Commission int64           `json:"commission"`
	Payout     int64           `json:"payout"`
	ReversesID string          `json:"reverses_id,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// StatsDelta is the vendor counter change implied by the entry.
func (e *CommissionEntry) StatsDelta() SalesStatsDelta {
	d := SalesStatsDelta{
		Sales:      1,
		Orders:     1,
		Revenue:    e.Revenue,
		Commission: e.Commission,
		Payout:     e.Payout,
	}
	if e.Type == CommissionEntryReversal {
		return d.Negate()
	}
	return d
}

// Reversal builds the compensating entry for an accrual.
func (e *CommissionEntry) Reversal() *CommissionEntry {
	return &CommissionEntry{
		OrderID:    e.OrderID,
		VendorID:   e.VendorID,
		Type:       CommissionEntryReversal,
		Revenue:    e.Revenue,
		Rate:       e.Rate,
		Commission: e.Commission,
		Payout:     e.Payout,
		ReversesID: e.ID,
	}
}

// ComputeCommission returns the commission on revenue at a percent rate,
// rounded half away from zero to the minor unit.
func ComputeCommission(revenue int64, ratePercent decimal.Decimal) int64 {
	return decimal.NewFromInt(revenue).Mul(ratePercent).Div(hundred).Round(0).IntPart()
}

// VendorSplit is the commission attributed to one vendor of an order.
type VendorSplit struct {
	VendorID   string          `json:"vendor_id"`
	Revenue    int64           `json:"revenue"`
	Rate       decimal.Decimal `json:"rate"`
	Commission int64           `json:"commission"`
	Payout     int64           `json:"payout"`
}

// SkippedItem is a line item left out of commission attribution.
type SkippedItem struct {
	ItemID    string `json:"item_id"`
	ProductID string `json:"product_id"`
	Reason    string `json:"reason"`
}

// CommissionResult summarizes a commission calculation.
type CommissionResult struct {
	OrderID           string        `json:"order_id"`
	AlreadyCalculated bool          `json:"already_calculated"`
	TotalCommission   int64         `json:"total_commission"`
	PrimaryVendorID   string        `json:"primary_vendor_id,omitempty"`
	Splits            []VendorSplit `json:"splits"`
	Skipped           []SkippedItem `json:"skipped,omitempty"`
}

// VendorTotals is the fold of a vendor's ledger entries.
type VendorTotals struct {
	Orders     int   `json:"orders"`
	Revenue    int64 `json:"revenue"`
	Commission int64 `json:"commission"`
	Payout     int64 `json:"payout"`
}

// FoldLedger derives vendor totals from ledger entries.
func FoldLedger(entries []CommissionEntry) VendorTotals {
	var t VendorTotals
	for i := range entries {
		d := entries[i].StatsDelta()
		t.Orders += d.Orders
		t.Revenue += d.Revenue
		t.Commission += d.Commission
		t.Payout += d.Payout
	}
	return t
}

// SplitsFromLedger rebuilds the live per-vendor splits of one order: accruals
// not cancelled by a later reversal.
func SplitsFromLedger(entries []CommissionEntry) []VendorSplit {
	open := OpenAccruals(entries)
	splits := make([]VendorSplit, 0, len(open))
	for _, e := range open {
		splits = append(splits, VendorSplit{
			VendorID:   e.VendorID,
			Revenue:    e.Revenue,
			Rate:       e.Rate,
			Commission: e.Commission,
			Payout:     e.Payout,
		})
	}
	return splits
}

// OpenAccruals returns accruals that have not been reversed yet.
func OpenAccruals(entries []CommissionEntry) []CommissionEntry {
	reversed := make(map[string]bool)
	for i := range entries {
		if entries[i].Type == CommissionEntryReversal {
			reversed[entries[i].ReversesID] = true
		}
	}
	var open []CommissionEntry
	for i := range entries {
		if entries[i].Type == CommissionEntryAccrual && !reversed[entries[i].ID] {
			open = append(open, entries[i])
		}
	}
	return open
}

// VendorLedger is the ledger view of a vendor.
type VendorLedger struct {
	Vendor  *Vendor           `json:"vendor"`
	Entries []CommissionEntry `json:"entries"`
	Totals  VendorTotals      `json:"totals"`
}
