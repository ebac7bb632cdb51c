package jobs

import (
	"context"
	"time"

	"openchannel-rental-backend/internal/logger"
)

// ExpireRoomRentals reconciles active requests whose reservation window has
// fully passed: outstanding reserved balances are cancelled, issued quantity
// is returned, and the request reaches its terminal status.
func (jr *JobRunner) ExpireRoomRentals() {
	jr.runWithRecovery("ExpireRoomRentals", func() {
		ctx := context.Background()
		count, err := jr.services.Rental.ExpireOverdue(ctx, time.Now())
		if err != nil {
			logger.Error("Failed to expire rentals", "error", err, "closed_before_failure", count)
			return
		}
		logger.Info("Expired overdue rentals", "count", count)
	})
}

// RefreshInventoryCounters recomputes the catalog's cached reserved/rented
// counters from the transaction ledger. The counters are a read-through cache
// for non-time-aware dashboard queries; the ledger stays the source of truth
// and this sweep repairs any drift.
func (jr *JobRunner) RefreshInventoryCounters() {
	jr.runWithRecovery("RefreshInventoryCounters", func() {
		ctx := context.Background()

		query := `
			UPDATE inventory_items inv
			SET reserved_quantity = COALESCE(agg.reserved, 0),
			    rented_quantity   = COALESCE(agg.rented, 0)
			FROM (
				SELECT ri.inventory_item_id,
				       SUM(CASE WHEN rr.status = 'RESERVED'
				                THEN ri.quantity_requested - ri.quantity_issued ELSE 0 END) AS reserved,
				       SUM(CASE WHEN rr.status = 'ISSUED'
				                THEN ri.quantity_issued - ri.quantity_returned ELSE 0 END) AS rented
				FROM rental_items ri
				JOIN rental_requests rr ON rr.id = ri.request_id
				WHERE rr.status IN ('RESERVED', 'ISSUED')
				GROUP BY ri.inventory_item_id
			) agg
			WHERE agg.inventory_item_id = inv.id
			  AND (inv.reserved_quantity <> COALESCE(agg.reserved, 0)
			       OR inv.rented_quantity <> COALESCE(agg.rented, 0))
		`

		result, err := jr.db.ExecContext(ctx, query)
		if err != nil {
			logger.Error("Failed to refresh inventory counters", "error", err)
			return
		}
		affected, _ := result.RowsAffected()
		logger.DatabaseResult("RefreshInventoryCounters", affected, nil)

		// counters of items with no active lines fall back to zero
		reset := `
			UPDATE inventory_items inv
			SET reserved_quantity = 0, rented_quantity = 0
			WHERE (inv.reserved_quantity <> 0 OR inv.rented_quantity <> 0)
			  AND NOT EXISTS (
				SELECT 1 FROM rental_items ri
				JOIN rental_requests rr ON rr.id = ri.request_id
				WHERE ri.inventory_item_id = inv.id
				  AND rr.status IN ('RESERVED', 'ISSUED')
			  )
		`
		if _, err := jr.db.ExecContext(ctx, reset); err != nil {
			logger.Error("Failed to reset idle inventory counters", "error", err)
		}
	})
}
