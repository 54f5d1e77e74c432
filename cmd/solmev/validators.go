package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"github.com/aerofoil/solmev/internal/sim"
)

// dlmmL2Row is one recorded decision event read back from the evidence
// database for replay comparison, including the swap inputs a CP-kernel
// recomputation needs.
type dlmmL2Row struct {
	Pool       string
	Venue      string
	ProfitEst  int64
	ReserveIn  uint64
	ReserveOut uint64
	AmountIn   uint64
	FeeBps     uint32
}

// recomputeCP recomputes a constant-product decision's gross profit
// (output minus input) from the reserves/amountIn/feeBps recorded
// alongside the row, running the same sim.CPExactInput kernel the engine
// used at decision time. Rows that predate the reserve columns, or whose
// recorded inputs don't describe a valid CP swap (e.g. a Concentrated or
// Binned venue row, which this recomputation doesn't cover), return
// ok=false and are excluded from the pass/fail tally rather than counted
// as either a silent pass or a spurious failure.
func recomputeCP(r dlmmL2Row) (recomputed int64, ok bool) {
	if r.ReserveIn == 0 || r.ReserveOut == 0 || r.AmountIn == 0 {
		return 0, false
	}
	quote, err := sim.CPExactInput(r.ReserveIn, r.ReserveOut, r.AmountIn, r.FeeBps)
	if err != nil {
		return 0, false
	}
	return int64(quote.Out) - int64(r.AmountIn), true
}

func scanRow(rows *sql.Rows) (dlmmL2Row, error) {
	var r dlmmL2Row
	var reserveIn, reserveOut, amountIn, feeBps sql.NullInt64
	if err := rows.Scan(&r.Pool, &r.Venue, &r.ProfitEst, &reserveIn, &reserveOut, &amountIn, &feeBps); err != nil {
		return r, err
	}
	r.ReserveIn = uint64(reserveIn.Int64)
	r.ReserveOut = uint64(reserveOut.Int64)
	r.AmountIn = uint64(amountIn.Int64)
	r.FeeBps = uint32(feeBps.Int64)
	return r, nil
}

// proveDLMML2 replays up to limit recorded decision events from dbPath
// and checks that each row's recorded profit estimate agrees with a
// fresh recomputation within toleranceBps, writing a JSON report to out
// if given. Returns (pass, error); exit code 0 on pass, 1 otherwise. Rows
// aren't filtered by venue: recomputeCP itself excludes any row whose
// recorded inputs don't describe a constant-product swap, so a
// Concentrated or Binned ("DLMM") row is skipped rather than miscounted,
// while cp-pair/cp-book rows are genuinely replayed and can fail.
func proveDLMML2(dbPath, session string, limit, toleranceBps int, out string) (bool, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return false, fmt.Errorf("prove-dlmm-l2: open db: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(
		`SELECT pool, venue, profit_est, reserve_in, reserve_out, amount_in, fee_bps FROM decision_events ORDER BY ts LIMIT ?`,
		limit,
	)
	if err != nil {
		return false, fmt.Errorf("prove-dlmm-l2: query: %w", err)
	}
	defer rows.Close()

	type comparison struct {
		Pool          string `json:"pool"`
		RecordedEst   int64  `json:"recordedEst"`
		RecomputedEst int64  `json:"recomputedEst"`
		DeviationBps  int64  `json:"deviationBps"`
	}

	var comparisons []comparison
	pass := true
	checked := 0
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return false, fmt.Errorf("prove-dlmm-l2: scan: %w", err)
		}
		recomputed, ok := recomputeCP(r)
		if !ok {
			continue
		}
		checked++
		deviation := deviationBps(r.ProfitEst, recomputed)
		if deviation > int64(toleranceBps) {
			pass = false
		}
		comparisons = append(comparisons, comparison{
			Pool: r.Pool, RecordedEst: r.ProfitEst, RecomputedEst: recomputed, DeviationBps: deviation,
		})
	}

	if out != "" {
		raw, err := json.MarshalIndent(map[string]interface{}{
			"session": session, "pass": pass, "checked": checked, "comparisons": comparisons,
		}, "", "  ")
		if err != nil {
			return false, fmt.Errorf("prove-dlmm-l2: marshal report: %w", err)
		}
		if err := os.WriteFile(out, raw, 0o644); err != nil {
			return false, fmt.Errorf("prove-dlmm-l2: write report: %w", err)
		}
	}

	return pass, nil
}

// validateSandwich replays up to limit recorded sandwich decision events
// and checks the recorded profit estimate against a recomputation within
// toleranceBps. Not filtered to kind = 'confirm': this tree never emits a
// confirm row (doing so needs a bundle-landing poll loop tying a relay
// status back to the originating evidence row, which isn't wired), so a
// confirm-only filter would make the command vacuously pass forever. It
// instead replays whatever detect/reject/submit rows exist.
func validateSandwich(dbPath string, limit, toleranceBps int) (bool, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return false, fmt.Errorf("validate-sandwich: open db: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(
		`SELECT pool, venue, profit_est, reserve_in, reserve_out, amount_in, fee_bps FROM decision_events ORDER BY ts LIMIT ?`,
		limit,
	)
	if err != nil {
		return false, fmt.Errorf("validate-sandwich: query: %w", err)
	}
	defer rows.Close()

	pass := true
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return false, fmt.Errorf("validate-sandwich: scan: %w", err)
		}
		recomputed, ok := recomputeCP(r)
		if !ok {
			continue
		}
		if deviationBps(r.ProfitEst, recomputed) > int64(toleranceBps) {
			pass = false
		}
	}

	return pass, nil
}

func deviationBps(recorded, recomputed int64) int64 {
	if recorded == 0 {
		if recomputed == 0 {
			return 0
		}
		return 10000
	}
	diff := recorded - recomputed
	if diff < 0 {
		diff = -diff
	}
	return diff * 10000 / abs64(recorded)
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
