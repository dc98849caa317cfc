package service

import "expvar"

var (
	reconcileRuns     = expvar.NewInt("reconcile_runs_total")
	reconcileFailures = expvar.NewInt("reconcile_failures_total")
	runSaveFailures   = expvar.NewInt("reconcile_run_save_failures_total")
	punchesImported   = expvar.NewInt("punches_imported_total")
	punchesSkipped    = expvar.NewInt("punches_skipped_total")
	punchesPruned     = expvar.NewInt("punches_pruned_total")
)
