package handlers

import "expvar"

// Published under /api/debug/vars.
var (
	upgradeBatchesTotal  = expvar.NewInt("upgrade_batches_total")
	upgradeBatchesFailed = expvar.NewInt("upgrade_batches_failed")
	upgradeUsersTotal    = expvar.NewInt("upgrade_users_upgraded_total")
)
