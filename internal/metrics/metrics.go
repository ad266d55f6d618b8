package metrics

import "expvar"

var (
	TraderPasses      = expvar.NewInt("trader_passes")
	TraderPassErrors  = expvar.NewInt("trader_pass_errors")
	OrdersCreated     = expvar.NewInt("orders_created")
	OrdersUpdated     = expvar.NewInt("orders_updated")
	OrdersDeleted     = expvar.NewInt("orders_deleted")
	TradesBooked      = expvar.NewInt("trades_booked")
	ScrapedItems      = expvar.NewInt("scraped_items")
	ScrapeItemFailure = expvar.NewInt("scrape_item_failures")
)
