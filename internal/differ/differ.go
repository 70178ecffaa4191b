package differ

import "mspro-labs/stock-watch/internal/models"

// Diff returns the items that are available in current and were absent or
// unavailable in previous. Items that stay available are not reported again,
// even when the upstream status string changes (e.g. ALL -> UNLOCKED).
func Diff(current, previous models.Snapshot) models.Delta {
	delta := make(models.Delta)
	for store, products := range current {
		prevProducts, storeSeen := previous[store]
		for product, status := range products {
			if !status.IsAvailable() {
				continue
			}
			if !storeSeen {
				delta.Add(store, product)
				continue
			}
			prev, productSeen := prevProducts[product]
			if !productSeen || !prev.IsAvailable() {
				delta.Add(store, product)
			}
		}
	}
	return delta
}
