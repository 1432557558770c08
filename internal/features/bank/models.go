// Package bank — касса магазина: отдельный счёт, куда стекается выручка
// и из которого финансируются возвраты. Не путать с балансами участников.
package bank

import "time"

// Bank — единственная строка таблицы bank (id всегда 1).
type Bank struct {
	Balance      int64     `db:"balance"`       // Текущий остаток кассы
	TotalRevenue int64     `db:"total_revenue"` // Вся выручка за всё время, только растёт
	LastUpdated  time.Time `db:"last_updated"`  // Время последней операции
}
