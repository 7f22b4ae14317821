// utils/format.go
package utils

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var coinPrinter = message.NewPrinter(language.English)

// FormatCoins renders an amount with digit grouping, e.g. "1,200 COIN".
func FormatCoins(amount int64) string {
	return coinPrinter.Sprintf("%d COIN", amount)
}
