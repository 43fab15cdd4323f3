package alerts

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/angelmondragon/armory-backend/pkg/db/models"
)

// Aggregate sums rounds per caliber. Lots without a caliber count under
// models.UnknownCaliber and lots without a count contribute zero.
func Aggregate(lots []models.AmmoLot) map[string]int {
	totals := make(map[string]int)
	for _, lot := range lots {
		totals[lot.CaliberKey()] += lot.Rounds()
	}
	return totals
}

var printer = message.NewPrinter(language.English)

// FormatAlert renders the low-stock message with thousands separators.
func FormatAlert(caliber string, available, minimum int) string {
	return printer.Sprintf("Low ammo alert: %s is down to %d rounds (minimum %d).", caliber, available, minimum)
}
