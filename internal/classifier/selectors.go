package classifier

import "github.com/user/ferry-watch/internal/domain"

var availableSelectors = []domain.Selector{
	domain.CSS(".available"),
	domain.CSS(".booking-available"),
	domain.WithText("button", "Book"),
	domain.WithText("button", "Select"),
	domain.WithText("button", "Continue"),
	domain.CSS(".ferry-available"),
	domain.CSS(`[data-available="true"]`),
	domain.CSS(".price"),
	domain.CSS(".fare"),
}

var unavailableSelectors = []domain.Selector{
	domain.CSS(".unavailable"),
	domain.CSS(".sold-out"),
	domain.CSS(".no-availability"),
	domain.WithText("body *", "Not Available"),
	domain.WithText("body *", "Sold Out"),
	domain.WithText("body *", "No availability"),
	domain.WithText("body *", "Fully booked"),
	domain.WithText("body *", "No sailings"),
}

var positiveKeywords = []string{"available", "book now", "select", "continue", "price:", "fare", "£"}

// negativeKeywords are stripped from the text before positive matching, so
// "not available" never counts towards "available".
var negativeKeywords = []string{"not available", "unavailable", "sold out", "no availability", "fully booked", "no sailings"}
