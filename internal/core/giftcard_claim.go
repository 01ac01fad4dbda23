package core

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"qanta-backend-go/internal/models"
)

// PointsPerCurrencyUnit is the price of one lira of gift card in points.
const PointsPerCurrencyUnit = 200

// MaxCardsPerClaim bounds one claim. Each card costs two writes in the issuing
// transaction, which Firestore caps at 500.
const MaxCardsPerClaim = 20

// Face value of one card per provider. It is also the minimum request.
var cardValues = map[string]float64{
	"amazon": 100,
	"paribu": 500,
	"dnr":    100,
	"gratis": 100,
}

var (
	claimAmountPattern   = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*tl`)
	claimQuantityPattern = regexp.MustCompile(`(?i)(\d+)\s*(?:adet|kart|x|×)`)
	claimEmailPattern    = regexp.MustCompile(`[a-zA-Z0-9._-]+@[a-zA-Z0-9._-]+\.[a-zA-Z0-9_-]+`)
	claimPhonePattern    = regexp.MustCompile(`0?5\d{2}\s?\d{3}\s?\d{2}\s?\d{2}`)
)

// IsGiftCardRequest reports whether a support request asks for a gift card.
func IsGiftCardRequest(category, subject, message string) bool {
	if category != "payment" {
		return false
	}
	text := strings.ToLower(subject + "\n" + message)
	return strings.Contains(text, "hediye kart") || strings.Contains(text, "gift card")
}

// ParseGiftCardClaim extracts a gift card order from free text. A written
// amount is the total and is rounded down to whole cards; without one the
// quantity ("2 adet", "3x") decides. It returns false when the total is below
// one card.
func ParseGiftCardClaim(message string) (models.GiftCardClaim, bool) {
	lower := strings.ToLower(message)

	provider := "amazon"
	switch {
	case strings.Contains(lower, "paribu") || strings.Contains(lower, "cineverse"):
		provider = "paribu"
	case strings.Contains(lower, "d&r") || strings.Contains(lower, "dnr"):
		provider = "dnr"
	case strings.Contains(lower, "gratis"):
		provider = "gratis"
	}
	value := cardValues[provider]

	quantity := 1
	if m := claimQuantityPattern.FindStringSubmatch(message); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			quantity = n
		}
	}
	if m := claimAmountPattern.FindStringSubmatch(message); m != nil {
		total, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			if total < value {
				return models.GiftCardClaim{}, false
			}
			quantity = int(math.Floor(total / value))
		}
	}

	claim := models.GiftCardClaim{
		Provider: provider,
		Amount:   value,
		Quantity: quantity,
		Email:    claimEmailPattern.FindString(message),
	}
	if phone := claimPhonePattern.FindString(message); phone != "" {
		claim.PhoneNumber = strings.ReplaceAll(phone, " ", "")
	}
	return claim, true
}

// ClaimPoints is the number of points a claim costs.
func ClaimPoints(c models.GiftCardClaim) int {
	return int(math.Ceil(c.Amount*PointsPerCurrencyUnit)) * c.Quantity
}
