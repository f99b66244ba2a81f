package domain

// Phone number digit-count bounds. Ten digits covers Brazilian landlines
// with area code; fifteen is the E.164 maximum.
const (
	minPhoneDigits = 10
	maxPhoneDigits = 15
)

// ValidPhone checks a digits-only phone number. An empty value is accepted:
// phone is optional at signup.
func ValidPhone(phone string) bool {
	if phone == "" {
		return true
	}
	return len(phone) >= minPhoneDigits && len(phone) <= maxPhoneDigits
}
