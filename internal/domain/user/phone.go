package user

import "regexp"

// Chilean mobile (+569) and Santiago landline (+562) numbers, eight digits after the prefix.
var phonePattern = regexp.MustCompile(`^\+56[29][0-9]{8}$`)

// ValidPhone reports whether phone is +569XXXXXXXX or +562XXXXXXXX
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}
