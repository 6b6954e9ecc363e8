package domain

import "strings"

// NormalizePhone formats a free-text Russian phone number as +7 (XXX) XXX-XX-XX.
// Inputs that do not reduce to an 11-digit mobile number are returned trimmed,
// unchanged.
func NormalizePhone(phone string) string {
	var digits []byte
	for i := 0; i < len(phone); i++ {
		if phone[i] >= '0' && phone[i] <= '9' {
			digits = append(digits, phone[i])
		}
	}
	switch {
	case len(digits) == 11 && (digits[0] == '7' || digits[0] == '8'):
		digits[0] = '7'
	case len(digits) == 10:
		digits = append([]byte{'7'}, digits...)
	}
	if len(digits) != 11 {
		return strings.TrimSpace(phone)
	}
	d := string(digits)
	return "+7 (" + d[1:4] + ") " + d[4:7] + "-" + d[7:9] + "-" + d[9:11]
}
