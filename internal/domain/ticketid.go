package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Ticket ids come in two shapes. New tickets get the date-serial form
// T-YYYYMMDD-NNN, where the serial resets per calendar day. An older
// random scheme (T- followed by 8 hex characters) is still present on
// persisted tickets and must stay valid; it is never regenerated.
var (
	dateSerialIDPattern = regexp.MustCompile(`^T-\d{8}-\d{3}$`)
	legacyIDPattern     = regexp.MustCompile(`^T-[0-9A-F]{8}$`)
)

// NewTicketID formats a date-serial ticket id for the given day and serial.
func NewTicketID(day time.Time, serial int) string {
	return fmt.Sprintf("T-%s-%03d", day.Format("20060102"), serial)
}

// NewLegacyTicketID generates an id in the older random shape.
func NewLegacyTicketID() string {
	return "T-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// ValidTicketID reports whether the id matches either accepted shape.
func ValidTicketID(id string) bool {
	return dateSerialIDPattern.MatchString(id) || legacyIDPattern.MatchString(id)
}
