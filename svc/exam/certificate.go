package exam

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var certificateNumberRe = regexp.MustCompile(`^LP-\d{4}-[0-9A-F]{8}$`)

// NewCertificateNumber returns a number of the form LP-<year>-<8 hex>.
func NewCertificateNumber(issued time.Time) string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("LP-%d-%s", issued.Year(), id[:8])
}

func ValidCertificateNumber(s string) bool {
	return certificateNumberRe.MatchString(s)
}
