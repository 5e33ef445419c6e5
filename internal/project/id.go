package project

import (
	"encoding/binary"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const idSuffixLen = 9

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,127}$`)

// NewID returns an id of the form project-<unix millis>-<9 base36 chars>.
func NewID() string {
	return newIDAt(time.Now())
}

func newIDAt(now time.Time) string {
	u := uuid.New()
	n := binary.BigEndian.Uint64(u[:8])
	suffix := strconv.FormatUint(n, 36)
	if len(suffix) < idSuffixLen {
		suffix = strings.Repeat("0", idSuffixLen-len(suffix)) + suffix
	}
	return fmt.Sprintf("project-%d-%s", now.UnixMilli(), suffix[:idSuffixLen])
}

// ValidID reports whether id is safe to use as a single path segment.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}
