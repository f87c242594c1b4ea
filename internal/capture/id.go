package capture

import (
	"crypto/rand"
	"regexp"
	"strconv"
	"time"
)

const (
	idPrefix     = "img_"
	suffixLength = 9
	base36       = "0123456789abcdefghijklmnopqrstuvwxyz"
)

var idPattern = regexp.MustCompile(`^img_\d+_[0-9a-z]{9}$`)

// NewID generates an image identifier of the form img_<epoch-ms>_<suffix>
// where suffix is nine random base36 characters. Uniqueness is probabilistic.
func NewID(now time.Time) string {
	return idPrefix + strconv.FormatInt(now.UnixMilli(), 10) + "_" + randomSuffix(suffixLength)
}

// ValidID reports whether id follows the image identifier scheme.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// randomSuffix draws n base36 characters. Bytes at or above 252 are
// redrawn so every character is equally likely.
func randomSuffix(n int) string {
	const limit = 252 // largest multiple of 36 that fits in a byte
	out := make([]byte, 0, n)
	buf := make([]byte, n+n/2)
	for len(out) < n {
		rand.Read(buf)
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, base36[b%36])
			if len(out) == n {
				break
			}
		}
	}
	return string(out)
}
