package candidate

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

const fingerprintSeparator = "|"

// Fingerprint derives the identity of a candidate from name, email, phone,
// skills and education. Records that agree on these five fields collapse to
// the same value regardless of any other field.
func Fingerprint(r *Record) string {
	var fields [5]string
	if r != nil {
		fields = [5]string{
			r.FullName,
			r.Email,
			r.Phone,
			strings.Join(r.Skills, " "),
			r.Education,
		}
	}

	for i, field := range fields {
		fields[i] = strings.ToLower(strings.TrimSpace(field))
	}

	sum := md5.Sum([]byte(strings.Join(fields[:], fingerprintSeparator)))
	return hex.EncodeToString(sum[:])
}

// ContentHash is the key used to deduplicate raw resume text.
func ContentHash(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}
