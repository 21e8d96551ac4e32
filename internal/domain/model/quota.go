package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"jobboard-billing/internal/domain"
)

// Quota is the ceiling for a countable resource. Zero means none of the
// resource is granted; Unlimited means there is no ceiling.
type Quota int64

// Unlimited is stored as -1 in SQL and rendered as "unlimited" in JSON.
const Unlimited Quota = -1

const unlimitedLiteral = "unlimited"

func Limit(n int64) Quota { return Quota(n) }

func (q Quota) IsUnlimited() bool { return q == Unlimited }

func (q Quota) Valid() bool { return q >= Unlimited }

// Remaining returns how many units are left after used. Unlimited quotas
// return math.MaxInt64 so callers never see them as exhausted.
func (q Quota) Remaining(used int64) int64 {
	if q.IsUnlimited() {
		return math.MaxInt64
	}
	if left := int64(q) - used; left > 0 {
		return left
	}
	return 0
}

// Allows reports whether one more unit may be consumed.
func (q Quota) Allows(used int64) bool {
	return q.IsUnlimited() || used < int64(q)
}

func (q Quota) String() string {
	if q.IsUnlimited() {
		return unlimitedLiteral
	}
	return strconv.FormatInt(int64(q), 10)
}

func (q Quota) MarshalJSON() ([]byte, error) {
	if q.IsUnlimited() {
		return []byte(`"` + unlimitedLiteral + `"`), nil
	}
	return []byte(strconv.FormatInt(int64(q), 10)), nil
}

func (q *Quota) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		parsed, err := ParseQuota(s)
		if err != nil {
			return err
		}
		*q = parsed
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("%w: quota must be a non-negative integer or %q", domain.ErrInvalidArgument, unlimitedLiteral)
	}
	if n < 0 {
		return fmt.Errorf("%w: quota must be a non-negative integer or %q", domain.ErrInvalidArgument, unlimitedLiteral)
	}
	*q = Quota(n)
	return nil
}

// ParseQuota accepts "unlimited" or a non-negative decimal integer.
func ParseQuota(s string) (Quota, error) {
	if s == unlimitedLiteral {
		return Unlimited, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: invalid quota %q", domain.ErrInvalidArgument, s)
	}
	return Quota(n), nil
}
