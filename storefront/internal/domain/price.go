package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Price is a unit price in integer currency units. The catalog sometimes sends
// it as a formatted string ("15 000 FCFA"), so the raw value is kept and parsed
// on use.
type Price string

func PriceOf(units int64) Price {
	return Price(strconv.FormatInt(units, 10))
}

// Units strips every non-digit character and parses the rest. A value with no
// digits is 0.
func (p Price) Units() int64 {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, string(p))
	if digits == "" {
		return 0
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// isCanonical reports whether p is exactly the decimal form of an int64, the
// only form written as a bare JSON number.
func (p Price) isCanonical() bool {
	n, err := strconv.ParseInt(string(p), 10, 64)
	return err == nil && strconv.FormatInt(n, 10) == string(p)
}

func (p Price) MarshalJSON() ([]byte, error) {
	if p.isCanonical() {
		return []byte(p), nil
	}
	return json.Marshal(string(p))
}

func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("price: %w", err)
		}
		*p = Price(s)
		return nil
	}

	n := json.Number(data)
	if i, err := n.Int64(); err == nil {
		*p = PriceOf(i)
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("price: invalid number %q", string(data))
	}
	// out of int64 range: keep the raw text, Units reports 0 for it
	if f >= math.MaxInt64 || f <= math.MinInt64 {
		*p = Price(data)
		return nil
	}
	*p = PriceOf(int64(f))
	return nil
}
