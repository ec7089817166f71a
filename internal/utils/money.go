package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatAmount renders an integer amount with thousand separators and an
// optional currency prefix, e.g. "TZS 45,000".
func FormatAmount(currency string, amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	out := sign + formatThousand(amount)
	if currency = strings.TrimSpace(currency); currency != "" {
		return fmt.Sprintf("%s %s", currency, out)
	}
	return out
}

// MultiplyAmount returns price * n, refusing results that overflow int64.
func MultiplyAmount(price int64, n int) (int64, error) {
	if price < 0 || n < 0 {
		return 0, fmt.Errorf("negative amount")
	}
	if n == 0 || price == 0 {
		return 0, nil
	}
	total := price * int64(n)
	if total/int64(n) != price {
		return 0, fmt.Errorf("amount overflow")
	}
	return total, nil
}

func formatThousand(n int64) string {
	if n == 0 {
		return "0"
	}
	str := strconv.FormatInt(n, 10)
	var out strings.Builder
	for i, c := range str {
		if i != 0 && (len(str)-i)%3 == 0 {
			out.WriteByte(',')
		}
		out.WriteRune(c)
	}
	return out.String()
}
