package helpers

import (
	"strconv"
	"time"
)

func StringToInt(s string) (int, error) {
	return strconv.Atoi(s)
}

func ParseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
