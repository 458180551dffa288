package utils

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

const DATE_LAYOUT = "01/02/2006"

// TodayDate returns the current date as MM/DD/YYYY
func TodayDate() string {
	return FormatDate(time.Now())
}

func FormatDate(t time.Time) string {
	return t.Format(DATE_LAYOUT)
}

// HashPassword hashes password with bcrypt. A cost of 0 uses bcrypt.DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
