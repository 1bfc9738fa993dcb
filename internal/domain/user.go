package domain

import (
	"errors"
	"time"
)

// Gender as derived from the resident registration number.
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

// User is a registered application user.
type User struct {
	ID           string
	InternalID   int64
	Name         string
	PhoneNumber  string
	BirthDate    time.Time
	PasswordHash string
	Gender       Gender
	CreatedAt    time.Time
	Deleted      bool
}

// ErrInvalidResidentID is returned for a malformed resident number prefix.
var ErrInvalidResidentID = errors.New("invalid resident id")

// ParseResidentID derives birth date and gender from the six digit birth
// prefix (YYMMDD) and the gender digit of a resident registration number.
// Digits 1 and 2 denote the 1900s, 3 and 4 the 2000s; odd digits are male.
func ParseResidentID(front, genderDigit string) (time.Time, Gender, error) {
	if len(front) != 6 || len(genderDigit) != 1 {
		return time.Time{}, "", ErrInvalidResidentID
	}

	var century string
	var gender Gender
	switch genderDigit {
	case "1":
		century, gender = "19", GenderMale
	case "2":
		century, gender = "19", GenderFemale
	case "3":
		century, gender = "20", GenderMale
	case "4":
		century, gender = "20", GenderFemale
	default:
		return time.Time{}, "", ErrInvalidResidentID
	}

	birth, err := time.Parse("20060102", century+front)
	if err != nil {
		return time.Time{}, "", ErrInvalidResidentID
	}
	return birth, gender, nil
}
