package types

import "time"

// Gender values accepted for a user record.
const (
	GenderMale   = "Male"
	GenderFemale = "Female"
	GenderOther  = "Other"
)

// ValidGender reports whether g is one of the accepted gender values.
func ValidGender(g string) bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// User represents a registered account or an administratively created
// user record.
type User struct {
	// ID is the unique identifier of the user, assigned at creation
	// and immutable afterwards.
	ID int `json:"id" db:"id"`

	// Email is the user's email address. Unique across all records;
	// also serves as the login key.
	Email string `json:"email" db:"email"`

	// Name is the user's display or full name.
	Name string `json:"name" db:"name"`

	// Gender is one of Male, Female, Other.
	Gender string `json:"gender" db:"gender"`

	// DOB is the date of birth in YYYY-MM-DD form.
	DOB string `json:"dob" db:"dob"`

	// Address is free-form postal address text.
	Address string `json:"address" db:"address"`

	// Pincode is the postal code.
	Pincode string `json:"pincode" db:"pincode"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// Empty for records created through the administrative endpoint.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the record was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
