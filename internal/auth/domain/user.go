package domain

import "time"

// User is an end-user in the directory.
type User struct {
	ID    string
	UID   string
	Mail  string
	Phone string

	// TOTPSecret, when enrolled, makes user_code a time-based one-time code.
	TOTPSecret *string
	// UserCodeHash is the argon2id hash of a static user_code.
	UserCodeHash *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Directory attribute names that hints can be matched against.
const (
	AttrUID   = "uid"
	AttrMail  = "mail"
	AttrPhone = "phone"
)

// Attribute returns the value of a directory attribute.
func (u User) Attribute(name string) string {
	switch name {
	case AttrUID:
		return u.UID
	case AttrMail:
		return u.Mail
	case AttrPhone:
		return u.Phone
	default:
		return ""
	}
}

// DeviceRegistration binds an out-of-band notification token, such as a
// push-service handle, to a user. The consent endpoints authenticate the
// device by the same token.
type DeviceRegistration struct {
	UserID      string
	Token       string
	Fingerprint string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
