package accounts

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound          = errors.New("resource not found")
	ErrDuplicateEmail    = errors.New("an account with that email already exists")
	ErrDuplicatePhone    = errors.New("an account with that phone number already exists")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidStatus     = errors.New("invalid account status")
	QueryTimeoutDuration = time.Second * 5
)

// NormalizeEmail is the form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type Role string

const (
	RoleAdmin       Role = "ADMIN"
	RoleShopOwner   Role = "SHOP_OWNER"
	RoleSupplier    Role = "SUPPLIER"
	RoleDeliveryBoy Role = "DELIVERY_BOY"
)

// Roles lists every role in display order.
var Roles = []Role{RoleAdmin, RoleShopOwner, RoleSupplier, RoleDeliveryBoy}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleShopOwner, RoleSupplier, RoleDeliveryBoy:
		return true
	}
	return false
}

// SelfRegistrable reports whether an account with this role may be created
// through public registration. Administrators are seeded.
func (r Role) SelfRegistrable() bool {
	return r.Valid() && r != RoleAdmin
}

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusSuspended Status = "SUSPENDED"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusPending, StatusApproved, StatusRejected, StatusSuspended}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusSuspended:
		return true
	}
	return false
}

type Account struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	ShopName  *string   `json:"shop_name,omitempty"`
	Role      Role      `json:"role"`
	Status    Status    `json:"status"`
	Password  password  `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *Account) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}

func (a *Account) IsApproved() bool {
	return a != nil && a.Status == StatusApproved
}

// password keeps the plaintext (only during registration) and the bcrypt hash.
type password struct {
	text *string
	hash []byte
}

func (p *password) Set(text string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(text), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	p.text = &text
	p.hash = hash

	return nil
}

func (p *password) Compare(text string) error {
	return bcrypt.CompareHashAndPassword(p.hash, []byte(text))
}

// Hash returns the stored bcrypt hash.
func (p *password) Hash() []byte {
	return p.hash
}

// SetHash loads an existing bcrypt hash, e.g. one read by another package.
func (p *password) SetHash(hash []byte) {
	p.hash = hash
}

// StatusEvent is one row of an account's status history.
type StatusEvent struct {
	ID         int64     `json:"id" db:"id"`
	AccountID  int64     `json:"account_id" db:"account_id"`
	FromStatus Status    `json:"from_status" db:"from_status"`
	ToStatus   Status    `json:"to_status" db:"to_status"`
	ChangedBy  *int64    `json:"changed_by,omitempty" db:"changed_by"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// ListFilters narrows the admin account listing. Zero values mean "any".
type ListFilters struct {
	Status Status
	Role   Role
	Search string
}
