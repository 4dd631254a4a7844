package model

import (
	"time"

	"github.com/google/uuid"
)

// Identity is the canonical per-phone account record. Exactly one record
// exists per normalized phone number; UserID is assigned lazily on the first
// approved verification and never changes afterwards.
type Identity struct {
	ID            uuid.UUID
	Phone         string
	UserID        *string
	IsVerified    bool
	CreatedAt     time.Time
	LastOTPSentAt *time.Time
	LastLogin     *time.Time
}

// HasUserID reports whether a stable user id has been assigned yet. A record
// without one is a valid intermediate state (OTP sent, never verified).
func (i Identity) HasUserID() bool {
	return i.UserID != nil && *i.UserID != ""
}

// Profile is the matrimonial profile document owned by an identity. It is
// keyed by the identity's UserID and may be created any time after that id
// exists. Images are stored base64-encoded; the gallery list is append-only.
type Profile struct {
	ID             uuid.UUID
	UserID         string
	FullName       *string
	FathersName    *string
	MothersName    *string
	Interests      []string
	DateOfBirth    *time.Time
	BirthPlace     *string
	Education      *string
	HomeTown       *string
	MamaPariwar    *string
	Manglik        *bool
	HeightCm       *float64
	Age            *int
	Gotra          *string
	JobEmployer    *string
	JobDesignation *string
	JobLocation    *string
	SalaryRange    *string
	AboutMe        *string
	ProfileImage   *string
	GalleryImages  []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Salary range dropdown values (lakhs per year).
const (
	SalaryBelow1L  = "below_1l"
	Salary1To2L    = "1_2l"
	Salary2To3L    = "2_3l"
	Salary3To5L    = "3_5l"
	Salary5To7L    = "5_7l"
	Salary7To10L   = "7_10l"
	Salary10To15L  = "10_15l"
	Salary15To25L  = "15_25l"
	SalaryAbove25L = "above_25l"
)
