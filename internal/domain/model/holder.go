package model

import (
	"fmt"
	"strconv"

	"jobboard-billing/internal/domain"
)

// HolderKind tags which job-board user table a holder id points into.
type HolderKind string

const (
	HolderEmployer  HolderKind = "employer"
	HolderJobseeker HolderKind = "jobseeker"
	HolderAdmin     HolderKind = "admin"
)

func (k HolderKind) Valid() bool {
	switch k {
	case HolderEmployer, HolderJobseeker, HolderAdmin:
		return true
	}
	return false
}

// Holder is a polymorphic reference to a job-board user: Employer(id),
// Jobseeker(id) or Admin(id). Ids are owned by the job-board core tables.
type Holder struct {
	Kind HolderKind `json:"kind"`
	ID   int64      `json:"id"`
}

func Employer(id int64) Holder  { return Holder{Kind: HolderEmployer, ID: id} }
func Jobseeker(id int64) Holder { return Holder{Kind: HolderJobseeker, ID: id} }
func Admin(id int64) Holder     { return Holder{Kind: HolderAdmin, ID: id} }

// NewHolder validates the kind/id pair.
func NewHolder(kind string, id int64) (Holder, error) {
	h := Holder{Kind: HolderKind(kind), ID: id}
	if err := h.Validate(); err != nil {
		return Holder{}, err
	}
	return h, nil
}

func (h Holder) Validate() error {
	if !h.Kind.Valid() {
		return fmt.Errorf("%w: unknown holder kind %q", domain.ErrInvalidArgument, h.Kind)
	}
	if h.ID <= 0 {
		return fmt.Errorf("%w: holder id must be positive", domain.ErrInvalidArgument)
	}
	return nil
}

func (h Holder) IsZero() bool        { return h.Kind == "" && h.ID == 0 }
func (h Holder) IsAdmin() bool       { return h.Kind == HolderAdmin }
func (h Holder) Equal(o Holder) bool { return h.Kind == o.Kind && h.ID == o.ID }
func (h Holder) String() string      { return string(h.Kind) + ":" + strconv.FormatInt(h.ID, 10) }

// Audience maps a paying holder onto the plan audience it may buy from.
func (h Holder) Audience() (Audience, bool) {
	switch h.Kind {
	case HolderEmployer:
		return AudienceEmployer, true
	case HolderJobseeker:
		return AudienceJobseeker, true
	}
	return "", false
}
