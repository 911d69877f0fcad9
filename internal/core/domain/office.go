package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrParentNotFound = errors.New("parent office not found")
	ErrDuplicateName  = errors.New("office name already in use")
)

// Office is one node of a tenant's office hierarchy. Hierarchy is the dotted
// ancestor path (".", ".2.", ".2.5.") maintained on create and re-parent.
type Office struct {
	ID                  int64
	TenantID            string
	Name                string
	ExternalID          string
	ParentID            *int64
	Hierarchy           string
	OpeningDate         time.Time
	CIN                 string
	ROC                 string
	CompanyName         string
	CompanyStatus       string
	RegistrationAddress string
	Funds               *int64
	RegistrationNumber  *int64
	IncorporatedDate    time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (o Office) Validate() error {
	if o.TenantID == "" {
		return errors.New("office tenant must be set")
	}
	if strings.TrimSpace(o.Name) == "" {
		return errors.New("office name must be set")
	}
	if o.ParentID != nil && *o.ParentID <= 0 {
		return errors.New("office parent id must be positive")
	}
	return nil
}

// ChildHierarchy returns the hierarchy path for a direct child of this
// office.
func (o Office) ChildHierarchy() string {
	return fmt.Sprintf("%s%d.", o.Hierarchy, o.ID)
}

// RootHierarchy is the hierarchy of an office without a parent.
const RootHierarchy = "."

// OfficeListFilter narrows a tenant's office listing.
type OfficeListFilter struct {
	ParentID *int64
	AfterID  int64
	Limit    int
}
