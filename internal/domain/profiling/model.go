package profiling

import (
	"strings"
	"time"

	"github.com/barangay/egov/internal/platform/listview"
	"github.com/barangay/egov/internal/platform/validate"
)

const (
	ResourceResidents = "profiling.residents"
	ResourceResident  = "profiling.resident"
)

// Resident is a registered resident profile.
type Resident struct {
	ID             string `json:"rp_id"`
	FirstName      string `json:"per_fname"`
	MiddleName     string `json:"per_mname"`
	LastName       string `json:"per_lname"`
	Suffix         string `json:"per_suffix"`
	DOB            string `json:"per_dob"`
	Sex            string `json:"per_sex"`
	Contact        string `json:"per_contact"`
	Address        string `json:"per_address"`
	DateRegistered string `json:"rp_date_registered"`
	IsArchive      bool   `json:"rp_is_archive"`
}

// FullName joins the name parts, skipping blank ones.
func (r Resident) FullName() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{r.FirstName, r.MiddleName, r.LastName, r.Suffix} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Age is the resident's age in whole years on asOf, or -1 when the birth date
// is missing or malformed.
func (r Resident) Age(asOf time.Time) int {
	dob, err := time.Parse(validate.DateLayout, strings.TrimSpace(r.DOB))
	if err != nil || dob.After(asOf) {
		return -1
	}
	years := asOf.Year() - dob.Year()
	if asOf.Month() < dob.Month() || (asOf.Month() == dob.Month() && asOf.Day() < dob.Day()) {
		years--
	}
	return years
}

func (r Resident) Fields() listview.Fields {
	return listview.Fields{
		Text:     []string{r.FullName(), r.ID, r.Address},
		Status:   r.Sex,
		Date:     r.DateRegistered,
		Archived: r.IsArchive,
	}
}
