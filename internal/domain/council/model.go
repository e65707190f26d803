package council

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/barangay/egov/internal/platform/listview"
	"github.com/barangay/egov/internal/platform/subrecord"
	"github.com/barangay/egov/internal/platform/validate"
)

const (
	ResourceResolutions = "council.resolutions"
	ResourceResolution  = "council.resolution"
)

// Areas of focus a resolution can be filed under.
const (
	AreaGAD      = "gad"
	AreaFinance  = "finance"
	AreaCouncil  = "council"
	AreaWaste    = "waste"
	AreaHealth   = "health"
	AreaSecurity = "security"
)

var Areas = []string{AreaGAD, AreaFinance, AreaCouncil, AreaWaste, AreaHealth, AreaSecurity}

// Resolution is a council resolution as returned by the backend.
type Resolution struct {
	ID           int              `json:"res_num"`
	Title        string           `json:"res_title"`
	DateApproved string           `json:"res_date_approved"`
	AreaOfFocus  []string         `json:"res_area_of_focus"`
	GprID        *int             `json:"gpr_id"`
	IsArchive    bool             `json:"res_is_archive"`
	Files        []ResolutionFile `json:"resolution_files"`
	SuppDocs     []SuppDoc        `json:"resolution_supp"`
}

func (r Resolution) Fields() listview.Fields {
	return listview.Fields{
		Text:     []string{r.Title, strings.Join(r.AreaOfFocus, " ")},
		Date:     r.DateApproved,
		Archived: r.IsArchive,
	}
}

// ResolutionFile is the signed resolution document.
type ResolutionFile struct {
	ID     int    `json:"rf_id"`
	ResNum int    `json:"res_num"`
	Name   string `json:"rf_name"`
	URL    string `json:"rf_url"`
}

// SuppDoc is a supporting document attached to a resolution.
type SuppDoc struct {
	ID     int    `json:"rsd_id"`
	ResNum int    `json:"res_num"`
	Name   string `json:"rsd_name"`
	URL    string `json:"rsd_url"`
}

// ResolutionForm is the editable part of a resolution.
type ResolutionForm struct {
	Title        string   `json:"res_title"`
	DateApproved string   `json:"res_date_approved"`
	AreaOfFocus  []string `json:"res_area_of_focus"`
	GprID        string   `json:"gpr_id,omitempty"`
}

// HasGAD reports whether the GAD proposal reference applies.
func HasGAD(areas []string) bool {
	return slices.Contains(areas, AreaGAD)
}

// ShowsGPR reports whether the GAD proposal field is shown for f.
func (f ResolutionForm) ShowsGPR() bool { return HasGAD(f.AreaOfFocus) }

// Normalize trims text, drops duplicate or blank areas and clears gpr_id
// unless "gad" is selected.
func (f ResolutionForm) Normalize() ResolutionForm {
	f.Title = strings.TrimSpace(f.Title)
	f.DateApproved = strings.TrimSpace(f.DateApproved)
	f.GprID = strings.TrimSpace(f.GprID)
	areas := make([]string, 0, len(f.AreaOfFocus))
	for _, a := range f.AreaOfFocus {
		a = strings.ToLower(strings.TrimSpace(a))
		if a != "" && !slices.Contains(areas, a) {
			areas = append(areas, a)
		}
	}
	f.AreaOfFocus = areas
	if !f.ShowsGPR() {
		f.GprID = ""
	}
	return f
}

func (f ResolutionForm) Validate(now time.Time) validate.Errors {
	errs := validate.Errors{}
	validate.Required(errs, "res_title", f.Title)
	if validate.Required(errs, "res_date_approved", f.DateApproved) && validate.Date(errs, "res_date_approved", f.DateApproved) {
		validate.NotFuture(errs, "res_date_approved", f.DateApproved, now)
	}
	if validate.MinItems(errs, "res_area_of_focus", len(f.AreaOfFocus), 1) {
		for _, a := range f.AreaOfFocus {
			if !validate.OneOf(errs, "res_area_of_focus", a, Areas...) {
				break
			}
		}
	}
	if f.ShowsGPR() {
		validate.Required(errs, "gpr_id", f.GprID)
	}
	return errs
}

// FormOf returns the editable fields of r.
func FormOf(r Resolution) ResolutionForm {
	f := ResolutionForm{
		Title:        r.Title,
		DateApproved: r.DateApproved,
		AreaOfFocus:  slices.Clone(r.AreaOfFocus),
	}
	if r.GprID != nil {
		f.GprID = strconv.Itoa(*r.GprID)
	}
	return f
}

// Attachment is a file held by the resolution wizard. Data is only set until
// the file reaches the backend, after which ServerID identifies it.
type Attachment struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type,omitempty"`
	Data        []byte `json:"data,omitempty"`
	URL         string `json:"url,omitempty"`
	ServerID    int    `json:"server_id,omitempty"`
}

func checkAttachment(a Attachment) validate.Errors {
	errs := validate.Errors{}
	validate.Required(errs, "name", a.Name)
	if a.ServerID == 0 && len(a.Data) == 0 {
		errs.Add("data", "Choose a file to upload")
	}
	return errs
}

// Draft is the resolution wizard's draft record.
type Draft struct {
	ResNum       int                        `json:"res_num,omitempty"`
	Title        string                     `json:"res_title"`
	DateApproved string                     `json:"res_date_approved"`
	AreaOfFocus  []string                   `json:"res_area_of_focus"`
	GprID        string                     `json:"gpr_id"`
	ShowGPR      bool                       `json:"show_gpr"`
	Files        subrecord.List[Attachment] `json:"files"`
	SuppDocs     subrecord.List[Attachment] `json:"supp_docs"`
}

func (d Draft) Form() ResolutionForm {
	return ResolutionForm{
		Title:        d.Title,
		DateApproved: d.DateApproved,
		AreaOfFocus:  d.AreaOfFocus,
		GprID:        d.GprID,
	}.Normalize()
}
