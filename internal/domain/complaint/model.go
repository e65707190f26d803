package complaint

import (
	"strings"
	"time"

	"github.com/barangay/egov/internal/platform/subrecord"
	"github.com/barangay/egov/internal/platform/validate"
)

const (
	ResourceResidents  = "complaint.residents"
	ResourceComplaints = "complaint.complaints"
)

// Incident types offered by the blotter form.
const (
	IncidentTheft      = "Theft"
	IncidentAssault    = "Physical Assault"
	IncidentNoise      = "Noise Complaint"
	IncidentProperty   = "Property Damage"
	IncidentThreat     = "Threat"
	IncidentHarassment = "Harassment"
	IncidentNeighbor   = "Neighbor Dispute"
	IncidentOther      = "Other"
)

var IncidentTypes = []string{
	IncidentTheft, IncidentAssault, IncidentNoise, IncidentProperty,
	IncidentThreat, IncidentHarassment, IncidentNeighbor, IncidentOther,
}

var Genders = []string{"Male", "Female"}

const (
	maxAttachments    = 5
	maxAttachmentSize = 10 << 20
)

// ResidentOption is one entry of the resident directory used for auto-fill.
type ResidentOption struct {
	ID      string `json:"rp_id"`
	Name    string `json:"name"`
	Age     int    `json:"age"`
	Gender  string `json:"gender"`
	Address string `json:"address"`
	Contact string `json:"contact"`
}

// Person is a complainant or an accused party. ResidentID links the person to
// the resident directory; it is empty for non-residents.
type Person struct {
	ResidentID  string `json:"rp_id,omitempty"`
	Name        string `json:"name"`
	Age         string `json:"age"`
	Gender      string `json:"gender"`
	Address     string `json:"address"`
	Contact     string `json:"contact"`
	Description string `json:"description,omitempty"`
}

func checkPerson(p Person, requireContact bool) validate.Errors {
	e := validate.Errors{}
	validate.Required(e, "name", p.Name)
	validate.Required(e, "address", p.Address)
	validate.PositiveNumber(e, "age", p.Age)
	validate.OneOf(e, "gender", p.Gender, Genders...)
	if requireContact {
		validate.Required(e, "contact", p.Contact)
	}
	validate.Phone(e, "contact", p.Contact)
	return e
}

func checkComplainant(p Person) validate.Errors { return checkPerson(p, true) }

func checkAccused(p Person) validate.Errors { return checkPerson(p, false) }

// Attachment is an evidence file carried in the draft until submission.
type Attachment struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type,omitempty"`
	Data        []byte `json:"data"`
}

func checkAttachment(a Attachment) validate.Errors {
	e := validate.Errors{}
	validate.Required(e, "name", a.Name)
	switch {
	case len(a.Data) == 0:
		e.Add("data", "File is empty")
	case len(a.Data) > maxAttachmentSize:
		e.Add("data", "File must be 10 MB or smaller")
	}
	return e
}

// Incident is the description of what happened.
type Incident struct {
	Type       string `json:"comp_incident_type"`
	Allegation string `json:"comp_allegation"`
	Location   string `json:"comp_location"`
	Date       string `json:"comp_date"`
	Time       string `json:"comp_time"`
}

func (in Incident) Validate(now time.Time) validate.Errors {
	e := validate.Errors{}
	if validate.Required(e, "comp_incident_type", in.Type) {
		validate.OneOf(e, "comp_incident_type", in.Type, IncidentTypes...)
	}
	validate.Required(e, "comp_allegation", in.Allegation)
	validate.Required(e, "comp_location", in.Location)
	if validate.Required(e, "comp_date", in.Date) && validate.Date(e, "comp_date", in.Date) {
		validate.NotFuture(e, "comp_date", in.Date, now)
	}
	if in.Time != "" {
		if _, err := time.Parse("15:04", in.Time); err != nil {
			e.Add("comp_time", "Enter a valid time (HH:MM)")
		}
	}
	return e
}

// DateTime joins the incident date and time as sent to the backend.
func (in Incident) DateTime() string {
	if in.Time == "" {
		return in.Date
	}
	return in.Date + "T" + in.Time
}

// Draft is the complaint wizard state.
type Draft struct {
	Complainants subrecord.List[Person]     `json:"complainants"`
	Accused      subrecord.List[Person]     `json:"accused"`
	IncidentType string                     `json:"comp_incident_type"`
	Allegation   string                     `json:"comp_allegation"`
	Location     string                     `json:"comp_location"`
	Date         string                     `json:"comp_date"`
	Time         string                     `json:"comp_time"`
	Files        subrecord.List[Attachment] `json:"files"`
}

func (d Draft) Incident() Incident {
	return Incident{
		Type:       strings.TrimSpace(d.IncidentType),
		Allegation: strings.TrimSpace(d.Allegation),
		Location:   strings.TrimSpace(d.Location),
		Date:       strings.TrimSpace(d.Date),
		Time:       strings.TrimSpace(d.Time),
	}
}

// Filing is a complete complaint ready to be sent.
type Filing struct {
	Complainants []Person
	Accused      []Person
	Incident     Incident
	Files        []Attachment
}

// Filing converts the draft into the submission payload.
func (d Draft) Filing() Filing {
	return Filing{
		Complainants: d.Complainants.Values(),
		Accused:      d.Accused.Values(),
		Incident:     d.Incident(),
		Files:        d.Files.Values(),
	}
}

// Validate checks the whole filing, including every party.
func (f Filing) Validate(now time.Time) validate.Errors {
	e := validate.Errors{}
	validate.MinItems(e, "complainants", len(f.Complainants), 1)
	validate.MinItems(e, "accused", len(f.Accused), 1)
	for _, p := range f.Complainants {
		e.Merge("complainants", checkComplainant(p))
	}
	for _, p := range f.Accused {
		e.Merge("accused", checkAccused(p))
	}
	e.Merge("", f.Incident.Validate(now))
	if len(f.Files) > maxAttachments {
		e.Add("files", "Attach at most 5 files")
	}
	return e
}

// Complaint is the backend's answer to a filing.
type Complaint struct {
	ID     int    `json:"comp_id"`
	Status string `json:"comp_status"`
}
