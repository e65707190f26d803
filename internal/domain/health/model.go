package health

import (
	"strconv"
	"strings"
	"time"

	"github.com/barangay/egov/internal/platform/listview"
	"github.com/barangay/egov/internal/platform/subrecord"
	"github.com/barangay/egov/internal/platform/validate"
)

const (
	ResourceChildRecords = "health.child_records"
	ResourceMedicines    = "health.medicines"
	ResourceVaccines     = "health.vaccines"
)

// LowStockThreshold is the quantity at or below which an item is flagged.
const LowStockThreshold = 10

var (
	Sexes           = []string{"Male", "Female"}
	DeliveryPlaces  = []string{"Home", "Hospital", "Lying-in", "Health Center"}
	VaccineTypes    = []string{"BCG", "Hepatitis B", "Pentavalent", "OPV", "IPV", "PCV", "MMR"}
	Doses           = []string{"1st Dose", "2nd Dose", "3rd Dose", "Booster"}
	IronSupplements = []string{"Iron Drops", "Iron Syrup", "Iron Tablet"}
)

// Medicine is a medicine stock entry.
type Medicine struct {
	ID        int    `json:"minv_id"`
	Name      string `json:"med_name"`
	Type      string `json:"med_type"`
	Quantity  int    `json:"minv_qty_avail"`
	Unit      string `json:"minv_qty_unit"`
	Expiry    string `json:"minv_expiry"`
	IsArchive bool   `json:"minv_is_archive"`
}

func (m Medicine) Fields() listview.Fields {
	return listview.Fields{
		Text:     []string{m.Name, m.Type},
		Date:     m.Expiry,
		Archived: m.IsArchive,
	}
}

// Vaccine is a vaccine stock entry.
type Vaccine struct {
	ID       int    `json:"vacStck_id"`
	Name     string `json:"vac_name"`
	Type     string `json:"vac_type"`
	Quantity int    `json:"vacStck_qty_avail"`
	Expiry   string `json:"vacStck_expiry"`
}

// StockAlerts counts inventory items that need attention.
type StockAlerts struct {
	LowStock int `json:"low_stock"`
	Expired  int `json:"expired"`
}

func (a *StockAlerts) add(qty int, expiry string, today string) {
	if qty <= LowStockThreshold {
		a.LowStock++
	}
	if expiry != "" && len(expiry) >= 10 && expiry[:10] < today {
		a.Expired++
	}
}

// Inventory is the combined medicine and vaccine stock.
type Inventory struct {
	Medicines []Medicine  `json:"medicines"`
	Vaccines  []Vaccine   `json:"vaccines"`
	Alerts    StockAlerts `json:"alerts"`
}

// NewInventory builds the inventory and its alerts as of now.
func NewInventory(meds []Medicine, vacs []Vaccine, now time.Time) Inventory {
	inv := Inventory{Medicines: meds, Vaccines: vacs}
	if inv.Medicines == nil {
		inv.Medicines = []Medicine{}
	}
	if inv.Vaccines == nil {
		inv.Vaccines = []Vaccine{}
	}
	today := now.Format(validate.DateLayout)
	for _, m := range inv.Medicines {
		inv.Alerts.add(m.Quantity, m.Expiry, today)
	}
	for _, v := range inv.Vaccines {
		inv.Alerts.add(v.Quantity, v.Expiry, today)
	}
	return inv
}

// VaccineDose is one immunization entry.
type VaccineDose struct {
	VaccineType string `json:"vaccineType"`
	Dose        string `json:"dose"`
	Date        string `json:"date"`
}

func checkVaccineDose(now func() time.Time) subrecord.Check[VaccineDose] {
	return func(v VaccineDose) validate.Errors {
		e := validate.Errors{}
		if validate.Required(e, "vaccineType", v.VaccineType) {
			validate.OneOf(e, "vaccineType", v.VaccineType, VaccineTypes...)
		}
		if validate.Required(e, "dose", v.Dose) {
			validate.OneOf(e, "dose", v.Dose, Doses...)
		}
		checkPastDate(e, "date", v.Date, now())
		return e
	}
}

// IronDose is one iron supplementation entry.
type IronDose struct {
	Supplement string `json:"supplement"`
	Date       string `json:"date"`
}

func checkIronDose(now func() time.Time) subrecord.Check[IronDose] {
	return func(d IronDose) validate.Errors {
		e := validate.Errors{}
		validate.OneOf(e, "supplement", d.Supplement, IronSupplements...)
		checkPastDate(e, "date", d.Date, now())
		return e
	}
}

// VitalSign is one measurement taken during a visit.
type VitalSign struct {
	Date        string `json:"date"`
	WeightKg    string `json:"weight_kg"`
	HeightCm    string `json:"height_cm"`
	Temperature string `json:"temperature"`
	Notes       string `json:"notes,omitempty"`
}

func checkVitalSign(now func() time.Time) subrecord.Check[VitalSign] {
	return func(v VitalSign) validate.Errors {
		e := validate.Errors{}
		checkPastDate(e, "date", v.Date, now())
		if validate.Required(e, "weight_kg", v.WeightKg) {
			validate.PositiveNumber(e, "weight_kg", v.WeightKg)
		}
		if validate.Required(e, "height_cm", v.HeightCm) {
			validate.PositiveNumber(e, "height_cm", v.HeightCm)
		}
		if v.Temperature != "" {
			t, err := strconv.ParseFloat(strings.TrimSpace(v.Temperature), 64)
			if err != nil || t < 30 || t > 45 {
				e.Add("temperature", "Enter a temperature between 30 and 45 °C")
			}
		}
		return e
	}
}

func checkPastDate(e validate.Errors, field, value string, now time.Time) {
	if validate.Required(e, field, value) && validate.Date(e, field, value) {
		validate.NotFuture(e, field, value, now)
	}
}

// Draft is the child health record wizard state. Every step edits its own
// group of keys; the sub-record lists hold the repeated entries.
type Draft struct {
	// Child
	ResidentID      string `json:"rp_id"`
	FirstName       string `json:"chr_fname"`
	MiddleName      string `json:"chr_mname"`
	LastName        string `json:"chr_lname"`
	Sex             string `json:"chr_sex"`
	DOB             string `json:"chr_dob"`
	BirthOrder      string `json:"chr_birth_order"`
	PlaceOfDelivery string `json:"chr_place_delivery"`

	// Family
	MotherName       string `json:"mother_name"`
	MotherAge        string `json:"mother_age"`
	MotherOccupation string `json:"mother_occupation"`
	FatherName       string `json:"father_name"`
	FatherAge        string `json:"father_age"`
	FatherOccupation string `json:"father_occupation"`
	Address          string `json:"family_address"`
	Contact          string `json:"family_contact"`

	Vaccines        subrecord.List[VaccineDose] `json:"vaccines"`
	IronSupplements subrecord.List[IronDose]    `json:"iron_supplements"`
	VitalSigns      subrecord.List[VitalSign]   `json:"vital_signs"`
}

func (d Draft) checkChild(now time.Time) validate.Errors {
	e := validate.Errors{}
	validate.Required(e, "chr_fname", d.FirstName)
	validate.Required(e, "chr_lname", d.LastName)
	if validate.Required(e, "chr_sex", d.Sex) {
		validate.OneOf(e, "chr_sex", d.Sex, Sexes...)
	}
	checkPastDate(e, "chr_dob", d.DOB, now)
	validate.PositiveNumber(e, "chr_birth_order", d.BirthOrder)
	validate.OneOf(e, "chr_place_delivery", d.PlaceOfDelivery, DeliveryPlaces...)
	return e
}

func (d Draft) checkFamily() validate.Errors {
	e := validate.Errors{}
	validate.Required(e, "mother_name", d.MotherName)
	validate.PositiveNumber(e, "mother_age", d.MotherAge)
	validate.PositiveNumber(e, "father_age", d.FatherAge)
	validate.Required(e, "family_address", d.Address)
	validate.Phone(e, "family_contact", d.Contact)
	return e
}

// notBeforeBirth flags entries dated before the child's birth date.
func (d Draft) notBeforeBirth(e validate.Errors, field string, dates []string) {
	if _, err := time.Parse(validate.DateLayout, d.DOB); err != nil {
		return
	}
	for _, date := range dates {
		if date != "" && date < d.DOB {
			e.Add(field, "Dates cannot be before the child's birth date")
			return
		}
	}
}

func (d *Draft) checkImmunization() validate.Errors {
	e := validate.Errors{}
	var dates []string
	seen := map[string]bool{}
	for _, v := range d.Vaccines.Values() {
		dates = append(dates, v.Date)
		k := v.VaccineType + "/" + v.Dose
		if seen[k] {
			e.Add("vaccines", v.VaccineType+" "+v.Dose+" is recorded twice")
		}
		seen[k] = true
	}
	d.notBeforeBirth(e, "vaccines", dates)
	return e
}

func (d *Draft) checkSupplements() validate.Errors {
	e := validate.Errors{}
	var dates []string
	for _, s := range d.IronSupplements.Values() {
		dates = append(dates, s.Date)
	}
	d.notBeforeBirth(e, "iron_supplements", dates)
	return e
}

func (d *Draft) checkVitalSigns() validate.Errors {
	e := validate.Errors{}
	validate.MinItems(e, "vital_signs", d.VitalSigns.Len(), 1)
	var dates []string
	for _, v := range d.VitalSigns.Values() {
		dates = append(dates, v.Date)
	}
	d.notBeforeBirth(e, "vital_signs", dates)
	return e
}

// ChildInfo is the child section of a record.
type ChildInfo struct {
	ResidentID      string `json:"rp_id,omitempty"`
	FirstName       string `json:"chr_fname"`
	MiddleName      string `json:"chr_mname"`
	LastName        string `json:"chr_lname"`
	Sex             string `json:"chr_sex"`
	DOB             string `json:"chr_dob"`
	BirthOrder      string `json:"chr_birth_order,omitempty"`
	PlaceOfDelivery string `json:"chr_place_delivery,omitempty"`
}

// FamilyInfo is the parents section of a record.
type FamilyInfo struct {
	MotherName       string `json:"mother_name"`
	MotherAge        string `json:"mother_age,omitempty"`
	MotherOccupation string `json:"mother_occupation,omitempty"`
	FatherName       string `json:"father_name,omitempty"`
	FatherAge        string `json:"father_age,omitempty"`
	FatherOccupation string `json:"father_occupation,omitempty"`
	Address          string `json:"family_address"`
	Contact          string `json:"family_contact,omitempty"`
}

// Record is the payload of POST health/child-health/record/.
type Record struct {
	Child           ChildInfo     `json:"child"`
	Family          FamilyInfo    `json:"family"`
	Vaccines        []VaccineDose `json:"vaccines"`
	IronSupplements []IronDose    `json:"iron_supplements"`
	VitalSigns      []VitalSign   `json:"vital_signs"`
}

// Record assembles the submission payload from the draft.
func (d Draft) Record() Record {
	r := Record{
		Child: ChildInfo{
			ResidentID:      d.ResidentID,
			FirstName:       strings.TrimSpace(d.FirstName),
			MiddleName:      strings.TrimSpace(d.MiddleName),
			LastName:        strings.TrimSpace(d.LastName),
			Sex:             d.Sex,
			DOB:             d.DOB,
			BirthOrder:      d.BirthOrder,
			PlaceOfDelivery: d.PlaceOfDelivery,
		},
		Family: FamilyInfo{
			MotherName:       strings.TrimSpace(d.MotherName),
			MotherAge:        d.MotherAge,
			MotherOccupation: d.MotherOccupation,
			FatherName:       strings.TrimSpace(d.FatherName),
			FatherAge:        d.FatherAge,
			FatherOccupation: d.FatherOccupation,
			Address:          strings.TrimSpace(d.Address),
			Contact:          validate.NormalizePhone(d.Contact),
		},
		Vaccines:        d.Vaccines.Values(),
		IronSupplements: d.IronSupplements.Values(),
		VitalSigns:      d.VitalSigns.Values(),
	}
	if r.Vaccines == nil {
		r.Vaccines = []VaccineDose{}
	}
	if r.IronSupplements == nil {
		r.IronSupplements = []IronDose{}
	}
	if r.VitalSigns == nil {
		r.VitalSigns = []VitalSign{}
	}
	return r
}

// CreatedRecord is the backend's answer to a new record.
type CreatedRecord struct {
	ID        int    `json:"chr_id"`
	ChildName string `json:"child_name,omitempty"`
}
