package waste

import (
	"strings"
	"time"

	"github.com/barangay/egov/internal/platform/listview"
	"github.com/barangay/egov/internal/platform/validate"
)

// Cache families.
const (
	ResourceTrucks    = "waste.trucks"
	ResourcePersonnel = "waste.personnel"
)

// Truck statuses.
const (
	StatusOperational = "Operational"
	StatusMaintenance = "Under Maintenance"
)

// Personnel positions.
const (
	PositionDriver    = "Driver Loader"
	PositionLoader    = "Loader"
	PositionCollector = "Collector"
)

// Truck is a garbage collection truck as the backend returns it.
type Truck struct {
	ID        int    `json:"truck_id"`
	PlateNum  string `json:"truck_plate_num"`
	Model     string `json:"truck_model"`
	Capacity  string `json:"truck_capacity"`
	Status    string `json:"truck_status"`
	LastMaint string `json:"truck_last_maint"`
	IsArchive bool   `json:"truck_is_archive"`
}

// Fields exposes the truck to client-side list filtering.
func (t Truck) Fields() listview.Fields {
	return listview.Fields{
		Text:     []string{t.PlateNum, t.Model},
		Status:   t.Status,
		Date:     t.LastMaint,
		Archived: t.IsArchive,
	}
}

// TruckForm is the create/update body.
type TruckForm struct {
	PlateNum  string `json:"truck_plate_num"`
	Model     string `json:"truck_model"`
	Capacity  string `json:"truck_capacity"`
	Status    string `json:"truck_status"`
	LastMaint string `json:"truck_last_maint"`
}

// Normalize trims every field and upper-cases the plate number.
func (f TruckForm) Normalize() TruckForm {
	f.PlateNum = strings.ToUpper(strings.TrimSpace(f.PlateNum))
	f.Model = strings.TrimSpace(f.Model)
	f.Capacity = strings.TrimSpace(f.Capacity)
	f.Status = strings.TrimSpace(f.Status)
	f.LastMaint = strings.TrimSpace(f.LastMaint)
	if f.Status == "" {
		f.Status = StatusOperational
	}
	return f
}

func (f TruckForm) Validate(now time.Time) validate.Errors {
	errs := validate.Errors{}
	validate.Required(errs, "truck_plate_num", f.PlateNum)
	validate.Required(errs, "truck_model", f.Model)
	if validate.Required(errs, "truck_capacity", f.Capacity) {
		validate.PositiveNumber(errs, "truck_capacity", f.Capacity)
	}
	validate.OneOf(errs, "truck_status", f.Status, StatusOperational, StatusMaintenance)
	if validate.Required(errs, "truck_last_maint", f.LastMaint) && validate.Date(errs, "truck_last_maint", f.LastMaint) {
		validate.NotFuture(errs, "truck_last_maint", f.LastMaint, now)
	}
	return errs
}

// FormOf returns the editable fields of t.
func FormOf(t Truck) TruckForm {
	return TruckForm{PlateNum: t.PlateNum, Model: t.Model, Capacity: t.Capacity, Status: t.Status, LastMaint: t.LastMaint}
}

// Personnel is a waste management staff member.
type Personnel struct {
	ID        int    `json:"wstp_id"`
	FullName  string `json:"full_name"`
	Position  string `json:"position"`
	Contact   string `json:"contact_num"`
	IsArchive bool   `json:"wstp_is_archive"`
}

// Fleet is the dashboard summary of trucks and the drivers available for them.
type Fleet struct {
	Trucks           []Truck     `json:"trucks"`
	Drivers          []Personnel `json:"drivers"`
	Operational      int         `json:"operational"`
	UnderMaintenance int         `json:"under_maintenance"`
}

func newFleet(trucks []Truck, drivers []Personnel) Fleet {
	f := Fleet{Trucks: trucks, Drivers: drivers}
	for _, t := range trucks {
		switch t.Status {
		case StatusOperational:
			f.Operational++
		case StatusMaintenance:
			f.UnderMaintenance++
		}
	}
	return f
}
