package complaint

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/barangay/egov/internal/platform/apiclient"
)

// API is the complaint area of the backend.
type API struct {
	c *apiclient.Client
}

func NewAPI(c *apiclient.Client) *API {
	return &API{c: c}
}

func (a *API) ListResidents(ctx context.Context) (apiclient.Page[ResidentOption], error) {
	return apiclient.GetList[ResidentOption](ctx, a.c, "residentLists", nil)
}

// Create files a complaint. Parties are sent as JSON-encoded form fields next
// to the evidence files.
func (a *API) Create(ctx context.Context, f Filing) (Complaint, error) {
	m, err := filingForm(f)
	if err != nil {
		return Complaint{}, err
	}
	var out Complaint
	err = a.c.PostMultipart(ctx, "create", m, &out)
	return out, err
}

func filingForm(f Filing) (*apiclient.Multipart, error) {
	complainants, err := json.Marshal(f.Complainants)
	if err != nil {
		return nil, fmt.Errorf("encode complainants: %w", err)
	}
	accused, err := json.Marshal(f.Accused)
	if err != nil {
		return nil, fmt.Errorf("encode accused: %w", err)
	}
	m := &apiclient.Multipart{}
	m.Field("complainant", string(complainants)).
		Field("accused", string(accused)).
		Field("comp_incident_type", f.Incident.Type).
		Field("comp_allegation", f.Incident.Allegation).
		Field("comp_location", f.Incident.Location).
		Field("comp_datetime", f.Incident.DateTime())
	for _, file := range f.Files {
		m.File(apiclient.File{
			Field:       "complaint_file",
			Name:        file.Name,
			ContentType: file.ContentType,
			Data:        file.Data,
		})
	}
	return m, nil
}
