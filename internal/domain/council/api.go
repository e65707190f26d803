package council

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/barangay/egov/internal/platform/apiclient"
)

// API is the council area of the backend.
type API struct {
	c *apiclient.Client
}

func NewAPI(c *apiclient.Client) *API {
	return &API{c: c}
}

func (a *API) ListResolutions(ctx context.Context, q url.Values) (apiclient.Page[Resolution], error) {
	return apiclient.GetList[Resolution](ctx, a.c, "resolution", q)
}

func (a *API) GetResolution(ctx context.Context, id int) (Resolution, error) {
	var out Resolution
	if err := a.c.Get(ctx, fmt.Sprintf("resolution/%d", id), nil, &out); err != nil {
		return Resolution{}, err
	}
	return out, nil
}

func (a *API) CreateResolution(ctx context.Context, f ResolutionForm) (Resolution, error) {
	var out Resolution
	if err := a.c.Post(ctx, "resolution", f, &out); err != nil {
		return Resolution{}, err
	}
	return out, nil
}

func (a *API) UpdateResolution(ctx context.Context, id int, f ResolutionForm) (Resolution, error) {
	var out Resolution
	if err := a.c.Put(ctx, updatePath(id), f, &out); err != nil {
		return Resolution{}, err
	}
	return out, nil
}

// SetArchived flips the archive flag through the update endpoint.
func (a *API) SetArchived(ctx context.Context, id int, archived bool) error {
	return a.c.Put(ctx, updatePath(id), map[string]bool{"res_is_archive": archived}, nil)
}

func (a *API) DeleteResolution(ctx context.Context, id int) error {
	return a.c.Delete(ctx, fmt.Sprintf("resolution/%d", id), nil)
}

// UploadFile attaches the resolution document to resolution resNum.
func (a *API) UploadFile(ctx context.Context, resNum int, f Attachment) (ResolutionFile, error) {
	var out ResolutionFile
	err := a.c.PostMultipart(ctx, "resolution-file", upload(resNum, "rf_file", f), &out)
	return out, err
}

func (a *API) DeleteFile(ctx context.Context, id int) error {
	return a.c.Delete(ctx, "resolution-file", url.Values{"rf_id": {strconv.Itoa(id)}})
}

// UploadSupp attaches a supporting document to resolution resNum.
func (a *API) UploadSupp(ctx context.Context, resNum int, f Attachment) (SuppDoc, error) {
	var out SuppDoc
	err := a.c.PostMultipart(ctx, "resolution-supp", upload(resNum, "rsd_file", f), &out)
	return out, err
}

func (a *API) DeleteSupp(ctx context.Context, id int) error {
	return a.c.Delete(ctx, "resolution-supp", url.Values{"rsd_id": {strconv.Itoa(id)}})
}

func upload(resNum int, field string, f Attachment) *apiclient.Multipart {
	m := &apiclient.Multipart{}
	return m.Field("res_num", strconv.Itoa(resNum)).File(apiclient.File{
		Field:       field,
		Name:        f.Name,
		ContentType: f.ContentType,
		Data:        f.Data,
	})
}

func updatePath(id int) string {
	return fmt.Sprintf("update-resolution/%d", id)
}
