package clerk

import (
	"sort"
	"strings"
	"time"
)

const (
	ResourceCertificates = "clerk.certificates"
	ResourcePermits      = "clerk.business_permits"
)

// Request statuses used by the clerk backend.
const (
	StatusPending    = "Pending"
	StatusInProgress = "In Progress"
	StatusCompleted  = "Completed"
	StatusRejected   = "Rejected"
	StatusCancelled  = "Cancelled"
)

// Kinds of tracked requests.
const (
	KindCertificate    = "certificate"
	KindBusinessPermit = "business_permit"
)

// Certificate is a personal certification request.
type Certificate struct {
	ID          string `json:"cr_id"`
	ResidentID  string `json:"rp"`
	Type        string `json:"req_type"`
	Purpose     string `json:"req_purpose"`
	Status      string `json:"req_status"`
	RequestDate string `json:"req_request_date"`
	ClaimDate   string `json:"req_claim_date,omitempty"`
}

// BusinessPermit is a business permit request.
type BusinessPermit struct {
	ID           string `json:"bpr_id"`
	ResidentID   string `json:"rp"`
	BusinessName string `json:"bus_name"`
	Status       string `json:"req_status"`
	RequestDate  string `json:"req_request_date"`
}

// Request is one row of the resident's tracking list.
type Request struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Title       string    `json:"title"`
	Status      string    `json:"status"`
	RequestedAt time.Time `json:"requested_at"`
	Cancellable bool      `json:"cancellable"`
}

// IsPending reports whether status still allows cancellation.
func IsPending(status string) bool {
	return strings.EqualFold(strings.TrimSpace(status), StatusPending)
}

// parseRequestDate accepts the date and timestamp forms the backend uses.
func parseRequestDate(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func fromCertificate(c Certificate) Request {
	title := c.Type
	if c.Purpose != "" {
		title += " (" + c.Purpose + ")"
	}
	return Request{
		ID:          c.ID,
		Kind:        KindCertificate,
		Title:       title,
		Status:      c.Status,
		RequestedAt: parseRequestDate(c.RequestDate),
		Cancellable: IsPending(c.Status),
	}
}

func fromPermit(p BusinessPermit) Request {
	return Request{
		ID:          p.ID,
		Kind:        KindBusinessPermit,
		Title:       "Business permit: " + p.BusinessName,
		Status:      p.Status,
		RequestedAt: parseRequestDate(p.RequestDate),
	}
}

// Merge combines both request lists, newest first, keeping only rows whose
// status matches status when it is set.
func Merge(certs []Certificate, permits []BusinessPermit, status string) []Request {
	out := make([]Request, 0, len(certs)+len(permits))
	for _, c := range certs {
		out = append(out, fromCertificate(c))
	}
	for _, p := range permits {
		out = append(out, fromPermit(p))
	}
	if status != "" {
		kept := out[:0]
		for _, r := range out {
			if strings.EqualFold(r.Status, status) {
				kept = append(kept, r)
			}
		}
		out = kept
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].RequestedAt.Equal(out[j].RequestedAt) {
			return out[i].RequestedAt.After(out[j].RequestedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}
