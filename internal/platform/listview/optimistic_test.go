package listview

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/barangay/egov/internal/platform/apiclient"
	"github.com/barangay/egov/internal/platform/query"
)

func TestDropRow_LeavesSnapshotIntact(t *testing.T) {
	c := query.NewClient()
	key := query.NewKey("residents", url.Values{"page": {"1"}})
	orig := apiclient.Page[resident]{Results: []resident{{ID: "1"}, {ID: "2"}, {ID: "3"}}, Count: 3}
	c.SetQueryData(key, orig)
	snap := c.Snapshot("residents")

	if n := DropRow(c, "residents", func(r resident) bool { return r.ID == "2" }); n != 1 {
		t.Fatalf("updated %d keys", n)
	}
	got, _ := query.GetQueryData[apiclient.Page[resident]](c, key)
	if diff := cmp.Diff([]resident{{ID: "1"}, {ID: "3"}}, got.Results); diff != "" {
		t.Errorf("after drop (-want +got):\n%s", diff)
	}
	if got.Count != 2 {
		t.Errorf("count = %d", got.Count)
	}

	c.Restore(snap)
	got, _ = query.GetQueryData[apiclient.Page[resident]](c, key)
	if diff := cmp.Diff(orig, got); diff != "" {
		t.Errorf("after restore (-want +got):\n%s", diff)
	}
}

func TestPatchRow(t *testing.T) {
	c := query.NewClient()
	key := query.NewKey("residents", nil)
	c.SetQueryData(key, apiclient.Page[resident]{Results: []resident{{ID: "1", Name: "a"}, {ID: "2", Name: "b"}}, Count: 2})

	PatchRow(c, "residents", func(r resident) bool { return r.ID == "1" }, func(r resident) resident {
		r.Name = "patched"
		return r
	})
	got, _ := query.GetQueryData[apiclient.Page[resident]](c, key)
	if got.Results[0].Name != "patched" || got.Results[1].Name != "b" {
		t.Errorf("unexpected rows %+v", got.Results)
	}
}
