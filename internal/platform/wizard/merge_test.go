package wizard

import (
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMergeJSON_PartialUpdateKeepsOtherFields(t *testing.T) {
	d := vaxDraft{
		Name:    "Ana",
		Age:     30,
		Tags:    []string{"senior"},
		Address: map[string]string{"purok": "1", "street": "Mabini"},
	}

	changed, err := MergeJSON(&d, []byte(`{"age": 31}`))
	if err != nil {
		t.Fatalf("MergeJSON: %v", err)
	}
	if diff := cmp.Diff([]string{"age"}, changed); diff != "" {
		t.Errorf("changed keys (-want +got):\n%s", diff)
	}
	if d.Age != 31 {
		t.Errorf("age = %d", d.Age)
	}
	if d.Name != "Ana" {
		t.Errorf("name changed to %q", d.Name)
	}
	if diff := cmp.Diff([]string{"senior"}, d.Tags); diff != "" {
		t.Errorf("tags changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]string{"purok": "1", "street": "Mabini"}, d.Address); diff != "" {
		t.Errorf("address changed (-want +got):\n%s", diff)
	}
}

func TestMergeJSON_NestedValuesReplaced(t *testing.T) {
	d := vaxDraft{Address: map[string]string{"purok": "1", "street": "Mabini"}, Tags: []string{"a", "b"}}
	if _, err := MergeJSON(&d, []byte(`{"address": {"purok": "4"}, "tags": ["c"]}`)); err != nil {
		t.Fatalf("MergeJSON: %v", err)
	}
	if diff := cmp.Diff(map[string]string{"purok": "4"}, d.Address); diff != "" {
		t.Errorf("address (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"c"}, d.Tags); diff != "" {
		t.Errorf("tags (-want +got):\n%s", diff)
	}
}

func TestMergeJSON_ExplicitNullClears(t *testing.T) {
	d := vaxDraft{Name: "Ana", Tags: []string{"a"}}
	if _, err := MergeJSON(&d, []byte(`{"tags": null}`)); err != nil {
		t.Fatalf("MergeJSON: %v", err)
	}
	if d.Tags != nil {
		t.Errorf("tags = %v", d.Tags)
	}
	if d.Name != "Ana" {
		t.Errorf("name = %q", d.Name)
	}
}

func TestMergeJSON_RejectsAllOrNothing(t *testing.T) {
	tests := []struct {
		name   string
		patch  string
		locked []string
	}{
		{"unknown key", `{"name": "Ben", "nickname": "B"}`, nil},
		{"ignored key", `{"name": "Ben", "Secret": "x"}`, nil},
		{"locked key", `{"name": "Ben", "doses": []}`, []string{"doses"}},
		{"bad type", `{"name": "Ben", "age": "thirty"}`, nil},
		{"not an object", `["name"]`, nil},
		{"empty body", ``, nil},
		{"malformed", `{"name": `, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := vaxDraft{Name: "Ana", Age: 30}
			_, err := MergeJSON(&d, []byte(tt.patch), tt.locked...)
			if err == nil {
				t.Fatal("expected error")
			}
			we, ok := err.(*Error)
			if !ok || we.StatusCode() != http.StatusBadRequest {
				t.Errorf("expected 400 *Error, got %T %v", err, err)
			}
			if d.Name != "Ana" || d.Age != 30 {
				t.Errorf("draft changed on rejected patch: %+v", d)
			}
		})
	}
}

func TestMergeJSON_RequiresStructPointer(t *testing.T) {
	var d vaxDraft
	if _, err := MergeJSON(d, []byte(`{}`)); err == nil {
		t.Error("expected error for non-pointer target")
	}
}
