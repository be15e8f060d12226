package content

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestNormalizeServiceReplacesNilSlices(t *testing.T) {
	s := NormalizeService(Service{ID: "a", Title: "A", Description: "d"})
	if s.ProcessSteps == nil || s.Features == nil || s.Benefits == nil {
		t.Fatalf("expected non-nil slices, got %+v", s)
	}
}

func TestDefaultDataIsIndependentCopy(t *testing.T) {
	first := DefaultData()
	first.Services[0].Features[0] = "changed"
	first.Team = nil

	second := DefaultData()
	if second.Services[0].Features[0] == "changed" {
		t.Fatal("default data shares storage between calls")
	}
	if len(second.Team) != 2 || len(second.Services) != 3 || len(second.Jobs) != 1 {
		t.Fatalf("unexpected seed sizes: team=%d services=%d jobs=%d", len(second.Team), len(second.Services), len(second.Jobs))
	}
}

func TestPendingImageCannotBeSerialized(t *testing.T) {
	member := TeamMember{
		ID:    "m1",
		Name:  "Pat",
		Role:  "Coder",
		Image: NewPendingImage(PendingImage{Data: []byte{1, 2, 3}, MIMEType: "image/png"}),
	}
	_, err := json.Marshal(member)
	if !errors.Is(err, ErrPendingImage) {
		t.Fatalf("expected ErrPendingImage, got %v", err)
	}
}

func TestImageJSONRoundTrip(t *testing.T) {
	in := TeamMember{ID: "m1", Name: "Pat", Role: "Coder", Image: RemoteImage("https://cdn.example.com/a.png")}
	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"image":"https://cdn.example.com/a.png"`) {
		t.Fatalf("unexpected wire form: %s", raw)
	}

	var out TeamMember
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip mismatch: %+v != %+v", in, out)
	}
}

func TestImageNullDecodesToEmpty(t *testing.T) {
	var member TeamMember
	if err := json.Unmarshal([]byte(`{"id":"1","name":"A","role":"B","image":null}`), &member); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !member.Image.IsEmpty() {
		t.Fatalf("expected empty image, got %q", member.Image.URL())
	}
}

func TestPendingDataURL(t *testing.T) {
	p := PendingImage{Data: []byte("hi"), MIMEType: "image/png"}
	if got := p.DataURL(); got != "data:image/png;base64,aGk=" {
		t.Fatalf("unexpected data url %q", got)
	}
}

func TestValidateJob(t *testing.T) {
	err := ValidateJob(Job{Title: "Coder", Department: "Billing"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	want := []string{"type", "location", "description"}
	if !reflect.DeepEqual(vErr.Fields, want) {
		t.Fatalf("fields = %v, want %v", vErr.Fields, want)
	}
}

func TestCleanList(t *testing.T) {
	got := CleanList([]string{" A ", "", "  ", "B"})
	if !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Fatalf("unexpected list %v", got)
	}
}
