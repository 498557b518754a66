package catalog

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"invizible.art/internal/apperr"
)

func TestUpdateInputDistinguishesUnsetFromNull(t *testing.T) {
	var in UpdateProductInput
	body := `{"description": null, "unit_amount": 250, "metadata": {"frame": "oak"}}`
	if err := json.Unmarshal([]byte(body), &in); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if in.Name.IsSet() || in.Active.IsSet() || in.ImageIDs.IsSet() {
		t.Fatalf("absent keys must stay unset: %+v", in)
	}
	if !in.Description.IsNull() {
		t.Fatal("description should be explicitly null")
	}
	if v, ok := in.UnitAmount.Get(); !ok || v != 250 {
		t.Fatalf("unit_amount = %v, %v", v, ok)
	}
	if m, ok := in.Metadata.Get(); !ok || m["frame"] != "oak" {
		t.Fatalf("metadata = %v, %v", m, ok)
	}
}

func TestOptionalApply(t *testing.T) {
	current := "old"
	var unset Optional[string]

	if got := unset.Apply(&current); got != &current {
		t.Fatal("unset must keep the current value")
	}
	if got := Null[string]().Apply(&current); got != nil {
		t.Fatalf("null must clear, got %q", *got)
	}
	if got := Some("new").Apply(&current); got == nil || *got != "new" || current != "old" {
		t.Fatal("value must replace without touching current")
	}
}

func TestUpdateInputValidation(t *testing.T) {
	cases := map[string]UpdateProductInput{
		"missing id":        {Name: Some("x")},
		"null name":         {ID: 1, Name: Null[string]()},
		"blank name":        {ID: 1, Name: Some(" ")},
		"long description":  {ID: 1, Description: Some(strings.Repeat("a", maxUpdateDescLen+1))},
		"null active":       {ID: 1, Active: Null[bool]()},
		"negative amount":   {ID: 1, UnitAmount: Some(int64(-5))},
		"null image ids":    {ID: 1, ImageIDs: Null[[]int64]()},
		"non-positive work": {ID: 1, WorkID: Some(int64(0))},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if err := in.validate(); !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	ok := UpdateProductInput{ID: 1, Description: Some(strings.Repeat("a", maxCreateDescLen+1)), WorkID: Null[int64]()}
	if err := ok.validate(); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}
}

func TestCreateInputNameLimitCountsRunes(t *testing.T) {
	in := CreateProductInput{Name: strings.Repeat("é", maxNameLen)}
	if err := in.validate(); err != nil {
		t.Fatalf("255 runes should pass: %v", err)
	}
	in.Name += "é"
	if err := in.validate(); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
