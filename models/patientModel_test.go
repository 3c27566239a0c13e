package models

import (
	"encoding/json"
	"testing"
)

func TestBirthDate_JSON(t *testing.T) {
	var p struct {
		BirthDate BirthDate `json:"birth_date"`
	}
	for _, input := range []string{`{"birth_date":"01.02.1980"}`, `{"birth_date":"1980-02-01"}`} {
		if err := json.Unmarshal([]byte(input), &p); err != nil {
			t.Fatalf("Unmarshal %s: %v", input, err)
		}
		out, err := json.Marshal(p)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if string(out) != `{"birth_date":"01.02.1980"}` {
			t.Errorf("got %s", out)
		}
	}

	if err := json.Unmarshal([]byte(`{"birth_date":"31.02.1980"}`), &p); err == nil {
		t.Error("expected an impossible date to be rejected")
	}
	if err := json.Unmarshal([]byte(`{"birth_date":null}`), &p); err != nil || !p.BirthDate.IsZero() {
		t.Errorf("expected null to clear the date, got %v %v", p.BirthDate, err)
	}
}

func TestBirthDate_Value(t *testing.T) {
	d, err := ParseBirthDate("01.02.1980")
	if err != nil {
		t.Fatalf("ParseBirthDate: %v", err)
	}
	v, err := d.Value()
	if err != nil || v != "1980-02-01" {
		t.Errorf("unexpected driver value %v, %v", v, err)
	}
	var scanned BirthDate
	if err := scanned.Scan([]byte("1980-02-01")); err != nil || !scanned.Equal(d.Time) {
		t.Errorf("unexpected scan result %v, %v", scanned, err)
	}
}

func TestCaseStatus_HasArchive(t *testing.T) {
	tests := map[CaseStatus]bool{
		CaseOpen:            false,
		CaseArchiveReceived: true,
		CaseCalculated:      true,
	}
	for status, want := range tests {
		c := MedicalCase{Status: status}
		if got := c.HasArchive(); got != want {
			t.Errorf("%s: HasArchive() = %v, want %v", status, got, want)
		}
	}
}

func TestAccount_Flags(t *testing.T) {
	var nilAccount *Account
	if nilAccount.IsStaff() || nilAccount.IsSuperuser() {
		t.Error("nil account has no privileges")
	}
	admin := &Account{Role: RoleAdmin}
	if !admin.IsStaff() || admin.IsSuperuser() {
		t.Error("admin is staff but not superuser")
	}
	if (&Account{Surname: "Petrov", Name: "Ivan"}).FullName() != "Petrov Ivan" {
		t.Error("FullName must skip an empty patronymic")
	}
}
