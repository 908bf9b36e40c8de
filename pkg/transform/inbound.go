package transform

import (
	"strings"

	"github.com/vitalink/platform/pkg/canonical"
	"github.com/vitalink/platform/pkg/parsing"
)

const textFieldMaxLen = 30

type Transformer struct {
	profile *Profile
}

func New(profileName string) (*Transformer, error) {
	profile, err := ProfileFor(profileName)
	if err != nil {
		return nil, err
	}
	return &Transformer{profile: profile}, nil
}

// ToCanonical validates and normalizes one raw hospital record. The first
// failing field aborts the whole record; no partial payload is ever returned.
func (t *Transformer) ToCanonical(raw canonical.RawRecord) (*canonical.Payload, error) {
	birthdate, err := parsing.ParseBirthdate(raw["birthdate"], t.profile.BirthdateLayouts)
	if err != nil {
		return nil, err
	}
	age, err := parsing.ParseIntOptional(raw["age"], "age")
	if err != nil {
		return nil, err
	}
	sex, err := t.mapSex(raw["sex"])
	if err != nil {
		return nil, err
	}

	patient := canonical.Patient{
		PatientID:   strings.TrimSpace(parsing.Stringify(raw["patient_id"])),
		PatientName: trimText(raw["patient_name"], textFieldMaxLen),
		Birthdate:   birthdate,
		Age:         age,
		Sex:         sex,
		Ward:        trimText(raw["ward"], textFieldMaxLen),
		Department:  trimText(raw["department"], textFieldMaxLen),
	}

	var vitals canonical.Vitals
	if vitals.SBP, err = parsing.ParseInt(raw["SBP"], "SBP"); err != nil {
		return nil, err
	}
	if vitals.DBP, err = parsing.ParseInt(raw["DBP"], "DBP"); err != nil {
		return nil, err
	}
	if vitals.PR, err = parsing.ParseInt(raw["PR"], "PR"); err != nil {
		return nil, err
	}
	if vitals.RR, err = parsing.ParseInt(raw["RR"], "RR"); err != nil {
		return nil, err
	}
	if vitals.BT, err = parsing.ParseFloat(raw["BT"], "BT"); err != nil {
		return nil, err
	}
	if vitals.SpO2, err = parsing.ParseFloat(raw["SpO2"], "SpO2"); err != nil {
		return nil, err
	}

	var timestamps canonical.Timestamps
	if timestamps.CreatedAt, err = parsing.ParseTimestamp(raw["created_at"], "created_at", t.profile.TimestampLayouts); err != nil {
		return nil, err
	}
	if timestamps.UpdatedAt, err = parsing.ParseTimestamp(raw["updated_at"], "updated_at", t.profile.TimestampLayouts); err != nil {
		return nil, err
	}

	return &canonical.Payload{Patient: patient, Vitals: vitals, Timestamps: timestamps}, nil
}

// mapSex resolves a raw sex value through the profile's closed table. Values
// outside the table are a parse failure, never a default.
func (t *Transformer) mapSex(value interface{}) (string, error) {
	if value == nil {
		return "", &parsing.ParseError{Field: "sex", Message: "value required"}
	}
	text := strings.TrimSpace(parsing.Stringify(value))
	mapped, ok := t.profile.SexMapping[text]
	if !ok {
		return "", &parsing.ParseError{Field: "sex", Message: "unsupported value: " + text}
	}
	return mapped, nil
}

// trimText cleans free-text fields. Capping at maxLen is a silent policy,
// deliberately distinct from parse failure.
func trimText(value interface{}, maxLen int) string {
	if value == nil {
		return ""
	}
	text := strings.TrimSpace(parsing.Stringify(value))
	runes := []rune(text)
	if len(runes) > maxLen {
		return string(runes[:maxLen])
	}
	return text
}
