// Package canonical holds the hospital-agnostic vitals record shared by every
// stage downstream of the inbound transform. Construction through
// transform.ToCanonical is the single validation gate; code consuming a
// Payload never re-validates fields.
package canonical

// RawRecord is an untyped connector record before transform. It carries no
// invariants and may be incomplete or malformed.
type RawRecord map[string]interface{}

// Patient identifies the subject of one vitals record.
type Patient struct {
	PatientID   string `json:"patient_id"`
	PatientName string `json:"patient_name,omitempty"`
	Birthdate   string `json:"birthdate"` // YYYYMMDD
	Age         *int   `json:"age,omitempty"`
	Sex         string `json:"sex"` // closed code set, M/F
	Ward        string `json:"ward,omitempty"`
	Department  string `json:"department,omitempty"`
}

// Vitals are the six required measurements.
type Vitals struct {
	SBP  int     `json:"SBP"`
	DBP  int     `json:"DBP"`
	PR   int     `json:"PR"`
	RR   int     `json:"RR"`
	BT   float64 `json:"BT"`
	SpO2 float64 `json:"SpO2"`
}

// Timestamps are UTC ISO-8601 strings with a literal Z suffix.
type Timestamps struct {
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// Payload is the canonical record sent to the backend scoring service.
type Payload struct {
	Patient    Patient    `json:"patient"`
	Vitals     Vitals     `json:"vitals"`
	Timestamps Timestamps `json:"timestamps"`
}

// ToMap renders the payload in its wire form. The postprocess executor
// operates on this untyped shape because write-target column sources are
// configured per hospital, not against the typed model.
func (p *Payload) ToMap() map[string]interface{} {
	patient := map[string]interface{}{
		"patient_id": p.Patient.PatientID,
		"birthdate":  p.Patient.Birthdate,
		"sex":        p.Patient.Sex,
	}
	if p.Patient.PatientName != "" {
		patient["patient_name"] = p.Patient.PatientName
	}
	if p.Patient.Age != nil {
		patient["age"] = *p.Patient.Age
	}
	if p.Patient.Ward != "" {
		patient["ward"] = p.Patient.Ward
	}
	if p.Patient.Department != "" {
		patient["department"] = p.Patient.Department
	}

	return map[string]interface{}{
		"patient": patient,
		"vitals": map[string]interface{}{
			"SBP":  p.Vitals.SBP,
			"DBP":  p.Vitals.DBP,
			"PR":   p.Vitals.PR,
			"RR":   p.Vitals.RR,
			"BT":   p.Vitals.BT,
			"SpO2": p.Vitals.SpO2,
		},
		"timestamps": map[string]interface{}{
			"created_at": p.Timestamps.CreatedAt,
			"updated_at": p.Timestamps.UpdatedAt,
		},
	}
}

// ClientResponse is the backend scoring result reshaped for the hospital.
type ClientResponse struct {
	VitalID      string `json:"vital_id"`
	PatientID    string `json:"patient_id"`
	ScreenedType string `json:"screened_type"`
	ScreenedDate string `json:"screened_date"` // YYYYMMDD HH:MM:SS
	SEPS         int    `json:"SEPS"`
	MAES         int    `json:"MAES"`
	MORS         int    `json:"MORS"`
	NEWS         int    `json:"NEWS"`
	MEWS         int    `json:"MEWS"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}
