package transform

import (
	"github.com/vitalink/platform/pkg/canonical"
	"github.com/vitalink/platform/pkg/parsing"
)

// ToBackend projects the canonical payload into its wire form. The backend
// request is the identity projection of the canonical model.
func (t *Transformer) ToBackend(payload *canonical.Payload) map[string]interface{} {
	return payload.ToMap()
}

// FromBackend reshapes a backend scoring response for the hospital. Score
// fields are coerced defensively (non-numeric input becomes zero) and the
// screened timestamp is reformatted through the profile's accepted layouts,
// keeping the original string when none match. This mapping never fails.
func (t *Transformer) FromBackend(response map[string]interface{}) *canonical.ClientResponse {
	return &canonical.ClientResponse{
		VitalID:      parsing.Stringify(response["vital_id"]),
		PatientID:    parsing.Stringify(response["patient_id"]),
		ScreenedType: parsing.Stringify(response["screened_type"]),
		ScreenedDate: parsing.FormatScreenedDate(response["screened_date"], t.profile.ScreenedLayouts),
		SEPS:         parsing.CoerceInt(response["SEPS"], 0),
		MAES:         parsing.CoerceInt(response["MAES"], 0),
		MORS:         parsing.CoerceInt(response["MORS"], 0),
		NEWS:         parsing.CoerceInt(response["NEWS"], 0),
		MEWS:         parsing.CoerceInt(response["MEWS"], 0),
		CreatedAt:    parsing.Stringify(response["created_at"]),
		UpdatedAt:    parsing.Stringify(response["updated_at"]),
	}
}
