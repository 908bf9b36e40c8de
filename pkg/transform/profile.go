// Package transform maps hospital-native records to the canonical model and
// backend responses back to the hospital shape. Each hospital integration
// names a transform profile; the profile carries the closed sex-code table
// and the accepted date/timestamp layouts for that hospital's feed.
package transform

import "fmt"

type Profile struct {
	Name             string
	SexMapping       map[string]string
	BirthdateLayouts []string
	TimestampLayouts []string
	ScreenedLayouts  []string
}

var profiles = map[string]*Profile{
	"HOSP_A": {
		Name: "HOSP_A",
		SexMapping: map[string]string{
			"M":      "M",
			"F":      "F",
			"Male":   "M",
			"Female": "F",
			"1":      "M",
			"2":      "F",
		},
		BirthdateLayouts: []string{"20060102", "2006-01-02"},
		TimestampLayouts: []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05"},
		ScreenedLayouts: []string{
			"20060102 15:04:05",
			"2006-01-02 15:04:05",
			"2006-01-02T15:04:05",
		},
	},
}

// ProfileFor resolves a configured transform profile name, rejecting unknown
// names eagerly so a bad configuration fails before any record is processed.
func ProfileFor(name string) (*Profile, error) {
	profile, ok := profiles[name]
	if !ok {
		return nil, fmt.Errorf("unknown transform profile %q", name)
	}
	return profile, nil
}
