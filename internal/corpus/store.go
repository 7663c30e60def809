package corpus

import (
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Record is the gorm-backed mirror of Practitioner, used only by the
// external ingestion pipeline referenced in the specification's
// out-of-scope list. The ranking request path never queries Postgres;
// it always ranks over the in-memory slice produced by Load. This model
// exists so ingestion tooling has a stable schema to write into.
type Record struct {
	ID    string `gorm:"primaryKey"`
	Name  string
	Title string

	Specialty      string
	Subspecialties datatypes.JSON `gorm:"type:jsonb;default:'[]'"`

	ProcedureGroups   datatypes.JSON `gorm:"type:jsonb;default:'[]'"`
	ClinicalExpertise string
	Description       string
	About             string

	Languages          datatypes.JSON `gorm:"type:jsonb;default:'[]'"`
	PatientAgeGroup    string
	Gender             string
	InsuranceProviders datatypes.JSON `gorm:"type:jsonb;default:'[]'"`
	Locations          datatypes.JSON `gorm:"type:jsonb;default:'[]'"`
	Blacklisted        bool

	RatingValue         float64
	ReviewCount         int
	ProceduresCompleted datatypes.JSON `gorm:"type:jsonb;default:'[]'"`

	ProfileURL string
}

// Migrate ensures the Record table exists. It never runs on the
// request path, and cmd/server does not call it.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Record{})
}

// ToPractitioner decodes a Record's jsonb columns into a Practitioner
// for the (rare) path where the corpus is loaded from Postgres rather
// than the primary JSON-file loader.
func (r *Record) ToPractitioner() (Practitioner, error) {
	p := Practitioner{
		ID:                  r.ID,
		Name:                r.Name,
		Title:               r.Title,
		Specialty:           r.Specialty,
		ClinicalExpertise:   r.ClinicalExpertise,
		Description:         r.Description,
		About:               r.About,
		PatientAgeGroup:     r.PatientAgeGroup,
		Gender:              r.Gender,
		Blacklisted:         r.Blacklisted,
		RatingValue:         r.RatingValue,
		ReviewCount:         r.ReviewCount,
		ProfileURL:          r.ProfileURL,
	}
	for dst, raw := range map[*[]string]datatypes.JSON{
		&p.Subspecialties:      r.Subspecialties,
		&p.ProcedureGroups:     r.ProcedureGroups,
		&p.Languages:           r.Languages,
		&p.InsuranceProviders:  r.InsuranceProviders,
		&p.Locations:           r.Locations,
		&p.ProceduresCompleted: r.ProceduresCompleted,
	} {
		if len(raw) == 0 {
			continue
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return Practitioner{}, err
		}
	}
	return p, nil
}
