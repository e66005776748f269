package wizard_test

import (
	"github.com/goliatone/go-quoteforms/pkg/model"
)

func floatPtr(v float64) *float64 { return &v }

// propertyForm is a small three step wizard exercising groups, nested
// disclosure and a submission-time check.
func propertyForm() model.Form {
	return model.Form{
		ID:            "property",
		InsuranceType: "property",
		Route:         "/api/quotes/property",
		Steps: []model.Step{
			{
				ID:       "applicant",
				Validate: []string{"applicantName", "contactPhone", "contactEmail"},
				Fields: []model.Field{
					{Name: "applicantName", Type: model.FieldTypeText, Required: true},
					{Name: "contactPhone", Type: model.FieldTypeText, Required: true, Format: model.FormatPhone},
					{Name: "contactEmail", Type: model.FieldTypeText, Required: true, Format: model.FormatEmail},
					{Name: "website", Type: model.FieldTypeText, Required: true},
				},
			},
			{
				ID:       "building",
				Validate: []string{"yearBuilt", "sprinklered", "sprinklerType", "coverageAreas", "vehicles"},
				Fields: []model.Field{
					{Name: "yearBuilt", Type: model.FieldTypeText, Format: model.FormatYear, Required: true},
					{Name: "sprinklered", Type: model.FieldTypeBoolean},
					{
						Name: "sprinklerType", Type: model.FieldTypeSelect, When: "sprinklered", Required: true,
						Options: []model.Option{{Value: "wet"}, {Value: "dry"}},
					},
					{
						Name: "coverageAreas", Type: model.FieldTypeMultiSelect, When: `sprinklerType == "wet"`, MinItems: 1,
						Options: []model.Option{{Value: "office"}, {Value: "warehouse"}},
					},
					{
						Name: "vehicles", Type: model.FieldTypeGroup, MinItems: 1,
						Item: []model.Field{
							{Name: "vin", Type: model.FieldTypeText, Required: true},
							{Name: "hasTrailer", Type: model.FieldTypeBoolean},
							{Name: "trailerType", Type: model.FieldTypeText, When: "hasTrailer", Required: true},
						},
					},
				},
			},
			{
				ID:       "mix",
				Validate: []string{"residentialPercent", "commercialPercent", "agreeToTerms"},
				Fields: []model.Field{
					{Name: "residentialPercent", Type: model.FieldTypeText, Format: model.FormatPercent, Required: true},
					{Name: "commercialPercent", Type: model.FieldTypeText, Format: model.FormatPercent, Required: true},
					{Name: "subcontractorCost", Type: model.FieldTypeNumber, RequiredWhen: "commercialPercent > 50", Min: floatPtr(0)},
					{Name: "agreeToTerms", Type: model.FieldTypeBoolean, Required: true},
				},
			},
		},
		Checks: []model.Check{{
			Kind:    model.CheckSumEquals,
			Fields:  []string{"residentialPercent", "commercialPercent"},
			Value:   100,
			Message: "must total 100%",
		}},
	}
}
