package service

import (
	"fmt"
	"time"

	"github.com/jtec/maintenance-service/internal/domain"
	apperrors "github.com/jtec/maintenance-service/pkg/util/errorutil"
)

// applyMissionFields copies a filtered partial-update payload onto the
// mission. Values arrive as decoded JSON (string / float64 / bool / []any /
// nil); a nil value clears a nullable field. The statut key is handled by
// the caller against the transition table and skipped here.
func applyMissionFields(m *domain.Mission, fields map[string]any) error {
	for name, value := range fields {
		var err error
		switch name {
		case "statut":
			// validated and applied by UpdateMission
		case "titre":
			err = setString(&m.Titre, name, value)
		case "description":
			err = setString(&m.Description, name, value)
		case "entreprise_id":
			err = setString(&m.EntrepriseID, name, value)
		case "technicien_id":
			err = setStringPtr(&m.TechnicienID, name, value)
		case "date_prevue":
			err = setTimePtr(&m.DatePrevue, name, value)
		case "date_intervention_debut":
			err = setTimePtr(&m.DateInterventionDebut, name, value)
		case "date_intervention_fin":
			err = setTimePtr(&m.DateInterventionFin, name, value)
		case "cout_estime":
			err = setFloatPtr(&m.CoutEstime, name, value)
		case "cout_final":
			err = setFloatPtr(&m.CoutFinal, name, value)
		case "materiel_requis":
			err = setStringSlice(&m.MaterielRequis, name, value)
		case "materiel_utilise":
			err = setStringSlice(&m.MaterielUtilise, name, value)
		case "en_retard":
			err = setBool(&m.EnRetard, name, value)
		case "motif_retard":
			err = setStringPtr(&m.MotifRetard, name, value)
		case "date_reportee":
			err = setTimePtr(&m.DateReportee, name, value)
		case "travaux_realises":
			err = setStringPtr(&m.TravauxRealises, name, value)
		case "notes_internes":
			err = setStringSlice(&m.NotesInternes, name, value)
		case "photos":
			err = setStringSlice(&m.Photos, name, value)
		case "signature_client_url":
			err = setStringPtr(&m.SignatureClientURL, name, value)
		case "signature_technicien_url":
			err = setStringPtr(&m.SignatureTechnicienURL, name, value)
		case "date_signature":
			err = setTimePtr(&m.DateSignature, name, value)
		case "facture_id":
			err = setStringPtr(&m.FactureID, name, value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func setString(dst *string, name string, value any) error {
	str, ok := value.(string)
	if !ok {
		return fieldTypeError(name, "string")
	}
	*dst = str
	return nil
}

func setStringPtr(dst **string, name string, value any) error {
	if value == nil {
		*dst = nil
		return nil
	}
	str, ok := value.(string)
	if !ok {
		return fieldTypeError(name, "string")
	}
	*dst = &str
	return nil
}

func setBool(dst *bool, name string, value any) error {
	b, ok := value.(bool)
	if !ok {
		return fieldTypeError(name, "boolean")
	}
	*dst = b
	return nil
}

func setFloatPtr(dst **float64, name string, value any) error {
	if value == nil {
		*dst = nil
		return nil
	}
	f, ok := value.(float64)
	if !ok {
		return fieldTypeError(name, "number")
	}
	*dst = &f
	return nil
}

func setTimePtr(dst **time.Time, name string, value any) error {
	if value == nil {
		*dst = nil
		return nil
	}
	str, ok := value.(string)
	if !ok {
		return fieldTypeError(name, "RFC3339 timestamp")
	}
	parsed, err := time.Parse(time.RFC3339, str)
	if err != nil {
		return apperrors.NewValidationError(
			fmt.Sprintf("field %q must be an RFC3339 timestamp", name),
			map[string]any{"field": name, "value": str})
	}
	*dst = &parsed
	return nil
}

func setStringSlice(dst *[]string, name string, value any) error {
	if value == nil {
		*dst = nil
		return nil
	}
	raw, ok := value.([]any)
	if !ok {
		// a re-applied payload may already carry []string
		if typed, ok := value.([]string); ok {
			*dst = typed
			return nil
		}
		return fieldTypeError(name, "array of strings")
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		str, ok := item.(string)
		if !ok {
			return fieldTypeError(name, "array of strings")
		}
		out = append(out, str)
	}
	*dst = out
	return nil
}

func fieldTypeError(name, expected string) error {
	return apperrors.NewValidationError(
		fmt.Sprintf("field %q must be a %s", name, expected),
		map[string]any{"field": name})
}
