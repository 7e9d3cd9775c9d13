package utils

// Server-side messages for API errors. Spanish is the default locale.

const DefaultLocale = "es"

var SupportedLocales = []string{"es", "en"}

var translations = map[string]map[string]string{
	"es": {
		"health.ok":                    "ok",
		"error.invalid":                "solicitud inválida",
		"error.not_found":              "no encontrado",
		"error.forbidden":              "acceso denegado",
		"error.conflict":               "conflicto con el estado actual",
		"error.internal":               "error interno",
		"error.survey_not_found":       "encuesta no encontrada o inactiva",
		"error.response_not_found":     "respuesta no encontrada",
		"error.question_not_found":     "pregunta no encontrada",
		"error.duplicate_respondent":   "esta persona ya respondió la encuesta",
		"error.token_invalid":          "token de acceso inválido",
		"error.consent_required":       "debe aceptar la política de tratamiento de datos",
		"error.wrong_step":             "la sección enviada no corresponde al paso actual",
		"error.field_errors":           "hay respuestas con errores",
		"error.session":                "sesión inválida o ausente",
		"field.required_field_missing": "este campo es obligatorio",
		"field.invalid_value":          "valor inválido",
		"field.too_many_selections":    "demasiadas opciones seleccionadas",
		"field.missing_scale_weight":   "la opción no tiene valor en la escala",
	},
	"en": {
		"health.ok":                    "ok",
		"error.invalid":                "invalid request",
		"error.not_found":              "not found",
		"error.forbidden":              "forbidden",
		"error.conflict":               "conflicts with current state",
		"error.internal":               "internal error",
		"error.survey_not_found":       "survey not found or inactive",
		"error.response_not_found":     "response not found",
		"error.question_not_found":     "question not found",
		"error.duplicate_respondent":   "this respondent already answered the survey",
		"error.token_invalid":          "invalid access token",
		"error.consent_required":       "the data protection policy must be accepted",
		"error.wrong_step":             "the submitted section is not the current step",
		"error.field_errors":           "some answers are invalid",
		"error.session":                "missing or invalid session",
		"field.required_field_missing": "this field is required",
		"field.invalid_value":          "invalid value",
		"field.too_many_selections":    "too many options selected",
		"field.missing_scale_weight":   "the option has no scale value",
	},
}

// T returns the message for key in locale, falling back to Spanish and then
// to the key itself.
func T(locale, key string) string {
	if m, ok := translations[locale]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if v, ok := translations[DefaultLocale][key]; ok {
		return v
	}
	return key
}
