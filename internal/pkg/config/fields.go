package config

// FieldName identifies a numeric column of the track dataset (e.g. "danceability", "track_popularity").
type FieldName string

// Numeric track fields known to the dataset schema.
const (
	FieldPopularity       FieldName = "track_popularity"
	FieldDanceability     FieldName = "danceability"
	FieldEnergy           FieldName = "energy"
	FieldKey              FieldName = "key"
	FieldLoudness         FieldName = "loudness"
	FieldMode             FieldName = "mode"
	FieldSpeechiness      FieldName = "speechiness"
	FieldAcousticness     FieldName = "acousticness"
	FieldInstrumentalness FieldName = "instrumentalness"
	FieldLiveness         FieldName = "liveness"
	FieldValence          FieldName = "valence"
	FieldTempo            FieldName = "tempo"
	FieldDuration         FieldName = "duration_ms"
)

// String returns the field name as a plain string.
func (f FieldName) String() string {
	return string(f)
}

// IsValid reports whether the field name is one of the known numeric fields.
func (f FieldName) IsValid() bool {
	switch f {
	case FieldPopularity, FieldDanceability, FieldEnergy, FieldKey, FieldLoudness, FieldMode,
		FieldSpeechiness, FieldAcousticness, FieldInstrumentalness, FieldLiveness, FieldValence,
		FieldTempo, FieldDuration:
		return true
	default:
		return false
	}
}

// IsNormalized reports whether the field is an audio feature scaled to [0,1].
func (f FieldName) IsNormalized() bool {
	switch f {
	case FieldDanceability, FieldEnergy, FieldSpeechiness, FieldAcousticness,
		FieldInstrumentalness, FieldLiveness, FieldValence:
		return true
	default:
		return false
	}
}

// AllFieldNames returns all known numeric field names, in dataset column order.
func AllFieldNames() []FieldName {
	return []FieldName{
		FieldPopularity,
		FieldDanceability,
		FieldEnergy,
		FieldKey,
		FieldLoudness,
		FieldMode,
		FieldSpeechiness,
		FieldAcousticness,
		FieldInstrumentalness,
		FieldLiveness,
		FieldValence,
		FieldTempo,
		FieldDuration,
	}
}
