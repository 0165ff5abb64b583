package dataset

// ReferenceRecord is one row of a reference-caption dataset. The name is
// matched against result ids by stripping the random id suffix.
type ReferenceRecord struct {
	Name    string `parquet:"name" json:"name"`
	Caption string `parquet:"caption" json:"caption"`
	Locale  string `parquet:"locale,optional" json:"locale,omitempty"`
}
