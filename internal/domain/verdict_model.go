package domain

import "time"

// EngineStats is the per-engine vote breakdown reported by the scanning authority.
type EngineStats struct {
	Malicious  int `json:"malicious"`
	Suspicious int `json:"suspicious"`
	Undetected int `json:"undetected"`
	Harmless   int `json:"harmless"`
	Timeout    int `json:"timeout"`
}

// Flagged counts the engines that voted malicious or suspicious.
func (s EngineStats) Flagged() int {
	return s.Malicious + s.Suspicious
}

// VerdictRecord is a cached remote verdict for a single URL.
type VerdictRecord struct {
	// Key is urlkey.DeriveKey of the full URL.
	Key       string       `gorm:"column:cache_key;primaryKey;size:64" json:"key"`
	Malicious bool         `gorm:"not null;default:false" json:"malicious"`
	Stats     *EngineStats `gorm:"type:text;serializer:json" json:"stats"`

	// ScannedAt is the authority's analysis date in unix seconds, 0 when unknown.
	ScannedAt int64     `gorm:"not null;default:0" json:"scannedAt"`
	StoredAt  time.Time `gorm:"not null" json:"storedAt"`
}

// SafeDefaultVerdict is returned when the remote authority could not be consulted.
func SafeDefaultVerdict(key string) VerdictRecord {
	return VerdictRecord{Key: key}
}
