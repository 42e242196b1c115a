package model

// Band is the risk level of a cannibalizing URL, derived from its similarity
// with the reference URL.
type Band int

const (
	// BandLow is any similarity below 0.8.
	BandLow Band = iota

	// BandMedium is a similarity of 0.8 or more.
	BandMedium

	// BandHigh is a similarity of 0.9 or more.
	BandHigh
)

// Band thresholds.
const (
	HighSimilarity   = 0.9
	MediumSimilarity = 0.8
)

// BandFor returns the band of a similarity score.
func BandFor(similarity float64) Band {
	switch {
	case similarity >= HighSimilarity:
		return BandHigh
	case similarity >= MediumSimilarity:
		return BandMedium
	default:
		return BandLow
	}
}

// String returns a short name of the band.
func (b Band) String() string {
	switch b {
	case BandHigh:
		return "high"
	case BandMedium:
		return "medium"
	case BandLow:
		return "low"
	default:
		return "unknown"
	}
}

// Class returns the CSS class used for the band in HTML output.
func (b Band) Class() string {
	return b.String() + "-similarity"
}

// Label returns the risk label shown next to a similarity.
func (b Band) Label() string {
	switch b {
	case BandHigh:
		return "Risque élevé"
	case BandMedium:
		return "Risque moyen"
	default:
		return "Risque faible"
	}
}
