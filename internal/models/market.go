package models

// ChartMeta carries the metadata block of an upstream chart response.
type ChartMeta struct {
	Symbol           string
	Currency         string
	LongName         string
	ShortName        string
	ExchangeName     string
	FullExchangeName string
}

// ChartResult is one parsed upstream chart response: deduplicated,
// ascending-by-date price points plus response metadata.
type ChartResult struct {
	Meta   ChartMeta
	Points []PricePoint
}

// DisplayName returns the first non-empty of long name and short name.
func (m *ChartMeta) DisplayName() string {
	if m.LongName != "" {
		return m.LongName
	}
	return m.ShortName
}

// QuoteMetadata is the result of a metadata-only probe for a symbol.
type QuoteMetadata struct {
	Name     string
	Region   string
	Currency string
}

// MatrixMode selects the symbol universe for a matrix query.
type MatrixMode string

const (
	MatrixModeWatchlist MatrixMode = "watchlist"
	MatrixModeAdhoc     MatrixMode = "adhoc"
)

// MatrixPreset selects how many trailing trade days a matrix shows.
type MatrixPreset string

const (
	MatrixPreset7      MatrixPreset = "7"
	MatrixPreset30     MatrixPreset = "30"
	MatrixPreset90     MatrixPreset = "90"
	MatrixPresetCustom MatrixPreset = "custom"
)

// MatrixPresetDays maps a fixed preset to its trade-day count.
var MatrixPresetDays = map[MatrixPreset]int{
	MatrixPreset7:  7,
	MatrixPreset30: 30,
	MatrixPreset90: 90,
}

// ParseMatrixMode validates a raw mode parameter, defaulting to watchlist.
func ParseMatrixMode(raw string) (MatrixMode, error) {
	switch raw {
	case "", string(MatrixModeWatchlist):
		return MatrixModeWatchlist, nil
	case string(MatrixModeAdhoc):
		return MatrixModeAdhoc, nil
	default:
		return "", NewInputError("mode must be watchlist or adhoc")
	}
}

// ParseMatrixPreset validates a raw preset parameter, defaulting to 30.
func ParseMatrixPreset(raw string) (MatrixPreset, error) {
	switch raw {
	case "", string(MatrixPreset30):
		return MatrixPreset30, nil
	case string(MatrixPreset7), string(MatrixPreset90), string(MatrixPresetCustom):
		return MatrixPreset(raw), nil
	default:
		return "", NewInputError("preset must be 7, 30, 90, or custom")
	}
}

// MatrixQuery is the parsed input for GET /api/prices/matrix.
type MatrixQuery struct {
	Mode    MatrixMode
	Preset  MatrixPreset
	From    string // required when Preset is custom
	To      string
	Symbols string // raw symbols input, adhoc mode only
}

// MatrixRow is one symbol's row in the price matrix.
type MatrixRow struct {
	Symbol       string              `json:"symbol"`
	Name         string              `json:"name"`
	Region       string              `json:"region"`
	Currency     string              `json:"currency"`
	LatestClose  *float64            `json:"latestClose"`
	PricesByDate map[string]*float64 `json:"pricesByDate"`
}

// MatrixRange echoes the resolved range and preset of a matrix query.
type MatrixRange struct {
	From   string       `json:"from"`
	To     string       `json:"to"`
	Preset MatrixPreset `json:"preset"`
}

// MatrixResponse is the payload for GET /api/prices/matrix. Dates are
// trade-date keys ordered newest first.
type MatrixResponse struct {
	Mode         MatrixMode  `json:"mode"`
	Range        MatrixRange `json:"range"`
	Dates        []string    `json:"dates"`
	DisplayDates []string    `json:"displayDates"`
	Rows         []MatrixRow `json:"rows"`
	Warnings     []string    `json:"warnings"`
}
