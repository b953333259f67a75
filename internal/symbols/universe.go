package symbols

// Universe names a predefined ticker list for batch scans
type Universe string

const (
	UniverseNasdaq100 Universe = "nasdaq100"
	UniverseMegaCap   Universe = "megacap" // 빠른 확인용 대형주
)

// GetUniverse returns the tickers of u, or nil when unknown
func GetUniverse(u Universe) []string {
	switch u {
	case UniverseNasdaq100:
		return Nasdaq100Symbols
	case UniverseMegaCap:
		return MegaCapSymbols
	default:
		return nil
	}
}

// MegaCapSymbols is a small liquid set, enough to exercise every detector
var MegaCapSymbols = []string{
	"AAPL", "MSFT", "NVDA", "AMZN", "GOOGL",
	"META", "AVGO", "TSLA", "JPM", "LLY",
}

// Nasdaq100Symbols is the NASDAQ-100 components (as of 2024)
var Nasdaq100Symbols = []string{
	"AAPL", "ABNB", "ADBE", "ADI", "ADP", "ADSK", "AEP", "AMAT", "AMD", "AMGN",
	"AMZN", "ANSS", "ARM", "ASML", "AVGO", "AZN", "BIIB", "BKNG", "BKR", "CCEP",
	"CDNS", "CDW", "CEG", "CHTR", "CMCSA", "COST", "CPRT", "CRWD", "CSCO", "CSGP",
	"CSX", "CTAS", "CTSH", "DDOG", "DLTR", "DXCM", "EA", "EXC", "FANG", "FAST",
	"FTNT", "GEHC", "GFS", "GILD", "GOOG", "GOOGL", "HON", "IDXX", "ILMN", "INTC",
	"INTU", "ISRG", "KDP", "KHC", "KLAC", "LIN", "LRCX", "LULU", "MAR", "MCHP",
	"MDB", "MDLZ", "MELI", "META", "MNST", "MRNA", "MRVL", "MSFT", "MU", "NFLX",
	"NVDA", "NXPI", "ODFL", "ON", "ORLY", "PANW", "PAYX", "PCAR", "PDD", "PEP",
	"PYPL", "QCOM", "REGN", "ROP", "ROST", "SBUX", "SMCI", "SNPS", "TEAM", "TMUS",
	"TSLA", "TTD", "TTWO", "TXN", "VRSK", "VRTX", "WBD", "WDAY", "XEL", "ZS",
}
