package analysis

// FlagImbalanceNoAsks marks a book whose ask side has no volume.
const FlagImbalanceNoAsks = "imbalance_no_asks"

// Input is the snapshot data the engine needs. Book and CEXVolume are nil
// when the exchange data could not be fetched.
type Input struct {
	Prices          []float64
	Volumes         []float64
	Book            *Book
	CEXVolume       *float64
	AggregatorVol   float64
	BenchmarkCV     *float64
	ImbalanceLevels int
}

// Result holds every derived metric. Nil pointers are undefined.
type Result struct {
	Volatility      *float64   `json:"volatility"`
	SpreadPct       *float64   `json:"spread_pct"`
	Imbalance       *float64   `json:"imbalance"`
	VolumeDeltaPct  *float64   `json:"volume_delta_pct"`
	BollingerWidth  *float64   `json:"bollinger_width"`
	DepthUSD        *float64   `json:"depth_2pct_usd"`
	VolumeChangePct *float64   `json:"volume_change_7d_pct"`
	BetaProxy       *float64   `json:"beta_proxy"`
	Technical       Technical  `json:"technical"`
	Risk            Risk       `json:"risk"`
	MACD            MACD       `json:"macd"`
	Fibonacci       *Fibonacci `json:"fibonacci"`
	Flags           []string   `json:"flags,omitempty"`
}

// Signals holds the classification of the core metrics.
type Signals struct {
	Volatility  Level `json:"volatility"`
	Spread      Level `json:"spread"`
	VolumeDelta Level `json:"volume_delta"`
	Imbalance   Level `json:"imbalance"`
	Liquidity   Level `json:"liquidity"`
}

// Compute derives all metrics from in. It never fails; degenerate input
// yields undefined values.
func Compute(in Input) Result {
	r := Result{
		Volatility:      Volatility(in.Prices),
		SpreadPct:       SpreadPct(in.Book),
		DepthUSD:        DepthWithin(in.Book, DefaultDepthBandPct),
		BollingerWidth:  BollingerWidth(in.Prices, 20),
		VolumeChangePct: VolumeChange(in.Volumes, 7),
		Technical:       ComputeTechnical(in.Prices),
		Risk:            ComputeRisk(in.Prices),
		MACD:            ComputeMACD(in.Prices, 12, 26, 9),
		Fibonacci:       ComputeFibonacci(in.Prices),
	}

	imbalance, noAsks := Imbalance(in.Book, in.ImbalanceLevels)
	r.Imbalance = imbalance
	if noAsks {
		r.Flags = append(r.Flags, FlagImbalanceNoAsks)
	}

	if in.CEXVolume != nil {
		r.VolumeDeltaPct = VolumeDeltaPct(*in.CEXVolume, in.AggregatorVol)
	}
	r.BetaProxy = BetaProxy(r.Volatility, in.BenchmarkCV)
	return r
}

// Classify maps the core metrics of r to levels.
func Classify(r Result, t Thresholds) Signals {
	return Signals{
		Volatility:  ClassifyVolatility(r.Volatility, t.Volatility),
		Spread:      ClassifySpread(r.SpreadPct, t.Spread),
		VolumeDelta: ClassifyVolumeDelta(r.VolumeDeltaPct, t.VolumeDelta),
		Imbalance:   ClassifyImbalance(r.Imbalance, t.Imbalance),
		Liquidity:   ClassifyDepth(r.DepthUSD, t.Liquidity),
	}
}

// HasFlag reports whether r carries flag.
func (r Result) HasFlag(flag string) bool {
	for _, f := range r.Flags {
		if f == flag {
			return true
		}
	}
	return false
}
