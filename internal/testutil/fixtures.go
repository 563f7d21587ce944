package testutil

// Bitcoin is a coin whose history gives CV ≈ 0.0354.
func Bitcoin() CoinFixture {
	return CoinFixture{
		ID: "bitcoin", Symbol: "btc", Name: "Bitcoin", Rank: 1,
		Price: 100, MarketCap: 1.2e12, Volume24h: 100,
		Prices:  []float64{100, 105, 95, 100},
		Volumes: []float64{90, 95, 100, 100},
	}
}

// Ethereum is a second coin with a wider price range.
func Ethereum() CoinFixture {
	return CoinFixture{
		ID: "ethereum", Symbol: "eth", Name: "Ethereum", Rank: 2,
		Price: 3000, MarketCap: 3.6e11, Volume24h: 1.5e10,
		Prices:  []float64{2800, 3100, 2900, 3000},
		Volumes: []float64{1e10, 1.2e10, 1.4e10, 1.5e10},
	}
}

// BitcoinPair is a BTCUSDT book with spread 0.5%, imbalance 3.0 and a
// quote volume 20% above Bitcoin().Volume24h.
func BitcoinPair() PairFixture {
	return PairFixture{
		Symbol:      "BTCUSDT",
		Bids:        [][2]string{{"100", "3"}},
		Asks:        [][2]string{{"100.5", "1"}},
		LastPrice:   "100.25",
		QuoteVolume: "120",
	}
}

// Seed registers Bitcoin and Ethereum on cg and the BTCUSDT pair on bn.
// ETH has no pair, so its analysis is partial.
func Seed(cg *MockCoinGecko, bn *MockBinance) {
	cg.AddCoin(Bitcoin())
	cg.AddCoin(Ethereum())
	bn.AddPair(BitcoinPair())
}
