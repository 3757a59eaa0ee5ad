package main

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/chewxy/stl"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"marketbot/config"
	"marketbot/store"
	"marketbot/tools"
)

/*
Analyzes the scraped listing pool: per-product asking price statistics, z-score dip
detection to surface underpriced listings worth offering on first, and a trend
decomposition of the daily median asking price.
*/

//Computes mean and SD of asking prices per product over the lookback period
func ComputePriceStats(listings []*store.Listing) map[string][]float64 {
	cutoff := time.Now().AddDate(0, 0, -config.LookbackPeriod)
	grouped := make(map[string][]float64)
	for _, l := range listings {
		if l.AskingPrice <= 0 || l.Product == "" || l.ScrapedAt.Before(cutoff) {
			continue
		}
		grouped[l.Product] = append(grouped[l.Product], float64(l.AskingPrice))
	}
	return grouped
}

//Calculates z-score of an asking price relative to its product's price pool
func findZScore(price float64, mean float64, std float64) float64 {
	if std == 0 {
		return 0
	}
	return (price - mean) / std
}

//Identify underpriced listings using price z-scores
func FindUnderpriced(listings []*store.Listing, statsByProduct map[string]struct{ Mean, StdDev float64 }) []*store.Listing {
	var out []*store.Listing
	for _, l := range listings {
		if l.Messaged || l.Unavailable || l.Irrelevant || l.AskingPrice <= 0 {
			continue
		}
		s, ok := statsByProduct[l.Product]
		if !ok || s.StdDev == 0 {
			continue
		}
		z := findZScore(float64(l.AskingPrice), s.Mean, s.StdDev)
		if z <= config.DipThreshold {
			log.Info().Str("product", l.Product).Str("url", l.URL).
				Int("asking", l.AskingPrice).Float64("z", math.Round(z*100)/100).
				Msg("Found underpriced listing")
			out = append(out, l)
		}
	}
	return out
}

//Builds the daily median asking price series for one product, oldest day first
func dailyMedianSeries(listings []*store.Listing, product string) []float64 {
	byDay := make(map[int][]float64)
	minDay, maxDay := math.MaxInt32, math.MinInt32
	for _, l := range listings {
		if l.Product != product || l.AskingPrice <= 0 {
			continue
		}
		day := int(l.ScrapedAt.Unix() / (24 * 60 * 60))
		byDay[day] = append(byDay[day], float64(l.AskingPrice))
		if day < minDay {
			minDay = day
		}
		if day > maxDay {
			maxDay = day
		}
	}
	if len(byDay) == 0 {
		return nil
	}

	var series []float64
	last := 0.0
	for day := minDay; day <= maxDay; day++ {
		prices := byDay[day]
		if len(prices) == 0 {
			//Carry the previous median through days with no new listings
			series = append(series, last)
			continue
		}
		sort.Float64s(prices)
		median := stat.Quantile(0.5, stat.Empirical, prices, nil)
		series = append(series, median)
		last = median
	}
	return series
}

//Decomposes the daily median series into trend + seasonal + residual.
//Returns the trend component, or nil when the series is too short.
func decomposeTrend(series []float64) []float64 {
	if len(series) < 2*config.TrendPeriod {
		return nil
	}
	res := stl.Decompose(series, config.TrendPeriod, config.TrendPeriod*2+1, stl.Additive(), stl.WithIter(2), stl.WithRobustIter(1))
	if res.Err != nil {
		log.Warn().Err(res.Err).Msg("Trend decomposition failed")
		return nil
	}
	return res.Trend
}

//Renders the asking price series and its trend to a PNG served by the dashboard
func renderTrendChart(product string, series []float64, trend []float64) (string, error) {
	p := plot.New()
	p.Title.Text = product + " asking price"
	p.X.Label.Text = "Days"
	p.Y.Label.Text = "Price ($)"

	pts := make(plotter.XYs, len(series))
	for i, v := range series {
		pts[i].X = float64(i)
		pts[i].Y = v
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return "", err
	}
	p.Add(line)
	p.Legend.Add("median asking", line)

	if trend != nil {
		tpts := make(plotter.XYs, len(trend))
		for i, v := range trend {
			tpts[i].X = float64(i)
			tpts[i].Y = v
		}
		tline, err := plotter.NewLine(tpts)
		if err != nil {
			return "", err
		}
		tline.Width = vg.Points(2)
		p.Add(tline)
		p.Legend.Add("trend", tline)
	}

	if err := os.MkdirAll(config.ChartDir, 0755); err != nil {
		return "", err
	}
	name := strings.ReplaceAll(strings.ToLower(product), " ", "_") + ".png"
	path := filepath.Join(config.ChartDir, name)
	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return "", err
	}
	return path, nil
}

//Runs the full market analysis over the stored listings
func AnalyzeMarket(st *store.Store) error {
	listings := st.Listings()
	grouped := ComputePriceStats(listings)
	if len(grouped) == 0 {
		log.Warn().Msg("No priced listings to analyze")
		return nil
	}

	statsByProduct := make(map[string]struct{ Mean, StdDev float64 })
	var points []tools.StatsPoint
	for product, prices := range grouped {
		mean := stat.Mean(prices, nil)
		sd := stat.StdDev(prices, nil)
		statsByProduct[product] = struct{ Mean, StdDev float64 }{mean, sd}
		points = append(points, tools.StatsPoint{Product: product, Mean: mean, StdDev: sd, Count: len(prices)})

		log.Info().Str("product", product).
			Float64("mean", math.Round(mean)).Float64("sd", math.Round(sd*100)/100).
			Int("listings", len(prices)).Msg("Asking price stats")

		series := dailyMedianSeries(listings, product)
		trend := decomposeTrend(series)
		if len(series) > 1 {
			if path, err := renderTrendChart(product, series, trend); err != nil {
				log.Warn().Err(err).Str("product", product).Msg("Chart render failed")
			} else {
				log.Info().Str("chart", path).Msg("Rendered price trend chart")
			}
		}
	}

	dips := FindUnderpriced(listings, statsByProduct)
	fmt.Printf("\n--- Market Analysis ---\nProducts: %d\nUnderpriced listings: %d\n", len(grouped), len(dips))

	if err := os.MkdirAll(config.DataDir, 0755); err != nil {
		return err
	}
	return tools.StorePriceStats(config.StatsFile, points)
}
