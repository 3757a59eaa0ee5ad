package tools

/**
Stores mean and standard deviation of asking prices per product for quick querying
*/
import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

// Represents the mean and standard deviation for a product
type StatsPoint struct {
	Product string
	Mean    float64
	StdDev  float64
	Count   int
}

// Represents mean and standard deviation values
type Stats struct {
	Mean   float64
	StdDev float64
	Count  int
}

// Store price statistics data to a CSV file
func StorePriceStats(fileName string, data []StatsPoint) error {
	file, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{"Product", "Mean", "SD", "Count"}
	if err := writer.Write(header); err != nil {
		return err
	}

	// Write data rows
	for _, stat := range data {
		record := []string{
			stat.Product,
			strconv.FormatFloat(stat.Mean, 'f', -1, 64),
			strconv.FormatFloat(stat.StdDev, 'f', -1, 64),
			strconv.Itoa(stat.Count),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	return nil
}

// Retrieves statistics for all products from the CSV file
func RetrievePriceStats(fileName string) map[string]Stats {
	file, err := os.Open(fileName)
	if err != nil {
		return map[string]Stats{}
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil || len(records) == 0 {
		log.Warn().Str("file", fileName).Msg("Could not read price stats cache")
		return map[string]Stats{}
	}

	// Add all products and data to rows
	result := make(map[string]Stats)
	for i := 1; i < len(records); i++ {
		record := records[i]
		if len(record) != 4 {
			continue // Skip malformed rows
		}
		product := record[0]
		mean, err1 := strconv.ParseFloat(record[1], 64)
		stdDev, err2 := strconv.ParseFloat(record[2], 64)
		count, err3 := strconv.Atoi(record[3])
		if err1 != nil || err2 != nil || err3 != nil {
			log.Warn().Str("product", product).Msg("Skipping malformed stats row")
			continue
		}

		result[product] = Stats{
			Mean:   mean,
			StdDev: stdDev,
			Count:  count,
		}
	}
	return result
}
