package usecase

import (
	"math"
	"sort"
	"strings"

	"github.com/stylesearch/backend/internal/domain"
)

// unknownCompany groups products whose source is blank.
const unknownCompany = "Unknown"

// BuildComparison groups products by company and computes price statistics.
func BuildComparison(products []domain.Product) domain.ComparisonData {
	data := domain.ComparisonData{
		Companies:     []string{},
		CompanyGroups: map[string][]domain.Product{},
		BestDeals:     []domain.BestDeal{},
		TotalProducts: len(products),
	}
	if len(products) == 0 {
		return data
	}

	order := make([]string, 0)
	cheapest := make(map[string]int)
	var (
		sum      float64
		count    int
		minPrice = math.Inf(1)
		maxPrice = math.Inf(-1)
	)

	for i, p := range products {
		company := strings.TrimSpace(p.Source)
		if company == "" {
			company = unknownCompany
		}
		if _, exists := data.CompanyGroups[company]; !exists {
			order = append(order, company)
		}
		data.CompanyGroups[company] = append(data.CompanyGroups[company], p)

		if p.PriceNumber == nil {
			continue
		}
		price := *p.PriceNumber
		sum += price
		count++
		minPrice = math.Min(minPrice, price)
		maxPrice = math.Max(maxPrice, price)

		if best, ok := cheapest[company]; !ok || price < *products[best].PriceNumber {
			cheapest[company] = i
		}
	}

	data.Companies = order
	sort.SliceStable(data.Companies, func(i, j int) bool {
		return len(data.CompanyGroups[data.Companies[i]]) > len(data.CompanyGroups[data.Companies[j]])
	})

	for _, company := range order {
		idx, ok := cheapest[company]
		if !ok {
			continue
		}
		data.BestDeals = append(data.BestDeals, domain.BestDeal{
			Company: company,
			Product: products[idx],
			Price:   *products[idx].PriceNumber,
		})
	}
	sort.SliceStable(data.BestDeals, func(i, j int) bool {
		return data.BestDeals[i].Price < data.BestDeals[j].Price
	})

	if count > 0 {
		data.PriceStats = &domain.PriceStats{
			Min:   minPrice,
			Max:   maxPrice,
			Avg:   math.Round(sum/float64(count)*100) / 100,
			Total: sum,
			Count: count,
		}
		data.PriceRange = &domain.PriceRange{
			Lowest:     minPrice,
			Highest:    maxPrice,
			Difference: maxPrice - minPrice,
		}
	}

	return data
}
