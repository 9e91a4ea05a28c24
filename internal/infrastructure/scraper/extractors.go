package scraper

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/stylesearch/backend/internal/domain"
	"github.com/stylesearch/backend/internal/pricing"
)

// selectorExtractor reads the first parsable price from a list of CSS
// selectors, then from embedded JSON patterns.
type selectorExtractor struct {
	source    string
	hosts     []string // empty matches every link
	selectors []string
	patterns  []*regexp.Regexp
}

func (e *selectorExtractor) Source() string { return e.source }

func (e *selectorExtractor) HostScoped() bool { return len(e.hosts) > 0 }

func (e *selectorExtractor) Matches(link string) bool {
	if len(e.hosts) == 0 {
		return true
	}
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range e.hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func (e *selectorExtractor) ExtractPrice(html string) (float64, bool) {
	if strings.TrimSpace(html) == "" {
		return 0, false
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err == nil {
		for _, selector := range e.selectors {
			if v, ok := firstPrice(doc.Find(selector)); ok {
				return v, true
			}
		}
	}

	for _, pattern := range e.patterns {
		for _, m := range pattern.FindAllStringSubmatch(html, -1) {
			if v, ok := pricing.ParsePrice(m[1]); ok && plausible(v) {
				return v, true
			}
		}
	}
	return 0, false
}

// firstPrice returns the first element whose text or content attribute parses.
func firstPrice(sel *goquery.Selection) (float64, bool) {
	var (
		price float64
		found bool
	)
	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			text, _ = s.Attr("content")
		}
		if v, ok := pricing.ParsePrice(text); ok && plausible(v) {
			price, found = v, true
			return false
		}
		return true
	})
	return price, found
}

func plausible(v float64) bool {
	return v >= 1 && v <= pricing.PlausibleMax
}

var (
	myntraDiscountedPattern = regexp.MustCompile(`"discountedPrice"\s*:\s*"?(\d[\d,.]*)`)
	ajioOfferPattern        = regexp.MustCompile(`"offerPrice"\s*:\s*\{[^}]*?"value"\s*:\s*"?(\d[\d,.]*)|"offerPrice"\s*:\s*"?(\d[\d,.]*)`)
	jsonLDPricePattern      = regexp.MustCompile(`"price"\s*:\s*"?(\d[\d,.]*)`)
)

// NewAmazonExtractor reads amazon.in product pages.
func NewAmazonExtractor() domain.PriceExtractor {
	return &selectorExtractor{
		source:    "amazon",
		hosts:     []string{"amazon.in", "amazon.com"},
		selectors: []string{".a-price .a-offscreen", ".a-price-whole", "#priceblock_ourprice", "#priceblock_dealprice", ".a-offscreen"},
	}
}

// NewMyntraExtractor reads myntra.com product pages.
func NewMyntraExtractor() domain.PriceExtractor {
	return &selectorExtractor{
		source:    "myntra",
		hosts:     []string{"myntra.com"},
		selectors: []string{".pdp-price strong", ".pdp-price"},
		patterns:  []*regexp.Regexp{myntraDiscountedPattern},
	}
}

// NewAjioExtractor reads ajio.com product pages.
func NewAjioExtractor() domain.PriceExtractor {
	return &ajioExtractor{selectorExtractor{
		source:    "ajio",
		hosts:     []string{"ajio.com"},
		selectors: []string{".prod-sp"},
	}}
}

// NewFlipkartExtractor reads flipkart.com product pages.
func NewFlipkartExtractor() domain.PriceExtractor {
	return &selectorExtractor{
		source:    "flipkart",
		hosts:     []string{"flipkart.com"},
		selectors: []string{"div.Nx9bqj", "._30jeq3"},
	}
}

// NewGenericExtractor reads schema.org and Open Graph price markup on any page.
func NewGenericExtractor() domain.PriceExtractor {
	return &selectorExtractor{
		source:    "generic",
		selectors: []string{`meta[property="product:price:amount"]`, `[itemprop="price"]`},
		patterns:  []*regexp.Regexp{jsonLDPricePattern},
	}
}

// DefaultExtractors returns the retailer extractors with the generic one last.
func DefaultExtractors() []domain.PriceExtractor {
	return []domain.PriceExtractor{
		NewAmazonExtractor(),
		NewMyntraExtractor(),
		NewAjioExtractor(),
		NewFlipkartExtractor(),
		NewGenericExtractor(),
	}
}

// ajioExtractor also understands the nested offerPrice object in page state.
type ajioExtractor struct {
	selectorExtractor
}

func (e *ajioExtractor) ExtractPrice(html string) (float64, bool) {
	if v, ok := e.selectorExtractor.ExtractPrice(html); ok {
		return v, true
	}
	for _, m := range ajioOfferPattern.FindAllStringSubmatch(html, -1) {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		if v, ok := pricing.ParsePrice(raw); ok && plausible(v) {
			return v, true
		}
	}
	return 0, false
}
